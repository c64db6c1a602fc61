package chi

import (
	"fmt"

	"github.com/kailas-cloud/trackdex/internal/domain"
)

// Wire types for the tracking REST API. Field names follow the MLflow REST
// conventions so stock tracking clients can point at this server.

type errorResponse struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

type experimentResponse struct {
	ExperimentID     string        `json:"experiment_id"`
	Name             string        `json:"name"`
	ArtifactLocation string        `json:"artifact_location"`
	LifecycleStage   string        `json:"lifecycle_stage"`
	Tags             []tagResponse `json:"tags,omitempty"`
}

type tagResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type runInfoResponse struct {
	RunID          string `json:"run_id"`
	ExperimentID   string `json:"experiment_id"`
	UserID         string `json:"user_id,omitempty"`
	Status         string `json:"status"`
	StartTime      int64  `json:"start_time"`
	EndTime        *int64 `json:"end_time,omitempty"`
	LifecycleStage string `json:"lifecycle_stage"`
	ArtifactURI    string `json:"artifact_uri"`
}

type metricResponse struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
	IsNaN     bool    `json:"is_nan,omitempty"`
}

type runDataResponse struct {
	Metrics []metricResponse `json:"metrics,omitempty"`
	Params  []tagResponse    `json:"params,omitempty"`
	Tags    []tagResponse    `json:"tags,omitempty"`
}

type runResponse struct {
	Info runInfoResponse `json:"info"`
	Data runDataResponse `json:"data"`
}

type columnsResponse struct {
	Metrics []string `json:"metrics"`
	Params  []string `json:"params"`
	Tags    []string `json:"tags"`
}

func experimentToWire(e domain.Experiment) experimentResponse {
	return experimentResponse{
		ExperimentID:     e.ID,
		Name:             e.Name,
		ArtifactLocation: e.ArtifactLocation,
		LifecycleStage:   string(e.LifecycleStage),
		Tags:             expTagsToWire(e.Tags),
	}
}

func expTagsToWire(tags []domain.ExperimentTag) []tagResponse {
	if len(tags) == 0 {
		return nil
	}
	out := make([]tagResponse, len(tags))
	for i, t := range tags {
		out[i] = tagResponse{Key: t.Key, Value: t.Value}
	}
	return out
}

func runInfoToWire(info domain.RunInfo) runInfoResponse {
	return runInfoResponse{
		RunID:          info.RunID,
		ExperimentID:   info.ExperimentID,
		UserID:         info.UserID,
		Status:         string(info.Status),
		StartTime:      info.StartTime,
		EndTime:        info.EndTime,
		LifecycleStage: string(info.LifecycleStage),
		ArtifactURI:    info.ArtifactURI,
	}
}

func runToWire(r domain.Run) runResponse {
	data := runDataResponse{}
	if len(r.Data.Metrics) > 0 {
		data.Metrics = make([]metricResponse, len(r.Data.Metrics))
		for i, m := range r.Data.Metrics {
			data.Metrics[i] = metricToWire(m)
		}
	}
	if len(r.Data.Params) > 0 {
		data.Params = make([]tagResponse, len(r.Data.Params))
		for i, p := range r.Data.Params {
			data.Params[i] = tagResponse{Key: p.Key, Value: p.Value}
		}
	}
	if len(r.Data.Tags) > 0 {
		data.Tags = make([]tagResponse, len(r.Data.Tags))
		for i, t := range r.Data.Tags {
			data.Tags[i] = tagResponse{Key: t.Key, Value: t.Value}
		}
	}
	return runResponse{Info: runInfoToWire(r.Info), Data: data}
}

func metricToWire(m domain.Metric) metricResponse {
	return metricResponse{
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
		Step:      m.Step,
		IsNaN:     m.IsNaN,
	}
}

// parseViewType maps the wire view type to the domain enum. An empty value
// defaults to active-only, matching tracking client behavior.
func parseViewType(v string) (domain.ViewType, error) {
	switch v {
	case "", "ACTIVE_ONLY":
		return domain.ViewActiveOnly, nil
	case "DELETED_ONLY":
		return domain.ViewDeletedOnly, nil
	case "ALL":
		return domain.ViewAll, nil
	default:
		return 0, fmt.Errorf("unknown view type %q", v)
	}
}
