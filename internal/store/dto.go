package store

import (
	"encoding/json"
	"fmt"

	"github.com/olivere/elastic/v7"

	"github.com/kailas-cloud/trackdex/internal/domain"
)

// Persisted document shapes. Document ids live in document metadata, not in
// the body, matching how the index is keyed.

type experimentDoc struct {
	Name             string   `json:"name"`
	ArtifactLocation string   `json:"artifact_location"`
	LifecycleStage   string   `json:"lifecycle_stage"`
	Tags             []tagDoc `json:"tags"`
}

type runDoc struct {
	ExperimentID   string      `json:"experiment_id"`
	UserID         string      `json:"user_id"`
	Status         string      `json:"status"`
	StartTime      int64       `json:"start_time"`
	EndTime        *int64      `json:"end_time"`
	LifecycleStage string      `json:"lifecycle_stage"`
	ArtifactURI    string      `json:"artifact_uri"`
	Metrics        []metricDoc `json:"metrics"`
	LatestMetrics  []metricDoc `json:"latest_metrics"`
	Params         []paramDoc  `json:"params"`
	Tags           []tagDoc    `json:"tags"`
}

type metricDoc struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
	IsNaN     bool    `json:"is_nan"`
}

type paramDoc struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type tagDoc struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (d *experimentDoc) toEntity(id string) domain.Experiment {
	tags := make([]domain.ExperimentTag, len(d.Tags))
	for i, t := range d.Tags {
		tags[i] = domain.ExperimentTag{Key: t.Key, Value: t.Value}
	}
	return domain.Experiment{
		ID:               id,
		Name:             d.Name,
		ArtifactLocation: d.ArtifactLocation,
		LifecycleStage:   domain.LifecycleStage(d.LifecycleStage),
		Tags:             tags,
	}
}

// toEntity builds the public run. Data.Metrics comes from the latest-metrics
// collection, not the full history.
func (d *runDoc) toEntity(id string) domain.Run {
	metrics := make([]domain.Metric, len(d.LatestMetrics))
	for i, m := range d.LatestMetrics {
		metrics[i] = m.toEntity()
	}
	params := make([]domain.Param, len(d.Params))
	for i, p := range d.Params {
		params[i] = domain.Param{Key: p.Key, Value: p.Value}
	}
	tags := make([]domain.RunTag, len(d.Tags))
	for i, t := range d.Tags {
		tags[i] = domain.RunTag{Key: t.Key, Value: t.Value}
	}

	return domain.Run{
		Info: domain.RunInfo{
			RunID:          id,
			ExperimentID:   d.ExperimentID,
			UserID:         d.UserID,
			Status:         domain.RunStatus(d.Status),
			StartTime:      d.StartTime,
			EndTime:        d.EndTime,
			LifecycleStage: domain.LifecycleStage(d.LifecycleStage),
			ArtifactURI:    d.ArtifactURI,
		},
		Data: domain.RunData{Metrics: metrics, Params: params, Tags: tags},
	}
}

func (m metricDoc) toEntity() domain.Metric {
	return domain.Metric{
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
		Step:      m.Step,
		IsNaN:     m.IsNaN,
	}
}

// applyLatest keeps one latest entry per metric key. An existing entry is
// replaced only when the new point is greater under the (step, timestamp,
// value) ordering, so out-of-order logging cannot regress "latest".
func (d *runDoc) applyLatest(md metricDoc) {
	for i := range d.LatestMetrics {
		if d.LatestMetrics[i].Key != md.Key {
			continue
		}
		if md.toEntity().MoreRecent(d.LatestMetrics[i].toEntity()) {
			d.LatestMetrics[i] = md
		}
		return
	}
	d.LatestMetrics = append(d.LatestMetrics, md)
}

// docView abstracts where a run hit's fields are read from: the full _source
// document, or the inner-hits sections of a column-whitelisted response whose
// _source excludes the nested arrays. Both paths produce the same logical run
// for the same underlying data.
type docView interface {
	run() (domain.Run, error)
}

type sourceView struct {
	hit *elastic.SearchHit
}

func (v sourceView) run() (domain.Run, error) {
	var doc runDoc
	if err := json.Unmarshal(v.hit.Source, &doc); err != nil {
		return domain.Run{}, fmt.Errorf("decode run %s: %w", v.hit.Id, err)
	}
	return doc.toEntity(v.hit.Id), nil
}

type innerHitsView struct {
	hit *elastic.SearchHit
}

func (v innerHitsView) run() (domain.Run, error) {
	var doc runDoc
	if len(v.hit.Source) > 0 {
		if err := json.Unmarshal(v.hit.Source, &doc); err != nil {
			return domain.Run{}, fmt.Errorf("decode run %s: %w", v.hit.Id, err)
		}
	}

	// Nested arrays are excluded from _source on this path; the whitelisted
	// sub-documents arrive as inner hits keyed by nested path.
	doc.LatestMetrics = nil
	doc.Params = nil
	doc.Tags = nil
	if err := decodeInnerHits(v.hit, pathLatestMetrics, &doc.LatestMetrics); err != nil {
		return domain.Run{}, err
	}
	if err := decodeInnerHits(v.hit, pathParams, &doc.Params); err != nil {
		return domain.Run{}, err
	}
	if err := decodeInnerHits(v.hit, pathTags, &doc.Tags); err != nil {
		return domain.Run{}, err
	}
	return doc.toEntity(v.hit.Id), nil
}

func decodeInnerHits[T any](hit *elastic.SearchHit, name string, out *[]T) error {
	group, ok := hit.InnerHits[name]
	if !ok || group == nil || group.Hits == nil {
		return nil
	}
	for _, h := range group.Hits.Hits {
		var item T
		if err := json.Unmarshal(h.Source, &item); err != nil {
			return fmt.Errorf("decode %s inner hit of run %s: %w", name, hit.Id, err)
		}
		*out = append(*out, item)
	}
	return nil
}
