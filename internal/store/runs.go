package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"

	"github.com/kailas-cloud/trackdex/internal/domain"
	"github.com/kailas-cloud/trackdex/internal/es"
)

// CreateRun creates a RUNNING run under an experiment. The run id is
// generated by the store, and the artifact URI is derived from the owning
// experiment's artifact location. Input tags are deduplicated by key with the
// last occurrence winning.
func (s *Store) CreateRun(ctx context.Context, experimentID, userID string, startTime int64, tags []domain.RunTag) (domain.Run, error) {
	exp, err := s.GetExperiment(ctx, experimentID)
	if err != nil {
		return domain.Run{}, err
	}

	id := uuid.New()
	runID := hex.EncodeToString(id[:])

	doc := runDoc{
		ExperimentID:   experimentID,
		UserID:         userID,
		Status:         string(domain.StatusRunning),
		StartTime:      startTime,
		LifecycleStage: string(domain.StageActive),
		ArtifactURI:    appendToURIPath(exp.ArtifactLocation, runID, artifactsFolderName),
		Metrics:        []metricDoc{},
		LatestMetrics:  []metricDoc{},
		Params:         []paramDoc{},
		Tags:           dedupeTagDocs(tags),
	}

	if _, err := s.client.Index(ctx, s.cfg.RunsIndex, runID, doc); err != nil {
		return domain.Run{}, fmt.Errorf("create run under experiment %s: %w", experimentID, err)
	}

	s.log.Debug("created run",
		zap.String("run_id", runID), zap.String("experiment_id", experimentID))
	return doc.toEntity(runID), nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (domain.Run, error) {
	doc, err := s.getRunDoc(ctx, runID)
	if err != nil {
		return domain.Run{}, err
	}
	return doc.toEntity(runID), nil
}

func (s *Store) getRunDoc(ctx context.Context, runID string) (*runDoc, error) {
	raw, err := s.client.GetSource(ctx, s.cfg.RunsIndex, runID)
	if err != nil {
		if errors.Is(err, es.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "run %s not found", runID)
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	var doc runDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &doc, nil
}

// UpdateRunInfo sets the status and end time of an ACTIVE run and returns
// the updated info.
func (s *Store) UpdateRunInfo(ctx context.Context, runID string, status domain.RunStatus, endTime *int64) (domain.RunInfo, error) {
	doc, err := s.getRunDoc(ctx, runID)
	if err != nil {
		return domain.RunInfo{}, err
	}
	if doc.LifecycleStage != string(domain.StageActive) {
		return domain.RunInfo{}, domain.Errorf(domain.ErrInvalidState,
			"cannot update run %s in stage %s", runID, doc.LifecycleStage)
	}

	doc.Status = string(status)
	doc.EndTime = endTime
	if err := s.updateRun(ctx, runID, map[string]any{
		"status":   doc.Status,
		"end_time": doc.EndTime,
	}); err != nil {
		return domain.RunInfo{}, err
	}
	return doc.toEntity(runID).Info, nil
}

// DeleteRun soft-deletes an ACTIVE run.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	return s.setRunStage(ctx, runID, domain.StageActive, domain.StageDeleted)
}

// RestoreRun reactivates a DELETED run.
func (s *Store) RestoreRun(ctx context.Context, runID string) error {
	return s.setRunStage(ctx, runID, domain.StageDeleted, domain.StageActive)
}

func (s *Store) setRunStage(ctx context.Context, runID string, from, to domain.LifecycleStage) error {
	doc, err := s.getRunDoc(ctx, runID)
	if err != nil {
		return err
	}
	if doc.LifecycleStage != string(from) {
		return domain.Errorf(domain.ErrInvalidState,
			"run %s is %s, must be %s", runID, doc.LifecycleStage, from)
	}
	if err := s.updateRun(ctx, runID, map[string]any{"lifecycle_stage": string(to)}); err != nil {
		return err
	}
	s.log.Debug("changed run stage", zap.String("run_id", runID), zap.String("stage", string(to)))
	return nil
}

// LogMetric appends a metric point to the run's history and refreshes the
// per-key latest entry. Non-finite values are sanitized before storage. The
// read-modify-write sequence is not transactional; a failed write leaves the
// document unchanged and the in-memory mutation is discarded.
func (s *Store) LogMetric(ctx context.Context, runID string, metric domain.Metric) error {
	if metric.Key == "" {
		return domain.Errorf(domain.ErrInvalidArgument, "metric key must not be empty")
	}

	doc, err := s.getRunDoc(ctx, runID)
	if err != nil {
		return err
	}

	stored, isNaN := domain.SanitizeValue(metric.Value)
	md := metricDoc{
		Key:       metric.Key,
		Value:     stored,
		Timestamp: metric.Timestamp,
		Step:      metric.Step,
		IsNaN:     isNaN,
	}
	doc.Metrics = append(doc.Metrics, md)
	doc.applyLatest(md)

	return s.updateRun(ctx, runID, map[string]any{
		"metrics":        doc.Metrics,
		"latest_metrics": doc.LatestMetrics,
	})
}

// LogParam appends a parameter. Historical writes on one key are not
// deduplicated here; params are single-valued per key by caller convention.
func (s *Store) LogParam(ctx context.Context, runID string, param domain.Param) error {
	if param.Key == "" {
		return domain.Errorf(domain.ErrInvalidArgument, "param key must not be empty")
	}
	doc, err := s.getRunDoc(ctx, runID)
	if err != nil {
		return err
	}
	doc.Params = append(doc.Params, paramDoc{Key: param.Key, Value: param.Value})
	return s.updateRun(ctx, runID, map[string]any{"params": doc.Params})
}

// SetTag appends a tag record to the run.
func (s *Store) SetTag(ctx context.Context, runID string, tag domain.RunTag) error {
	if tag.Key == "" {
		return domain.Errorf(domain.ErrInvalidArgument, "tag key must not be empty")
	}
	doc, err := s.getRunDoc(ctx, runID)
	if err != nil {
		return err
	}
	doc.Tags = append(doc.Tags, tagDoc{Key: tag.Key, Value: tag.Value})
	return s.updateRun(ctx, runID, map[string]any{"tags": doc.Tags})
}

// GetMetricHistory returns the full ordered history for one metric key of
// one run. A run or key with no history yields an empty list, never an
// error.
func (s *Store) GetMetricHistory(ctx context.Context, runID, key string) ([]domain.Metric, error) {
	q := elastic.NewBoolQuery().
		Filter(elastic.NewIdsQuery().Ids(runID)).
		Must(elastic.NewNestedQuery(pathMetrics,
			elastic.NewTermQuery(pathMetrics+".key", key),
		).InnerHit(elastic.NewInnerHit().Name(pathMetrics).Size(innerHitWindow)))

	src := elastic.NewSearchSource().
		Query(q).
		FetchSourceContext(elastic.NewFetchSourceContext(false))
	res, err := s.client.Search(ctx, s.cfg.RunsIndex, src)
	if err != nil {
		return nil, fmt.Errorf("get metric history %s/%s: %w", runID, key, err)
	}

	history := make([]domain.Metric, 0)
	if res.Hits == nil || len(res.Hits.Hits) == 0 {
		return history, nil
	}

	var docs []metricDoc
	if err := decodeInnerHits(res.Hits.Hits[0], pathMetrics, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		history = append(history, d.toEntity())
	}
	return history, nil
}

func (s *Store) updateRun(ctx context.Context, runID string, partial map[string]any) error {
	if err := s.client.Update(ctx, s.cfg.RunsIndex, runID, partial); err != nil {
		if errors.Is(err, es.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, "run %s not found", runID)
		}
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	return nil
}

// dedupeTagDocs keeps the last value per key, preserving first-occurrence
// order.
func dedupeTagDocs(tags []domain.RunTag) []tagDoc {
	index := make(map[string]int, len(tags))
	out := make([]tagDoc, 0, len(tags))
	for _, t := range tags {
		if i, ok := index[t.Key]; ok {
			out[i].Value = t.Value
			continue
		}
		index[t.Key] = len(out)
		out = append(out, tagDoc{Key: t.Key, Value: t.Value})
	}
	return out
}

// appendToURIPath joins path segments onto a base URI with single slashes.
func appendToURIPath(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		if out == "" {
			out = p
			continue
		}
		out += "/" + p
	}
	return out
}
