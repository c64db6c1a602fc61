package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"

	"github.com/kailas-cloud/trackdex/internal/domain"
	"github.com/kailas-cloud/trackdex/internal/es"
)

// CreateExperiment creates an ACTIVE experiment and returns its assigned id.
// Name uniqueness is enforced by a pre-check query; a concurrent create can
// still slip past it, there is no atomic constraint behind it.
func (s *Store) CreateExperiment(ctx context.Context, name, artifactLocation string) (string, error) {
	if name == "" {
		return "", domain.Errorf(domain.ErrInvalidArgument, "experiment name must not be empty")
	}

	src := elastic.NewSearchSource().
		Query(elastic.NewTermQuery("name", name)).
		Size(0)
	res, err := s.client.Search(ctx, s.cfg.ExperimentsIndex, src)
	if err != nil {
		return "", fmt.Errorf("check experiment name %q: %w", name, err)
	}
	if res.TotalHits() > 0 {
		return "", domain.Errorf(domain.ErrConflict, "experiment %q already exists", name)
	}

	doc := experimentDoc{
		Name:             name,
		ArtifactLocation: artifactLocation,
		LifecycleStage:   string(domain.StageActive),
		Tags:             []tagDoc{},
	}
	id, err := s.client.Index(ctx, s.cfg.ExperimentsIndex, "", doc)
	if err != nil {
		return "", fmt.Errorf("create experiment %q: %w", name, err)
	}

	s.log.Debug("created experiment", zap.String("experiment_id", id), zap.String("name", name))
	return id, nil
}

// GetExperiment returns an experiment by id.
func (s *Store) GetExperiment(ctx context.Context, id string) (domain.Experiment, error) {
	doc, err := s.getExperimentDoc(ctx, id)
	if err != nil {
		return domain.Experiment{}, err
	}
	return doc.toEntity(id), nil
}

func (s *Store) getExperimentDoc(ctx context.Context, id string) (*experimentDoc, error) {
	raw, err := s.client.GetSource(ctx, s.cfg.ExperimentsIndex, id)
	if err != nil {
		if errors.Is(err, es.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "experiment %s not found", id)
		}
		return nil, fmt.Errorf("get experiment %s: %w", id, err)
	}
	var doc experimentDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode experiment %s: %w", id, err)
	}
	return &doc, nil
}

// DeleteExperiment soft-deletes an ACTIVE experiment.
func (s *Store) DeleteExperiment(ctx context.Context, id string) error {
	return s.setExperimentStage(ctx, id, domain.StageActive, domain.StageDeleted)
}

// RestoreExperiment reactivates a DELETED experiment.
func (s *Store) RestoreExperiment(ctx context.Context, id string) error {
	return s.setExperimentStage(ctx, id, domain.StageDeleted, domain.StageActive)
}

func (s *Store) setExperimentStage(ctx context.Context, id string, from, to domain.LifecycleStage) error {
	doc, err := s.getExperimentDoc(ctx, id)
	if err != nil {
		return err
	}
	if doc.LifecycleStage != string(from) {
		return domain.Errorf(domain.ErrInvalidState,
			"experiment %s is %s, must be %s", id, doc.LifecycleStage, from)
	}

	if err := s.updateExperiment(ctx, id, map[string]any{"lifecycle_stage": string(to)}); err != nil {
		return err
	}
	s.log.Debug("changed experiment stage",
		zap.String("experiment_id", id), zap.String("stage", string(to)))
	return nil
}

// RenameExperiment changes the name of an ACTIVE experiment.
func (s *Store) RenameExperiment(ctx context.Context, id, newName string) error {
	if newName == "" {
		return domain.Errorf(domain.ErrInvalidArgument, "experiment name must not be empty")
	}
	doc, err := s.getExperimentDoc(ctx, id)
	if err != nil {
		return err
	}
	if doc.LifecycleStage != string(domain.StageActive) {
		return domain.Errorf(domain.ErrInvalidState,
			"cannot rename experiment %s in stage %s", id, doc.LifecycleStage)
	}
	return s.updateExperiment(ctx, id, map[string]any{"name": newName})
}

// SetExperimentTag sets a tag on an experiment; an existing key is
// overwritten.
func (s *Store) SetExperimentTag(ctx context.Context, id string, tag domain.ExperimentTag) error {
	if tag.Key == "" {
		return domain.Errorf(domain.ErrInvalidArgument, "tag key must not be empty")
	}
	doc, err := s.getExperimentDoc(ctx, id)
	if err != nil {
		return err
	}

	found := false
	for i := range doc.Tags {
		if doc.Tags[i].Key == tag.Key {
			doc.Tags[i].Value = tag.Value
			found = true
			break
		}
	}
	if !found {
		doc.Tags = append(doc.Tags, tagDoc{Key: tag.Key, Value: tag.Value})
	}

	return s.updateExperiment(ctx, id, map[string]any{"tags": doc.Tags})
}

func (s *Store) updateExperiment(ctx context.Context, id string, partial map[string]any) error {
	if err := s.client.Update(ctx, s.cfg.ExperimentsIndex, id, partial); err != nil {
		if errors.Is(err, es.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, "experiment %s not found", id)
		}
		return fmt.Errorf("update experiment %s: %w", id, err)
	}
	return nil
}

// ListExperiments returns experiments whose lifecycle stage is visible under
// the view type.
func (s *Store) ListExperiments(ctx context.Context, view domain.ViewType) ([]domain.Experiment, error) {
	stages := view.Stages()
	stageVals := make([]any, len(stages))
	for i, st := range stages {
		stageVals[i] = string(st)
	}

	src := elastic.NewSearchSource().
		Query(elastic.NewTermsQuery("lifecycle_stage", stageVals...)).
		Size(listWindow)
	res, err := s.client.Search(ctx, s.cfg.ExperimentsIndex, src)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}

	experiments := make([]domain.Experiment, 0)
	if res.Hits == nil {
		return experiments, nil
	}
	for _, hit := range res.Hits.Hits {
		var doc experimentDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode experiment %s: %w", hit.Id, err)
		}
		experiments = append(experiments, doc.toEntity(hit.Id))
	}
	return experiments, nil
}
