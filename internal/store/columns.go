package store

import (
	"context"
	"fmt"

	"github.com/olivere/elastic/v7"

	"github.com/kailas-cloud/trackdex/internal/domain"
)

// ListAllColumns returns the distinct metric/param/tag keys observed across
// the experiment's runs visible under the view type.
func (s *Store) ListAllColumns(ctx context.Context, experimentID string, view domain.ViewType) (domain.Columns, error) {
	stages := view.Stages()
	stageVals := make([]any, len(stages))
	for i, st := range stages {
		stageVals[i] = string(st)
	}

	q := elastic.NewBoolQuery().Filter(
		elastic.NewTermQuery("experiment_id", experimentID),
		elastic.NewTermsQuery("lifecycle_stage", stageVals...),
	)

	src := elastic.NewSearchSource().Query(q).Size(0)
	for _, path := range []string{pathLatestMetrics, pathParams, pathTags} {
		src.Aggregation(path, elastic.NewNestedAggregation().
			Path(path).
			SubAggregation("keys", elastic.NewTermsAggregation().
				Field(path+".key").
				Size(columnsAggSize)))
	}

	res, err := s.client.Search(ctx, s.cfg.RunsIndex, src)
	if err != nil {
		return domain.Columns{}, fmt.Errorf("list columns for experiment %s: %w", experimentID, err)
	}

	return domain.Columns{
		Metrics: aggKeys(res, pathLatestMetrics),
		Params:  aggKeys(res, pathParams),
		Tags:    aggKeys(res, pathTags),
	}, nil
}

// aggKeys extracts the bucket keys of a nested terms aggregation.
func aggKeys(res *elastic.SearchResult, name string) []string {
	keys := make([]string, 0)
	if res.Aggregations == nil {
		return keys
	}
	nested, ok := res.Aggregations.Nested(name)
	if !ok {
		return keys
	}
	terms, ok := nested.Terms("keys")
	if !ok {
		return keys
	}
	for _, bucket := range terms.Buckets {
		if key, ok := bucket.Key.(string); ok {
			keys = append(keys, key)
		}
	}
	return keys
}
