package store

import (
	"strconv"
	"strings"

	"github.com/olivere/elastic/v7"

	"github.com/kailas-cloud/trackdex/internal/domain"
	"github.com/kailas-cloud/trackdex/internal/domain/query"
)

// Nested collection paths in the run document.
const (
	pathMetrics       = "metrics"
	pathLatestMetrics = "latest_metrics"
	pathParams        = "params"
	pathTags          = "tags"
)

// nestedPath returns the collection a key type filters and sorts against.
// Metric clauses read latest values, not the full history.
func nestedPath(t query.KeyType) string {
	switch t {
	case query.TypeMetric:
		return pathLatestMetrics
	case query.TypeParameter:
		return pathParams
	default:
		return pathTags
	}
}

// buildSearchQuery compiles parsed filter clauses into a boolean query. Two
// fixed filters are always present: experiment-id membership and the
// lifecycle stages allowed by the requested view.
func buildSearchQuery(experimentID string, stages []domain.LifecycleStage, clauses []query.Clause) (*elastic.BoolQuery, error) {
	stageVals := make([]any, len(stages))
	for i, s := range stages {
		stageVals[i] = string(s)
	}

	q := elastic.NewBoolQuery().Filter(
		elastic.NewTermQuery("experiment_id", experimentID),
		elastic.NewTermsQuery("lifecycle_stage", stageVals...),
	)

	for _, c := range clauses {
		if c.Type == query.TypeAttribute {
			if err := applyAttributeClause(q, c); err != nil {
				return nil, err
			}
			continue
		}
		if err := applyNestedClause(q, c); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// applyAttributeClause adds a clause on a top-level run field.
func applyAttributeClause(q *elastic.BoolQuery, c query.Clause) error {
	value, err := clauseValue(c)
	if err != nil {
		return err
	}
	switch c.Comparator {
	case query.CompNE:
		q.MustNot(elastic.NewTermQuery(c.Key, value))
	default:
		vq, err := valueQuery(c.Key, c.Comparator, value)
		if err != nil {
			return err
		}
		q.Must(vq)
	}
	return nil
}

// applyNestedClause adds a clause on a metric/param/tag sub-document: the
// sub-document key must match exactly, and the value matches the mapped
// clause. For != the value term sits in the nested must_not, so runs that
// carry the key with a different value still match.
func applyNestedClause(q *elastic.BoolQuery, c query.Clause) error {
	path := nestedPath(c.Type)
	value, err := clauseValue(c)
	if err != nil {
		return err
	}

	keyTerm := elastic.NewTermQuery(path+".key", c.Key)
	inner := elastic.NewBoolQuery().Must(keyTerm)
	switch c.Comparator {
	case query.CompNE:
		inner.MustNot(elastic.NewTermQuery(path+".value", value))
	default:
		vq, err := valueQuery(path+".value", c.Comparator, value)
		if err != nil {
			return err
		}
		inner.Must(vq)
	}

	q.Must(elastic.NewNestedQuery(path, inner))
	return nil
}

// clauseValue types the raw filter value. Metric values must be numeric;
// attribute values are numeric only for range comparators (start/end times);
// params and tags always compare as strings.
func clauseValue(c query.Clause) (any, error) {
	switch c.Type {
	case query.TypeMetric:
		f, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return nil, domain.Errorf(domain.ErrInvalidArgument,
				"metric filter value %q is not numeric", c.Value)
		}
		return f, nil
	case query.TypeAttribute:
		if isRangeComparator(c.Comparator) {
			if f, err := strconv.ParseFloat(c.Value, 64); err == nil {
				return f, nil
			}
		}
		return c.Value, nil
	default:
		return c.Value, nil
	}
}

func isRangeComparator(cmp query.Comparator) bool {
	switch cmp {
	case query.CompGT, query.CompGTE, query.CompLT, query.CompLTE:
		return true
	}
	return false
}

// valueQuery maps a comparator onto its query clause kind.
func valueQuery(field string, cmp query.Comparator, value any) (elastic.Query, error) {
	switch cmp {
	case query.CompGT:
		return elastic.NewRangeQuery(field).Gt(value), nil
	case query.CompGTE:
		return elastic.NewRangeQuery(field).Gte(value), nil
	case query.CompLT:
		return elastic.NewRangeQuery(field).Lt(value), nil
	case query.CompLTE:
		return elastic.NewRangeQuery(field).Lte(value), nil
	case query.CompEQ:
		return elastic.NewTermQuery(field, value), nil
	case query.CompLike, query.CompILike:
		s, ok := value.(string)
		if !ok {
			return nil, domain.Errorf(domain.ErrInvalidArgument,
				"%s requires a string value", cmp)
		}
		return elastic.NewWildcardQuery(field, wildcardValue(s)), nil
	}
	return nil, domain.Errorf(domain.ErrInvalidArgument, "unsupported comparator %q", cmp)
}

// wildcardValue strips SQL-style % markers and wraps the remainder in a
// contains-style wildcard pattern.
func wildcardValue(v string) string {
	return "*" + strings.ReplaceAll(v, "%", "") + "*"
}

// buildSort turns parsed order keys into sort specifications. The default
// sort is always appended after caller keys: start-time descending, then id
// ascending as a tie-break so pagination stays deterministic.
func buildSort(orderKeys []query.OrderKey) []elastic.Sorter {
	sorters := make([]elastic.Sorter, 0, len(orderKeys)+2)
	for _, k := range orderKeys {
		var fs *elastic.FieldSort
		if k.Type == query.TypeAttribute {
			fs = elastic.NewFieldSort(k.Key)
		} else {
			path := nestedPath(k.Type)
			fs = elastic.NewFieldSort(path + ".value").
				Nested(elastic.NewNestedSort(path).
					Filter(elastic.NewTermQuery(path+".key", k.Key)))
		}
		if k.Ascending {
			fs = fs.Asc()
		} else {
			fs = fs.Desc()
		}
		sorters = append(sorters, fs)
	}

	sorters = append(sorters,
		elastic.NewFieldSort("start_time").Desc(),
		elastic.NewFieldSort("_id").Asc(),
	)
	return sorters
}

// buildColumnWhitelist partitions qualified column names (metrics.k,
// params.k, tags.k) into one nested terms query per collection, each
// requesting inner hits. The caller combines them as bool should with zero
// required matches, so they narrow returned sub-fields without excluding
// parent documents. The returned source context drops the bulky nested
// arrays from the response body.
func buildColumnWhitelist(columns []string) ([]elastic.Query, *elastic.FetchSourceContext) {
	byPath := map[string][]any{}
	for _, col := range columns {
		prefix, key, ok := strings.Cut(col, ".")
		if !ok || key == "" {
			continue
		}
		switch prefix {
		case "metrics":
			byPath[pathLatestMetrics] = append(byPath[pathLatestMetrics], key)
		case "params":
			byPath[pathParams] = append(byPath[pathParams], key)
		case "tags":
			byPath[pathTags] = append(byPath[pathTags], key)
		}
	}

	queries := make([]elastic.Query, 0, len(byPath))
	for _, path := range []string{pathLatestMetrics, pathParams, pathTags} {
		keys, ok := byPath[path]
		if !ok {
			continue
		}
		queries = append(queries, elastic.NewNestedQuery(path,
			elastic.NewTermsQuery(path+".key", keys...),
		).InnerHit(elastic.NewInnerHit().Name(path).Size(innerHitWindow)))
	}

	fsc := elastic.NewFetchSourceContext(true).
		Exclude(pathMetrics, pathLatestMetrics, pathParams, pathTags)
	return queries, fsc
}
