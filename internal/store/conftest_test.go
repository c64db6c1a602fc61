package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"

	"github.com/kailas-cloud/trackdex/internal/es"
)

// mockClient implements the esClient consumer interface for tests.
type mockClient struct {
	getSourceFn func(ctx context.Context, index, id string) (json.RawMessage, error)
	indexFn     func(ctx context.Context, index, id string, body any) (string, error)
	updateFn    func(ctx context.Context, index, id string, doc map[string]any) error
	searchFn    func(ctx context.Context, index string, src *elastic.SearchSource) (*elastic.SearchResult, error)

	getCalls    int
	indexCalls  int
	updateCalls int
	searchCalls int
}

func (m *mockClient) GetSource(ctx context.Context, index, id string) (json.RawMessage, error) {
	m.getCalls++
	if m.getSourceFn != nil {
		return m.getSourceFn(ctx, index, id)
	}
	return nil, es.ErrNotFound
}

func (m *mockClient) Index(ctx context.Context, index, id string, body any) (string, error) {
	m.indexCalls++
	if m.indexFn != nil {
		return m.indexFn(ctx, index, id, body)
	}
	if id == "" {
		return "generated-id", nil
	}
	return id, nil
}

func (m *mockClient) Update(ctx context.Context, index, id string, doc map[string]any) error {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, index, id, doc)
	}
	return nil
}

func (m *mockClient) Search(ctx context.Context, index string, src *elastic.SearchSource) (*elastic.SearchResult, error) {
	m.searchCalls++
	if m.searchFn != nil {
		return m.searchFn(ctx, index, src)
	}
	return emptyResult(), nil
}

func newTestStore(c *mockClient) *Store {
	return New(c, Config{}, zap.NewNop())
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

func emptyResult() *elastic.SearchResult {
	return &elastic.SearchResult{
		Hits: &elastic.SearchHits{TotalHits: &elastic.TotalHits{Value: 0}},
	}
}

func resultWithHits(hits ...*elastic.SearchHit) *elastic.SearchResult {
	return &elastic.SearchResult{
		Hits: &elastic.SearchHits{
			TotalHits: &elastic.TotalHits{Value: int64(len(hits))},
			Hits:      hits,
		},
	}
}

// sourceJSON renders a search source for assertions on the built query.
func sourceJSON(t *testing.T, src *elastic.SearchSource) string {
	t.Helper()
	body, err := src.Source()
	if err != nil {
		t.Fatalf("search source: %v", err)
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal search source: %v", err)
	}
	return string(data)
}

// runBackedMock serves one mutable run document, applying partial updates
// back onto it the way the document store would.
type runBackedMock struct {
	mockClient
	runID string
	doc   runDoc
}

func newRunBackedMock(t *testing.T, runID string, doc runDoc) *runBackedMock {
	t.Helper()
	m := &runBackedMock{runID: runID, doc: doc}
	m.getSourceFn = func(_ context.Context, _, id string) (json.RawMessage, error) {
		if id != m.runID {
			return nil, es.ErrNotFound
		}
		return mustJSON(t, m.doc), nil
	}
	m.updateFn = func(_ context.Context, _, id string, partial map[string]any) error {
		if id != m.runID {
			return es.ErrNotFound
		}
		m.apply(partial)
		return nil
	}
	return m
}

func (m *runBackedMock) apply(partial map[string]any) {
	for k, v := range partial {
		switch k {
		case "metrics":
			m.doc.Metrics = v.([]metricDoc)
		case "latest_metrics":
			m.doc.LatestMetrics = v.([]metricDoc)
		case "params":
			m.doc.Params = v.([]paramDoc)
		case "tags":
			m.doc.Tags = v.([]tagDoc)
		case "status":
			m.doc.Status = v.(string)
		case "end_time":
			m.doc.EndTime = v.(*int64)
		case "lifecycle_stage":
			m.doc.LifecycleStage = v.(string)
		}
	}
}

func activeRunDoc(experimentID string) runDoc {
	return runDoc{
		ExperimentID:   experimentID,
		UserID:         "user",
		Status:         "RUNNING",
		StartTime:      1000,
		LifecycleStage: "active",
		ArtifactURI:    "/art/run/artifacts",
		Metrics:        []metricDoc{},
		LatestMetrics:  []metricDoc{},
		Params:         []paramDoc{},
		Tags:           []tagDoc{},
	}
}
