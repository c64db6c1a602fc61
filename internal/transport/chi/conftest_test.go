package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/trackdex/internal/domain"
)

// mockStore implements trackingStore with overridable func fields. Unset
// operations return zero values.
type mockStore struct {
	createExperimentFn func(ctx context.Context, name, artifactLocation string) (string, error)
	getExperimentFn    func(ctx context.Context, id string) (domain.Experiment, error)
	listExperimentsFn  func(ctx context.Context, view domain.ViewType) ([]domain.Experiment, error)
	deleteExperimentFn func(ctx context.Context, id string) error
	restoreExpFn       func(ctx context.Context, id string) error
	renameExperimentFn func(ctx context.Context, id, newName string) error
	setExpTagFn        func(ctx context.Context, id string, tag domain.ExperimentTag) error

	createRunFn        func(ctx context.Context, experimentID, userID string, startTime int64, tags []domain.RunTag) (domain.Run, error)
	getRunFn           func(ctx context.Context, runID string) (domain.Run, error)
	updateRunInfoFn    func(ctx context.Context, runID string, status domain.RunStatus, endTime *int64) (domain.RunInfo, error)
	deleteRunFn        func(ctx context.Context, runID string) error
	restoreRunFn       func(ctx context.Context, runID string) error
	logMetricFn        func(ctx context.Context, runID string, metric domain.Metric) error
	logParamFn         func(ctx context.Context, runID string, param domain.Param) error
	setTagFn           func(ctx context.Context, runID string, tag domain.RunTag) error
	getMetricHistoryFn func(ctx context.Context, runID, key string) ([]domain.Metric, error)
	searchRunsFn       func(ctx context.Context, experimentIDs []string, filter string, view domain.ViewType,
		maxResults int, orderBy []string, pageToken string, columnWhitelist []string) ([]domain.Run, string, error)
	listAllColumnsFn func(ctx context.Context, experimentID string, view domain.ViewType) (domain.Columns, error)
}

func (m *mockStore) CreateExperiment(ctx context.Context, name, loc string) (string, error) {
	if m.createExperimentFn != nil {
		return m.createExperimentFn(ctx, name, loc)
	}
	return "", nil
}

func (m *mockStore) GetExperiment(ctx context.Context, id string) (domain.Experiment, error) {
	if m.getExperimentFn != nil {
		return m.getExperimentFn(ctx, id)
	}
	return domain.Experiment{}, nil
}

func (m *mockStore) ListExperiments(ctx context.Context, view domain.ViewType) ([]domain.Experiment, error) {
	if m.listExperimentsFn != nil {
		return m.listExperimentsFn(ctx, view)
	}
	return nil, nil
}

func (m *mockStore) DeleteExperiment(ctx context.Context, id string) error {
	if m.deleteExperimentFn != nil {
		return m.deleteExperimentFn(ctx, id)
	}
	return nil
}

func (m *mockStore) RestoreExperiment(ctx context.Context, id string) error {
	if m.restoreExpFn != nil {
		return m.restoreExpFn(ctx, id)
	}
	return nil
}

func (m *mockStore) RenameExperiment(ctx context.Context, id, newName string) error {
	if m.renameExperimentFn != nil {
		return m.renameExperimentFn(ctx, id, newName)
	}
	return nil
}

func (m *mockStore) SetExperimentTag(ctx context.Context, id string, tag domain.ExperimentTag) error {
	if m.setExpTagFn != nil {
		return m.setExpTagFn(ctx, id, tag)
	}
	return nil
}

func (m *mockStore) CreateRun(
	ctx context.Context, experimentID, userID string, startTime int64, tags []domain.RunTag,
) (domain.Run, error) {
	if m.createRunFn != nil {
		return m.createRunFn(ctx, experimentID, userID, startTime, tags)
	}
	return domain.Run{}, nil
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (domain.Run, error) {
	if m.getRunFn != nil {
		return m.getRunFn(ctx, runID)
	}
	return domain.Run{}, nil
}

func (m *mockStore) UpdateRunInfo(
	ctx context.Context, runID string, status domain.RunStatus, endTime *int64,
) (domain.RunInfo, error) {
	if m.updateRunInfoFn != nil {
		return m.updateRunInfoFn(ctx, runID, status, endTime)
	}
	return domain.RunInfo{}, nil
}

func (m *mockStore) DeleteRun(ctx context.Context, runID string) error {
	if m.deleteRunFn != nil {
		return m.deleteRunFn(ctx, runID)
	}
	return nil
}

func (m *mockStore) RestoreRun(ctx context.Context, runID string) error {
	if m.restoreRunFn != nil {
		return m.restoreRunFn(ctx, runID)
	}
	return nil
}

func (m *mockStore) LogMetric(ctx context.Context, runID string, metric domain.Metric) error {
	if m.logMetricFn != nil {
		return m.logMetricFn(ctx, runID, metric)
	}
	return nil
}

func (m *mockStore) LogParam(ctx context.Context, runID string, param domain.Param) error {
	if m.logParamFn != nil {
		return m.logParamFn(ctx, runID, param)
	}
	return nil
}

func (m *mockStore) SetTag(ctx context.Context, runID string, tag domain.RunTag) error {
	if m.setTagFn != nil {
		return m.setTagFn(ctx, runID, tag)
	}
	return nil
}

func (m *mockStore) GetMetricHistory(ctx context.Context, runID, key string) ([]domain.Metric, error) {
	if m.getMetricHistoryFn != nil {
		return m.getMetricHistoryFn(ctx, runID, key)
	}
	return []domain.Metric{}, nil
}

func (m *mockStore) SearchRuns(
	ctx context.Context, experimentIDs []string, filter string, view domain.ViewType,
	maxResults int, orderBy []string, pageToken string, columnWhitelist []string,
) ([]domain.Run, string, error) {
	if m.searchRunsFn != nil {
		return m.searchRunsFn(ctx, experimentIDs, filter, view, maxResults, orderBy, pageToken, columnWhitelist)
	}
	return nil, "", nil
}

func (m *mockStore) ListAllColumns(ctx context.Context, experimentID string, view domain.ViewType) (domain.Columns, error) {
	if m.listAllColumnsFn != nil {
		return m.listAllColumnsFn(ctx, experimentID, view)
	}
	return domain.Columns{}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// newTestRouter wires a Server over the mock store into a chi router.
func newTestRouter(store *mockStore, health pinger) http.Handler {
	r := chi.NewRouter()
	NewServer(store, health, zap.NewNop()).Routes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
