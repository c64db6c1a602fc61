package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/trackdex/internal/domain"
)

// trackingStore is the store surface the HTTP layer consumes.
type trackingStore interface {
	CreateExperiment(ctx context.Context, name, artifactLocation string) (string, error)
	GetExperiment(ctx context.Context, id string) (domain.Experiment, error)
	ListExperiments(ctx context.Context, view domain.ViewType) ([]domain.Experiment, error)
	DeleteExperiment(ctx context.Context, id string) error
	RestoreExperiment(ctx context.Context, id string) error
	RenameExperiment(ctx context.Context, id, newName string) error
	SetExperimentTag(ctx context.Context, id string, tag domain.ExperimentTag) error

	CreateRun(ctx context.Context, experimentID, userID string, startTime int64, tags []domain.RunTag) (domain.Run, error)
	GetRun(ctx context.Context, runID string) (domain.Run, error)
	UpdateRunInfo(ctx context.Context, runID string, status domain.RunStatus, endTime *int64) (domain.RunInfo, error)
	DeleteRun(ctx context.Context, runID string) error
	RestoreRun(ctx context.Context, runID string) error
	LogMetric(ctx context.Context, runID string, metric domain.Metric) error
	LogParam(ctx context.Context, runID string, param domain.Param) error
	SetTag(ctx context.Context, runID string, tag domain.RunTag) error
	GetMetricHistory(ctx context.Context, runID, key string) ([]domain.Metric, error)
	SearchRuns(ctx context.Context, experimentIDs []string, filter string, view domain.ViewType,
		maxResults int, orderBy []string, pageToken string, columnWhitelist []string) ([]domain.Run, string, error)
	ListAllColumns(ctx context.Context, experimentID string, view domain.ViewType) (domain.Columns, error)
}

// pinger reports backend reachability for the health endpoint.
type pinger interface {
	Ping(ctx context.Context) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the tracking store over the MLflow-flavored REST surface.
type Server struct {
	store         trackingStore
	health        pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(store trackingStore, health pinger, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, "INVALID_PARAMETER_VALUE"),
		sentinelHandler(domain.ErrInvalidState, http.StatusBadRequest, "INVALID_STATE"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "RESOURCE_DOES_NOT_EXIST"),
		sentinelHandler(domain.ErrConflict, http.StatusConflict, "RESOURCE_ALREADY_EXISTS"),
		sentinelHandler(domain.ErrResourceLimitExceeded, http.StatusBadRequest, "RESOURCE_LIMIT_EXCEEDED"),
	}
	return s
}

// Routes mounts all API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/2.0/mlflow", func(r chi.Router) {
		r.Route("/experiments", func(r chi.Router) {
			r.Post("/create", s.createExperiment)
			r.Get("/get", s.getExperiment)
			r.Get("/list", s.listExperiments)
			r.Post("/delete", s.deleteExperiment)
			r.Post("/restore", s.restoreExperiment)
			r.Post("/update", s.updateExperiment)
			r.Post("/set-experiment-tag", s.setExperimentTag)
		})
		r.Route("/runs", func(r chi.Router) {
			r.Post("/create", s.createRun)
			r.Get("/get", s.getRun)
			r.Post("/update", s.updateRun)
			r.Post("/delete", s.deleteRun)
			r.Post("/restore", s.restoreRun)
			r.Post("/log-metric", s.logMetric)
			r.Post("/log-parameter", s.logParam)
			r.Post("/set-tag", s.setRunTag)
			r.Post("/search", s.searchRuns)
			r.Get("/list-columns", s.listColumns)
		})
		r.Get("/metrics/get-history", s.getMetricHistory)
	})
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

func (s *Server) createExperiment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name             string `json:"name"`
		ArtifactLocation string `json:"artifact_location"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	id, err := s.store.CreateExperiment(r.Context(), req.Name, req.ArtifactLocation)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"experiment_id": id})
}

func (s *Server) getExperiment(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("experiment_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMETER_VALUE", "experiment_id is required")
		return
	}

	exp, err := s.store.GetExperiment(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"experiment": experimentToWire(exp)})
}

func (s *Server) listExperiments(w http.ResponseWriter, r *http.Request) {
	view, err := parseViewType(r.URL.Query().Get("view_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMETER_VALUE", err.Error())
		return
	}

	exps, err := s.store.ListExperiments(r.Context(), view)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]experimentResponse, len(exps))
	for i, e := range exps {
		items[i] = experimentToWire(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"experiments": items})
}

func (s *Server) deleteExperiment(w http.ResponseWriter, r *http.Request) {
	s.experimentStageChange(w, r, s.store.DeleteExperiment)
}

func (s *Server) restoreExperiment(w http.ResponseWriter, r *http.Request) {
	s.experimentStageChange(w, r, s.store.RestoreExperiment)
}

func (s *Server) experimentStageChange(
	w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id string) error,
) {
	var req struct {
		ExperimentID string `json:"experiment_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := op(r.Context(), req.ExperimentID); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) updateExperiment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExperimentID string `json:"experiment_id"`
		NewName      string `json:"new_name"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.store.RenameExperiment(r.Context(), req.ExperimentID, req.NewName); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) setExperimentTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExperimentID string `json:"experiment_id"`
		Key          string `json:"key"`
		Value        string `json:"value"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	tag := domain.ExperimentTag{Key: req.Key, Value: req.Value}
	if err := s.store.SetExperimentTag(r.Context(), req.ExperimentID, tag); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExperimentID string `json:"experiment_id"`
		UserID       string `json:"user_id"`
		StartTime    int64  `json:"start_time"`
		Tags         []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"tags"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	tags := make([]domain.RunTag, len(req.Tags))
	for i, t := range req.Tags {
		tags[i] = domain.RunTag{Key: t.Key, Value: t.Value}
	}

	run, err := s.store.CreateRun(r.Context(), req.ExperimentID, req.UserID, req.StartTime, tags)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"run": runToWire(run)})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMETER_VALUE", "run_id is required")
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"run": runToWire(run)})
}

func (s *Server) updateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID   string `json:"run_id"`
		Status  string `json:"status"`
		EndTime *int64 `json:"end_time"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	info, err := s.store.UpdateRunInfo(r.Context(), req.RunID, domain.RunStatus(req.Status), req.EndTime)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"run_info": runInfoToWire(info)})
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	s.runStageChange(w, r, s.store.DeleteRun)
}

func (s *Server) restoreRun(w http.ResponseWriter, r *http.Request) {
	s.runStageChange(w, r, s.store.RestoreRun)
}

func (s *Server) runStageChange(
	w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, runID string) error,
) {
	var req struct {
		RunID string `json:"run_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := op(r.Context(), req.RunID); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) logMetric(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID     string  `json:"run_id"`
		Key       string  `json:"key"`
		Value     float64 `json:"value"`
		Timestamp int64   `json:"timestamp"`
		Step      int64   `json:"step"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	m := domain.Metric{Key: req.Key, Value: req.Value, Timestamp: req.Timestamp, Step: req.Step}
	if err := s.store.LogMetric(r.Context(), req.RunID, m); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) logParam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID string `json:"run_id"`
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.store.LogParam(r.Context(), req.RunID, domain.Param{Key: req.Key, Value: req.Value}); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) setRunTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID string `json:"run_id"`
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.store.SetTag(r.Context(), req.RunID, domain.RunTag{Key: req.Key, Value: req.Value}); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) getMetricHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	runID, key := q.Get("run_id"), q.Get("metric_key")
	if runID == "" || key == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMETER_VALUE", "run_id and metric_key are required")
		return
	}

	history, err := s.store.GetMetricHistory(r.Context(), runID, key)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]metricResponse, len(history))
	for i, m := range history {
		items[i] = metricToWire(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": items})
}

func (s *Server) searchRuns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExperimentIDs []string `json:"experiment_ids"`
		Filter        string   `json:"filter"`
		RunViewType   string   `json:"run_view_type"`
		MaxResults    int      `json:"max_results"`
		OrderBy       []string `json:"order_by"`
		PageToken     string   `json:"page_token"`
		Columns       []string `json:"columns_to_whitelist"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	view, err := parseViewType(req.RunViewType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMETER_VALUE", err.Error())
		return
	}

	runs, nextToken, err := s.store.SearchRuns(r.Context(),
		req.ExperimentIDs, req.Filter, view, req.MaxResults, req.OrderBy, req.PageToken, req.Columns)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]runResponse, len(runs))
	for i, run := range runs {
		items[i] = runToWire(run)
	}

	resp := map[string]any{"runs": items}
	if nextToken != "" {
		resp["next_page_token"] = nextToken
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listColumns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	experimentID := q.Get("experiment_id")
	if experimentID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMETER_VALUE", "experiment_id is required")
		return
	}
	view, err := parseViewType(q.Get("view_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMETER_VALUE", err.Error())
		return
	}

	cols, err := s.store.ListAllColumns(r.Context(), experimentID, view)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, columnsResponse{
		Metrics: cols.Metrics,
		Params:  cols.Params,
		Tags:    cols.Tags,
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// decode reads a JSON request body, replying 400 on malformed input.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-facing message without exposing internals.
func safeDomainMessage(err error) string {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr.Message
	}
	sentinels := []error{
		domain.ErrInvalidArgument,
		domain.ErrInvalidState,
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrResourceLimitExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}
