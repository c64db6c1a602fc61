package domain

// LifecycleStage is the soft-delete flag carried by experiments and runs.
type LifecycleStage string

const (
	StageActive  LifecycleStage = "active"
	StageDeleted LifecycleStage = "deleted"
)

// ViewType selects which lifecycle stages a listing or search operation sees.
type ViewType int

const (
	ViewActiveOnly ViewType = iota + 1
	ViewDeletedOnly
	ViewAll
)

// Stages returns the lifecycle stages visible under the view.
func (v ViewType) Stages() []LifecycleStage {
	switch v {
	case ViewDeletedOnly:
		return []LifecycleStage{StageDeleted}
	case ViewAll:
		return []LifecycleStage{StageActive, StageDeleted}
	default:
		return []LifecycleStage{StageActive}
	}
}

// RunStatus mirrors the run lifecycle reported by tracking clients.
type RunStatus string

const (
	StatusRunning   RunStatus = "RUNNING"
	StatusFinished  RunStatus = "FINISHED"
	StatusFailed    RunStatus = "FAILED"
	StatusKilled    RunStatus = "KILLED"
	StatusScheduled RunStatus = "SCHEDULED"
)

// Experiment is the top-level grouping of runs.
type Experiment struct {
	ID               string
	Name             string
	ArtifactLocation string
	LifecycleStage   LifecycleStage
	Tags             []ExperimentTag
}

// ExperimentTag is a key-value annotation on an experiment. Keys are unique
// per experiment; setting an existing key overwrites its value.
type ExperimentTag struct {
	Key   string
	Value string
}

// RunTag is a key-value annotation on a run.
type RunTag struct {
	Key   string
	Value string
}

// Param is a single run parameter. Params are conceptually single-valued per
// key; the store does not deduplicate historical writes.
type Param struct {
	Key   string
	Value string
}

// Metric is one logged metric point. IsNaN marks values that were logged as
// NaN and stored under the index-safe sentinel (see SanitizeValue).
type Metric struct {
	Key       string
	Value     float64
	Timestamp int64
	Step      int64
	IsNaN     bool
}

// RunInfo holds a run's identity and lifecycle fields.
type RunInfo struct {
	RunID          string
	ExperimentID   string
	UserID         string
	Status         RunStatus
	StartTime      int64
	EndTime        *int64
	LifecycleStage LifecycleStage
	ArtifactURI    string
}

// RunData holds a run's logged values. Metrics carries the per-key latest
// values, not the full history; history is reachable via GetMetricHistory.
type RunData struct {
	Metrics []Metric
	Params  []Param
	Tags    []RunTag
}

// Run is one execution instance under an experiment.
type Run struct {
	Info RunInfo
	Data RunData
}

// Columns is the distinct set of metric, param and tag keys observed across
// the runs in scope. Callers use it to build a display schema.
type Columns struct {
	Metrics []string
	Params  []string
	Tags    []string
}
