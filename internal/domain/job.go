package domain

import "time"

// JobState is the lifecycle state of an optimization job.
// Progression is monotonic: queued -> running -> done | failed.
// Terminal states are immutable.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job tracks one asynchronous optimization run. The result payload is
// non-nil exactly when State is JobDone; Reason is non-empty exactly
// when State is JobFailed.
type Job struct {
	ID          string
	State       JobState
	CreatedAt   time.Time
	CompletedAt *time.Time
	Result      *OptimizeResult
	Reason      string
}

// OptimizeResult is the solver-level summary persisted with a done job.
type OptimizeResult struct {
	RouteIDs         []int64 `json:"route_ids"`
	TotalDistanceKm  float64 `json:"total_distance_km"`
	GreedyDistanceKm float64 `json:"greedy_distance_km"`
	ImprovementPct   float64 `json:"improvement_pct"`
	NumRoutes        int     `json:"num_routes"`
}
