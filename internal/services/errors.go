package services

import (
	"errors"
	"fmt"
)

// Failure reason codes surfaced on failed jobs and API errors.
const (
	ReasonValidation        = "validation_error"
	ReasonMatrixUnavailable = "matrix_unavailable"
	ReasonInfeasible        = "infeasible"
	ReasonTimeout           = "timeout"
	ReasonNotFound          = "not_found"
	ReasonInternal          = "internal"
	ReasonNoVehicles        = "no_vehicles"
	ReasonNoStops           = "no_stops"
)

var (
	ErrNoVehicles        = errors.New("no vehicles in request")
	ErrNoStops           = errors.New("no stops in request")
	ErrSolverTimeout     = errors.New("solver wall-clock budget exceeded")
	ErrMatrixUnavailable = errors.New("distance matrix unavailable")
)

// InfeasibleError reports the stops Phase 1 could not place within
// capacity and window constraints given the available vehicles.
type InfeasibleError struct {
	UnassignedStopIDs []int64
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("infeasible: unassigned stops %v", e.UnassignedStopIDs)
}

// Reason renders the failure reason persisted with the job, including
// the unplaced stop ids.
func (e *InfeasibleError) Reason() string {
	return fmt.Sprintf("%s: unassigned_stops=%v", ReasonInfeasible, e.UnassignedStopIDs)
}

// NotFoundError marks a missing entity; handlers translate it to 404.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// ValidationError marks a malformed request; handlers translate it to
// 400 and no job is created.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// FailureReason maps a solve-path error to the short reason code
// persisted on a failed job.
func FailureReason(err error) string {
	var (
		inf *InfeasibleError
		nf  *NotFoundError
		val *ValidationError
	)
	switch {
	case errors.Is(err, ErrNoVehicles):
		return ReasonNoVehicles
	case errors.Is(err, ErrNoStops):
		return ReasonNoStops
	case errors.Is(err, ErrSolverTimeout):
		return ReasonTimeout
	case errors.Is(err, ErrMatrixUnavailable):
		return ReasonMatrixUnavailable
	case errors.As(err, &inf):
		return inf.Reason()
	case errors.As(err, &nf):
		return ReasonNotFound
	case errors.As(err, &val):
		return ReasonValidation
	default:
		return ReasonInternal
	}
}
