package cluster

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

var (
	// ErrNotInitialized is returned when a resolver operation is
	// attempted before the job type wiring has been fetched.
	ErrNotInitialized = xerrors.New("job type wiring has not been initialized")

	// ErrJobNotFound is returned when a job ID is unknown to the cluster.
	ErrJobNotFound = xerrors.New("job not found")

	// ErrJobTypeNotFound is returned when a job type ID is unknown to the
	// cluster.
	ErrJobTypeNotFound = xerrors.New("job type not found")

	// ErrJobNotComplete is returned when generated products are requested
	// for a job that has not reached the completed state.
	ErrJobNotComplete = xerrors.New("job has not completed")

	// ErrJobRemoved is returned for any operation on a handle whose job
	// record has been removed.
	ErrJobRemoved = xerrors.New("job record has been removed")

	// ErrSubmissionFailed is returned when the cluster rejects or fails a
	// submission request.
	ErrSubmissionFailed = xerrors.New("job submission failed")
)

// InvalidParameterError describes a parameter value that could not be
// coerced to its declared type.
type InvalidParameterError struct {
	// The name of the offending parameter.
	Name string

	// The value that failed coercion.
	Value interface{}

	// The declared parameter type.
	Want ParamType
}

// Error implements error.
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid value %v for parameter %q: not a valid %s", e.Value, e.Name, e.Want)
}

// UnresolvedParametersError lists every required parameter name that is
// still unset when a parameter set is resolved.
type UnresolvedParametersError struct {
	// The sorted names of all missing required parameters.
	Missing []string
}

// Error implements error.
func (e *UnresolvedParametersError) Error() string {
	return fmt.Sprintf("required parameters not set: %s", strings.Join(e.Missing, ", "))
}

// InvalidTransitionError describes a control operation attempted from a
// lifecycle state that forbids it.
type InvalidTransitionError struct {
	// The attempted operation.
	Op string

	// The job status at the time of the attempt.
	Status Status
}

// Error implements error.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s job in state %s", e.Op, e.Status)
}

// WaitTimeoutError indicates that a blocking wait exhausted its budget
// before every watched job reached a terminal state.
type WaitTimeoutError struct {
	// The status observed by the last poll before the timeout. It is
	// StatusUnknown for aggregate waits over multiple jobs.
	LastStatus Status
}

// Error implements error.
func (e *WaitTimeoutError) Error() string {
	if e.LastStatus == StatusUnknown {
		return "timed out waiting for job completion"
	}
	return fmt.Sprintf("timed out waiting for job completion; last observed status: %s", e.LastStatus)
}

// RemoteError describes a non-2xx response from the cluster's REST API.
type RemoteError struct {
	// The HTTP status code of the response.
	StatusCode int

	// The error message reported by the cluster.
	Message string
}

// Error implements error.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("cluster API error (HTTP %d): %s", e.StatusCode, e.Message)
}
