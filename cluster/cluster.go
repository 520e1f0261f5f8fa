package cluster

import (
	"context"
	"time"

	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mock.go github.com/maestrojobs/maestro/cluster API

// Status describes the lifecycle state of a job submitted to the cluster.
type Status uint8

const (
	// StatusUnknown indicates that no status information is available.
	StatusUnknown Status = iota

	// StatusQueued indicates that the job is waiting in a queue.
	StatusQueued

	// StatusStarted indicates that the job is executing on a worker.
	StatusStarted

	// StatusCompleted indicates that the job finished successfully.
	StatusCompleted

	// StatusFailed indicates that the job finished with an error.
	StatusFailed

	// StatusRevoked indicates that the job was cancelled by the caller.
	StatusRevoked

	// StatusRemoved indicates that the job record was purged from the
	// cluster.
	StatusRemoved
)

// The status values used on the wire by the cluster's REST API.
var statusNames = map[Status]string{
	StatusQueued:    "job-queued",
	StatusStarted:   "job-started",
	StatusCompleted: "job-completed",
	StatusFailed:    "job-failed",
	StatusRevoked:   "job-revoked",
	StatusRemoved:   "job-removed",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal returns true if no further status transition can occur without a
// new submission.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRevoked, StatusRemoved:
		return true
	}
	return false
}

// ParseStatus maps a wire-level status value to a Status.
func ParseStatus(v string) (Status, error) {
	for st, name := range statusNames {
		if name == v {
			return st, nil
		}
	}
	return StatusUnknown, xerrors.Errorf("unsupported job status %q", v)
}

// ParamKind describes the origin namespace of a declared job parameter.
type ParamKind uint8

const (
	// KindTunable parameters are editable by the submitter.
	KindTunable ParamKind = iota

	// KindDataset parameters are supplied from an externally-resolved
	// dataset record.
	KindDataset

	// KindFixed parameters carry a value baked into the job type and are
	// never caller-editable.
	KindFixed
)

// String implements fmt.Stringer.
func (k ParamKind) String() string {
	switch k {
	case KindDataset:
		return "dataset"
	case KindFixed:
		return "fixed"
	default:
		return "tunable"
	}
}

// ParamType describes the declared value type of a job parameter.
type ParamType uint8

const (
	// TypeText parameters accept free-form strings.
	TypeText ParamType = iota

	// TypeNumber parameters accept integer or floating-point values.
	TypeNumber

	// TypeBoolean parameters accept true/false values.
	TypeBoolean

	// TypeEnum parameters accept one of a declared set of string choices.
	TypeEnum

	// TypeObject parameters accept arbitrary JSON objects or arrays.
	TypeObject
)

// String implements fmt.Stringer.
func (t ParamType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeEnum:
		return "enum"
	case TypeObject:
		return "object"
	default:
		return "text"
	}
}

// ParamSpec describes a single declared parameter in a job type's wiring.
type ParamSpec struct {
	// The unique parameter name.
	Name string

	// The origin namespace the parameter value is sourced from.
	Kind ParamKind

	// The declared value type; set values are coerced to it.
	Type ParamType

	// Required parameters must be present when the parameter set is
	// resolved.
	Required bool

	// An optional default value. For fixed parameters this holds the
	// hardwired value itself.
	Default interface{}

	// The allowed values for enum-typed parameters.
	Choices []string

	// An optional dotted path into the dataset record for dataset-bound
	// parameters. When empty, the parameter name is used as the key.
	Path string

	// A human-readable description of the parameter.
	Description string
}

// JobTypeDescriptor identifies a job type registered with the cluster
// together with its declared parameter wiring. Descriptors are immutable
// once fetched; they are only replaced by a re-fetch.
type JobTypeDescriptor struct {
	// The unique job type ID, e.g. "job-raster-process:v2.1".
	ID string

	// A human-readable label for the job type.
	Label string

	// The ordered set of declared parameters.
	Params []ParamSpec
}

// ParameterSet holds the resolved values for a job submission split into
// the three disjoint origin namespaces declared by the wiring.
type ParameterSet struct {
	Dataset   map[string]interface{}
	Hardwired map[string]interface{}
	Submitter map[string]interface{}
}

// Flatten merges the three namespaces into the single mapping consumed by
// the cluster's submit endpoint. The wiring guarantees the namespaces are
// disjoint; should a corrupt descriptor violate that, submitter values win
// over dataset values which win over hardwired ones.
func (ps ParameterSet) Flatten() map[string]interface{} {
	out := make(map[string]interface{}, len(ps.Dataset)+len(ps.Hardwired)+len(ps.Submitter))
	for k, v := range ps.Hardwired {
		out[k] = v
	}
	for k, v := range ps.Dataset {
		out[k] = v
	}
	for k, v := range ps.Submitter {
		out[k] = v
	}
	return out
}

// SubmissionRequest carries everything required to submit one job. It is
// constructed once by a resolver and consumed once by API.Submit.
type SubmissionRequest struct {
	// The job type to run.
	JobType string

	// The resolved parameter values.
	Params ParameterSet

	// The queue to submit to.
	Queue string

	// The job priority within the queue; the cluster accepts values in
	// the [0, 9] range.
	Priority int

	// A free-form label attached to the job for later lookup.
	Tag string
}

// JobRecord is the locally-cached view of a job known to the cluster.
type JobRecord struct {
	// The opaque job ID assigned by the cluster on submission.
	ID string

	// The job type that produced this job.
	Type string

	// The last-observed lifecycle status.
	Status Status

	// The time the job was submitted.
	SubmittedAt time.Time

	// The queue the job was submitted to.
	Queue string

	// The priority the job was submitted with.
	Priority int

	// The tag the job was submitted with.
	Tag string

	// The lazily-populated metadata blob for the job.
	Metadata map[string]interface{}

	// A short error summary; only populated for failed jobs.
	Exception string

	// The remote traceback; only populated for failed jobs.
	Traceback string
}

// Product describes an artifact generated by a completed job.
type Product struct {
	// The product ID assigned by the cluster.
	ID string

	// The dataset the product belongs to.
	Dataset string

	// The locations the product was staged to.
	URLs []string

	// Additional product metadata.
	Metadata map[string]interface{}
}

// QueueInfo describes a queue that a job type may be submitted to.
type QueueInfo struct {
	// The queue name.
	Name string

	// Recommended is true for queues the cluster suggests for the job
	// type.
	Recommended bool
}

// Filter describes a conjunctive query over submitted jobs. Zero-valued
// fields are not applied.
type Filter struct {
	// Match jobs submitted with this tag.
	Tag string

	// Match jobs of this job type.
	JobType string

	// Match jobs submitted to this queue.
	Queue string

	// Match jobs submitted with this priority.
	Priority *int

	// Match jobs whose last-known status equals this value.
	Status Status

	// Match jobs submitted inside the [SubmittedAfter, SubmittedBefore)
	// window.
	SubmittedAfter  time.Time
	SubmittedBefore time.Time
}

// API is implemented by clients that can talk to the cluster's job API. It
// is a pure transport boundary: implementations hold no job state and every
// call is a single synchronous request/response round trip.
type API interface {
	// Submit issues a submission request and returns the ID assigned to
	// the new job. Submission is at-most-once: no retry is attempted on
	// failure.
	Submit(ctx context.Context, req SubmissionRequest) (string, error)

	// Status returns the current lifecycle status of a job.
	Status(ctx context.Context, jobID string) (Status, error)

	// Info returns the full metadata blob for a job.
	Info(ctx context.Context, jobID string) (map[string]interface{}, error)

	// Products returns the artifacts staged for a completed job.
	Products(ctx context.Context, jobID string) ([]Product, error)

	// Revoke cancels a queued or running job.
	Revoke(ctx context.Context, jobID string) error

	// Remove purges the record of a terminal job.
	Remove(ctx context.Context, jobID string) error

	// Retry re-submits a failed job and returns the ID of the new job.
	Retry(ctx context.Context, jobID string) (string, error)

	// Query returns summaries of the submitted jobs matching a filter,
	// ordered by submission time.
	Query(ctx context.Context, f Filter) ([]JobRecord, error)

	// ListJobTypes enumerates the job types known to the cluster. The
	// returned descriptors carry IDs and labels only; wirings are
	// fetched separately via GetWiring.
	ListJobTypes(ctx context.Context) ([]JobTypeDescriptor, error)

	// GetWiring returns the full parameter wiring for a job type.
	GetWiring(ctx context.Context, jobTypeID string) (*JobTypeDescriptor, error)

	// GetQueues returns the queues a job type may be submitted to.
	GetQueues(ctx context.Context, jobTypeID string) ([]QueueInfo, error)
}
