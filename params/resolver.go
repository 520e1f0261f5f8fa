// Package params resolves a job type's declared parameter wiring plus
// caller-supplied values into a validated submission payload.
package params

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/maestrojobs/maestro/cluster"
	"github.com/maestrojobs/maestro/jobs"
)

// Resolver holds a job type's declared wiring and merges caller-supplied
// values into the three disjoint parameter namespaces. Each resolution
// flow should own its own instance; a Resolver is not safe for concurrent
// use.
type Resolver struct {
	api cluster.API

	jobType string
	label   string

	desc   *cluster.JobTypeDescriptor
	queues []cluster.QueueInfo

	dataset   map[string]interface{}
	hardwired map[string]interface{}
	submitter map[string]interface{}
}

// New creates a resolver for the given job type. Init must be called (and
// succeed) before any other operation.
func New(api cluster.API, jobType, label string) *Resolver {
	return &Resolver{
		api:       api,
		jobType:   jobType,
		label:     label,
		dataset:   make(map[string]interface{}),
		hardwired: make(map[string]interface{}),
		submitter: make(map[string]interface{}),
	}
}

// JobType returns the job type ID this resolver was created for.
func (r *Resolver) JobType() string { return r.jobType }

// Label returns the human-readable job type label, if known.
func (r *Resolver) Label() string { return r.label }

// Init fetches the job type's wiring and queue list from the cluster and
// seeds the hardwired values and the tunable parameter defaults.
func (r *Resolver) Init(ctx context.Context) error {
	desc, err := r.api.GetWiring(ctx, r.jobType)
	if err != nil {
		return xerrors.Errorf("fetch wiring for job type %q: %w", r.jobType, err)
	}
	queues, err := r.api.GetQueues(ctx, r.jobType)
	if err != nil {
		return xerrors.Errorf("fetch queues for job type %q: %w", r.jobType, err)
	}

	r.desc = desc
	r.queues = queues
	if r.label == "" {
		r.label = desc.Label
	}

	for _, spec := range desc.Params {
		switch spec.Kind {
		case cluster.KindFixed:
			r.hardwired[spec.Name] = spec.Default
		case cluster.KindTunable:
			if spec.Default == nil {
				continue
			}
			v, err := coerce(spec, spec.Default)
			if err != nil {
				// A default that violates its own declared type is a
				// descriptor-integrity bug; surface it at init time.
				return xerrors.Errorf("job type %q: %w", r.jobType, err)
			}
			r.submitter[spec.Name] = v
		}
	}
	return nil
}

func (r *Resolver) initialized() error {
	if r.desc == nil {
		return xerrors.Errorf("job type %q: %w", r.jobType, cluster.ErrNotInitialized)
	}
	return nil
}

// Queues returns the queues the job type may be submitted to.
func (r *Resolver) Queues() ([]cluster.QueueInfo, error) {
	if err := r.initialized(); err != nil {
		return nil, err
	}
	return r.queues, nil
}

func (r *Resolver) recommendedQueue() string {
	for _, q := range r.queues {
		if q.Recommended {
			return q.Name
		}
	}
	return ""
}

// SetDatasetParams copies the values for every declared dataset-bound
// parameter out of an externally-resolved dataset record. Record keys that
// do not correspond to a declared parameter are ignored: dataset records
// routinely carry unrelated metadata. Declared parameters absent from the
// record are left unset and caught at resolution time.
func (r *Resolver) SetDatasetParams(record map[string]interface{}) error {
	if err := r.initialized(); err != nil {
		return err
	}

	for _, spec := range r.desc.Params {
		if spec.Kind != cluster.KindDataset {
			continue
		}
		path := spec.Path
		if path == "" {
			path = spec.Name
		}
		if v, ok := lookupPath(record, path); ok {
			r.dataset[spec.Name] = v
		}
	}
	return nil
}

// SetSubmitterParams obtains a value for each declared tunable parameter
// from the given source and coerces it to the declared type. Coercion
// failure aborts the call without mutating any previously-set parameter.
// Parameters the source has no value for keep their current (defaulted)
// value; within a namespace the last write wins.
func (r *Resolver) SetSubmitterParams(src Source) error {
	if err := r.initialized(); err != nil {
		return err
	}

	staged := make(map[string]interface{})
	for _, spec := range r.desc.Params {
		if spec.Kind != cluster.KindTunable {
			continue
		}
		raw, ok, err := src.Value(spec)
		if err != nil {
			return xerrors.Errorf("read value for parameter %q: %w", spec.Name, err)
		}
		if !ok {
			continue
		}
		v, err := coerce(spec, raw)
		if err != nil {
			return err
		}
		staged[spec.Name] = v
	}

	for k, v := range staged {
		r.submitter[k] = v
	}
	return nil
}

// Resolved returns the merged three-namespace parameter set. It fails with
// an UnresolvedParametersError listing every missing required parameter if
// any required name is still unset in its namespace.
func (r *Resolver) Resolved() (cluster.ParameterSet, error) {
	if err := r.initialized(); err != nil {
		return cluster.ParameterSet{}, err
	}

	var missing []string
	for _, spec := range r.desc.Params {
		if !spec.Required {
			continue
		}
		var ns map[string]interface{}
		switch spec.Kind {
		case cluster.KindDataset:
			ns = r.dataset
		case cluster.KindFixed:
			ns = r.hardwired
		default:
			ns = r.submitter
		}
		if _, ok := ns[spec.Name]; !ok {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) != 0 {
		sort.Strings(missing)
		return cluster.ParameterSet{}, &cluster.UnresolvedParametersError{Missing: missing}
	}

	return cluster.ParameterSet{
		Dataset:   copyValues(r.dataset),
		Hardwired: copyValues(r.hardwired),
		Submitter: copyValues(r.submitter),
	}, nil
}

// Describe returns a human-readable dump of the job type's wiring. It is a
// read-only projection and performs no validation.
func (r *Resolver) Describe() (string, error) {
	if err := r.initialized(); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Job type: %s\n", r.jobType)
	if r.label != "" {
		fmt.Fprintf(&sb, "Label: %s\n", r.label)
	}

	sb.WriteString("\nTunable parameters:\n")
	for _, spec := range r.desc.Params {
		if spec.Kind != cluster.KindTunable {
			continue
		}
		fmt.Fprintf(&sb, "  name: %s\n  type: %s\n", spec.Name, spec.Type)
		if spec.Description != "" {
			fmt.Fprintf(&sb, "  desc: %s\n", spec.Description)
		}
		if len(spec.Choices) != 0 {
			fmt.Fprintf(&sb, "  choices: %s\n", strings.Join(spec.Choices, ", "))
		}
		if spec.Default != nil {
			fmt.Fprintf(&sb, "  default: %v\n", spec.Default)
		}
		if !spec.Required {
			sb.WriteString("  optional: true\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Dataset parameters:\n")
	for _, spec := range r.desc.Params {
		if spec.Kind != cluster.KindDataset {
			continue
		}
		fmt.Fprintf(&sb, "  name: %s\n", spec.Name)
	}

	sb.WriteString("\nFixed parameters:\n")
	for _, spec := range r.desc.Params {
		if spec.Kind != cluster.KindFixed {
			continue
		}
		fmt.Fprintf(&sb, "  name: %s (value: %v)\n", spec.Name, spec.Default)
	}
	return sb.String(), nil
}

// SubmitOptions carries the optional submission settings for Submit.
type SubmitOptions struct {
	// The queue to submit to. The job type's recommended queue is used
	// when empty.
	Queue string

	// The job priority in the [0, 9] range.
	Priority int

	// A free-form label for later lookup. A unique tag is generated when
	// empty.
	Tag string
}

// Submit resolves the parameter set, builds a one-shot submission request
// and issues it to the cluster, returning a handle to the new job.
func (r *Resolver) Submit(ctx context.Context, opts SubmitOptions) (*jobs.Job, error) {
	ps, err := r.Resolved()
	if err != nil {
		return nil, err
	}

	queue := opts.Queue
	if queue == "" {
		queue = r.recommendedQueue()
	}
	if queue == "" {
		return nil, xerrors.Errorf("job type %q has no recommended queue and no queue was supplied: %w",
			r.jobType, cluster.ErrSubmissionFailed)
	}

	tag := opts.Tag
	if tag == "" {
		tag = generateTag(r.jobType)
	}

	return jobs.Submit(ctx, r.api, cluster.SubmissionRequest{
		JobType:  r.jobType,
		Params:   ps,
		Queue:    queue,
		Priority: opts.Priority,
		Tag:      tag,
	})
}

func generateTag(jobType string) string {
	return fmt.Sprintf("maestro_%s_%s", jobType, uuid.New().String()[:8])
}

func copyValues(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// lookupPath walks a dotted path through nested string-keyed maps.
func lookupPath(record map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = record
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}
