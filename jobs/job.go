package jobs

import (
	"context"
	"io"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/maestrojobs/maestro/cluster"
)

// Metadata keys the cluster uses to report failure details for a job.
const (
	metaExceptionKey = "error"
	metaTracebackKey = "traceback"
)

// Option configures optional Job collaborators.
type Option func(*Job)

// WithClock overrides the clock used for polling and timestamps. The wall
// clock is used when not specified.
func WithClock(clk clock.Clock) Option {
	return func(j *Job) { j.clk = clk }
}

// WithLogger overrides the logger used by the job's polling operations. An
// output-discarding logger is used when not specified.
func WithLogger(logger *logrus.Entry) Option {
	return func(j *Job) { j.logger = logger }
}

// Job is a handle to a single job submitted to the cluster. It caches the
// last-observed remote state and exposes polling and blocking-wait
// operations on top of the cluster API.
//
// The cached status only ever moves forward through the lifecycle
// queued -> started -> {completed | failed}; revoked and removed are
// reachable through the corresponding control operations. Terminal states
// are absorbing: once reached, no further remote polls are issued.
//
// A Job is not safe for concurrent use without external synchronization.
type Job struct {
	api    cluster.API
	clk    clock.Clock
	logger *logrus.Entry

	rec     cluster.JobRecord
	removed bool
}

// New wraps an existing job record in a handle. It is used when
// reconstructing handles from query results; freshly-submitted jobs should
// be created via Submit.
func New(api cluster.API, rec cluster.JobRecord, opts ...Option) *Job {
	j := &Job{
		api:    api,
		clk:    clock.WallClock,
		logger: logrus.NewEntry(&logrus.Logger{Out: io.Discard}),
		rec:    rec,
	}
	for _, opt := range opts {
		opt(j)
	}
	if rec.Status == cluster.StatusRemoved {
		j.removed = true
	}
	return j
}

// Submit issues a submission request to the cluster and returns a handle to
// the new job in the queued state. Submission is at-most-once: a failed
// request is not retried and no job handle is produced for it.
func Submit(ctx context.Context, api cluster.API, req cluster.SubmissionRequest, opts ...Option) (*Job, error) {
	if req.Priority < 0 || req.Priority > 9 {
		return nil, xerrors.Errorf("priority %d outside the supported [0, 9] range: %w", req.Priority, cluster.ErrSubmissionFailed)
	}

	jobID, err := api.Submit(ctx, req)
	if err != nil {
		return nil, xerrors.Errorf("submit job type %q: %w", req.JobType, err)
	}

	j := New(api, cluster.JobRecord{
		ID:       jobID,
		Type:     req.JobType,
		Status:   cluster.StatusQueued,
		Queue:    req.Queue,
		Priority: req.Priority,
		Tag:      req.Tag,
	}, opts...)
	j.rec.SubmittedAt = j.clk.Now()

	j.logger.WithFields(logrus.Fields{
		"job":      jobID,
		"job_type": req.JobType,
		"queue":    req.Queue,
		"tag":      req.Tag,
	}).Info("submitted job")
	return j, nil
}

// ID returns the job ID assigned by the cluster.
func (j *Job) ID() string { return j.rec.ID }

// Status returns the cached, last-observed job status without issuing a
// remote call.
func (j *Job) Status() cluster.Status { return j.rec.Status }

// Record returns a copy of the cached job record.
func (j *Job) Record() cluster.JobRecord { return j.rec }

// GetStatus issues a single status query and returns the updated cached
// status. Handles in a terminal state answer from the cache: terminal
// states are absorbing so a remote round trip cannot change the answer.
func (j *Job) GetStatus(ctx context.Context) (cluster.Status, error) {
	if j.removed {
		return j.rec.Status, xerrors.Errorf("job %q: %w", j.rec.ID, cluster.ErrJobRemoved)
	}
	if j.rec.Status.Terminal() {
		return j.rec.Status, nil
	}

	st, err := j.api.Status(ctx, j.rec.ID)
	if err != nil {
		return j.rec.Status, xerrors.Errorf("get status for job %q: %w", j.rec.ID, err)
	}

	// The cache never rolls back to an earlier lifecycle state.
	if statusRank(st) > statusRank(j.rec.Status) {
		j.rec.Status = st
	}
	return j.rec.Status, nil
}

// GetInfo fetches and caches the full metadata blob for the job. It always
// re-fetches; no staleness guarantee is implied by a previous call.
func (j *Job) GetInfo(ctx context.Context) (map[string]interface{}, error) {
	if j.removed {
		return nil, xerrors.Errorf("job %q: %w", j.rec.ID, cluster.ErrJobRemoved)
	}

	info, err := j.api.Info(ctx, j.rec.ID)
	if err != nil {
		return nil, xerrors.Errorf("get info for job %q: %w", j.rec.ID, err)
	}
	j.rec.Metadata = info
	j.cacheFailureDetails(info)
	return info, nil
}

// WaitForCompletion blocks the caller, polling the job status at pollEvery
// cadence until the job reaches a terminal state or the timeout elapses.
// A handle whose cached status is already terminal returns immediately
// without polling; otherwise one poll is issued up front so that a job
// that is already terminal remotely is observed without waiting a full
// poll interval. On timeout, a WaitTimeoutError carrying the last-observed
// status is returned and the cached status is left as observed.
func (j *Job) WaitForCompletion(ctx context.Context, pollEvery, timeout time.Duration) (cluster.Status, error) {
	if j.removed {
		return j.rec.Status, xerrors.Errorf("job %q: %w", j.rec.ID, cluster.ErrJobRemoved)
	}
	if j.rec.Status.Terminal() {
		return j.rec.Status, nil
	}

	st, err := j.pollOnce(ctx)
	if err != nil {
		return st, err
	}
	if st.Terminal() {
		return st, nil
	}
	if timeout <= 0 {
		return st, &cluster.WaitTimeoutError{LastStatus: st}
	}

	timeoutCh := j.clk.After(timeout)
	for {
		select {
		case <-ctx.Done():
			return j.rec.Status, ctx.Err()
		case <-timeoutCh:
			return j.rec.Status, &cluster.WaitTimeoutError{LastStatus: j.rec.Status}
		case <-j.clk.After(pollEvery):
			if st, err = j.pollOnce(ctx); err != nil {
				return st, err
			}
			if st.Terminal() {
				return st, nil
			}
		}
	}
}

func (j *Job) pollOnce(ctx context.Context) (cluster.Status, error) {
	st, err := j.GetStatus(ctx)
	if err != nil {
		return st, err
	}
	j.logger.WithFields(logrus.Fields{
		"job":    j.rec.ID,
		"status": st.String(),
	}).Debug("polled job status")
	return st, nil
}

// GetGeneratedProducts returns the artifacts staged for the job. It is only
// valid once the cached status is completed.
func (j *Job) GetGeneratedProducts(ctx context.Context) ([]cluster.Product, error) {
	if j.removed {
		return nil, xerrors.Errorf("job %q: %w", j.rec.ID, cluster.ErrJobRemoved)
	}
	if j.rec.Status != cluster.StatusCompleted {
		return nil, xerrors.Errorf("job %q in state %s: %w", j.rec.ID, j.rec.Status, cluster.ErrJobNotComplete)
	}

	products, err := j.api.Products(ctx, j.rec.ID)
	if err != nil {
		return nil, xerrors.Errorf("get products for job %q: %w", j.rec.ID, err)
	}
	return products, nil
}

// GetException returns the exception summary for a failed job. Calling it
// before the job has failed is a benign no-op that returns an empty string.
func (j *Job) GetException(ctx context.Context) (string, error) {
	if j.removed {
		return "", xerrors.Errorf("job %q: %w", j.rec.ID, cluster.ErrJobRemoved)
	}
	if j.rec.Status != cluster.StatusFailed {
		return "", nil
	}
	if err := j.ensureFailureDetails(ctx); err != nil {
		return "", err
	}
	return j.rec.Exception, nil
}

// GetTraceback returns the remote traceback for a failed job. Calling it
// before the job has failed is a benign no-op that returns an empty string.
func (j *Job) GetTraceback(ctx context.Context) (string, error) {
	if j.removed {
		return "", xerrors.Errorf("job %q: %w", j.rec.ID, cluster.ErrJobRemoved)
	}
	if j.rec.Status != cluster.StatusFailed {
		return "", nil
	}
	if err := j.ensureFailureDetails(ctx); err != nil {
		return "", err
	}
	return j.rec.Traceback, nil
}

func (j *Job) ensureFailureDetails(ctx context.Context) error {
	if j.rec.Exception != "" || j.rec.Traceback != "" {
		return nil
	}
	info, err := j.api.Info(ctx, j.rec.ID)
	if err != nil {
		return xerrors.Errorf("get failure details for job %q: %w", j.rec.ID, err)
	}
	j.rec.Metadata = info
	j.cacheFailureDetails(info)
	return nil
}

func (j *Job) cacheFailureDetails(info map[string]interface{}) {
	if v, ok := info[metaExceptionKey].(string); ok {
		j.rec.Exception = v
	}
	if v, ok := info[metaTracebackKey].(string); ok {
		j.rec.Traceback = v
	}
}

// Revoke cancels the job. It is only valid while the job is queued or
// started; on success the cached status moves to revoked.
func (j *Job) Revoke(ctx context.Context) error {
	if j.removed {
		return xerrors.Errorf("job %q: %w", j.rec.ID, cluster.ErrJobRemoved)
	}
	if j.rec.Status != cluster.StatusQueued && j.rec.Status != cluster.StatusStarted {
		return &cluster.InvalidTransitionError{Op: "revoke", Status: j.rec.Status}
	}

	if err := j.api.Revoke(ctx, j.rec.ID); err != nil {
		return xerrors.Errorf("revoke job %q: %w", j.rec.ID, err)
	}
	j.rec.Status = cluster.StatusRevoked
	j.logger.WithField("job", j.rec.ID).Info("revoked job")
	return nil
}

// Remove purges the job record from the cluster. It is only valid once the
// job is in a terminal state; afterwards the handle is a tombstone and
// every further operation fails with ErrJobRemoved.
func (j *Job) Remove(ctx context.Context) error {
	if j.removed {
		return xerrors.Errorf("job %q: %w", j.rec.ID, cluster.ErrJobRemoved)
	}
	if !j.rec.Status.Terminal() {
		return &cluster.InvalidTransitionError{Op: "remove", Status: j.rec.Status}
	}

	if err := j.api.Remove(ctx, j.rec.ID); err != nil {
		return xerrors.Errorf("remove job %q: %w", j.rec.ID, err)
	}
	j.rec.Status = cluster.StatusRemoved
	j.removed = true
	j.logger.WithField("job", j.rec.ID).Info("removed job record")
	return nil
}

// Retry re-submits a failed job and returns a fresh handle for the new job
// ID. The new handle shares the submission lineage (type, queue, priority,
// tag) but none of the failure details; the original handle is untouched.
func (j *Job) Retry(ctx context.Context) (*Job, error) {
	if j.removed {
		return nil, xerrors.Errorf("job %q: %w", j.rec.ID, cluster.ErrJobRemoved)
	}
	if j.rec.Status != cluster.StatusFailed {
		return nil, &cluster.InvalidTransitionError{Op: "retry", Status: j.rec.Status}
	}

	newID, err := j.api.Retry(ctx, j.rec.ID)
	if err != nil {
		return nil, xerrors.Errorf("retry job %q: %w", j.rec.ID, err)
	}

	retried := New(j.api, cluster.JobRecord{
		ID:          newID,
		Type:        j.rec.Type,
		Status:      cluster.StatusQueued,
		SubmittedAt: j.clk.Now(),
		Queue:       j.rec.Queue,
		Priority:    j.rec.Priority,
		Tag:         j.rec.Tag,
	})
	retried.clk = j.clk
	retried.logger = j.logger
	j.logger.WithFields(logrus.Fields{
		"job":       j.rec.ID,
		"retry_job": newID,
	}).Info("retried failed job")
	return retried, nil
}

// statusRank imposes the forward-only lifecycle ordering on statuses.
func statusRank(s cluster.Status) int {
	switch s {
	case cluster.StatusQueued:
		return 1
	case cluster.StatusStarted:
		return 2
	case cluster.StatusCompleted, cluster.StatusFailed, cluster.StatusRevoked, cluster.StatusRemoved:
		return 3
	default:
		return 0
	}
}
