package jobs

import (
	"context"
	"io"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/maestrojobs/maestro/cluster"
)

// The number of consecutive poll failures tolerated for a single member of
// a Set before it is marked failed-to-observe for the rest of the wait.
const defaultObserveRetries = 3

// SetOption configures optional Set collaborators.
type SetOption func(*Set)

// WithSetClock overrides the clock used by bulk waits. The wall clock is
// used when not specified.
func WithSetClock(clk clock.Clock) SetOption {
	return func(s *Set) { s.clk = clk }
}

// WithSetLogger overrides the logger used by bulk waits. An
// output-discarding logger is used when not specified.
func WithSetLogger(logger *logrus.Entry) SetOption {
	return func(s *Set) { s.logger = logger }
}

// WithObserveRetries overrides the per-member consecutive poll failure
// budget for bulk waits.
func WithObserveRetries(n int) SetOption {
	return func(s *Set) {
		if n > 0 {
			s.observeRetries = n
		}
	}
}

// Set is an ordered, append-only collection of job handles submitted at
// potentially different times. Iteration and indexing reflect submission
// (append) order.
//
// A Set is not safe for concurrent use without external synchronization.
type Set struct {
	clk            clock.Clock
	logger         *logrus.Entry
	observeRetries int

	jobs []*Job
}

// NewSet creates an empty job set.
func NewSet(opts ...SetOption) *Set {
	s := &Set{
		clk:            clock.WallClock,
		logger:         logrus.NewEntry(&logrus.Logger{Out: io.Discard}),
		observeRetries: defaultObserveRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds a job handle to the set, preserving insertion order. No
// deduplication is performed: appending the same handle (or two handles
// for the same job ID) twice makes it count twice in bulk-wait summaries.
func (s *Set) Append(j *Job) {
	s.jobs = append(s.jobs, j)
}

// Len returns the number of handles in the set.
func (s *Set) Len() int { return len(s.jobs) }

// At returns the handle at the given insertion index.
func (s *Set) At(i int) *Job { return s.jobs[i] }

// Jobs returns the member handles in insertion order. The returned slice
// is a copy of the backing sequence at call time; reading it performs no
// polling.
func (s *Set) Jobs() []*Job {
	out := make([]*Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Summary tallies the members of a set by the terminal state they reached
// during a bulk wait.
type Summary struct {
	Completed int
	Failed    int
	Revoked   int
	Removed   int

	// FailedToObserve counts members whose status could not be polled
	// within the per-member retry budget. Their jobs may still be
	// progressing remotely; only their observation failed.
	FailedToObserve int
}

// Settled returns the total number of members accounted for in the summary.
func (s Summary) Settled() int {
	return s.Completed + s.Failed + s.Revoked + s.Removed + s.FailedToObserve
}

// WaitForCompletion blocks until every member of the set reaches a terminal
// state or the aggregate timeout elapses, polling non-terminal members once
// per pollEvery cycle. Members are polled sequentially within a cycle, so
// no member is ever polled concurrently with itself.
//
// A member whose poll fails is retried on subsequent cycles; after the
// per-member retry budget of consecutive failures it is moved to the
// summary's FailedToObserve bucket and no longer polled, so one flaky
// member cannot block observation of the rest. On timeout the partial
// summary observed so far is returned together with a WaitTimeoutError.
// Cancellation via ctx is checked between poll cycles, never mid round
// trip.
func (s *Set) WaitForCompletion(ctx context.Context, pollEvery, timeout time.Duration) (Summary, error) {
	members := s.Jobs()
	failures := make([]int, len(members))
	unobserved := make([]bool, len(members))

	if s.pollCycle(ctx, members, failures, unobserved) {
		return s.summarize(members, unobserved), nil
	}
	if timeout <= 0 {
		return s.summarize(members, unobserved), &cluster.WaitTimeoutError{}
	}

	timeoutCh := s.clk.After(timeout)
	for {
		select {
		case <-ctx.Done():
			return s.summarize(members, unobserved), ctx.Err()
		case <-timeoutCh:
			return s.summarize(members, unobserved), &cluster.WaitTimeoutError{}
		case <-s.clk.After(pollEvery):
			if s.pollCycle(ctx, members, failures, unobserved) {
				return s.summarize(members, unobserved), nil
			}
		}
	}
}

// pollCycle polls every member that is neither terminal nor written off as
// unobservable and reports whether the whole set has settled.
func (s *Set) pollCycle(ctx context.Context, members []*Job, failures []int, unobserved []bool) bool {
	settled := true
	for i, j := range members {
		if unobserved[i] || j.Status().Terminal() {
			continue
		}

		st, err := j.GetStatus(ctx)
		if err != nil {
			failures[i]++
			s.logger.WithFields(logrus.Fields{
				"job":      j.ID(),
				"failures": failures[i],
				"err":      err,
			}).Warn("unable to poll job status")
			if failures[i] >= s.observeRetries {
				unobserved[i] = true
				continue
			}
			settled = false
			continue
		}

		failures[i] = 0
		if !st.Terminal() {
			settled = false
		}
	}
	return settled
}

func (s *Set) summarize(members []*Job, unobserved []bool) Summary {
	var sum Summary
	for i, j := range members {
		if unobserved[i] {
			sum.FailedToObserve++
			continue
		}
		switch j.Status() {
		case cluster.StatusCompleted:
			sum.Completed++
		case cluster.StatusFailed:
			sum.Failed++
		case cluster.StatusRevoked:
			sum.Revoked++
		case cluster.StatusRemoved:
			sum.Removed++
		}
	}
	return sum
}
