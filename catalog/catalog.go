// Package catalog enumerates the job types registered with the cluster and
// reconstructs collections of previously-submitted jobs.
package catalog

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/maestrojobs/maestro/cluster"
	"github.com/maestrojobs/maestro/jobs"
	"github.com/maestrojobs/maestro/params"
)

// Catalog provides lookup of job types and submitted jobs. It holds no
// local cache: every call reflects the cluster's state at call time, so a
// job type registered after the catalog was created becomes visible on the
// next call.
type Catalog struct {
	api cluster.API
}

// New creates a catalog backed by the given cluster API.
func New(api cluster.API) *Catalog {
	return &Catalog{api: api}
}

// JobTypes returns every job type known to the cluster, keyed by job type
// ID and mapped to an uninitialized resolver for it.
func (c *Catalog) JobTypes(ctx context.Context) (map[string]*params.Resolver, error) {
	descriptors, err := c.api.ListJobTypes(ctx)
	if err != nil {
		return nil, xerrors.Errorf("list job types: %w", err)
	}

	out := make(map[string]*params.Resolver, len(descriptors))
	for _, d := range descriptors {
		out[d.ID] = params.New(c.api, d.ID, d.Label)
	}
	return out, nil
}

// JobType returns an uninitialized resolver for a single job type. It fails
// with ErrJobTypeNotFound if the ID is unknown to the cluster at call time.
func (c *Catalog) JobType(ctx context.Context, id string) (*params.Resolver, error) {
	descriptors, err := c.api.ListJobTypes(ctx)
	if err != nil {
		return nil, xerrors.Errorf("list job types: %w", err)
	}

	for _, d := range descriptors {
		if d.ID == id {
			return params.New(c.api, d.ID, d.Label), nil
		}
	}
	return nil, xerrors.Errorf("job type %q: %w", id, cluster.ErrJobTypeNotFound)
}

// Jobs queries submitted jobs by an optional conjunctive filter and returns
// a set of handles reconstructed from the query response. Status and
// metadata come from the response records and are not re-derived.
func (c *Catalog) Jobs(ctx context.Context, f cluster.Filter, opts ...jobs.SetOption) (*jobs.Set, error) {
	records, err := c.api.Query(ctx, f)
	if err != nil {
		return nil, xerrors.Errorf("query jobs: %w", err)
	}

	set := jobs.NewSet(opts...)
	for _, rec := range records {
		set.Append(jobs.New(c.api, rec))
	}
	return set, nil
}
