// Package ci is a thin pass-through client for the cluster's
// build-automation REST API. Builds are keyed by git repository and branch;
// the package owns no state machine of its own and propagates errors
// directly to the caller.
package ci

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/maestrojobs/maestro/cluster"
)

const (
	registerPath = "/api/ci/register"
	builderPath  = "/api/ci/job-builder"
	buildPath    = "/api/ci/build"
)

const defaultRequestTimeout = 30 * time.Second

// Config encapsulates the settings for configuring a build-automation
// client.
type Config struct {
	// The base URL of the cluster API.
	Host string

	// The git HTTPS URL of the repository to operate on.
	Repo string

	// The git branch to operate on. Optional; the repository's default
	// branch is used when empty.
	Branch string

	// An API for performing HTTP requests. If not specified, a client
	// with a 30 second timeout will be used instead.
	HTTPClient *http.Client

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Host == "" {
		err = multierror.Append(err, xerrors.Errorf("cluster host has not been provided"))
	}
	if cfg.Repo == "" {
		err = multierror.Append(err, xerrors.Errorf("repository URL has not been provided"))
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return err
}

// Client operates the build-automation pipeline for one repository/branch
// pair.
type Client struct {
	cfg Config
}

// NewClient creates a build-automation client with the specified config.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("ci client: config validation failed: %w", err)
	}
	return &Client{cfg: cfg}, nil
}

type existsResponse struct {
	Success bool `json:"success"`
}

// BuildInfo describes the state of a single build of the registered job.
type BuildInfo struct {
	// The build number assigned by the automation server.
	Number int `json:"number"`

	// The build result, e.g. "SUCCESS" or "FAILURE"; empty while the
	// build is running.
	Result string `json:"result"`

	// Building is true while the build is still in progress.
	Building bool `json:"building"`

	// The URL of the build on the automation server.
	URL string `json:"url"`
}

// Exists reports whether the repository/branch pair is registered with the
// build-automation server.
func (c *Client) Exists(ctx context.Context) (bool, error) {
	var res existsResponse
	if err := c.do(ctx, http.MethodGet, builderPath, nil, &res); err != nil {
		return false, err
	}
	return res.Success, nil
}

// Register registers the repository/branch pair as a buildable job.
func (c *Client) Register(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, registerPath, nil, nil); err != nil {
		return err
	}
	c.cfg.Logger.WithFields(logrus.Fields{
		"repo":   c.cfg.Repo,
		"branch": c.cfg.Branch,
	}).Info("registered build job")
	return nil
}

// Unregister removes the repository/branch pair from the build-automation
// server.
func (c *Client) Unregister(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, registerPath, nil, nil)
}

// SubmitBuild starts a new build of the registered job and returns its
// build info.
func (c *Client) SubmitBuild(ctx context.Context) (*BuildInfo, error) {
	var info BuildInfo
	if err := c.do(ctx, http.MethodPost, builderPath, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// BuildStatus returns the status of the given build number, or of the
// latest build when number is zero.
func (c *Client) BuildStatus(ctx context.Context, number int) (*BuildInfo, error) {
	q := url.Values{}
	if number > 0 {
		q.Set("build_number", strconv.Itoa(number))
	}
	var info BuildInfo
	if err := c.do(ctx, http.MethodGet, buildPath, q, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// StopBuild aborts the latest build of the registered job.
func (c *Client) StopBuild(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, builderPath, nil, nil)
}

// DeleteBuild deletes the record of the given build number, or of the
// latest build when number is zero. The build must no longer be running.
func (c *Client) DeleteBuild(ctx context.Context, number int) error {
	q := url.Values{}
	if number > 0 {
		q.Set("build_number", strconv.Itoa(number))
	}
	return c.do(ctx, http.MethodDelete, buildPath, q, nil)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, out interface{}) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("repo", c.cfg.Repo)
	if c.cfg.Branch != "" {
		q.Set("branch", c.cfg.Branch)
	}

	endpoint := c.cfg.Host + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return xerrors.Errorf("build request for %s: %w", path, err)
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return xerrors.Errorf("ci API %s: %w", path, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		return xerrors.Errorf("ci API %s: %w", path, &cluster.RemoteError{
			StatusCode: res.StatusCode,
			Message:    string(body),
		})
	}
	if out != nil {
		if err = json.NewDecoder(res.Body).Decode(out); err != nil {
			return xerrors.Errorf("decode response from %s: %w", path, err)
		}
	}
	return nil
}
