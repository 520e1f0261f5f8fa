// Package restapi implements the cluster API boundary on top of the
// cluster's REST endpoints.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

// The REST API version prefix all endpoints live under.
const apiPrefix = "/api/v1"

const defaultRequestTimeout = 30 * time.Second

// Config encapsulates the settings for connecting to the cluster's REST
// API.
type Config struct {
	// The base URL of the cluster API, e.g. "https://mozart.example.com".
	Host string

	// Optional basic-auth credentials. Both must be set for
	// authentication to be attempted.
	Username string
	Password string

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
	} else if _, urlErr := url.Parse(cfg.Host); urlErr != nil {
		err = multierror.Append(err, xerrors.Errorf("invalid cluster host: %v", urlErr))
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return err
}

// Compile-time check to ensure Client implements cluster.API.
var _ cluster.API = (*Client)(nil)

// Client talks to the cluster's job REST API. It is stateless apart from
// its configuration and safe for concurrent use.
type Client struct {
	cfg Config
}

// NewClient creates a cluster API client with the specified config.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("cluster client: config validation failed: %w", err)
	}
	return &Client{cfg: cfg}, nil
}

type submitRequest struct {
	JobType  string                 `json:"job_type"`
	Queue    string                 `json:"queue"`
	Priority int                    `json:"priority"`
	Tag      string                 `json:"tag"`
	Params   map[string]interface{} `json:"params"`
}

type idRequest struct {
	ID string `json:"id"`
}

type resultResponse struct {
	Result json.RawMessage `json:"result"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Submit implements cluster.API. Any failure, remote or transport-level,
// is reported as ErrSubmissionFailed; no retry is attempted.
func (c *Client) Submit(ctx context.Context, req cluster.SubmissionRequest) (string, error) {
	body := submitRequest{
		JobType:  req.JobType,
		Queue:    req.Queue,
		Priority: req.Priority,
		Tag:      req.Tag,
		Params:   req.Params.Flatten(),
	}

	var res resultResponse
	if err := c.post(ctx, "/job/submit", body, &res, nil); err != nil {
		return "", xerrors.Errorf("%v: %w", err, cluster.ErrSubmissionFailed)
	}

	var jobID string
	if err := json.Unmarshal(res.Result, &jobID); err != nil {
		return "", xerrors.Errorf("decode submit response: %v: %w", err, cluster.ErrSubmissionFailed)
	}
	c.cfg.Logger.WithFields(logrus.Fields{
		"job":      jobID,
		"job_type": req.JobType,
	}).Debug("submitted job")
	return jobID, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// Status implements cluster.API.
func (c *Client) Status(ctx context.Context, jobID string) (cluster.Status, error) {
	var res statusResponse
	q := url.Values{"id": []string{jobID}}
	if err := c.get(ctx, "/job/status", q, &res, cluster.ErrJobNotFound); err != nil {
		return cluster.StatusUnknown, err
	}
	return cluster.ParseStatus(res.Status)
}

// Info implements cluster.API.
func (c *Client) Info(ctx context.Context, jobID string) (map[string]interface{}, error) {
	var res resultResponse
	q := url.Values{"id": []string{jobID}}
	if err := c.get(ctx, "/job/info", q, &res, cluster.ErrJobNotFound); err != nil {
		return nil, err
	}

	var info map[string]interface{}
	if err := json.Unmarshal(res.Result, &info); err != nil {
		return nil, xerrors.Errorf("decode job info: %w", err)
	}
	return info, nil
}

type productsResponse struct {
	Results []wireProduct `json:"results"`
}

type wireProduct struct {
	ID       string                 `json:"id"`
	Dataset  string                 `json:"dataset"`
	URLs     []string               `json:"urls"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Products implements cluster.API.
func (c *Client) Products(ctx context.Context, jobID string) ([]cluster.Product, error) {
	var res productsResponse
	path := "/job/products/" + url.PathEscape(jobID)
	if err := c.get(ctx, path, nil, &res, cluster.ErrJobNotFound); err != nil {
		return nil, err
	}

	products := make([]cluster.Product, len(res.Results))
	for i, p := range res.Results {
		products[i] = cluster.Product{
			ID:       p.ID,
			Dataset:  p.Dataset,
			URLs:     p.URLs,
			Metadata: p.Metadata,
		}
	}
	return products, nil
}

// Revoke implements cluster.API.
func (c *Client) Revoke(ctx context.Context, jobID string) error {
	return c.post(ctx, "/job/revoke", idRequest{ID: jobID}, nil, cluster.ErrJobNotFound)
}

// Remove implements cluster.API.
func (c *Client) Remove(ctx context.Context, jobID string) error {
	return c.post(ctx, "/job/remove", idRequest{ID: jobID}, nil, cluster.ErrJobNotFound)
}

// Retry implements cluster.API.
func (c *Client) Retry(ctx context.Context, jobID string) (string, error) {
	var res resultResponse
	if err := c.post(ctx, "/job/retry", idRequest{ID: jobID}, &res, cluster.ErrJobNotFound); err != nil {
		return "", err
	}

	var newID string
	if err := json.Unmarshal(res.Result, &newID); err != nil {
		return "", xerrors.Errorf("decode retry response: %w", err)
	}
	return newID, nil
}

type queryResponse struct {
	Results []wireJobRecord `json:"results"`
}

type wireJobRecord struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Status      string                 `json:"status"`
	SubmittedAt time.Time              `json:"submitted_at"`
	Queue       string                 `json:"queue"`
	Priority    int                    `json:"priority"`
	Tag         string                 `json:"tag"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Exception   string                 `json:"error,omitempty"`
	Traceback   string                 `json:"traceback,omitempty"`
}

// Query implements cluster.API.
func (c *Client) Query(ctx context.Context, f cluster.Filter) ([]cluster.JobRecord, error) {
	q := url.Values{}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	if f.JobType != "" {
		q.Set("job_type", f.JobType)
	}
	if f.Queue != "" {
		q.Set("queue", f.Queue)
	}
	if f.Priority != nil {
		q.Set("priority", strconv.Itoa(*f.Priority))
	}
	if f.Status != cluster.StatusUnknown {
		q.Set("status", f.Status.String())
	}
	if !f.SubmittedAfter.IsZero() {
		q.Set("submitted_after", f.SubmittedAfter.UTC().Format(time.RFC3339))
	}
	if !f.SubmittedBefore.IsZero() {
		q.Set("submitted_before", f.SubmittedBefore.UTC().Format(time.RFC3339))
	}

	var res queryResponse
	if err := c.get(ctx, "/job/list", q, &res, nil); err != nil {
		return nil, err
	}

	records := make([]cluster.JobRecord, len(res.Results))
	for i, w := range res.Results {
		st, err := cluster.ParseStatus(w.Status)
		if err != nil {
			return nil, xerrors.Errorf("job %q: %w", w.ID, err)
		}
		records[i] = cluster.JobRecord{
			ID:          w.ID,
			Type:        w.Type,
			Status:      st,
			SubmittedAt: w.SubmittedAt,
			Queue:       w.Queue,
			Priority:    w.Priority,
			Tag:         w.Tag,
			Metadata:    w.Metadata,
			Exception:   w.Exception,
			Traceback:   w.Traceback,
		}
	}
	return records, nil
}

type jobTypesResponse struct {
	Results []wireJobType `json:"results"`
}

type wireJobType struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Params []wireParamSpec `json:"params,omitempty"`
}

type wireParamSpec struct {
	Name        string      `json:"name"`
	From        string      `json:"from"`
	Type        string      `json:"type"`
	Optional    bool        `json:"optional"`
	Default     interface{} `json:"default,omitempty"`
	Choices     []string    `json:"enumerables,omitempty"`
	Path        string      `json:"path,omitempty"`
	Description string      `json:"description,omitempty"`
}

// ListJobTypes implements cluster.API.
func (c *Client) ListJobTypes(ctx context.Context) ([]cluster.JobTypeDescriptor, error) {
	var res jobTypesResponse
	if err := c.get(ctx, "/job-types", nil, &res, nil); err != nil {
		return nil, err
	}

	descriptors := make([]cluster.JobTypeDescriptor, len(res.Results))
	for i, w := range res.Results {
		descriptors[i] = cluster.JobTypeDescriptor{ID: w.ID, Label: w.Label}
	}
	return descriptors, nil
}

// GetWiring implements cluster.API.
func (c *Client) GetWiring(ctx context.Context, jobTypeID string) (*cluster.JobTypeDescriptor, error) {
	var res resultResponse
	q := url.Values{"id": []string{jobTypeID}}
	if err := c.get(ctx, "/job-types/wiring", q, &res, cluster.ErrJobTypeNotFound); err != nil {
		return nil, err
	}

	var w wireJobType
	if err := json.Unmarshal(res.Result, &w); err != nil {
		return nil, xerrors.Errorf("decode wiring for job type %q: %w", jobTypeID, err)
	}
	return decodeDescriptor(w)
}

func decodeDescriptor(w wireJobType) (*cluster.JobTypeDescriptor, error) {
	desc := &cluster.JobTypeDescriptor{
		ID:     w.ID,
		Label:  w.Label,
		Params: make([]cluster.ParamSpec, len(w.Params)),
	}
	for i, p := range w.Params {
		kind, err := parseKind(p.From)
		if err != nil {
			return nil, xerrors.Errorf("parameter %q: %w", p.Name, err)
		}
		typ, err := parseType(p.Type)
		if err != nil {
			return nil, xerrors.Errorf("parameter %q: %w", p.Name, err)
		}
		desc.Params[i] = cluster.ParamSpec{
			Name:        p.Name,
			Kind:        kind,
			Type:        typ,
			Required:    !p.Optional,
			Default:     p.Default,
			Choices:     p.Choices,
			Path:        p.Path,
			Description: p.Description,
		}
	}
	return desc, nil
}

func parseKind(v string) (cluster.ParamKind, error) {
	switch v {
	case "submitter":
		return cluster.KindTunable, nil
	case "dataset":
		return cluster.KindDataset, nil
	case "value":
		return cluster.KindFixed, nil
	}
	return 0, xerrors.Errorf("unsupported parameter origin %q", v)
}

func parseType(v string) (cluster.ParamType, error) {
	switch v {
	case "text", "":
		return cluster.TypeText, nil
	case "number":
		return cluster.TypeNumber, nil
	case "boolean":
		return cluster.TypeBoolean, nil
	case "enum":
		return cluster.TypeEnum, nil
	case "object":
		return cluster.TypeObject, nil
	}
	return 0, xerrors.Errorf("unsupported parameter type %q", v)
}

type queuesResponse struct {
	Results []wireQueue `json:"results"`
}

type wireQueue struct {
	Name        string `json:"name"`
	Recommended bool   `json:"recommended"`
}

// GetQueues implements cluster.API.
func (c *Client) GetQueues(ctx context.Context, jobTypeID string) ([]cluster.QueueInfo, error) {
	var res queuesResponse
	q := url.Values{"id": []string{jobTypeID}}
	if err := c.get(ctx, "/queue/list", q, &res, cluster.ErrJobTypeNotFound); err != nil {
		return nil, err
	}

	queues := make([]cluster.QueueInfo, len(res.Results))
	for i, w := range res.Results {
		queues[i] = cluster.QueueInfo{Name: w.Name, Recommended: w.Recommended}
	}
	return queues, nil
}

// get issues a GET request against an API path and decodes the JSON
// response into out. A 404 response is mapped to notFound when provided.
func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}, notFound error) error {
	endpoint := c.cfg.Host + apiPrefix + path
	if len(q) != 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return xerrors.Errorf("build request for %s: %w", path, err)
	}
	return c.do(req, path, out, notFound)
}

// post issues a POST request with a JSON body against an API path and
// decodes the JSON response into out when out is non-nil.
func (c *Client) post(ctx context.Context, path string, body, out interface{}, notFound error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return xerrors.Errorf("encode request for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+apiPrefix+path, bytes.NewReader(payload))
	if err != nil {
		return xerrors.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out, notFound)
}

func (c *Client) do(req *http.Request, path string, out interface{}, notFound error) error {
	if c.cfg.Username != "" && c.cfg.Password != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		observeRequest(path, err)
		return xerrors.Errorf("cluster API %s: %w", path, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound && notFound != nil {
		observeRequest(path, notFound)
		return xerrors.Errorf("cluster API %s: %w", path, notFound)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		remoteErr := &cluster.RemoteError{StatusCode: res.StatusCode}
		var errRes errorResponse
		if decodeErr := json.NewDecoder(res.Body).Decode(&errRes); decodeErr == nil && errRes.Message != "" {
			remoteErr.Message = errRes.Message
		} else {
			remoteErr.Message = fmt.Sprintf("request to %s failed", path)
		}
		observeRequest(path, remoteErr)
		return xerrors.Errorf("cluster API %s: %w", path, remoteErr)
	}

	if out != nil {
		if err = json.NewDecoder(res.Body).Decode(out); err != nil {
			observeRequest(path, err)
			return xerrors.Errorf("decode response from %s: %w", path, err)
		}
	}
	observeRequest(path, nil)
	return nil
}
