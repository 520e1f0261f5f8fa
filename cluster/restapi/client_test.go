package restapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gorilla/mux"
	gc "gopkg.in/check.v1"
	"golang.org/x/xerrors"

	"github.com/maestrojobs/maestro/cluster"
	"github.com/maestrojobs/maestro/cluster/restapi"
)

var _ = gc.Suite(new(ClientSuite))

// ClientSuite exercises the client against a fake in-process cluster API
// server.
type ClientSuite struct {
	router *mux.Router
	srv    *httptest.Server
	client *restapi.Client
}

func (s *ClientSuite) SetUpTest(c *gc.C) {
	s.router = mux.NewRouter()
	s.srv = httptest.NewServer(s.router)

	client, err := restapi.NewClient(restapi.Config{Host: s.srv.URL})
	c.Assert(err, gc.IsNil)
	s.client = client
}

func (s *ClientSuite) TearDownTest(c *gc.C) {
	s.srv.Close()
}

func (s *ClientSuite) TestConfigValidation(c *gc.C) {
	_, err := restapi.NewClient(restapi.Config{})
	c.Assert(err, gc.ErrorMatches, "(?s).*cluster host has not been provided.*")
}

func (s *ClientSuite) TestSubmit(c *gc.C) {
	var got map[string]interface{}
	s.router.HandleFunc("/api/v1/job/submit", func(w http.ResponseWriter, r *http.Request) {
		c.Assert(r.Method, gc.Equals, http.MethodPost)
		c.Assert(json.NewDecoder(r.Body).Decode(&got), gc.IsNil)
		writeJSON(w, map[string]interface{}{"result": "job-1"})
	})

	jobID, err := s.client.Submit(context.TODO(), cluster.SubmissionRequest{
		JobType:  "job-raster:v2",
		Queue:    "standard",
		Priority: 5,
		Tag:      "nightly",
		Params: cluster.ParameterSet{
			Dataset:   map[string]interface{}{"granule_id": "G-1"},
			Hardwired: map[string]interface{}{"processing_level": "L2"},
			Submitter: map[string]interface{}{"threshold": 0.9},
		},
	})
	c.Assert(err, gc.IsNil)
	c.Assert(jobID, gc.Equals, "job-1")

	// The three namespaces are flattened into a single params mapping.
	c.Assert(got, gc.DeepEquals, map[string]interface{}{
		"job_type": "job-raster:v2",
		"queue":    "standard",
		"priority": float64(5),
		"tag":      "nightly",
		"params": map[string]interface{}{
			"granule_id":       "G-1",
			"processing_level": "L2",
			"threshold":        0.9,
		},
	})
}

func (s *ClientSuite) TestSubmitFailure(c *gc.C) {
	s.router.HandleFunc("/api/v1/job/submit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]interface{}{"message": "no workers available"})
	})

	_, err := s.client.Submit(context.TODO(), cluster.SubmissionRequest{JobType: "job-raster:v2"})
	c.Assert(xerrors.Is(err, cluster.ErrSubmissionFailed), gc.Equals, true)
	c.Assert(err, gc.ErrorMatches, "(?s).*no workers available.*")
}

func (s *ClientSuite) TestStatus(c *gc.C) {
	s.router.HandleFunc("/api/v1/job/status", func(w http.ResponseWriter, r *http.Request) {
		c.Assert(r.URL.Query().Get("id"), gc.Equals, "job-1")
		writeJSON(w, map[string]interface{}{"status": "job-started"})
	})

	st, err := s.client.Status(context.TODO(), "job-1")
	c.Assert(err, gc.IsNil)
	c.Assert(st, gc.Equals, cluster.StatusStarted)
}

func (s *ClientSuite) TestStatusNotFound(c *gc.C) {
	s.router.HandleFunc("/api/v1/job/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := s.client.Status(context.TODO(), "job-0")
	c.Assert(xerrors.Is(err, cluster.ErrJobNotFound), gc.Equals, true)
}

func (s *ClientSuite) TestInfo(c *gc.C) {
	s.router.HandleFunc("/api/v1/job/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"result": map[string]interface{}{
				"error":     "step 3 exited with code 1",
				"traceback": "worker.go:42",
			},
		})
	})

	info, err := s.client.Info(context.TODO(), "job-1")
	c.Assert(err, gc.IsNil)
	c.Assert(info["error"], gc.Equals, "step 3 exited with code 1")
}

func (s *ClientSuite) TestProducts(c *gc.C) {
	s.router.HandleFunc("/api/v1/job/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		c.Assert(mux.Vars(r)["id"], gc.Equals, "job-1")
		writeJSON(w, map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"id":      "prod-1",
					"dataset": "L2_RASTER",
					"urls":    []string{"s3://bucket/prod-1"},
				},
			},
		})
	})

	products, err := s.client.Products(context.TODO(), "job-1")
	c.Assert(err, gc.IsNil)
	c.Assert(products, gc.DeepEquals, []cluster.Product{
		{ID: "prod-1", Dataset: "L2_RASTER", URLs: []string{"s3://bucket/prod-1"}},
	})
}

func (s *ClientSuite) TestRevokeAndRemove(c *gc.C) {
	var paths []string
	handler := func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		c.Assert(json.NewDecoder(r.Body).Decode(&req), gc.IsNil)
		c.Assert(req["id"], gc.Equals, "job-1")
		paths = append(paths, r.URL.Path)
		writeJSON(w, map[string]interface{}{"result": "ok"})
	}
	s.router.HandleFunc("/api/v1/job/revoke", handler)
	s.router.HandleFunc("/api/v1/job/remove", handler)

	c.Assert(s.client.Revoke(context.TODO(), "job-1"), gc.IsNil)
	c.Assert(s.client.Remove(context.TODO(), "job-1"), gc.IsNil)
	c.Assert(paths, gc.DeepEquals, []string{"/api/v1/job/revoke", "/api/v1/job/remove"})
}

func (s *ClientSuite) TestRetry(c *gc.C) {
	s.router.HandleFunc("/api/v1/job/retry", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"result": "job-2"})
	})

	newID, err := s.client.Retry(context.TODO(), "job-1")
	c.Assert(err, gc.IsNil)
	c.Assert(newID, gc.Equals, "job-2")
}

func (s *ClientSuite) TestQuery(c *gc.C) {
	submittedAt := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s.router.HandleFunc("/api/v1/job/list", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		c.Assert(q.Get("tag"), gc.Equals, "nightly")
		c.Assert(q.Get("job_type"), gc.Equals, "job-raster:v2")
		c.Assert(q.Get("priority"), gc.Equals, "5")
		c.Assert(q.Get("status"), gc.Equals, "job-completed")
		c.Assert(q.Get("submitted_after"), gc.Equals, "2026-08-30T00:00:00Z")
		c.Assert(q.Has("queue"), gc.Equals, false)
		c.Assert(q.Has("submitted_before"), gc.Equals, false)

		writeJSON(w, map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"id":           "job-1",
					"type":         "job-raster:v2",
					"status":       "job-completed",
					"submitted_at": submittedAt.Format(time.RFC3339),
					"queue":        "standard",
					"priority":     5,
					"tag":          "nightly",
				},
			},
		})
	})

	priority := 5
	records, err := s.client.Query(context.TODO(), cluster.Filter{
		Tag:            "nightly",
		JobType:        "job-raster:v2",
		Priority:       &priority,
		Status:         cluster.StatusCompleted,
		SubmittedAfter: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	})
	c.Assert(err, gc.IsNil)
	c.Assert(records, gc.DeepEquals, []cluster.JobRecord{
		{
			ID:          "job-1",
			Type:        "job-raster:v2",
			Status:      cluster.StatusCompleted,
			SubmittedAt: submittedAt,
			Queue:       "standard",
			Priority:    5,
			Tag:         "nightly",
		},
	})
}

func (s *ClientSuite) TestListJobTypes(c *gc.C) {
	s.router.HandleFunc("/api/v1/job-types", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"results": []map[string]interface{}{
				{"id": "job-raster:v2", "label": "Raster processing"},
				{"id": "job-mosaic:v1", "label": "Mosaic assembly"},
			},
		})
	})

	descriptors, err := s.client.ListJobTypes(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(descriptors, gc.DeepEquals, []cluster.JobTypeDescriptor{
		{ID: "job-raster:v2", Label: "Raster processing"},
		{ID: "job-mosaic:v1", Label: "Mosaic assembly"},
	})
}

func (s *ClientSuite) TestGetWiring(c *gc.C) {
	s.router.HandleFunc("/api/v1/job-types/wiring", func(w http.ResponseWriter, r *http.Request) {
		c.Assert(r.URL.Query().Get("id"), gc.Equals, "job-raster:v2")
		writeJSON(w, map[string]interface{}{
			"result": map[string]interface{}{
				"id":    "job-raster:v2",
				"label": "Raster processing",
				"params": []map[string]interface{}{
					{"name": "granule_id", "from": "dataset", "type": "text", "path": "id"},
					{"name": "processing_level", "from": "value", "default": "L2"},
					{
						"name": "mode", "from": "submitter", "type": "enum",
						"optional": true, "enumerables": []string{"forward", "reprocessing"},
					},
				},
			},
		})
	})

	desc, err := s.client.GetWiring(context.TODO(), "job-raster:v2")
	c.Assert(err, gc.IsNil)
	c.Assert(desc, gc.DeepEquals, &cluster.JobTypeDescriptor{
		ID:    "job-raster:v2",
		Label: "Raster processing",
		Params: []cluster.ParamSpec{
			{Name: "granule_id", Kind: cluster.KindDataset, Type: cluster.TypeText, Required: true, Path: "id"},
			{Name: "processing_level", Kind: cluster.KindFixed, Type: cluster.TypeText, Required: true, Default: "L2"},
			{Name: "mode", Kind: cluster.KindTunable, Type: cluster.TypeEnum, Choices: []string{"forward", "reprocessing"}},
		},
	})
}

func (s *ClientSuite) TestGetWiringUnknownJobType(c *gc.C) {
	s.router.HandleFunc("/api/v1/job-types/wiring", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := s.client.GetWiring(context.TODO(), "job-unknown:v1")
	c.Assert(xerrors.Is(err, cluster.ErrJobTypeNotFound), gc.Equals, true)
}

func (s *ClientSuite) TestGetQueues(c *gc.C) {
	s.router.HandleFunc("/api/v1/queue/list", func(w http.ResponseWriter, r *http.Request) {
		c.Assert(r.URL.Query().Get("id"), gc.Equals, "job-raster:v2")
		writeJSON(w, map[string]interface{}{
			"results": []map[string]interface{}{
				{"name": "bulk"},
				{"name": "standard", "recommended": true},
			},
		})
	})

	queues, err := s.client.GetQueues(context.TODO(), "job-raster:v2")
	c.Assert(err, gc.IsNil)
	c.Assert(queues, gc.DeepEquals, []cluster.QueueInfo{
		{Name: "bulk"},
		{Name: "standard", Recommended: true},
	})
}

func (s *ClientSuite) TestBasicAuth(c *gc.C) {
	s.router.HandleFunc("/api/v1/job/status", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		c.Assert(ok, gc.Equals, true)
		c.Assert(user, gc.Equals, "ops")
		c.Assert(pass, gc.Equals, "hunter2")
		writeJSON(w, map[string]interface{}{"status": "job-queued"})
	})

	client, err := restapi.NewClient(restapi.Config{
		Host:     s.srv.URL,
		Username: "ops",
		Password: "hunter2",
	})
	c.Assert(err, gc.IsNil)

	st, err := client.Status(context.TODO(), "job-1")
	c.Assert(err, gc.IsNil)
	c.Assert(st, gc.Equals, cluster.StatusQueued)
}

func (s *ClientSuite) TestRemoteErrorDetails(c *gc.C) {
	s.router.HandleFunc("/api/v1/job/list", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		writeJSON(w, map[string]interface{}{"message": "upstream unavailable"})
	})

	_, err := s.client.Query(context.TODO(), cluster.Filter{})
	var remoteErr *cluster.RemoteError
	c.Assert(xerrors.As(err, &remoteErr), gc.Equals, true)
	c.Assert(remoteErr.StatusCode, gc.Equals, http.StatusBadGateway)
	c.Assert(remoteErr.Message, gc.Equals, "upstream unavailable")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
