package restapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// requestsTotal tracks the outcome of every request issued against the
// cluster's REST API, labelled by endpoint path.
var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "maestro_cluster_requests_total",
	Help: "The total number of requests issued against the cluster API.",
}, []string{"endpoint", "outcome"})

func observeRequest(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(endpoint, outcome).Inc()
}
