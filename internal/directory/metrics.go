package directory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "directory_requests_total",
		Help: "Directory operations by outcome, after retries.",
	}, []string{"op", "outcome"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "directory_retries_total",
		Help: "Retried directory attempts.",
	}, []string{"op"})
)

func observe(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	requestsTotal.WithLabelValues(op, outcome).Inc()
}
