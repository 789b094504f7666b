package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "studysync",
	Subsystem: "remote",
	Name:      "calls_total",
	Help:      "Remote store calls, by operation and result.",
}, []string{"op", "result"})
