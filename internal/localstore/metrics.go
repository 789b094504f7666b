package localstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "localstore",
		Name:      "writes_total",
		Help:      "Write jobs processed by the local store writer, by result.",
	}, []string{"result"})

	writeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "studysync",
		Subsystem: "localstore",
		Name:      "write_duration_seconds",
		Help:      "Time spent running one write job.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "studysync",
		Subsystem: "localstore",
		Name:      "queue_depth",
		Help:      "Write jobs submitted and not yet finished.",
	})

	backupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "localstore",
		Name:      "backups_total",
		Help:      "Backups created, by result.",
	}, []string{"result"})

	repairsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "localstore",
		Name:      "repairs_total",
		Help:      "Store file rewrites performed while loading, by action.",
	}, []string{"action"})
)
