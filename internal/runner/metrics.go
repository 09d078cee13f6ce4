package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crossbrowse",
		Name:      "batches_processed_total",
		Help:      "Batches a session finished and was recycled after.",
	})
	activeBatches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crossbrowse",
		Name:      "batches_active",
		Help:      "Batches currently being processed.",
	})
	assignmentsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crossbrowse",
		Name:      "assignments_in_flight",
		Help:      "(site, session) analyses currently running.",
	})
	sitesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crossbrowse",
		Name:      "sites_completed_total",
		Help:      "Sites analyzed by every session.",
	})
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossbrowse",
		Name:      "analyses_total",
		Help:      "Analysis runs by browser kind and outcome.",
	}, []string{"browser", "outcome"})
)
