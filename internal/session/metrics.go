package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionCreations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossbrowse",
		Name:      "session_creations_total",
		Help:      "Browser sessions created, by outcome.",
	}, []string{"outcome"})
	analysisAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossbrowse",
		Name:      "analysis_attempts_total",
		Help:      "Single analysis attempts by outcome (success, failure, error, create_error).",
	}, []string{"outcome"})
	analysisTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crossbrowse",
		Name:      "analysis_timeouts_total",
		Help:      "Analyses abandoned after exceeding the session timeout.",
	})
)
