package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crossbrowse",
		Name:      "agent_tasks_in_flight",
		Help:      "Tasks sent to remote agents that have not been answered yet.",
	})
	agentConnections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossbrowse",
		Name:      "agent_connections_total",
		Help:      "Inbound agent connections by outcome.",
	}, []string{"outcome"})
)
