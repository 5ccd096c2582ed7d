package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huectl_bridge_commands_total",
		Help: "The total number of state commands sent, by target kind and outcome",
	}, []string{"kind", "outcome"})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huectl_bridge_requests_total",
		Help: "The total number of HTTP requests issued to the bridge, by method",
	}, []string{"method"})
)
