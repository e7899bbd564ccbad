package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "story_auth_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_auth_logins_total",
			Help: "Total number of login attempts by status.",
		},
		[]string{"status"},
	)

	storiesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "story_stories_created_total",
		Help: "Total number of created stories.",
	})

	graphMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_graph_mutations_total",
			Help: "Total number of successful graph mutations by entity and action.",
		},
		[]string{"entity", "action"},
	)
)
