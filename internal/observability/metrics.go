package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the generation and archive pipelines, exposed on the mirror
// server's /metrics endpoint.
var (
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexus",
		Name:      "generations_total",
		Help:      "Completed generation attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexus",
		Name:      "generation_duration_seconds",
		Help:      "Wall time of streaming generations.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"provider"})

	GenerationChars = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexus",
		Name:      "generation_chars",
		Help:      "Accumulated characters per generation.",
		Buckets:   prometheus.ExponentialBuckets(64, 2, 12),
	}, []string{"provider"})

	ArchivesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexus",
		Name:      "archives_total",
		Help:      "Archive-and-trim runs by outcome.",
	}, []string{"outcome"})

	TrimmedTurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nexus",
		Name:      "trimmed_turns_total",
		Help:      "Turns removed from the message log by archive-and-trim.",
	})

	SnapshotsSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexus",
		Name:      "snapshots_saved_total",
		Help:      "Snapshot files written by kind (session or archive).",
	}, []string{"kind"})
)
