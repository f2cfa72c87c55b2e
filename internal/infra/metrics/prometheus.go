package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videosplice_jobs_finished_total",
		Help: "Total number of jobs that reached a terminal state, by state and error kind",
	}, []string{"state", "kind"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videosplice_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videosplice_frames_sampled_total",
		Help: "Total number of frames sampled across all jobs",
	})

	BatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videosplice_batches_total",
		Help: "Total number of frame batches processed",
	})

	LabelsUnavailableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videosplice_labels_unavailable_total",
		Help: "Total number of frames whose label was recorded as unavailable",
	})

	MemoryResidentBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videosplice_memory_resident_bytes",
		Help: "Last sampled resident memory as seen by the memory guard",
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videosplice_active_jobs",
		Help: "Number of jobs currently executing in the pipeline",
	})
)
