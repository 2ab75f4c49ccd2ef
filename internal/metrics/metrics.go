// Package metrics holds the Prometheus collectors of the file server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registry for all file server metrics.
var Registry = prometheus.NewRegistry()

// Deletion triggers used as the "trigger" label.
const (
	TriggerUser   = "user"
	TriggerReaper = "reaper"
)

var (
	FilesUploaded = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "fileserver_files_uploaded_total",
		Help: "Files stored and recorded in the catalog",
	})

	BytesUploaded = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "fileserver_bytes_uploaded_total",
		Help: "Payload bytes written to the blob store",
	})

	UploadFailures = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "fileserver_upload_failures_total",
		Help: "Files of an upload batch that could not be stored",
	})

	FoldersCreated = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "fileserver_folders_created_total",
		Help: "Folders recorded in the catalog",
	})

	EntriesDeleted = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "fileserver_entries_deleted_total",
		Help: "Catalog entries removed, by trigger",
	}, []string{"trigger"})

	ReaperSweeps = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "fileserver_reaper_sweeps_total",
		Help: "Completed retention sweeps",
	})

	ReaperErrors = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "fileserver_reaper_errors_total",
		Help: "Expired entries the reaper failed to delete",
	})

	ReaperSweepDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "fileserver_reaper_sweep_duration_seconds",
		Help:    "Duration of a retention sweep",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fileserver_http_request_duration_seconds",
		Help:    "HTTP request duration by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
