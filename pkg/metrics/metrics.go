package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "inkpad", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "inkpad", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	DocumentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "inkpad", Name: "documents_created_total", Help: "Number of documents created."},
	)
	DocumentSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "inkpad", Name: "document_saves_total", Help: "Number of content save attempts by outcome."},
		[]string{"outcome"},
	)
	PropagationPatches = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "inkpad", Name: "propagation_patches_total", Help: "Number of descendant patches issued by archive/restore propagation."},
	)
	PropagationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "inkpad", Name: "propagation_failures_total", Help: "Number of failed descendant patches."},
	)
	AssetUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "inkpad", Name: "asset_uploads_total", Help: "Number of asset uploads by outcome."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DocumentsCreated)
	reg.MustRegister(DocumentSaves)
	reg.MustRegister(PropagationPatches)
	reg.MustRegister(PropagationFailures)
	reg.MustRegister(AssetUploads)
}
