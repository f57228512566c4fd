package attendance

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_scans_matched_total",
		Help: "Scans that produced a new nazocnost record.",
	})
	scansDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_scans_duplicate_total",
		Help: "Scans resolved to a termin the student had already checked into.",
	})
	scansRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_scans_rejected_total",
		Help: "Scans that did not produce a record, by reason.",
	}, []string{"reason"})
	aggregations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_aggregations_total",
		Help: "Per-kolegij attendance reports computed.",
	})
)

func observeScanError(err error) {
	switch {
	case errors.Is(err, ErrStudentNotFound):
		scansRejected.WithLabelValues("student_not_found").Inc()
	case errors.Is(err, ErrNoActiveSession):
		scansRejected.WithLabelValues("no_active_session").Inc()
	case errors.Is(err, ErrInvalidScan):
		scansRejected.WithLabelValues("invalid_request").Inc()
	default:
		scansRejected.WithLabelValues("store_error").Inc()
	}
}
