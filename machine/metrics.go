package machine

import (
	"errors"
	"time"

	"github.com/MixinNetwork/nfm/core"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "nfm"

const (
	resultOK       = "ok"
	resultReverted = "reverted"
	resultError    = "error"
)

type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Number of executed operations by method and result.",
		}, []string{"method", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing an operation, including the commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"method"}),
	}
}

func (mt *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{mt.operations, mt.duration} {
		err := reg.Register(c)
		if err != nil {
			return err
		}
	}
	return nil
}

func (mt *Metrics) observe(method string, start time.Time, err error) {
	result := resultOK
	if err != nil && reverted(err) {
		result = resultReverted
	} else if err != nil {
		result = resultError
	}
	mt.operations.WithLabelValues(method, result).Inc()
	mt.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

var revertErrors = []error{
	core.ErrInsufficientPayment,
	core.ErrNotOwner,
	core.ErrNotAuthorized,
	core.ErrNotApproved,
	core.ErrListingNotActive,
	core.ErrInvalidPrice,
	core.ErrTokenNotFound,
	core.ErrInsufficientFunds,
	core.ErrInvalidAddress,
	core.ErrInvalidAmount,
	core.ErrUnknownContract,
}

// reverted tells an operation rejected by its own rules from a storage or
// context failure.
func reverted(err error) bool {
	for _, re := range revertErrors {
		if errors.Is(err, re) {
			return true
		}
	}
	return false
}
