package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	purchaseSuccess prometheus.Counter
	purchaseFailed  prometheus.Counter
	smsReceived     prometheus.Counter
	cancellations   prometheus.Counter
	timeouts        prometheus.Counter
	pollErrors      prometheus.Counter
	smsWaitSeconds  prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		purchaseSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Name: "numberdesk_purchase_success_total",
			Help: "Total number of successful number purchases",
		}),
		purchaseFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "numberdesk_purchase_failed_total",
			Help: "Total number of failed number purchases",
		}),
		smsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "numberdesk_sms_received_total",
			Help: "Total number of sessions that received an SMS",
		}),
		cancellations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "numberdesk_cancellations_total",
			Help: "Total number of cancelled sessions",
		}),
		timeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "numberdesk_timeouts_total",
			Help: "Total number of sessions that timed out waiting for an SMS",
		}),
		pollErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "numberdesk_poll_errors_total",
			Help: "Total number of transient poll failures",
		}),
		smsWaitSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "numberdesk_sms_wait_seconds",
			Help:    "Time from purchase to SMS receipt",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (m *Metrics) IncPurchaseSuccess() { m.purchaseSuccess.Inc() }
func (m *Metrics) IncPurchaseFailed()  { m.purchaseFailed.Inc() }
func (m *Metrics) IncSMSReceived()     { m.smsReceived.Inc() }
func (m *Metrics) IncCancellation()    { m.cancellations.Inc() }
func (m *Metrics) IncTimeout()         { m.timeouts.Inc() }
func (m *Metrics) IncPollError()       { m.pollErrors.Inc() }

func (m *Metrics) ObserveSMSWait(seconds float64) {
	m.smsWaitSeconds.Observe(seconds)
}
