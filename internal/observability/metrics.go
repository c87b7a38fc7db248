// Package observability exports session metrics to Prometheus.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-smpp/smpp"
)

const namespace = "smpp"

// Source is the part of a session the collector reads from.
type Source interface {
	ID() string
	Credentials() smpp.Credentials
	State() smpp.SessionState
	Metrics() *smpp.SessionMetrics
}

var _ Source = (*smpp.Session)(nil)

type counterDesc struct {
	desc  *prometheus.Desc
	value func(m *smpp.SessionMetrics) float64
}

// SessionCollector is a prometheus.Collector reading the live counters of one session.
type SessionCollector struct {
	src      Source
	labels   []string
	counters []counterDesc
	inflight *prometheus.Desc
	state    *prometheus.Desc
}

var _ prometheus.Collector = (*SessionCollector)(nil)

// NewSessionCollector creates a collector for src. Every series carries the provider
// and session_id labels.
func NewSessionCollector(src Source) *SessionCollector {
	variable := []string{"provider", "session_id"}
	newDesc := func(subsystem, name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, variable, nil)
	}

	c := &SessionCollector{
		src:    src,
		labels: []string{src.Credentials().Provider, src.ID()},
	}

	c.counters = []counterDesc{
		{newDesc("submit", "sent_total", "submit_sm queued for sending."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.SubmitSendCount.Load()) }},
		{newDesc("submit", "accepted_total", "submit_sm accepted by the SMSC."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.SubmitOKCount.Load()) }},
		{newDesc("submit", "failed_total", "submit_sm rejected, nacked or lost."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.SubmitErrCount.Load()) }},
		{newDesc("deliver", "received_total", "deliver_sm received, receipts included."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.DeliverRecvCount.Load()) }},
		{newDesc("receipt", "matched_total", "Delivery receipts matched to a submitted message."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.ReceiptRecvCount.Load()) }},
		{newDesc("enquire_link", "sent_total", "enquire_link sent."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.EnquireLinkSendCount.Load()) }},
		{newDesc("enquire_link", "received_total", "enquire_link received from the SMSC."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.EnquireLinkRecvCount.Load()) }},
		{newDesc("response", "orphan_total", "Responses without a matching request."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.OrphanRespCount.Load()) }},
		{newDesc("generic_nack", "received_total", "generic_nack received."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.GenericNackRecvCount.Load()) }},
		{newDesc("frame", "decode_errors_total", "Inbound frames that failed to decode."),
			func(m *smpp.SessionMetrics) float64 { return float64(m.DecodeErrCount.Load()) }},
	}
	c.inflight = newDesc("submit", "inflight", "submit_sm awaiting a response.")
	c.state = newDesc("session", "state", "Current session state: 0 idle, 1 connecting, 2 awaiting bind, 3 bound, 4 awaiting unbind, 5 closed.")

	return c
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	ch <- c.inflight
	ch <- c.state
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Metrics()

	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, cd.value(m), c.labels...)
	}
	ch <- prometheus.MustNewConstMetric(c.inflight, prometheus.GaugeValue,
		float64(m.SubmitInflightCount.Load()), c.labels...)
	ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue,
		float64(c.src.State()), c.labels...)
}

// RegisterSession registers a collector for src with reg. The returned function unregisters it.
func RegisterSession(reg prometheus.Registerer, src Source) (func(), error) {
	c := NewSessionCollector(src)
	if err := reg.Register(c); err != nil {
		return nil, err
	}

	return func() { reg.Unregister(c) }, nil
}
