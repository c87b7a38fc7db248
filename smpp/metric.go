package smpp

import (
	"sync/atomic"
)

// SessionMetrics contains atomic metrics for a session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// SubmitSendCount indicates the number of submit_sm queued for sending.
	SubmitSendCount atomic.Uint64
	// SubmitOKCount indicates the number of submit_sm accepted by the SMSC.
	SubmitOKCount atomic.Uint64
	// SubmitErrCount indicates the number of submit_sm rejected, nacked or lost.
	SubmitErrCount atomic.Uint64
	// SubmitInflightCount indicates the number of submit_sm awaiting a response.
	SubmitInflightCount atomic.Int64

	// DeliverRecvCount indicates the number of deliver_sm received, receipts included.
	DeliverRecvCount atomic.Uint64
	// ReceiptRecvCount indicates the number of delivery receipts matched to a submit.
	ReceiptRecvCount atomic.Uint64

	// EnquireLinkSendCount indicates the number of enquire_link sent.
	EnquireLinkSendCount atomic.Uint64
	// EnquireLinkRecvCount indicates the number of enquire_link received from the SMSC.
	EnquireLinkRecvCount atomic.Uint64

	// OrphanRespCount indicates the number of responses with no matching request.
	OrphanRespCount atomic.Uint64
	// GenericNackRecvCount indicates the number of generic_nack received.
	GenericNackRecvCount atomic.Uint64
	// DecodeErrCount indicates the number of frames that failed to decode.
	DecodeErrCount atomic.Uint64
}

func (m *SessionMetrics) incSubmitSendCount() {
	m.SubmitSendCount.Add(1)
	m.SubmitInflightCount.Add(1)
}

func (m *SessionMetrics) submitResolved(ok bool) {
	m.SubmitInflightCount.Add(-1)
	if ok {
		m.SubmitOKCount.Add(1)
	} else {
		m.SubmitErrCount.Add(1)
	}
}

func (m *SessionMetrics) incDeliverRecvCount() {
	m.DeliverRecvCount.Add(1)
}

func (m *SessionMetrics) incReceiptRecvCount() {
	m.ReceiptRecvCount.Add(1)
}

func (m *SessionMetrics) incEnquireLinkSendCount() {
	m.EnquireLinkSendCount.Add(1)
}

func (m *SessionMetrics) incEnquireLinkRecvCount() {
	m.EnquireLinkRecvCount.Add(1)
}

func (m *SessionMetrics) incOrphanRespCount() {
	m.OrphanRespCount.Add(1)
}

func (m *SessionMetrics) incGenericNackRecvCount() {
	m.GenericNackRecvCount.Add(1)
}

func (m *SessionMetrics) incDecodeErrCount() {
	m.DecodeErrCount.Add(1)
}
