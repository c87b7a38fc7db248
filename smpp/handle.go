package smpp

import (
	"context"
	"sync"

	"github.com/arloliu/go-smpp/pdu"
)

// SubmitHandle tracks one submitted message.
//
// Result waits for the submit_sm_resp; Receipt waits for the delivery receipt.
// Both return ErrSessionClosed when the session ends first.
type SubmitHandle struct {
	seq     uint32
	msg     OutboundMessage
	session *Session

	once   sync.Once
	done   chan struct{}
	result SubmitResult

	receiptOnce sync.Once
	receiptDone chan struct{}
	receipt     *pdu.DeliveryReceipt
	receiptErr  error
}

func newSubmitHandle(s *Session, seq uint32, msg OutboundMessage) *SubmitHandle {
	return &SubmitHandle{
		seq:         seq,
		msg:         msg,
		session:     s,
		done:        make(chan struct{}),
		receiptDone: make(chan struct{}),
	}
}

// Sequence returns the sequence number of the submit_sm.
func (h *SubmitHandle) Sequence() uint32 { return h.seq }

// Message returns the submitted message.
func (h *SubmitHandle) Message() OutboundMessage { return h.msg }

// Done is closed once the submit_sm has been answered or failed.
func (h *SubmitHandle) Done() <-chan struct{} { return h.done }

// Result waits for the submit outcome. A non-nil error is also stored in SubmitResult.Err.
func (h *SubmitHandle) Result(ctx context.Context) (SubmitResult, error) {
	select {
	case <-h.done:
		return h.result, h.result.Err
	case <-ctx.Done():
		return SubmitResult{Sequence: h.seq, Err: ctx.Err()}, ctx.Err()
	case <-h.session.Done():
	}

	// the dispatcher may have resolved the handle on its way out
	select {
	case <-h.done:
		return h.result, h.result.Err
	default:
		return SubmitResult{Sequence: h.seq, Err: ErrSessionClosed}, ErrSessionClosed
	}
}

// Receipt waits for the delivery receipt of an accepted submit.
//
// It returns ErrNoReceipt when the submit failed or no receipt was requested, and
// ErrReceiptTimeout when none arrived within the receipt timeout.
func (h *SubmitHandle) Receipt(ctx context.Context) (*pdu.DeliveryReceipt, error) {
	res, err := h.Result(ctx)
	if err != nil {
		return nil, err
	}
	if res.MessageID == "" || h.session.cfg.registeredDelivery == pdu.RegisteredDeliveryNone {
		return nil, ErrNoReceipt
	}

	select {
	case <-h.receiptDone:
		return h.receipt, h.receiptErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve records the submit outcome once and frees the window slot.
func (h *SubmitHandle) resolve(res SubmitResult) {
	h.once.Do(func() {
		res.Sequence = h.seq
		h.result = res
		close(h.done)
		h.session.window.Release(1)
		h.session.metrics.submitResolved(res.OK())
	})
}

// resolveReceipt records the receipt outcome once.
func (h *SubmitHandle) resolveReceipt(r *pdu.DeliveryReceipt, err error) {
	h.receiptOnce.Do(func() {
		h.receipt = r
		h.receiptErr = err
		close(h.receiptDone)
	})
}
