package smpp

import (
	"context"
)

// Run binds, submits every message, waits for their responses and unbinds.
//
// Submits are pipelined within the window. When WithReceiptWait is set, Run also waits
// up to that long for the delivery receipts of accepted messages before unbinding.
// The returned results follow the order of msgs.
func Run(ctx context.Context, creds Credentials, msgs []OutboundMessage, opts ...Option) (SessionOutcome, []SubmitResult) {
	results := make([]SubmitResult, len(msgs))

	s, err := Connect(ctx, creds, opts...)
	if err != nil {
		for i := range results {
			results[i].Err = err
		}

		return OutcomeFromError(err), results
	}

	handles := make([]*SubmitHandle, len(msgs))
	for i, msg := range msgs {
		h, err := s.Submit(ctx, msg)
		if err != nil {
			s.logger.Warn("submit failed", "index", i, "destination", msg.Destination, "error", err)
			results[i].Err = err

			continue
		}
		handles[i] = h
	}

	for i, h := range handles {
		if h == nil {
			continue
		}
		results[i], _ = h.Result(ctx)
	}

	if s.cfg.receiptWait > 0 {
		s.awaitReceipts(ctx, handles, results)
	}

	// unbind even when ctx is done; the unbind timeout bounds it
	_ = s.Close(context.WithoutCancel(ctx))

	return s.Outcome(), results
}

func (s *Session) awaitReceipts(ctx context.Context, handles []*SubmitHandle, results []SubmitResult) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.receiptWait)
	defer cancel()

	for i, h := range handles {
		if h == nil || !results[i].OK() {
			continue
		}

		r, err := h.Receipt(waitCtx)
		if err != nil {
			s.logger.Debug("no delivery receipt", "seq", h.Sequence(), "error", err)
			continue
		}
		results[i].Receipt = r
	}
}
