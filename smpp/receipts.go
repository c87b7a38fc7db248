package smpp

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-smpp/pdu"
)

type receiptEntry struct {
	handle   *SubmitHandle
	deadline time.Time
}

// receiptTracker correlates delivery receipts with accepted submits by SMSC message id.
// The dispatcher adds and matches entries; the janitor task expires them.
type receiptTracker struct {
	entries *xsync.MapOf[string, receiptEntry]
	timeout time.Duration
}

func newReceiptTracker(timeout time.Duration) *receiptTracker {
	return &receiptTracker{
		entries: xsync.NewMapOf[string, receiptEntry](),
		timeout: timeout,
	}
}

// track waits for the receipt of messageID on behalf of h.
func (rt *receiptTracker) track(messageID string, h *SubmitHandle) {
	rt.entries.Store(messageID, receiptEntry{handle: h, deadline: time.Now().Add(rt.timeout)})
}

// match resolves the handle waiting for r. It reports false when nobody waits for it.
func (rt *receiptTracker) match(r *pdu.DeliveryReceipt) bool {
	entry, ok := rt.entries.LoadAndDelete(r.MessageID)
	if !ok {
		return false
	}
	entry.handle.resolveReceipt(r, nil)

	return true
}

// expire fails entries whose deadline passed and returns how many expired.
func (rt *receiptTracker) expire(now time.Time) int {
	n := 0
	rt.entries.Range(func(id string, entry receiptEntry) bool {
		if now.After(entry.deadline) {
			rt.entries.Delete(id)
			entry.handle.resolveReceipt(nil, ErrReceiptTimeout)
			n++
		}
		return true
	})

	return n
}

// failAll resolves every waiting handle with err.
func (rt *receiptTracker) failAll(err error) {
	rt.entries.Range(func(id string, entry receiptEntry) bool {
		rt.entries.Delete(id)
		entry.handle.resolveReceipt(nil, err)
		return true
	})
}

// size returns the number of receipts awaited.
func (rt *receiptTracker) size() int {
	return rt.entries.Size()
}
