package smpp

import "sync/atomic"

// maxSequence is the largest sequence number allowed by SMPP v3.4.
const maxSequence uint32 = 0x7FFFFFFF

// sequenceGenerator hands out sequence numbers for one session, starting at 1.
//
// Numbers are strictly increasing and never reused; once maxSequence is handed out
// every further call fails with ErrSequenceExhausted.
type sequenceGenerator struct {
	last atomic.Uint32
}

func (g *sequenceGenerator) next() (uint32, error) {
	for {
		cur := g.last.Load()
		if cur >= maxSequence {
			return 0, ErrSequenceExhausted
		}
		if g.last.CompareAndSwap(cur, cur+1) {
			return cur + 1, nil
		}
	}
}

// peek returns the last number handed out, zero if none.
func (g *sequenceGenerator) peek() uint32 {
	return g.last.Load()
}
