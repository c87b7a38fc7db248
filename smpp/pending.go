package smpp

import (
	"time"

	"github.com/arloliu/go-smpp/pdu"
)

// pendingRequest is a request awaiting its response.
type pendingRequest struct {
	seq    uint32
	kind   pdu.CommandID
	handle *SubmitHandle // nil for unbind
	sentAt time.Time
}

// pendingTable correlates responses with requests by sequence number.
//
// The map is owned by the dispatcher goroutine. Writers register entries through
// registerCh before their frame is queued for writing; the dispatcher drains the
// channel before each lookup, so a response can never be processed before the
// registration of its request.
type pendingTable struct {
	registerCh chan *pendingRequest
	entries    map[uint32]*pendingRequest
}

func newPendingTable(capacity int) *pendingTable {
	return &pendingTable{
		registerCh: make(chan *pendingRequest, capacity),
		entries:    make(map[uint32]*pendingRequest),
	}
}

// drain moves queued registrations into the map. Dispatcher only.
func (pt *pendingTable) drain() {
	for {
		select {
		case req := <-pt.registerCh:
			pt.entries[req.seq] = req
		default:
			return
		}
	}
}

// take removes and returns the entry for seq. Dispatcher only.
func (pt *pendingTable) take(seq uint32) (*pendingRequest, bool) {
	pt.drain()

	req, ok := pt.entries[seq]
	if ok {
		delete(pt.entries, seq)
	}

	return req, ok
}

// failAll resolves every outstanding submit with err. Dispatcher only, on exit.
func (pt *pendingTable) failAll(err error) int {
	pt.drain()

	n := 0
	for seq, req := range pt.entries {
		if req.handle != nil {
			req.handle.resolve(SubmitResult{Sequence: seq, Err: err})
			n++
		}
		delete(pt.entries, seq)
	}

	return n
}

// size returns the number of registered entries. Dispatcher only.
func (pt *pendingTable) size() int {
	pt.drain()
	return len(pt.entries)
}
