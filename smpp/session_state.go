package smpp

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-smpp/logger"
)

// SessionState represents the stages of an SMPP transceiver session.
type SessionState uint32

// Session states.
const (
	// StateIdle indicates that no connection has been attempted yet.
	StateIdle SessionState = iota
	// StateConnecting indicates that the TCP connection is being established.
	StateConnecting
	// StateAwaitingBindResp indicates that bind_transceiver was sent and its response is pending.
	StateAwaitingBindResp
	// StateBound indicates that the session accepts submit_sm.
	StateBound
	// StateAwaitingUnbindResp indicates that unbind was sent and its response is pending.
	StateAwaitingUnbindResp
	// StateClosed is terminal. See CloseReason for why the session ended.
	StateClosed
)

// String returns string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAwaitingBindResp:
		return "awaiting-bind-resp"
	case StateBound:
		return "bound"
	case StateAwaitingUnbindResp:
		return "awaiting-unbind-resp"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LogValue renders the state by name in structured logs.
func (s SessionState) LogValue() slog.Value { return slog.StringValue(s.String()) }

// CloseReason records why a session reached StateClosed.
type CloseReason uint32

const (
	// ReasonNone means the session is not closed.
	ReasonNone CloseReason = iota
	// ReasonNormal is a completed unbind handshake.
	ReasonNormal
	// ReasonAuthFailed is a rejected or unanswered-by-bind-resp bind.
	ReasonAuthFailed
	// ReasonUnexpected is a transport closure or write failure.
	ReasonUnexpected
	// ReasonProtocol is a framing error or a peer that broke the session rules.
	ReasonProtocol
	// ReasonTimeout is an expired bind or unbind handshake.
	ReasonTimeout
	// ReasonPeerUnbind is an unbind initiated by the SMSC.
	ReasonPeerUnbind
	// ReasonConnectFailed is a failed dial.
	ReasonConnectFailed
)

func (r CloseReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNormal:
		return "normal"
	case ReasonAuthFailed:
		return "auth-failed"
	case ReasonUnexpected:
		return "unexpected"
	case ReasonProtocol:
		return "protocol"
	case ReasonTimeout:
		return "timeout"
	case ReasonPeerUnbind:
		return "peer-unbind"
	case ReasonConnectFailed:
		return "connect-failed"
	default:
		return "unknown"
	}
}

func (r CloseReason) LogValue() slog.Value { return slog.StringValue(r.String()) }

// StateChangeHandler is invoked on every state change.
//
// Note: the handler is invoked synchronously while the state lock is held. It must not
// call methods that change the session state.
type StateChangeHandler func(prev SessionState, cur SessionState, reason CloseReason)

// stateMgr manages the session state.
//
// Transitions are validated; StateClosed is terminal and the first close reason wins.
type stateMgr struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	reason   CloseReason
	cause    error
	done     chan struct{}
	logger   logger.Logger
	handlers []StateChangeHandler
}

func newStateMgr(l logger.Logger, handlers ...StateChangeHandler) *stateMgr {
	sm := &stateMgr{
		done:     make(chan struct{}),
		logger:   l,
		handlers: handlers,
	}
	sm.cond = sync.NewCond(&sm.mu)
	sm.state.Store(uint32(StateIdle))

	return sm
}

// State returns the current state.
func (sm *stateMgr) State() SessionState {
	return SessionState(sm.state.Load())
}

// Done is closed when the state becomes StateClosed.
func (sm *stateMgr) Done() <-chan struct{} {
	return sm.done
}

// Closed returns the close reason and its cause. The reason is ReasonNone while the session is open.
func (sm *stateMgr) Closed() (CloseReason, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.reason, sm.cause
}

var allowedTransitions = map[SessionState]SessionState{
	StateIdle:             StateConnecting,
	StateConnecting:       StateAwaitingBindResp,
	StateAwaitingBindResp: StateBound,
	StateBound:            StateAwaitingUnbindResp,
}

// transition moves from the expected predecessor of to into to.
// It returns ErrInvalidTransition from any other state.
func (sm *stateMgr) transition(to SessionState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cur := sm.State()
	if next, ok := allowedTransitions[cur]; !ok || next != to {
		sm.logger.Debug("reject state transition", "cur_state", cur, "desired_state", to)
		return ErrInvalidTransition
	}

	sm.setState(to)
	sm.invokeHandlers(cur, to, ReasonNone)

	return nil
}

// toClosed moves any non-terminal state to StateClosed. It returns false when the
// session was already closed, in which case reason and cause are discarded.
func (sm *stateMgr) toClosed(reason CloseReason, cause error) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cur := sm.State()
	if cur == StateClosed {
		return false
	}

	sm.reason = reason
	sm.cause = cause
	sm.setState(StateClosed)
	close(sm.done)
	sm.invokeHandlers(cur, StateClosed, reason)

	return true
}

// WaitState waits for the session to reach state or until ctx is done.
// Waiting for any state other than StateClosed fails with ErrSessionClosed once the session closes.
func (sm *stateMgr) WaitState(ctx context.Context, state SessionState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		sm.cond.Broadcast()
	})
	defer stop()

	for {
		cur := sm.State()
		switch {
		case cur == state:
			return nil
		case cur == StateClosed:
			return ErrSessionClosed
		case ctx.Err() != nil:
			return ctx.Err()
		}
		sm.cond.Wait()
	}
}

// setState stores the new state and wakes waiters. Caller holds sm.mu.
func (sm *stateMgr) setState(s SessionState) {
	sm.state.Store(uint32(s))
	sm.cond.Broadcast()
}

func (sm *stateMgr) invokeHandlers(prev SessionState, cur SessionState, reason CloseReason) {
	for _, h := range sm.handlers {
		if h != nil {
			h(prev, cur, reason)
		}
	}
}
