package smpp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-smpp/logger"
	"github.com/arloliu/go-smpp/pdu"
)

func TestStateMgr_Transitions(t *testing.T) {
	require := require.New(t)

	var changes []SessionState
	sm := newStateMgr(logger.GetLogger(), func(_ SessionState, cur SessionState, _ CloseReason) {
		changes = append(changes, cur)
	})

	require.Equal(StateIdle, sm.State())

	// skipping a stage is rejected
	require.ErrorIs(sm.transition(StateBound), ErrInvalidTransition)
	require.ErrorIs(sm.transition(StateIdle), ErrInvalidTransition)

	require.NoError(sm.transition(StateConnecting))
	require.NoError(sm.transition(StateAwaitingBindResp))
	require.NoError(sm.transition(StateBound))
	require.ErrorIs(sm.transition(StateBound), ErrInvalidTransition)
	require.NoError(sm.transition(StateAwaitingUnbindResp))
	require.ErrorIs(sm.transition(StateIdle), ErrInvalidTransition)

	require.True(sm.toClosed(ReasonNormal, nil))
	require.Equal(StateClosed, sm.State())

	// the first reason wins
	require.False(sm.toClosed(ReasonUnexpected, io.EOF))
	reason, cause := sm.Closed()
	require.Equal(ReasonNormal, reason)
	require.NoError(cause)

	// closed is terminal
	require.ErrorIs(sm.transition(StateConnecting), ErrInvalidTransition)
	require.ErrorIs(sm.transition(StateIdle), ErrInvalidTransition)

	require.Equal([]SessionState{
		StateConnecting, StateAwaitingBindResp, StateBound, StateAwaitingUnbindResp, StateClosed,
	}, changes)

	select {
	case <-sm.Done():
	default:
		require.Fail("done channel not closed")
	}
}

func TestStateMgr_CloseFromAnyState(t *testing.T) {
	for _, st := range []SessionState{StateIdle, StateConnecting, StateAwaitingBindResp, StateBound} {
		t.Run(st.String(), func(t *testing.T) {
			require := require.New(t)

			sm := newStateMgr(logger.GetLogger())
			for _, next := range []SessionState{StateConnecting, StateAwaitingBindResp, StateBound} {
				if sm.State() == st {
					break
				}
				require.NoError(sm.transition(next))
			}
			require.Equal(st, sm.State())

			require.True(sm.toClosed(ReasonProtocol, io.ErrUnexpectedEOF))
			reason, cause := sm.Closed()
			require.Equal(ReasonProtocol, reason)
			require.ErrorIs(cause, io.ErrUnexpectedEOF)
		})
	}
}

func TestStateMgr_WaitState(t *testing.T) {
	require := require.New(t)

	sm := newStateMgr(logger.GetLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		_ = sm.transition(StateConnecting)
		_ = sm.transition(StateAwaitingBindResp)
		_ = sm.transition(StateBound)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(sm.WaitState(ctx, StateBound))
	wg.Wait()

	// closing wakes waiters of other states
	go func() {
		time.Sleep(20 * time.Millisecond)
		sm.toClosed(ReasonUnexpected, io.EOF)
	}()
	require.ErrorIs(sm.WaitState(ctx, StateAwaitingUnbindResp), ErrSessionClosed)
	require.NoError(sm.WaitState(ctx, StateClosed))
}

func TestStateMgr_WaitStateContext(t *testing.T) {
	require := require.New(t)

	sm := newStateMgr(logger.GetLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.ErrorIs(sm.WaitState(ctx, StateBound), context.DeadlineExceeded)
}

func TestSessionState_String(t *testing.T) {
	require := require.New(t)

	require.Equal("awaiting-bind-resp", StateAwaitingBindResp.String())
	require.Equal("unknown", SessionState(99).String())
	require.Equal("peer-unbind", ReasonPeerUnbind.String())
	require.Equal("unknown", CloseReason(99).String())
}

func TestSessionState_LogValue(t *testing.T) {
	for _, format := range []string{"slog", "zerolog"} {
		t.Run(format, func(t *testing.T) {
			require := require.New(t)

			var buf bytes.Buffer
			var l logger.Logger
			if format == "slog" {
				l = logger.NewSlogWithWriter(&buf, logger.InfoLevel, false, false)
			} else {
				l = logger.NewZerolog(&buf, logger.InfoLevel, false)
			}

			l.Warn("session closed", "state", StateBound, "reason", ReasonPeerUnbind,
				"command", pdu.DeliverSmID, "status", pdu.StatusSysErr)

			var entry map[string]any
			require.NoError(json.Unmarshal(buf.Bytes(), &entry))
			require.Equal("bound", entry["state"])
			require.Equal("peer-unbind", entry["reason"])
			require.Equal("deliver_sm", entry["command"])
			require.Equal("ESME_RSYSERR", entry["status"])
		})
	}
}
