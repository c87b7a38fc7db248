package smpp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/arloliu/go-smpp/internal/pool"
	"github.com/arloliu/go-smpp/logger"
	"github.com/arloliu/go-smpp/pdu"
)

// Session is a bound SMPP transceiver session.
//
// A Session is created by Connect, which performs the bind handshake, and ends
// with Close, which performs the unbind handshake. Submit is safe for concurrent use.
//
// Two goroutines own the transport: the dispatcher reads and handles inbound frames,
// the sender writes outbound frames. They are managed by a TaskManager together with
// the deliver handler, the enquire_link and the receipt janitor tasks.
type Session struct {
	id     string
	cfg    *sessionConfig
	creds  Credentials
	logger logger.Logger
	codec  pdu.Codec

	conn   net.Conn
	reader *frameReader

	stateMgr *stateMgr
	taskMgr  *TaskManager
	seq      sequenceGenerator
	window   *semaphore.Weighted

	// submitMu orders submits against the unbind: Submit holds it shared while it
	// queues a submit_sm, Close holds it exclusively while it queues the unbind.
	submitMu sync.RWMutex

	sendCh    chan *outFrame
	deliverCh chan deliverItem
	pending   *pendingTable
	receipts  *receiptTracker

	metrics SessionMetrics

	releaseOnce sync.Once
	closeOnce   sync.Once
	closeErr    error
}

// outFrame is an encoded frame waiting for the sender.
type outFrame struct {
	id   pdu.CommandID
	seq  uint32
	data []byte
	// done receives the write result when not nil. It must be buffered.
	done chan error
}

type deliverItem struct {
	hdr pdu.Header
	msg *pdu.DeliverSm
}

// Connect dials the SMSC and binds as a transceiver.
//
// The credentials and options are validated before any network I/O; a failure returns
// *ConfigError. Dial failures return *ConnectionError. A rejected bind returns
// *AuthenticationError, an unanswered one ErrBindTimeout. ctx bounds the handshake only.
func Connect(ctx context.Context, creds Credentials, opts ...Option) (*Session, error) {
	cfg, err := newSessionConfig(opts...)
	if err != nil {
		return nil, err
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}

	s := newSession(ctx, cfg, creds)
	if err := s.open(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func newSession(ctx context.Context, cfg *sessionConfig, creds Credentials) *Session {
	id := uuid.NewString()
	l := cfg.logger.With("session_id", id, "provider", creds.Provider)

	s := &Session{
		id:        id,
		cfg:       cfg,
		creds:     creds,
		logger:    l,
		codec:     pdu.Codec{MaxFrameSize: cfg.maxFrameSize},
		stateMgr:  newStateMgr(l, cfg.stateHandlers...),
		window:    semaphore.NewWeighted(int64(cfg.windowSize)),
		sendCh:    make(chan *outFrame, cfg.senderQueueSize),
		deliverCh: make(chan deliverItem, cfg.deliverQueueSize),
		pending:   newPendingTable(cfg.windowSize + 4),
		receipts:  newReceiptTracker(cfg.receiptTimeout),
	}
	// the session outlives the context of Connect
	s.taskMgr = NewTaskManager(context.WithoutCancel(ctx), l)

	return s
}

// ID returns the session identifier attached to every log entry.
func (s *Session) ID() string { return s.id }

// Credentials returns the credentials the session was bound with.
func (s *Session) Credentials() Credentials { return s.creds }

// State returns the current session state.
func (s *Session) State() SessionState { return s.stateMgr.State() }

// Done is closed when the session reaches StateClosed.
func (s *Session) Done() <-chan struct{} { return s.stateMgr.Done() }

// WaitState waits until the session reaches state. See stateMgr.WaitState.
func (s *Session) WaitState(ctx context.Context, state SessionState) error {
	return s.stateMgr.WaitState(ctx, state)
}

// Metrics returns the live counters of the session.
func (s *Session) Metrics() *SessionMetrics { return &s.metrics }

// Outcome returns the terminal outcome, or a SessionOutcome of kind OutcomeUnknown
// while the session is open.
func (s *Session) Outcome() SessionOutcome {
	return outcomeOf(s.stateMgr.Closed())
}

// open dials, binds and starts the session tasks.
func (s *Session) open(ctx context.Context) error {
	if err := s.stateMgr.transition(StateConnecting); err != nil {
		return err
	}

	s.logger.Debug("connecting", "endpoint", s.creds.Endpoint)

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.connectTimeout)
	conn, err := s.cfg.dialer.DialContext(dialCtx, "tcp", s.creds.Endpoint)
	cancel()
	if err != nil {
		cerr := &ConnectionError{Op: "dial", Err: err}
		s.logger.Error("failed to connect", "endpoint", s.creds.Endpoint, "error", err)
		s.shutdown(ReasonConnectFailed, cerr)

		return cerr
	}

	s.conn = conn
	s.reader = newFrameReader(conn, s.codec)

	if err := s.bind(ctx); err != nil {
		return err
	}

	return s.startTasks()
}

// bind performs the bind_transceiver handshake on the calling goroutine.
func (s *Session) bind(ctx context.Context) error {
	if err := s.stateMgr.transition(StateAwaitingBindResp); err != nil {
		s.shutdown(ReasonUnexpected, err)
		return err
	}

	seq, err := s.seq.next()
	if err != nil {
		s.shutdown(ReasonUnexpected, err)
		return err
	}

	req := &pdu.BindTransceiver{
		SystemID:         s.creds.SystemID,
		Password:         s.creds.Password,
		SystemType:       s.creds.SystemType,
		InterfaceVersion: pdu.InterfaceVersion,
	}

	_ = s.conn.SetDeadline(time.Now().Add(s.cfg.bindTimeout))
	// a canceled ctx aborts the blocked read or write
	stop := context.AfterFunc(ctx, func() { _ = s.conn.SetDeadline(time.Now()) })
	defer stop()

	if err := s.writeFrame(pdu.NewFrame(pdu.StatusOK, seq, req)); err != nil {
		return s.bindFailed(ctx, err)
	}

	s.logger.Debug("bind_transceiver sent", "seq", seq, "system_id", s.creds.SystemID)

	for {
		frame, err := s.reader.ReadFrame()
		if err != nil {
			return s.bindFailed(ctx, err)
		}

		switch body := frame.Body.(type) {
		case *pdu.EnquireLink:
			s.metrics.incEnquireLinkRecvCount()
			resp := pdu.NewFrame(pdu.StatusOK, frame.Header.Sequence, &pdu.EnquireLinkResp{})
			if err := s.writeFrame(resp); err != nil {
				return s.bindFailed(ctx, err)
			}

			continue

		case *pdu.BindTransceiverResp:
			if frame.Header.Status.IsOK() {
				if !stop() {
					return s.bindFailed(ctx, ctx.Err())
				}
				_ = s.conn.SetDeadline(time.Time{})

				if err := s.stateMgr.transition(StateBound); err != nil {
					s.shutdown(ReasonUnexpected, err)
					return err
				}

				s.logger.Info("bound", "endpoint", s.creds.Endpoint, "smsc_system_id", body.SystemID)

				return nil
			}
		}

		aerr := &AuthenticationError{Status: frame.Header.Status, Command: frame.Header.CommandID}
		s.logger.Error("bind failed", "command", frame.Header.CommandID, "status", frame.Header.Status)
		s.shutdown(ReasonAuthFailed, aerr)

		return aerr
	}
}

// bindFailed maps a transport or framing error during the handshake to a close reason.
func (s *Session) bindFailed(ctx context.Context, err error) error {
	var (
		reason CloseReason
		cause  error
		netErr net.Error
		decErr *pdu.DecodeError
	)

	switch {
	case ctx.Err() != nil:
		reason = ReasonUnexpected
		cause = &ConnectionError{Op: "bind", Err: ctx.Err()}
	case errors.As(err, &decErr):
		s.metrics.incDecodeErrCount()
		reason = ReasonProtocol
		cause = &ProtocolError{Reason: "malformed bind response", Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		reason = ReasonTimeout
		cause = fmt.Errorf("%w after %s", ErrBindTimeout, s.cfg.bindTimeout)
	default:
		reason = ReasonUnexpected
		cause = &ConnectionError{Op: "bind", Err: err}
	}

	s.logger.Error("bind failed", "reason", reason, "error", err)
	s.shutdown(reason, cause)

	return cause
}

func (s *Session) startTasks() error {
	if err := s.taskMgr.Start("dispatcher", s.dispatchTask, s.dispatcherExit); err != nil {
		return err
	}

	if err := StartConsumer(s.taskMgr, "sender", s.sendCh, s.sendTask, nil); err != nil {
		return err
	}

	if len(s.cfg.deliverHandlers) > 0 {
		if err := StartConsumer(s.taskMgr, "deliver", s.deliverCh, s.deliverTask, nil); err != nil {
			return err
		}
	}

	if s.cfg.enquireLinkInterval > 0 {
		if err := s.taskMgr.StartInterval("enquire_link", s.enquireLinkTask, s.cfg.enquireLinkInterval); err != nil {
			return err
		}
	}

	return s.taskMgr.StartInterval("receipt_janitor", s.expireReceipts, janitorInterval(s.cfg.receiptTimeout))
}

func janitorInterval(timeout time.Duration) time.Duration {
	return min(max(timeout/10, 10*time.Millisecond), time.Second)
}

// Submit queues msg as a submit_sm and returns without waiting for the response.
//
// It blocks while the window of outstanding submits is full. It returns a *ProtocolError
// wrapping ErrNotBound when the session is not bound, in which case nothing is written.
func (s *Session) Submit(ctx context.Context, msg OutboundMessage) (*SubmitHandle, error) {
	sm, err := buildSubmitSm(s.cfg, msg)
	if err != nil {
		return nil, err
	}

	if st := s.State(); st != StateBound {
		return nil, notBoundError(st)
	}

	if err := s.acquireWindow(ctx); err != nil {
		return nil, err
	}

	s.submitMu.RLock()
	defer s.submitMu.RUnlock()

	if st := s.State(); st != StateBound {
		s.window.Release(1)
		return nil, notBoundError(st)
	}

	seq, err := s.seq.next()
	if err != nil {
		s.window.Release(1)
		return nil, err
	}

	data, err := s.codec.Encode(pdu.NewFrame(pdu.StatusOK, seq, sm))
	if err != nil {
		s.window.Release(1)
		return nil, &ConfigError{Field: "content", Reason: err.Error()}
	}

	h := newSubmitHandle(s, seq, msg)
	s.metrics.incSubmitSendCount()

	err = s.register(&pendingRequest{seq: seq, kind: pdu.SubmitSmID, handle: h, sentAt: time.Now()})
	if err == nil {
		err = s.enqueue(&outFrame{id: pdu.SubmitSmID, seq: seq, data: data})
	}
	if err != nil {
		h.resolve(SubmitResult{Err: err})
		return nil, err
	}

	s.logger.Debug("submit_sm queued", "seq", seq, "destination", msg.Destination, "coding", sm.DataCoding)

	return h, nil
}

// acquireWindow takes one window slot. It gives up when ctx is done or the session ends.
func (s *Session) acquireWindow(ctx context.Context) error {
	acqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(s.taskMgr.Context(), cancel)
	defer stop()

	if err := s.window.Acquire(acqCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return notBoundError(s.State())
	}

	return nil
}

func notBoundError(st SessionState) error {
	return &ProtocolError{Reason: "submit while " + st.String(), Err: ErrNotBound}
}

// Close performs the unbind handshake, releases the transport and waits for the
// session goroutines. It returns nil after a completed unbind, ErrUnbindTimeout when
// the SMSC did not answer, and nil when the session was already closed.
//
// Calling Close more than once returns the first result.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.unbind(ctx)
		s.release()
		s.taskMgr.Wait()
	})

	return s.closeErr
}

func (s *Session) unbind(ctx context.Context) error {
	s.submitMu.Lock()
	if err := s.stateMgr.transition(StateAwaitingUnbindResp); err != nil {
		s.submitMu.Unlock()
		// the session is already closed; its outcome stands
		return nil
	}

	seq, err := s.seq.next()
	if err == nil {
		err = s.register(&pendingRequest{seq: seq, kind: pdu.UnbindID, sentAt: time.Now()})
	}
	if err == nil {
		var data []byte
		data, err = s.codec.Encode(pdu.NewFrame(pdu.StatusOK, seq, &pdu.Unbind{}))
		if err == nil {
			err = s.enqueue(&outFrame{id: pdu.UnbindID, seq: seq, data: data})
		}
	}
	s.submitMu.Unlock()

	if err != nil {
		s.shutdown(ReasonUnexpected, err)
		return err
	}

	s.logger.Debug("unbind sent", "seq", seq)

	timer := pool.GetTimer(s.cfg.unbindTimeout)
	defer pool.PutTimer(timer)

	select {
	case <-s.stateMgr.Done():
	case <-timer.C:
		s.logger.Warn("unbind_resp not received", "timeout", s.cfg.unbindTimeout)
		s.shutdown(ReasonTimeout, ErrUnbindTimeout)

		return ErrUnbindTimeout
	case <-ctx.Done():
		s.shutdown(ReasonUnexpected, ctx.Err())
		return ctx.Err()
	}

	reason, cause := s.stateMgr.Closed()
	if reason == ReasonNormal || reason == ReasonPeerUnbind {
		return nil
	}

	return cause
}

// shutdown records the close reason, the first one wins, and releases the transport.
// It never waits for the session goroutines, so tasks may call it.
func (s *Session) shutdown(reason CloseReason, cause error) {
	if s.stateMgr.toClosed(reason, cause) {
		switch reason {
		case ReasonNormal, ReasonPeerUnbind:
			s.logger.Info("session closed", "reason", reason)
		default:
			s.logger.Warn("session closed", "reason", reason, "error", cause)
		}
	}

	s.release()
}

// release stops the tasks and closes the transport, which unblocks both loops.
func (s *Session) release() {
	s.releaseOnce.Do(func() {
		s.taskMgr.Stop()
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// register hands a pending request to the dispatcher.
func (s *Session) register(req *pendingRequest) error {
	select {
	case s.pending.registerCh <- req:
		return nil
	case <-s.taskMgr.Context().Done():
		return ErrSessionClosed
	}
}

// enqueue hands a frame to the sender.
func (s *Session) enqueue(f *outFrame) error {
	select {
	case s.sendCh <- f:
		return nil
	case <-s.taskMgr.Context().Done():
		return ErrSessionClosed
	}
}

// sendAndWait queues a frame and waits until it has been written.
func (s *Session) sendAndWait(f *outFrame) error {
	f.done = make(chan error, 1)
	if err := s.enqueue(f); err != nil {
		return err
	}

	select {
	case err := <-f.done:
		return err
	case <-s.taskMgr.Context().Done():
		return ErrSessionClosed
	}
}

// reply encodes and queues a response to seq. When wait is set it returns after the write.
func (s *Session) reply(seq uint32, status pdu.CommandStatus, body pdu.Body, wait bool) error {
	data, err := s.codec.Encode(pdu.NewFrame(status, seq, body))
	if err != nil {
		return err
	}

	f := &outFrame{id: body.CommandID(), seq: seq, data: data}
	if wait {
		return s.sendAndWait(f)
	}

	return s.enqueue(f)
}

// writeFrame encodes and writes f on the calling goroutine. Used by the handshake only.
func (s *Session) writeFrame(f *pdu.Frame) error {
	data, err := s.codec.Encode(f)
	if err != nil {
		return err
	}

	_, err = s.conn.Write(data)

	return err
}

// sendTask writes one queued frame. A write failure closes the session.
func (s *Session) sendTask(f *outFrame) bool {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout))
	_, err := s.conn.Write(f.data)

	if f.done != nil {
		f.done <- err
	}

	if err != nil {
		if s.State() != StateClosed {
			s.logger.Error("failed to write frame", "command", f.id, "seq", f.seq, "error", err)
			s.shutdown(ReasonUnexpected, &ConnectionError{Op: "write", Err: err})
		}

		return false
	}

	s.logger.Debug("frame sent", "command", f.id, "seq", f.seq)

	return true
}

func (s *Session) deliverTask(item deliverItem) bool {
	for _, h := range s.cfg.deliverHandlers {
		h(s, item.hdr, item.msg)
	}

	return true
}

// enquireLinkTask sends one enquire_link. It stops once the session leaves StateBound.
func (s *Session) enquireLinkTask() bool {
	s.submitMu.RLock()
	defer s.submitMu.RUnlock()

	if s.State() != StateBound {
		return false
	}

	seq, err := s.seq.next()
	if err != nil {
		s.logger.Error("enquire_link not sent", "error", err)
		return false
	}

	data, err := s.codec.Encode(pdu.NewFrame(pdu.StatusOK, seq, &pdu.EnquireLink{}))
	if err != nil {
		return false
	}

	if err := s.enqueue(&outFrame{id: pdu.EnquireLinkID, seq: seq, data: data}); err != nil {
		return false
	}
	s.metrics.incEnquireLinkSendCount()

	return true
}

func (s *Session) expireReceipts() bool {
	if n := s.receipts.expire(time.Now()); n > 0 {
		s.logger.Warn("delivery receipts expired", "count", n, "timeout", s.cfg.receiptTimeout)
	}

	return true
}
