package smpp

import (
	"errors"

	"github.com/arloliu/go-smpp/pdu"
)

// errStopDispatch ends the read loop after a terminal frame.
var errStopDispatch = errors.New("stop dispatch")

// dispatchTask reads and handles one inbound frame. It runs on the dispatcher goroutine,
// which owns the frame reader and the pending table.
func (s *Session) dispatchTask() bool {
	frame, err := s.reader.ReadFrame()
	if err != nil {
		return s.handleReadError(err)
	}

	s.logger.Debug("frame received", "frame", frame)

	err = pdu.Dispatch(frame, (*dispatcher)(s))
	if errors.Is(err, errStopDispatch) {
		return false
	}
	if err != nil {
		s.logger.Warn("failed to handle frame", "frame", frame, "error", err)
	}

	return true
}

// dispatcherExit fails whatever still waits on the session.
func (s *Session) dispatcherExit() {
	s.shutdown(ReasonUnexpected, &ConnectionError{Op: "read", Err: ErrSessionClosed})

	if n := s.pending.failAll(ErrSessionClosed); n > 0 {
		s.logger.Warn("outstanding submits failed", "count", n)
	}
	s.receipts.failAll(ErrSessionClosed)
}

func (s *Session) handleReadError(err error) bool {
	if s.State() == StateClosed {
		return false
	}

	var decErr *pdu.DecodeError
	if !errors.As(err, &decErr) {
		s.logger.Error("connection lost", "state", s.State(), "error", err)
		s.shutdown(ReasonUnexpected, &ConnectionError{Op: "read", Err: err})

		return false
	}

	s.metrics.incDecodeErrCount()

	if decErr.Desync() {
		s.logger.Error("frame boundary lost", "error", err)
		s.shutdown(ReasonProtocol, &ProtocolError{Reason: "undecodable frame", Err: err})

		return false
	}

	hdr := decErr.Header
	s.logger.Warn("skip malformed frame", "command", hdr.CommandID, "seq", hdr.Sequence, "error", err)

	if !hdr.CommandID.IsResponse() {
		return s.rejectMalformed(hdr)
	}

	if req, ok := s.pending.take(hdr.Sequence); ok && req.handle != nil {
		req.handle.resolve(SubmitResult{
			Status: hdr.Status,
			Err:    &ProtocolError{Reason: "malformed " + hdr.CommandID.String(), Status: hdr.Status, Err: err},
		})
	}

	return true
}

// rejectMalformed answers a request whose body could not be decoded. A deliver_sm gets
// its own response with an error status, any other request a generic_nack.
func (s *Session) rejectMalformed(hdr pdu.Header) bool {
	if hdr.CommandID == pdu.DeliverSmID {
		s.metrics.incDeliverRecvCount()
		if err := s.reply(hdr.Sequence, pdu.StatusSysErr, &pdu.DeliverSmResp{}, true); err != nil {
			return false
		}

		return true
	}

	if err := s.reply(hdr.Sequence, pdu.StatusInvCmdLen, &pdu.GenericNack{}, false); err != nil {
		return false
	}

	return true
}

// dispatcher handles each inbound PDU variant on behalf of a Session.
type dispatcher Session

var _ pdu.Visitor = (*dispatcher)(nil)

func (d *dispatcher) session() *Session { return (*Session)(d) }

func (d *dispatcher) VisitBindTransceiver(hdr pdu.Header, _ *pdu.BindTransceiver) error {
	return d.rejectRequest(hdr)
}

func (d *dispatcher) VisitBindTransceiverResp(hdr pdu.Header, _ *pdu.BindTransceiverResp) error {
	d.logger.Warn("unexpected bind_transceiver_resp", "seq", hdr.Sequence, "status", hdr.Status)
	return nil
}

func (d *dispatcher) VisitSubmitSm(hdr pdu.Header, _ *pdu.SubmitSm) error {
	return d.rejectRequest(hdr)
}

func (d *dispatcher) VisitSubmitSmResp(hdr pdu.Header, b *pdu.SubmitSmResp) error {
	req, ok := d.takePending(hdr, pdu.SubmitSmID)
	if !ok {
		return nil
	}

	res := SubmitResult{MessageID: b.MessageID, Status: hdr.Status}
	if hdr.Status.IsOK() {
		d.logger.Info("submit accepted", "seq", hdr.Sequence, "message_id", b.MessageID,
			"destination", req.handle.msg.Destination)
		if d.cfg.registeredDelivery != pdu.RegisteredDeliveryNone && b.MessageID != "" {
			d.receipts.track(b.MessageID, req.handle)
		}
	} else {
		res.Err = &SubmitError{Sequence: hdr.Sequence, Status: hdr.Status}
		d.logger.Warn("submit rejected", "seq", hdr.Sequence, "status", hdr.Status,
			"destination", req.handle.msg.Destination)
	}

	req.handle.resolve(res)

	return nil
}

func (d *dispatcher) VisitDeliverSm(hdr pdu.Header, b *pdu.DeliverSm) error {
	d.metrics.incDeliverRecvCount()

	// acknowledge before anything else is read
	if err := d.session().reply(hdr.Sequence, pdu.StatusOK, &pdu.DeliverSmResp{}, true); err != nil {
		return errStopDispatch
	}

	if b.IsDeliveryReceipt() {
		r, err := pdu.ParseDeliveryReceipt(b)
		if err != nil {
			d.logger.Warn("unparsable delivery receipt", "seq", hdr.Sequence, "error", err)
		} else {
			d.logger.Info("delivery receipt", "message_id", r.MessageID, "stat", r.Stat, "err", r.Err)
			if d.receipts.match(r) {
				d.metrics.incReceiptRecvCount()
				return nil
			}
		}
	}

	if len(d.cfg.deliverHandlers) == 0 {
		d.logger.Debug("deliver_sm without handler", "seq", hdr.Sequence, "source", b.SourceAddr)
		return nil
	}

	select {
	case d.deliverCh <- deliverItem{hdr: hdr, msg: b}:
		return nil
	case <-d.taskMgr.Context().Done():
		return errStopDispatch
	}
}

func (d *dispatcher) VisitDeliverSmResp(hdr pdu.Header, _ *pdu.DeliverSmResp) error {
	d.logger.Debug("ignore deliver_sm_resp", "seq", hdr.Sequence)
	return nil
}

func (d *dispatcher) VisitUnbind(hdr pdu.Header, _ *pdu.Unbind) error {
	d.logger.Info("unbind requested by smsc", "seq", hdr.Sequence)

	if err := d.session().reply(hdr.Sequence, pdu.StatusOK, &pdu.UnbindResp{}, true); err != nil {
		d.logger.Warn("failed to answer unbind", "error", err)
	}
	d.session().shutdown(ReasonPeerUnbind, nil)

	return errStopDispatch
}

func (d *dispatcher) VisitUnbindResp(hdr pdu.Header, _ *pdu.UnbindResp) error {
	if d.stateMgr.State() != StateAwaitingUnbindResp {
		d.logger.Warn("unexpected unbind_resp", "seq", hdr.Sequence, "state", d.stateMgr.State())
		return nil
	}

	d.pending.take(hdr.Sequence)

	if hdr.Status.IsOK() {
		d.session().shutdown(ReasonNormal, nil)
	} else {
		d.session().shutdown(ReasonProtocol, &ProtocolError{Reason: "unbind rejected", Status: hdr.Status, Err: hdr.Status})
	}

	return errStopDispatch
}

func (d *dispatcher) VisitEnquireLink(hdr pdu.Header, _ *pdu.EnquireLink) error {
	d.metrics.incEnquireLinkRecvCount()
	return d.session().reply(hdr.Sequence, pdu.StatusOK, &pdu.EnquireLinkResp{}, false)
}

func (d *dispatcher) VisitEnquireLinkResp(hdr pdu.Header, _ *pdu.EnquireLinkResp) error {
	d.logger.Debug("enquire_link answered", "seq", hdr.Sequence)
	return nil
}

func (d *dispatcher) VisitGenericNack(hdr pdu.Header, _ *pdu.GenericNack) error {
	d.metrics.incGenericNackRecvCount()

	req, ok := d.pending.take(hdr.Sequence)
	if !ok {
		d.logger.Warn("unmatched generic_nack", "seq", hdr.Sequence, "status", hdr.Status)
		return nil
	}

	perr := &ProtocolError{Reason: "generic_nack for " + req.kind.String(), Status: hdr.Status, Err: hdr.Status}
	d.logger.Warn("request nacked", "seq", hdr.Sequence, "command", req.kind, "status", hdr.Status)

	if req.kind == pdu.UnbindID {
		d.session().shutdown(ReasonProtocol, perr)
		return errStopDispatch
	}

	if req.handle != nil {
		req.handle.resolve(SubmitResult{Status: hdr.Status, Err: perr})
	}

	return nil
}

func (d *dispatcher) VisitOther(hdr pdu.Header, b *pdu.Other) error {
	d.logger.Warn("unsupported pdu", "command", hdr.CommandID, "status", hdr.Status,
		"seq", hdr.Sequence, "body_len", len(b.Raw))

	if hdr.CommandID.IsResponse() {
		return nil
	}

	return d.session().reply(hdr.Sequence, pdu.StatusInvCmdID, &pdu.GenericNack{}, false)
}

// rejectRequest answers a request a transceiver client does not serve.
func (d *dispatcher) rejectRequest(hdr pdu.Header) error {
	d.logger.Warn("unexpected request from smsc", "command", hdr.CommandID, "seq", hdr.Sequence)
	return d.session().reply(hdr.Sequence, pdu.StatusInvCmdID, &pdu.GenericNack{}, false)
}

// takePending removes the request answered by hdr. A missing or mismatched request
// counts as an orphan response and is logged.
func (d *dispatcher) takePending(hdr pdu.Header, kind pdu.CommandID) (*pendingRequest, bool) {
	req, ok := d.pending.take(hdr.Sequence)
	if ok && req.kind == kind && req.handle != nil {
		return req, true
	}

	if ok {
		// not ours; leave it for its own response
		d.pending.entries[req.seq] = req
	}

	d.logger.Warn("orphan response", "command", hdr.CommandID, "seq", hdr.Sequence, "status", hdr.Status)
	d.metrics.incOrphanRespCount()

	return nil, false
}
