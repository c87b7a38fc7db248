package smsctest

import (
	"fmt"
	"time"

	"github.com/arloliu/go-smpp/pdu"
)

// defaultHandle answers f the way a cooperative SMSC does.
func (s *Server) defaultHandle(c *Conn, f *pdu.Frame) {
	switch body := f.Body.(type) {
	case *pdu.BindTransceiver:
		_ = c.Reply(f, s.bindStatus(body), &pdu.BindTransceiverResp{SystemID: s.cfg.systemID})

	case *pdu.SubmitSm:
		s.handleSubmit(c, f, body)

	case *pdu.Unbind:
		_ = c.Reply(f, pdu.StatusOK, &pdu.UnbindResp{})
		_ = c.Close()

	case *pdu.EnquireLink:
		_ = c.Reply(f, pdu.StatusOK, &pdu.EnquireLinkResp{})

	case *pdu.DeliverSmResp, *pdu.EnquireLinkResp, *pdu.GenericNack, *pdu.UnbindResp:
		// nothing to answer

	default:
		if !f.IsResponse() {
			_ = c.Reply(f, pdu.StatusInvCmdID, &pdu.GenericNack{})
		}
	}
}

func (s *Server) bindStatus(b *pdu.BindTransceiver) pdu.CommandStatus {
	if !s.cfg.bindStatus.IsOK() {
		return s.cfg.bindStatus
	}

	if s.cfg.systemIDCheck != "" && b.SystemID != s.cfg.systemIDCheck {
		return pdu.StatusInvSysID
	}
	if s.cfg.passwordCheck != "" && b.Password != s.cfg.passwordCheck {
		return pdu.StatusInvPaswd
	}

	return pdu.StatusOK
}

func (s *Server) handleSubmit(c *Conn, f *pdu.Frame, sm *pdu.SubmitSm) {
	n := s.submitCount.Add(1)

	status := pdu.StatusOK
	if s.cfg.submitStatus != nil {
		status = s.cfg.submitStatus(n, sm)
	}

	if !status.IsOK() {
		_ = c.Reply(f, status, &pdu.SubmitSmResp{})
		return
	}

	msgID := s.cfg.messageID(n)
	if err := c.Reply(f, pdu.StatusOK, &pdu.SubmitSmResp{MessageID: msgID}); err != nil {
		return
	}

	if s.cfg.receipts && sm.RegisteredDelivery&0x03 != pdu.RegisteredDeliveryNone {
		_ = c.SendReceipt(sm, msgID, pdu.StateDelivered)
	}
}

// SendReceipt sends a delivery receipt for a message previously accepted under msgID.
func (c *Conn) SendReceipt(sm *pdu.SubmitSm, msgID string, stat string) error {
	now := time.Now()
	r := &pdu.DeliveryReceipt{
		MessageID:  msgID,
		Submitted:  "001",
		Delivered:  "001",
		SubmitDate: now,
		DoneDate:   now,
		Stat:       stat,
		Err:        "000",
	}

	dlr := &pdu.DeliverSm{}
	dlr.SourceAddr = sm.DestinationAddr
	dlr.DestinationAddr = sm.SourceAddr
	dlr.EsmClass = pdu.EsmClassDeliveryReceipt
	dlr.DataCoding = pdu.CodingDefault
	dlr.ShortMessage = []byte(pdu.FormatDeliveryReceipt(r))
	dlr.TLVs = []pdu.TLV{pdu.CStringTLV(pdu.TagReceiptedMessageID, msgID)}

	return c.Send(pdu.StatusOK, c.NextSeq(), dlr)
}

// SendDeliver sends a mobile originated deliver_sm carrying text.
func (c *Conn) SendDeliver(source, destination, text string) (uint32, error) {
	dm := &pdu.DeliverSm{}
	dm.SourceAddr = source
	dm.DestinationAddr = destination
	dm.DataCoding = pdu.CodingDefault
	dm.ShortMessage = []byte(text)

	seq := c.NextSeq()

	return seq, c.Send(pdu.StatusOK, seq, dm)
}

func defaultMessageID(n uint64) string {
	return fmt.Sprintf("msg-%06d", n)
}
