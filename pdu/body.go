package pdu

import "fmt"

// InterfaceVersion is the SMPP version announced in bind requests.
const InterfaceVersion byte = 0x34

// Registered delivery flags.
const (
	RegisteredDeliveryNone    byte = 0x00
	RegisteredDeliveryAll     byte = 0x01
	RegisteredDeliveryFailure byte = 0x02
)

// esm_class message type bits.
const (
	esmMessageTypeMask        byte = 0x3C
	EsmClassDeliveryReceipt   byte = 0x04
	EsmClassIntermediateNotif byte = 0x20
)

// Body is the command-specific part of a PDU. The variant set is closed:
// only types in this package implement it, and every Visitor must handle all of them.
type Body interface {
	// CommandID returns the command identifier written to the header.
	CommandID() CommandID
	// Accept dispatches to the matching Visitor method.
	Accept(hdr Header, v Visitor) error

	encode(w *bodyWriter) error
	decode(r *bodyReader) error
}

// Visitor handles each PDU variant.
type Visitor interface {
	VisitBindTransceiver(hdr Header, b *BindTransceiver) error
	VisitBindTransceiverResp(hdr Header, b *BindTransceiverResp) error
	VisitSubmitSm(hdr Header, b *SubmitSm) error
	VisitSubmitSmResp(hdr Header, b *SubmitSmResp) error
	VisitDeliverSm(hdr Header, b *DeliverSm) error
	VisitDeliverSmResp(hdr Header, b *DeliverSmResp) error
	VisitUnbind(hdr Header, b *Unbind) error
	VisitUnbindResp(hdr Header, b *UnbindResp) error
	VisitEnquireLink(hdr Header, b *EnquireLink) error
	VisitEnquireLinkResp(hdr Header, b *EnquireLinkResp) error
	VisitGenericNack(hdr Header, b *GenericNack) error
	VisitOther(hdr Header, b *Other) error
}

// Dispatch calls the Visitor method matching the frame's body.
func Dispatch(f *Frame, v Visitor) error {
	return f.Body.Accept(f.Header, v)
}

// BindTransceiver requests a transceiver bind.
type BindTransceiver struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion byte
	AddrTON          byte
	AddrNPI          byte
	AddressRange     string
}

func (*BindTransceiver) CommandID() CommandID { return BindTransceiverID }

func (b *BindTransceiver) encode(w *bodyWriter) error {
	if err := w.cstring("system_id", b.SystemID, MaxSystemIDLen); err != nil {
		return err
	}
	if err := w.cstring("password", b.Password, MaxPasswordLen); err != nil {
		return err
	}
	if err := w.cstring("system_type", b.SystemType, MaxSystemTypeLen); err != nil {
		return err
	}
	w.u8(b.InterfaceVersion)
	w.u8(b.AddrTON)
	w.u8(b.AddrNPI)

	return w.cstring("address_range", b.AddressRange, MaxAddressRangeLen)
}

func (b *BindTransceiver) decode(r *bodyReader) (err error) {
	if b.SystemID, err = r.cstring("system_id", MaxSystemIDLen); err != nil {
		return err
	}
	if b.Password, err = r.cstring("password", MaxPasswordLen); err != nil {
		return err
	}
	if b.SystemType, err = r.cstring("system_type", MaxSystemTypeLen); err != nil {
		return err
	}
	if b.InterfaceVersion, err = r.u8(); err != nil {
		return err
	}
	if b.AddrTON, err = r.u8(); err != nil {
		return err
	}
	if b.AddrNPI, err = r.u8(); err != nil {
		return err
	}
	b.AddressRange, err = r.cstring("address_range", MaxAddressRangeLen)

	return err
}

// BindTransceiverResp answers a bind. The body may be empty when the bind is rejected.
type BindTransceiverResp struct {
	SystemID string
	TLVs     []TLV
}

func (*BindTransceiverResp) CommandID() CommandID { return BindTransceiverRespID }

func (b *BindTransceiverResp) encode(w *bodyWriter) error {
	if err := w.cstring("system_id", b.SystemID, MaxSystemIDLen); err != nil {
		return err
	}

	return w.tlvs(b.TLVs)
}

func (b *BindTransceiverResp) decode(r *bodyReader) (err error) {
	if r.remaining() == 0 {
		return nil
	}
	if b.SystemID, err = r.cstring("system_id", MaxSystemIDLen); err != nil {
		return err
	}
	b.TLVs, err = r.tlvs()

	return err
}

// MessageFields is the mandatory body shared by submit_sm and deliver_sm.
type MessageFields struct {
	ServiceType          string
	SourceAddrTON        byte
	SourceAddrNPI        byte
	SourceAddr           string
	DestAddrTON          byte
	DestAddrNPI          byte
	DestinationAddr      string
	EsmClass             byte
	ProtocolID           byte
	PriorityFlag         byte
	ScheduleDeliveryTime string
	ValidityPeriod       string
	RegisteredDelivery   byte
	ReplaceIfPresent     byte
	DataCoding           DataCoding
	SmDefaultMsgID       byte
	ShortMessage         []byte
	TLVs                 []TLV
}

// SetPayload stores encoded message content, moving it to the message_payload TLV
// when it does not fit short_message.
func (m *MessageFields) SetPayload(data []byte) {
	if len(data) <= MaxShortMessageLen {
		m.ShortMessage = data
		return
	}
	m.ShortMessage = nil
	m.TLVs = append(m.TLVs, TLV{Tag: TagMessagePayload, Value: data})
}

// Payload returns the encoded content from short_message or, when that is empty,
// from the message_payload TLV.
func (m *MessageFields) Payload() []byte {
	if len(m.ShortMessage) > 0 {
		return m.ShortMessage
	}
	if t, ok := FindTLV(m.TLVs, TagMessagePayload); ok {
		return t.Value
	}

	return nil
}

// Text decodes the payload according to DataCoding.
func (m *MessageFields) Text() (string, error) {
	return DecodeText(m.DataCoding, m.Payload())
}

// IsDeliveryReceipt reports whether esm_class marks an SMSC delivery receipt.
func (m *MessageFields) IsDeliveryReceipt() bool {
	return m.EsmClass&esmMessageTypeMask == EsmClassDeliveryReceipt
}

func (m *MessageFields) encode(w *bodyWriter) error {
	if len(m.ShortMessage) > MaxShortMessageLen {
		return fmt.Errorf("%w: short_message is %d octets, max %d", ErrFieldTooLong, len(m.ShortMessage), MaxShortMessageLen)
	}
	if err := w.cstring("service_type", m.ServiceType, MaxServiceTypeLen); err != nil {
		return err
	}
	w.u8(m.SourceAddrTON)
	w.u8(m.SourceAddrNPI)
	if err := w.cstring("source_addr", m.SourceAddr, MaxAddressLen); err != nil {
		return err
	}
	w.u8(m.DestAddrTON)
	w.u8(m.DestAddrNPI)
	if err := w.cstring("destination_addr", m.DestinationAddr, MaxAddressLen); err != nil {
		return err
	}
	w.u8(m.EsmClass)
	w.u8(m.ProtocolID)
	w.u8(m.PriorityFlag)
	if err := w.cstring("schedule_delivery_time", m.ScheduleDeliveryTime, MaxTimeLen); err != nil {
		return err
	}
	if err := w.cstring("validity_period", m.ValidityPeriod, MaxTimeLen); err != nil {
		return err
	}
	w.u8(m.RegisteredDelivery)
	w.u8(m.ReplaceIfPresent)
	w.u8(byte(m.DataCoding))
	w.u8(m.SmDefaultMsgID)
	w.u8(byte(len(m.ShortMessage)))
	w.octets(m.ShortMessage)

	return w.tlvs(m.TLVs)
}

func (m *MessageFields) decode(r *bodyReader) (err error) {
	if m.ServiceType, err = r.cstring("service_type", MaxServiceTypeLen); err != nil {
		return err
	}
	if m.SourceAddrTON, err = r.u8(); err != nil {
		return err
	}
	if m.SourceAddrNPI, err = r.u8(); err != nil {
		return err
	}
	if m.SourceAddr, err = r.cstring("source_addr", MaxAddressLen); err != nil {
		return err
	}
	if m.DestAddrTON, err = r.u8(); err != nil {
		return err
	}
	if m.DestAddrNPI, err = r.u8(); err != nil {
		return err
	}
	if m.DestinationAddr, err = r.cstring("destination_addr", MaxAddressLen); err != nil {
		return err
	}
	if m.EsmClass, err = r.u8(); err != nil {
		return err
	}
	if m.ProtocolID, err = r.u8(); err != nil {
		return err
	}
	if m.PriorityFlag, err = r.u8(); err != nil {
		return err
	}
	if m.ScheduleDeliveryTime, err = r.cstring("schedule_delivery_time", MaxTimeLen); err != nil {
		return err
	}
	if m.ValidityPeriod, err = r.cstring("validity_period", MaxTimeLen); err != nil {
		return err
	}
	if m.RegisteredDelivery, err = r.u8(); err != nil {
		return err
	}
	if m.ReplaceIfPresent, err = r.u8(); err != nil {
		return err
	}
	coding, err := r.u8()
	if err != nil {
		return err
	}
	m.DataCoding = DataCoding(coding)
	if m.SmDefaultMsgID, err = r.u8(); err != nil {
		return err
	}
	smLen, err := r.u8()
	if err != nil {
		return err
	}
	if smLen > MaxShortMessageLen {
		return fmt.Errorf("%w: sm_length %d", ErrMalformed, smLen)
	}
	if m.ShortMessage, err = r.octets(int(smLen)); err != nil {
		return err
	}
	m.TLVs, err = r.tlvs()

	return err
}

// SubmitSm submits a short message to the SMSC.
type SubmitSm struct {
	MessageFields
}

func (*SubmitSm) CommandID() CommandID { return SubmitSmID }

// SubmitSmResp carries the SMSC message id. The body is empty when the submit is rejected.
type SubmitSmResp struct {
	MessageID string
}

func (*SubmitSmResp) CommandID() CommandID { return SubmitSmRespID }

func (b *SubmitSmResp) encode(w *bodyWriter) error {
	return w.cstring("message_id", b.MessageID, MaxMessageIDLen)
}

func (b *SubmitSmResp) decode(r *bodyReader) (err error) {
	if r.remaining() == 0 {
		return nil
	}
	b.MessageID, err = r.cstring("message_id", MaxMessageIDLen)

	return err
}

// DeliverSm carries a mobile originated message or a delivery receipt.
type DeliverSm struct {
	MessageFields
}

func (*DeliverSm) CommandID() CommandID { return DeliverSmID }

// DeliverSmResp acknowledges a deliver_sm. Its message_id is always empty.
type DeliverSmResp struct{}

func (*DeliverSmResp) CommandID() CommandID { return DeliverSmRespID }

func (*DeliverSmResp) encode(w *bodyWriter) error {
	w.u8(0)
	return nil
}

func (*DeliverSmResp) decode(r *bodyReader) error {
	if r.remaining() == 0 {
		return nil
	}
	_, err := r.cstring("message_id", MaxMessageIDLen)

	return err
}

// emptyBody implements the codec for commands without a body.
type emptyBody struct{}

func (emptyBody) encode(*bodyWriter) error { return nil }

func (emptyBody) decode(*bodyReader) error { return nil }

// Unbind requests session teardown.
type Unbind struct{ emptyBody }

func (*Unbind) CommandID() CommandID { return UnbindID }

// UnbindResp acknowledges an unbind.
type UnbindResp struct{ emptyBody }

func (*UnbindResp) CommandID() CommandID { return UnbindRespID }

// EnquireLink probes the link.
type EnquireLink struct{ emptyBody }

func (*EnquireLink) CommandID() CommandID { return EnquireLinkID }

// EnquireLinkResp answers an enquire_link.
type EnquireLinkResp struct{ emptyBody }

func (*EnquireLinkResp) CommandID() CommandID { return EnquireLinkRespID }

// GenericNack rejects a PDU whose command could not be processed. The reason is in the header status.
type GenericNack struct{ emptyBody }

func (*GenericNack) CommandID() CommandID { return GenericNackID }

// Other preserves a PDU with an unrecognised command id.
type Other struct {
	ID  CommandID
	Raw []byte
}

func (b *Other) CommandID() CommandID { return b.ID }

func (b *Other) encode(w *bodyWriter) error {
	w.octets(b.Raw)
	return nil
}

func (b *Other) decode(r *bodyReader) (err error) {
	b.Raw, err = r.octets(r.remaining())
	return err
}

// newBody allocates the variant for id. Unknown ids map to Other.
func newBody(id CommandID) Body {
	switch id {
	case BindTransceiverID:
		return &BindTransceiver{}
	case BindTransceiverRespID:
		return &BindTransceiverResp{}
	case SubmitSmID:
		return &SubmitSm{}
	case SubmitSmRespID:
		return &SubmitSmResp{}
	case DeliverSmID:
		return &DeliverSm{}
	case DeliverSmRespID:
		return &DeliverSmResp{}
	case UnbindID:
		return &Unbind{}
	case UnbindRespID:
		return &UnbindResp{}
	case EnquireLinkID:
		return &EnquireLink{}
	case EnquireLinkRespID:
		return &EnquireLinkResp{}
	case GenericNackID:
		return &GenericNack{}
	default:
		return &Other{ID: id}
	}
}
