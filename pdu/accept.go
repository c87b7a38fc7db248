package pdu

func (b *BindTransceiver) Accept(hdr Header, v Visitor) error {
	return v.VisitBindTransceiver(hdr, b)
}

func (b *BindTransceiverResp) Accept(hdr Header, v Visitor) error {
	return v.VisitBindTransceiverResp(hdr, b)
}

func (b *SubmitSm) Accept(hdr Header, v Visitor) error { return v.VisitSubmitSm(hdr, b) }

func (b *SubmitSmResp) Accept(hdr Header, v Visitor) error { return v.VisitSubmitSmResp(hdr, b) }

func (b *DeliverSm) Accept(hdr Header, v Visitor) error { return v.VisitDeliverSm(hdr, b) }

func (b *DeliverSmResp) Accept(hdr Header, v Visitor) error { return v.VisitDeliverSmResp(hdr, b) }

func (b *Unbind) Accept(hdr Header, v Visitor) error { return v.VisitUnbind(hdr, b) }

func (b *UnbindResp) Accept(hdr Header, v Visitor) error { return v.VisitUnbindResp(hdr, b) }

func (b *EnquireLink) Accept(hdr Header, v Visitor) error { return v.VisitEnquireLink(hdr, b) }

func (b *EnquireLinkResp) Accept(hdr Header, v Visitor) error {
	return v.VisitEnquireLinkResp(hdr, b)
}

func (b *GenericNack) Accept(hdr Header, v Visitor) error { return v.VisitGenericNack(hdr, b) }

func (b *Other) Accept(hdr Header, v Visitor) error { return v.VisitOther(hdr, b) }

var (
	_ Body = (*BindTransceiver)(nil)
	_ Body = (*BindTransceiverResp)(nil)
	_ Body = (*SubmitSm)(nil)
	_ Body = (*SubmitSmResp)(nil)
	_ Body = (*DeliverSm)(nil)
	_ Body = (*DeliverSmResp)(nil)
	_ Body = (*Unbind)(nil)
	_ Body = (*UnbindResp)(nil)
	_ Body = (*EnquireLink)(nil)
	_ Body = (*EnquireLinkResp)(nil)
	_ Body = (*GenericNack)(nil)
	_ Body = (*Other)(nil)
)
