package pdu

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeOrFail(t *testing.T, f *Frame) []byte {
	t.Helper()
	buf, err := Codec{}.Encode(f)
	require.NoError(t, err)

	return buf
}

func TestCodec_RoundTrip(t *testing.T) {
	submit := &SubmitSm{MessageFields{
		SourceAddr:         "12345",
		DestinationAddr:    "67890",
		RegisteredDelivery: RegisteredDeliveryAll,
		DataCoding:         CodingUCS2,
		ShortMessage:       []byte{0x00, 'h', 0x00, 'i'},
	}}
	deliver := &DeliverSm{MessageFields{
		SourceAddr:      "67890",
		DestinationAddr: "12345",
		EsmClass:        EsmClassDeliveryReceipt,
		ShortMessage:    []byte("id:abc123 stat:DELIVRD"),
		TLVs:            []TLV{CStringTLV(TagReceiptedMessageID, "abc123"), Uint8TLV(TagMessageState, 2)},
	}}

	tests := []struct {
		name   string
		status CommandStatus
		body   Body
	}{
		{"bind_transceiver", StatusOK, &BindTransceiver{SystemID: "sys", Password: "pw", SystemType: "VMA", InterfaceVersion: InterfaceVersion}},
		{"bind_transceiver_resp", StatusOK, &BindTransceiverResp{SystemID: "smsc", TLVs: []TLV{Uint8TLV(TagScInterfaceVersion, 0x34)}}},
		{"submit_sm", StatusOK, submit},
		{"submit_sm_resp", StatusOK, &SubmitSmResp{MessageID: "abc123"}},
		{"deliver_sm", StatusOK, deliver},
		{"deliver_sm_resp", StatusOK, &DeliverSmResp{}},
		{"unbind", StatusOK, &Unbind{}},
		{"unbind_resp", StatusOK, &UnbindResp{}},
		{"enquire_link", StatusOK, &EnquireLink{}},
		{"enquire_link_resp", StatusOK, &EnquireLinkResp{}},
		{"generic_nack", StatusInvCmdID, &GenericNack{}},
		{"other", StatusOK, &Other{ID: 0x00000103, Raw: []byte{1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			f := NewFrame(tt.status, 42, tt.body)
			buf := encodeOrFail(t, f)
			require.Equal(uint32(len(buf)), f.Header.Length)
			require.Equal(uint32(len(buf)), binary.BigEndian.Uint32(buf))

			got, n, err := Codec{}.Decode(buf)
			require.NoError(err)
			require.Equal(len(buf), n)
			require.Equal(f.Header, got.Header)
			require.Equal(tt.body, got.Body)
		})
	}
}

func TestCodec_BindTransceiverLayout(t *testing.T) {
	require := require.New(t)

	f := NewFrame(StatusOK, 1, &BindTransceiver{
		SystemID:         "user",
		Password:         "pass",
		InterfaceVersion: InterfaceVersion,
	})
	buf := encodeOrFail(t, f)

	expected := []byte{
		0x00, 0x00, 0x00, 0x1F, // length 31
		0x00, 0x00, 0x00, 0x09, // bind_transceiver
		0x00, 0x00, 0x00, 0x00, // status
		0x00, 0x00, 0x00, 0x01, // sequence
		'u', 's', 'e', 'r', 0x00,
		'p', 'a', 's', 's', 0x00,
		0x00,       // system_type
		0x34,       // interface_version
		0x00, 0x00, // ton, npi
		0x00, // address_range
	}
	require.Equal(expected, buf)
}

func TestCodec_DecodeIncomplete(t *testing.T) {
	require := require.New(t)

	buf := encodeOrFail(t, NewFrame(StatusOK, 7, &SubmitSmResp{MessageID: "m1"}))
	for i := 0; i < len(buf); i++ {
		f, n, err := Codec{}.Decode(buf[:i])
		require.NoError(err, "prefix %d", i)
		require.Nil(f)
		require.Zero(n)
	}

	// a trailing partial frame is left untouched
	stream := append(append([]byte{}, buf...), buf[:5]...)
	f, n, err := Codec{}.Decode(stream)
	require.NoError(err)
	require.NotNil(f)
	require.Equal(len(buf), n)
	f, n, err = Codec{}.Decode(stream[n:])
	require.NoError(err)
	require.Nil(f)
	require.Zero(n)
}

func TestCodec_DecodeLengthBelowHeader(t *testing.T) {
	require := require.New(t)

	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf, 8)
	binary.BigEndian.PutUint32(buf[4:], uint32(EnquireLinkID))

	f, n, err := Codec{}.Decode(buf)
	require.Nil(f)
	require.Zero(n)
	require.ErrorIs(err, ErrMalformed)

	var decErr *DecodeError
	require.True(errors.As(err, &decErr))
	require.True(decErr.Desync())
}

func TestCodec_DecodeTooLarge(t *testing.T) {
	require := require.New(t)

	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf, 4096)
	binary.BigEndian.PutUint32(buf[4:], uint32(DeliverSmID))

	_, _, err := Codec{MaxFrameSize: 1024}.Decode(buf)
	require.ErrorIs(err, ErrTooLarge)

	var decErr *DecodeError
	require.ErrorAs(err, &decErr)
	require.True(decErr.Desync())
}

func TestCodec_DecodeTruncatedBody(t *testing.T) {
	require := require.New(t)

	// submit_sm_resp whose message_id is missing its NUL terminator
	buf := []byte{
		0x00, 0x00, 0x00, 0x13,
		0x80, 0x00, 0x00, 0x04,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x05,
		'a', 'b', 'c',
	}

	f, n, err := Codec{}.Decode(buf)
	require.Nil(f)
	require.Equal(len(buf), n)
	require.ErrorIs(err, ErrTruncated)

	var decErr *DecodeError
	require.ErrorAs(err, &decErr)
	require.False(decErr.Desync())
	require.Equal(uint32(5), decErr.Header.Sequence)
	require.Equal(SubmitSmRespID, decErr.Header.CommandID)
}

func TestCodec_DecodeTrailingBytes(t *testing.T) {
	require := require.New(t)

	buf := []byte{
		0x00, 0x00, 0x00, 0x12,
		0x00, 0x00, 0x00, 0x06, // unbind carries no body
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x03,
		0xAA, 0xBB,
	}

	_, n, err := Codec{}.Decode(buf)
	require.ErrorIs(err, ErrMalformed)
	require.Equal(len(buf), n)
}

func TestCodec_DecodeUnknownCommand(t *testing.T) {
	require := require.New(t)

	buf := []byte{
		0x00, 0x00, 0x00, 0x13,
		0x00, 0x00, 0x01, 0x11,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x09,
		0x01, 0x02, 0x03,
	}

	f, n, err := Codec{}.Decode(buf)
	require.NoError(err)
	require.Equal(len(buf), n)

	other, ok := f.Body.(*Other)
	require.True(ok)
	require.Equal(CommandID(0x111), other.ID)
	require.Equal([]byte{1, 2, 3}, other.Raw)
	require.False(f.IsResponse())
}

func TestCodec_EncodeFieldOverflow(t *testing.T) {
	require := require.New(t)

	_, err := Codec{}.Encode(NewFrame(StatusOK, 1, &BindTransceiver{SystemID: "0123456789abcdef"}))
	require.ErrorIs(err, ErrFieldTooLong)

	_, err = Codec{}.Encode(NewFrame(StatusOK, 1, &BindTransceiver{SystemID: "a\x00b"}))
	require.ErrorIs(err, ErrInvalidField)

	sm := &SubmitSm{}
	sm.ShortMessage = make([]byte, MaxShortMessageLen+1)
	_, err = Codec{}.Encode(NewFrame(StatusOK, 1, sm))
	require.ErrorIs(err, ErrFieldTooLong)

	_, err = Codec{MaxFrameSize: 32}.Encode(NewFrame(StatusOK, 1, &Other{ID: 0x200, Raw: make([]byte, 32)}))
	require.ErrorIs(err, ErrTooLarge)
}

func TestCodec_EmptyResponseBodies(t *testing.T) {
	require := require.New(t)

	for _, id := range []CommandID{SubmitSmRespID, BindTransceiverRespID, DeliverSmRespID} {
		buf := make([]byte, 16)
		binary.BigEndian.PutUint32(buf, 16)
		binary.BigEndian.PutUint32(buf[4:], uint32(id))
		binary.BigEndian.PutUint32(buf[8:], uint32(StatusSysErr))

		f, _, err := Codec{}.Decode(buf)
		require.NoError(err, id.String())
		require.Equal(StatusSysErr, f.Header.Status)
	}
}

func TestMessageFields_LongPayload(t *testing.T) {
	require := require.New(t)

	text := make([]byte, 300)
	for i := range text {
		text[i] = 'a' + byte(i%26)
	}

	sm := &SubmitSm{}
	sm.DataCoding = CodingIA5
	sm.SetPayload(text)
	require.Empty(sm.ShortMessage)

	buf := encodeOrFail(t, NewFrame(StatusOK, 3, sm))
	f, _, err := Codec{}.Decode(buf)
	require.NoError(err)

	got, ok := f.Body.(*SubmitSm)
	require.True(ok)
	require.Equal(text, got.Payload())
	s, err := got.Text()
	require.NoError(err)
	require.Equal(string(text), s)
}

type countingVisitor struct {
	calls map[string]int
}

func (v *countingVisitor) hit(name string) error { v.calls[name]++; return nil }

func (v *countingVisitor) VisitBindTransceiver(Header, *BindTransceiver) error {
	return v.hit("bind")
}

func (v *countingVisitor) VisitBindTransceiverResp(Header, *BindTransceiverResp) error {
	return v.hit("bind_resp")
}
func (v *countingVisitor) VisitSubmitSm(Header, *SubmitSm) error         { return v.hit("submit") }
func (v *countingVisitor) VisitSubmitSmResp(Header, *SubmitSmResp) error { return v.hit("submit_resp") }
func (v *countingVisitor) VisitDeliverSm(Header, *DeliverSm) error       { return v.hit("deliver") }
func (v *countingVisitor) VisitDeliverSmResp(Header, *DeliverSmResp) error {
	return v.hit("deliver_resp")
}
func (v *countingVisitor) VisitUnbind(Header, *Unbind) error           { return v.hit("unbind") }
func (v *countingVisitor) VisitUnbindResp(Header, *UnbindResp) error   { return v.hit("unbind_resp") }
func (v *countingVisitor) VisitEnquireLink(Header, *EnquireLink) error { return v.hit("enquire") }
func (v *countingVisitor) VisitEnquireLinkResp(Header, *EnquireLinkResp) error {
	return v.hit("enquire_resp")
}
func (v *countingVisitor) VisitGenericNack(Header, *GenericNack) error { return v.hit("nack") }
func (v *countingVisitor) VisitOther(Header, *Other) error             { return v.hit("other") }

func TestDispatch(t *testing.T) {
	require := require.New(t)

	v := &countingVisitor{calls: map[string]int{}}
	bodies := []Body{
		&BindTransceiver{}, &BindTransceiverResp{}, &SubmitSm{}, &SubmitSmResp{},
		&DeliverSm{}, &DeliverSmResp{}, &Unbind{}, &UnbindResp{},
		&EnquireLink{}, &EnquireLinkResp{}, &GenericNack{}, &Other{ID: 0x300},
	}
	for _, b := range bodies {
		require.NoError(Dispatch(NewFrame(StatusOK, 1, b), v))
	}

	require.Len(v.calls, len(bodies))
	for name, n := range v.calls {
		require.Equal(1, n, name)
	}
}

func TestCodec_DecodeFrame(t *testing.T) {
	require := require.New(t)

	buf := encodeOrFail(t, NewFrame(StatusOK, 9, &SubmitSmResp{MessageID: "m-9"}))
	hdr, err := Codec{}.DecodeHeader(buf)
	require.NoError(err)

	f, err := Codec{}.DecodeFrame(hdr, buf[HeaderLen:])
	require.NoError(err)
	require.Equal(hdr, f.Header)
	require.Equal(&SubmitSmResp{MessageID: "m-9"}, f.Body)

	// a body shorter than the header declares loses the frame boundary
	_, err = Codec{}.DecodeFrame(hdr, buf[HeaderLen:len(buf)-1])
	var decErr *DecodeError
	require.ErrorAs(err, &decErr)
	require.ErrorIs(err, ErrMalformed)
	require.True(decErr.Desync())
}

func TestFrame_String(t *testing.T) {
	f := NewFrame(StatusThrottled, 42, &SubmitSmResp{})
	f.Header.Length = 17

	require.Equal(t, "submit_sm_resp seq=42 status=ESME_RTHROTTLED len=17", f.String())
}
