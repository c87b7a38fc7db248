package pdu

import (
	"bytes"
	"testing"

	gopdu "github.com/linxGnu/gosmpp/pdu"
	"github.com/stretchr/testify/require"
)

// The frames below are parsed with an independent SMPP implementation to make
// sure the wire layout matches what third-party stacks expect.

func TestConformance_BindTransceiver(t *testing.T) {
	require := require.New(t)

	buf := encodeOrFail(t, NewFrame(StatusOK, 1, &BindTransceiver{
		SystemID:         "client01",
		Password:         "secret",
		SystemType:       "VMA",
		InterfaceVersion: InterfaceVersion,
	}))

	p, err := gopdu.Parse(bytes.NewReader(buf))
	require.NoError(err)

	bind, ok := p.(*gopdu.BindRequest)
	require.True(ok, "got %T", p)
	require.Equal("client01", bind.SystemID)
	require.Equal("secret", bind.Password)
	require.Equal("VMA", bind.SystemType)
	require.Equal(int32(1), bind.GetSequenceNumber())
}

func TestConformance_SubmitSm(t *testing.T) {
	require := require.New(t)

	payload, err := EncodeText(CodingUCS2, "héllo")
	require.NoError(err)

	sm := &SubmitSm{}
	sm.SourceAddr = "10086"
	sm.DestinationAddr = "8613800000000"
	sm.RegisteredDelivery = RegisteredDeliveryAll
	sm.DataCoding = CodingUCS2
	sm.SetPayload(payload)

	buf := encodeOrFail(t, NewFrame(StatusOK, 2, sm))

	p, err := gopdu.Parse(bytes.NewReader(buf))
	require.NoError(err)

	submit, ok := p.(*gopdu.SubmitSM)
	require.True(ok, "got %T", p)
	require.Equal("10086", submit.SourceAddr.Address())
	require.Equal("8613800000000", submit.DestAddr.Address())
	require.Equal(RegisteredDeliveryAll, submit.RegisteredDelivery)
	require.Equal(int32(2), submit.GetSequenceNumber())

	text, err := submit.Message.GetMessage()
	require.NoError(err)
	require.Equal("héllo", text)
}

func TestConformance_ParseForeignSubmitSmResp(t *testing.T) {
	require := require.New(t)

	resp := gopdu.NewSubmitSMResp().(*gopdu.SubmitSMResp)
	resp.MessageID = "abc123"
	resp.SequenceNumber = 5

	w := gopdu.NewBuffer(nil)
	resp.Marshal(w)

	f, n, err := Codec{}.Decode(w.Bytes())
	require.NoError(err)
	require.Equal(w.Len(), n)

	body, ok := f.Body.(*SubmitSmResp)
	require.True(ok)
	require.Equal("abc123", body.MessageID)
	require.Equal(uint32(5), f.Header.Sequence)
}
