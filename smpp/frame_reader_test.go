package smpp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-smpp/pdu"
)

func encodeFrames(t *testing.T, frames ...*pdu.Frame) []byte {
	t.Helper()

	var buf bytes.Buffer
	for _, f := range frames {
		data, err := pdu.Codec{}.Encode(f)
		require.NoError(t, err)
		buf.Write(data)
	}

	return buf.Bytes()
}

func TestFrameReader_ReadFrames(t *testing.T) {
	require := require.New(t)

	data := encodeFrames(t,
		pdu.NewFrame(pdu.StatusOK, 1, &pdu.BindTransceiverResp{SystemID: "SMSC"}),
		pdu.NewFrame(pdu.StatusOK, 2, &pdu.SubmitSmResp{MessageID: "abc123"}),
		pdu.NewFrame(pdu.StatusOK, 3, &pdu.EnquireLink{}),
	)

	fr := newFrameReader(bytes.NewReader(data), pdu.Codec{})

	f, err := fr.ReadFrame()
	require.NoError(err)
	require.Equal(pdu.BindTransceiverRespID, f.Header.CommandID)
	require.Equal("SMSC", f.Body.(*pdu.BindTransceiverResp).SystemID)

	f, err = fr.ReadFrame()
	require.NoError(err)
	require.Equal(uint32(2), f.Header.Sequence)
	require.Equal("abc123", f.Body.(*pdu.SubmitSmResp).MessageID)

	f, err = fr.ReadFrame()
	require.NoError(err)
	require.Equal(pdu.EnquireLinkID, f.Header.CommandID)

	_, err = fr.ReadFrame()
	require.ErrorIs(err, io.EOF)
}

func TestFrameReader_TruncatedBody(t *testing.T) {
	require := require.New(t)

	data := encodeFrames(t, pdu.NewFrame(pdu.StatusOK, 2, &pdu.SubmitSmResp{MessageID: "abc123"}))

	fr := newFrameReader(bytes.NewReader(data[:len(data)-3]), pdu.Codec{})
	_, err := fr.ReadFrame()
	require.ErrorIs(err, io.ErrUnexpectedEOF)
}

func TestFrameReader_BadLength(t *testing.T) {
	require := require.New(t)

	hdr := make([]byte, pdu.HeaderLen)
	binary.BigEndian.PutUint32(hdr[0:], 8)
	binary.BigEndian.PutUint32(hdr[4:], uint32(pdu.DeliverSmID))
	binary.BigEndian.PutUint32(hdr[12:], 1)

	fr := newFrameReader(bytes.NewReader(hdr), pdu.Codec{})
	_, err := fr.ReadFrame()

	var decErr *pdu.DecodeError
	require.True(errors.As(err, &decErr))
	require.True(decErr.Desync())
	require.ErrorIs(err, pdu.ErrMalformed)
}

func TestFrameReader_TooLarge(t *testing.T) {
	require := require.New(t)

	data := encodeFrames(t, pdu.NewFrame(pdu.StatusOK, 2, &pdu.SubmitSmResp{MessageID: "abc123"}))

	fr := newFrameReader(bytes.NewReader(data), pdu.Codec{MaxFrameSize: 20})
	_, err := fr.ReadFrame()

	var decErr *pdu.DecodeError
	require.True(errors.As(err, &decErr))
	require.True(decErr.Desync())
	require.ErrorIs(err, pdu.ErrTooLarge)
}

func TestFrameReader_MalformedBodyKeepsSync(t *testing.T) {
	require := require.New(t)

	// submit_sm_resp whose message_id lacks its NUL, followed by a valid frame
	bad := make([]byte, pdu.HeaderLen+3)
	binary.BigEndian.PutUint32(bad[0:], uint32(len(bad)))
	binary.BigEndian.PutUint32(bad[4:], uint32(pdu.SubmitSmRespID))
	binary.BigEndian.PutUint32(bad[12:], 9)
	copy(bad[pdu.HeaderLen:], "abc")

	data := append(bad, encodeFrames(t, pdu.NewFrame(pdu.StatusOK, 10, &pdu.EnquireLink{}))...)
	fr := newFrameReader(bytes.NewReader(data), pdu.Codec{})

	_, err := fr.ReadFrame()
	var decErr *pdu.DecodeError
	require.True(errors.As(err, &decErr))
	require.False(decErr.Desync())
	require.Equal(uint32(9), decErr.Header.Sequence)

	f, err := fr.ReadFrame()
	require.NoError(err)
	require.Equal(uint32(10), f.Header.Sequence)
}
