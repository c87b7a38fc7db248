package pdu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the size of the fixed PDU header.
const HeaderLen = 16

// DefaultMaxFrameSize bounds command_length when Codec.MaxFrameSize is zero.
const DefaultMaxFrameSize uint32 = 64 * 1024

// Header is the fixed 16-octet PDU header.
type Header struct {
	Length    uint32
	CommandID CommandID
	Status    CommandStatus
	Sequence  uint32
}

// Frame is one decoded PDU.
type Frame struct {
	Header Header
	Body   Body
}

// NewFrame builds a frame for body. Length is filled in by Encode.
func NewFrame(status CommandStatus, seq uint32, body Body) *Frame {
	return &Frame{
		Header: Header{
			CommandID: body.CommandID(),
			Status:    status,
			Sequence:  seq,
		},
		Body: body,
	}
}

// IsResponse reports whether the frame is a response.
func (f *Frame) IsResponse() bool { return f.Header.CommandID.IsResponse() }

// String implements fmt.Stringer for log output.
func (f *Frame) String() string {
	return fmt.Sprintf("%s seq=%d status=%s len=%d",
		f.Header.CommandID, f.Header.Sequence, f.Header.Status.String(), f.Header.Length)
}

// Codec converts between frames and their wire representation. It holds no state
// besides its limits and is safe for concurrent use.
type Codec struct {
	// MaxFrameSize is the largest accepted command_length. Zero means DefaultMaxFrameSize.
	MaxFrameSize uint32
}

func (c Codec) maxFrameSize() uint32 {
	if c.MaxFrameSize == 0 {
		return DefaultMaxFrameSize
	}

	return c.MaxFrameSize
}

// Encode serializes f. The header length is computed from the encoded body and
// written back to f.Header.Length.
func (c Codec) Encode(f *Frame) ([]byte, error) {
	if f == nil || f.Body == nil {
		return nil, fmt.Errorf("%w: nil frame body", ErrInvalidField)
	}

	w := &bodyWriter{buf: make([]byte, HeaderLen, HeaderLen+64)}
	if err := f.Body.encode(w); err != nil {
		return nil, fmt.Errorf("encode %s: %w", f.Body.CommandID(), err)
	}

	length := uint32(len(w.buf))
	if length > c.maxFrameSize() {
		return nil, fmt.Errorf("encode %s: %w: %d octets", f.Body.CommandID(), ErrTooLarge, length)
	}

	f.Header.Length = length
	f.Header.CommandID = f.Body.CommandID()
	binary.BigEndian.PutUint32(w.buf[0:], length)
	binary.BigEndian.PutUint32(w.buf[4:], uint32(f.Header.CommandID))
	binary.BigEndian.PutUint32(w.buf[8:], uint32(f.Header.Status))
	binary.BigEndian.PutUint32(w.buf[12:], f.Header.Sequence)

	return w.buf, nil
}

// DecodeHeader parses the 16 header octets at the start of buf. It performs the
// command_length checks that decide whether the stream is still framed.
func (c Codec) DecodeHeader(buf []byte) (Header, error) {
	var hdr Header
	if len(buf) < HeaderLen {
		return hdr, fmt.Errorf("%w: %d header octets", ErrTruncated, len(buf))
	}

	hdr.Length = binary.BigEndian.Uint32(buf[0:])
	hdr.CommandID = CommandID(binary.BigEndian.Uint32(buf[4:]))
	hdr.Status = CommandStatus(binary.BigEndian.Uint32(buf[8:]))
	hdr.Sequence = binary.BigEndian.Uint32(buf[12:])

	if hdr.Length < HeaderLen {
		return hdr, newDecodeError(ErrMalformed, hdr, 0, "command_length %d below header size", hdr.Length)
	}
	if hdr.Length > c.maxFrameSize() {
		return hdr, newDecodeError(ErrTooLarge, hdr, 0, "command_length %d above %d", hdr.Length, c.maxFrameSize())
	}

	return hdr, nil
}

// Decode parses one frame from the start of buf.
//
// It returns (nil, 0, nil) when buf does not yet hold a complete frame. On success it
// returns the frame and the number of octets consumed. Errors are *DecodeError values;
// when the error is not a desync, Consumed tells the caller how far to skip.
// Unknown command ids decode to *Other.
func (c Codec) Decode(buf []byte) (*Frame, int, error) {
	if len(buf) < 4 {
		return nil, 0, nil
	}

	// validate the length prefix before waiting for the rest of the header
	length := binary.BigEndian.Uint32(buf)
	if length < HeaderLen || length > c.maxFrameSize() {
		if len(buf) < HeaderLen {
			padded := make([]byte, HeaderLen)
			copy(padded, buf)
			buf = padded
		}
		_, err := c.DecodeHeader(buf)
		return nil, 0, err
	}

	if len(buf) < HeaderLen || uint32(len(buf)) < length {
		return nil, 0, nil
	}

	hdr, err := c.DecodeHeader(buf)
	if err != nil {
		return nil, 0, err
	}

	frame, err := c.decodeBody(hdr, buf[HeaderLen:hdr.Length])
	if err != nil {
		return nil, int(hdr.Length), err
	}

	return frame, int(hdr.Length), nil
}

// DecodeFrame decodes a body whose header was already read with DecodeHeader.
// len(body) must equal hdr.Length-HeaderLen.
func (c Codec) DecodeFrame(hdr Header, body []byte) (*Frame, error) {
	if uint32(len(body))+HeaderLen != hdr.Length {
		return nil, newDecodeError(ErrMalformed, hdr, 0,
			"body is %d octets, header declares %d", len(body), hdr.Length-HeaderLen)
	}

	return c.decodeBody(hdr, body)
}

func (c Codec) decodeBody(hdr Header, body []byte) (*Frame, error) {
	b := newBody(hdr.CommandID)
	r := &bodyReader{input: body}

	consumed := int(hdr.Length)
	if err := b.decode(r); err != nil {
		kind := ErrTruncated
		if errors.Is(err, ErrMalformed) {
			kind = ErrMalformed
		}
		return nil, &DecodeError{Kind: kind, Header: hdr, Consumed: consumed, Detail: err.Error()}
	}
	if r.remaining() != 0 {
		return nil, newDecodeError(ErrMalformed, hdr, consumed, "%d unconsumed body octets", r.remaining())
	}

	return &Frame{Header: hdr, Body: b}, nil
}
