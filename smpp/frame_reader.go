package smpp

import (
	"bufio"
	"fmt"
	"io"

	"github.com/arloliu/go-smpp/pdu"
)

// frameReader reads whole PDUs from the session transport.
//
// It follows the SMPP framing rules:
//  1. Read the 16-octet header.
//  2. Validate command_length against the header size and the frame limit. A failure
//     here is a desync: the next frame boundary is unknown.
//  3. Read the body and decode it with pdu.Codec.DecodeFrame.
//
// frameReader is NOT goroutine-safe. The bind handshake uses it first, then the dispatcher
// takes it over, so buffered bytes are never lost between the two.
type frameReader struct {
	r     *bufio.Reader
	codec pdu.Codec
	hdr   [pdu.HeaderLen]byte
}

func newFrameReader(r io.Reader, codec pdu.Codec) *frameReader {
	return &frameReader{
		r:     bufio.NewReaderSize(r, 4096),
		codec: codec,
	}
}

// ReadFrame returns the next frame.
//
// Transport failures are returned unwrapped from the underlying reader (io.EOF on a clean close).
// Framing failures are *pdu.DecodeError; when Desync reports false the frame has been
// consumed and reading may continue.
func (fr *frameReader) ReadFrame() (*pdu.Frame, error) {
	if _, err := io.ReadFull(fr.r, fr.hdr[:]); err != nil {
		return nil, err
	}

	hdr, err := fr.codec.DecodeHeader(fr.hdr[:])
	if err != nil {
		return nil, err
	}

	body := make([]byte, hdr.Length-pdu.HeaderLen)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read %s body: %w", hdr.CommandID, err)
	}

	return fr.codec.DecodeFrame(hdr, body)
}
