package pdu

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed indicates a frame whose header or body violates SMPP framing rules,
	// e.g. a command_length below the header size or bytes left over after the body.
	ErrMalformed = errors.New("malformed pdu")

	// ErrTooLarge indicates a command_length above the configured maximum frame size.
	ErrTooLarge = errors.New("pdu exceeds maximum frame size")

	// ErrTruncated indicates a body field that runs past the end of the declared frame.
	ErrTruncated = errors.New("pdu body truncated")
)

var (
	// ErrFieldTooLong is returned by Encode when a field exceeds its SMPP maximum length.
	ErrFieldTooLong = errors.New("field exceeds maximum length")

	// ErrInvalidField is returned by Encode when a field holds a value that cannot be encoded,
	// such as a C-octet string with an embedded NUL.
	ErrInvalidField = errors.New("invalid field value")

	// ErrUnsupportedCoding is returned when text cannot be represented in the requested data coding.
	ErrUnsupportedCoding = errors.New("unsupported data coding")
)

// DecodeError describes a frame that could not be decoded.
//
// Kind is one of ErrMalformed, ErrTooLarge or ErrTruncated and can be matched with errors.Is.
// Header is populated whenever the 16 header octets were readable. Consumed is the number of
// octets the caller may discard to move past the bad frame; it is zero when the stream
// can no longer be trusted (see Desync).
type DecodeError struct {
	Kind     error
	Header   Header
	Consumed int
	Detail   string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("decode %s: %v", e.Header.CommandID, e.Kind)
	}

	return fmt.Sprintf("decode %s: %s", e.Header.CommandID, e.Detail)
}

func (e *DecodeError) Unwrap() error { return e.Kind }

// Desync reports whether the frame boundary is lost, meaning no further frames
// can be read from the same stream.
func (e *DecodeError) Desync() bool { return e.Consumed == 0 }

func newDecodeError(kind error, hdr Header, consumed int, format string, args ...any) *DecodeError {
	return &DecodeError{
		Kind:     kind,
		Header:   hdr,
		Consumed: consumed,
		Detail:   kind.Error() + ": " + fmt.Sprintf(format, args...),
	}
}
