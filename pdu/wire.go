package pdu

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Maximum C-octet string sizes, including the terminating NUL.
const (
	MaxSystemIDLen     = 16
	MaxPasswordLen     = 9
	MaxSystemTypeLen   = 13
	MaxAddressRangeLen = 41
	MaxServiceTypeLen  = 6
	MaxAddressLen      = 21
	MaxTimeLen         = 17
	MaxMessageIDLen    = 65

	// MaxShortMessageLen is the largest short_message that fits the one-octet sm_length.
	MaxShortMessageLen = 254
)

// bodyReader walks a PDU body. Every failure is reported as a *DecodeError kind
// so the codec can attach the header and frame length.
type bodyReader struct {
	input []byte
	pos   int
}

func (r *bodyReader) remaining() int { return len(r.input) - r.pos }

func (r *bodyReader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("%w: need 1 octet at offset %d", ErrTruncated, r.pos)
	}
	v := r.input[r.pos]
	r.pos++

	return v, nil
}

func (r *bodyReader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, fmt.Errorf("%w: need 2 octets at offset %d", ErrTruncated, r.pos)
	}
	v := binary.BigEndian.Uint16(r.input[r.pos:])
	r.pos += 2

	return v, nil
}

func (r *bodyReader) octets(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("%w: need %d octets at offset %d", ErrTruncated, n, r.pos)
	}
	v := make([]byte, n)
	copy(v, r.input[r.pos:r.pos+n])
	r.pos += n

	return v, nil
}

// cstring reads a NUL terminated string whose encoded size, NUL included, is at most maxLen.
func (r *bodyReader) cstring(name string, maxLen int) (string, error) {
	idx := bytes.IndexByte(r.input[r.pos:], 0)
	if idx < 0 {
		return "", fmt.Errorf("%w: %s not terminated", ErrTruncated, name)
	}
	if idx+1 > maxLen {
		return "", fmt.Errorf("%w: %s is %d octets, max %d", ErrMalformed, name, idx+1, maxLen)
	}
	v := string(r.input[r.pos : r.pos+idx])
	r.pos += idx + 1

	return v, nil
}

// tlvs reads optional parameters until the end of the body.
func (r *bodyReader) tlvs() ([]TLV, error) {
	var out []TLV
	for r.remaining() > 0 {
		tag, err := r.u16()
		if err != nil {
			return nil, err
		}
		n, err := r.u16()
		if err != nil {
			return nil, err
		}
		val, err := r.octets(int(n))
		if err != nil {
			return nil, err
		}
		out = append(out, TLV{Tag: Tag(tag), Value: val})
	}

	return out, nil
}

// bodyWriter accumulates an encoded PDU body.
type bodyWriter struct {
	buf []byte
}

func (w *bodyWriter) u8(v byte) { w.buf = append(w.buf, v) }

func (w *bodyWriter) u16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

func (w *bodyWriter) octets(v []byte) { w.buf = append(w.buf, v...) }

func (w *bodyWriter) cstring(name string, v string, maxLen int) error {
	if len(v)+1 > maxLen {
		return fmt.Errorf("%w: %s is %d octets, max %d", ErrFieldTooLong, name, len(v)+1, maxLen)
	}
	if bytes.IndexByte([]byte(v), 0) >= 0 {
		return fmt.Errorf("%w: %s contains NUL", ErrInvalidField, name)
	}
	w.buf = append(w.buf, v...)
	w.buf = append(w.buf, 0)

	return nil
}

func (w *bodyWriter) tlvs(list []TLV) error {
	for _, t := range list {
		if len(t.Value) > 0xFFFF {
			return fmt.Errorf("%w: tlv 0x%04X value is %d octets", ErrFieldTooLong, uint16(t.Tag), len(t.Value))
		}
		w.u16(uint16(t.Tag))
		w.u16(uint16(len(t.Value)))
		w.octets(t.Value)
	}

	return nil
}
