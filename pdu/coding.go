package pdu

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DataCoding is the data_coding field of submit_sm and deliver_sm.
type DataCoding byte

// Data coding schemes.
const (
	CodingDefault DataCoding = 0x00
	CodingIA5     DataCoding = 0x01
	CodingBinary  DataCoding = 0x02
	CodingLatin1  DataCoding = 0x03
	CodingOctet   DataCoding = 0x04
	CodingUCS2    DataCoding = 0x08
)

// String returns the scheme name.
func (dc DataCoding) String() string {
	switch dc {
	case CodingDefault:
		return "default"
	case CodingIA5:
		return "ia5"
	case CodingBinary:
		return "binary"
	case CodingLatin1:
		return "latin1"
	case CodingOctet:
		return "octet"
	case CodingUCS2:
		return "ucs2"
	default:
		return fmt.Sprintf("0x%02X", byte(dc))
	}
}

// ParseDataCoding maps a scheme name to its value.
func ParseDataCoding(name string) (DataCoding, error) {
	switch strings.ToLower(name) {
	case "default", "smsc":
		return CodingDefault, nil
	case "ia5", "ascii":
		return CodingIA5, nil
	case "latin1", "iso-8859-1":
		return CodingLatin1, nil
	case "ucs2", "utf16", "utf-16be":
		return CodingUCS2, nil
	case "binary":
		return CodingBinary, nil
	case "octet":
		return CodingOctet, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCoding, name)
}

func textEncoding(dc DataCoding) encoding.Encoding {
	switch dc {
	case CodingUCS2:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case CodingLatin1:
		return charmap.ISO8859_1
	default:
		return nil
	}
}

// EncodeText converts text into the octets for dc.
//
// Default and IA5 accept 7-bit ASCII only. Binary and octet codings pass the
// UTF-8 bytes through unchanged.
func EncodeText(dc DataCoding, text string) ([]byte, error) {
	switch dc {
	case CodingDefault, CodingIA5:
		if !isASCII(text) {
			return nil, fmt.Errorf("%w: %s cannot carry non-ASCII text", ErrUnsupportedCoding, dc)
		}
		return []byte(text), nil
	case CodingBinary, CodingOctet:
		return []byte(text), nil
	}

	enc := textEncoding(dc)
	if enc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCoding, dc)
	}

	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedCoding, dc, err)
	}

	return out, nil
}

// DecodeText converts octets in dc into UTF-8 text.
func DecodeText(dc DataCoding, data []byte) (string, error) {
	switch dc {
	case CodingDefault, CodingIA5, CodingBinary, CodingOctet:
		return string(data), nil
	}

	enc := textEncoding(dc)
	if enc == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCoding, dc)
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnsupportedCoding, dc, err)
	}

	return string(out), nil
}

// ChooseCoding picks IA5 for ASCII text and UCS-2 for everything else.
func ChooseCoding(text string) DataCoding {
	if isASCII(text) {
		return CodingIA5
	}

	return CodingUCS2
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}

	return true
}
