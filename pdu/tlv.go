package pdu

import "encoding/binary"

// Tag identifies an optional parameter.
type Tag uint16

// Optional parameter tags used by this package.
const (
	TagReceiptedMessageID Tag = 0x001E
	TagSarMsgRefNum       Tag = 0x020C
	TagSarTotalSegments   Tag = 0x020E
	TagSarSegmentSeqnum   Tag = 0x020F
	TagScInterfaceVersion Tag = 0x0210
	TagMessagePayload     Tag = 0x0424
	TagMessageState       Tag = 0x0427
	TagNetworkErrorCode   Tag = 0x0423
)

// TLV is an optional parameter trailing the mandatory body fields.
type TLV struct {
	Tag   Tag
	Value []byte
}

// FindTLV returns the first TLV with the given tag.
func FindTLV(list []TLV, tag Tag) (TLV, bool) {
	for _, t := range list {
		if t.Tag == tag {
			return t, true
		}
	}

	return TLV{}, false
}

// CStringTLV builds a TLV whose value is a NUL terminated string.
func CStringTLV(tag Tag, v string) TLV {
	val := make([]byte, 0, len(v)+1)
	val = append(val, v...)
	val = append(val, 0)

	return TLV{Tag: tag, Value: val}
}

// Uint8TLV builds a one-octet TLV.
func Uint8TLV(tag Tag, v uint8) TLV {
	return TLV{Tag: tag, Value: []byte{v}}
}

// Uint16TLV builds a two-octet big-endian TLV.
func Uint16TLV(tag Tag, v uint16) TLV {
	return TLV{Tag: tag, Value: binary.BigEndian.AppendUint16(nil, v)}
}

// String returns the value with a trailing NUL removed.
func (t TLV) String() string {
	v := t.Value
	if n := len(v); n > 0 && v[n-1] == 0 {
		v = v[:n-1]
	}

	return string(v)
}
