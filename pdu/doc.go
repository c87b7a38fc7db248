// Package pdu implements the SMPP v3.4 protocol data units used by an ESME transceiver:
// the 16-octet header, the command bodies and a stateless codec between frames and bytes.
//
// # Frame layout
//
// Every PDU starts with four big-endian 32-bit fields: command_length (header included),
// command_id, command_status and sequence_number. The body follows and consists of
// integers, NUL terminated C-octet strings with per-field maximum sizes, the
// length-prefixed short_message, and optional TLV parameters.
//
// # Command variants
//
// Bodies form a closed set of types implementing Body. Consumers handle them by
// implementing Visitor; adding a command breaks every Visitor at compile time.
// Unrecognised command ids decode to Other, which keeps the raw body.
//
// # Decoding
//
// Codec.Decode consumes a byte stream incrementally:
//
//	frame, n, err := codec.Decode(buf)
//	switch {
//	case err != nil:
//	    // *DecodeError; Desync() reports whether the stream can continue
//	case frame == nil:
//	    // need more bytes
//	default:
//	    buf = buf[n:]
//	}
//
// Text content is converted with EncodeText and DecodeText according to DataCoding,
// and SMSC delivery receipts are parsed with ParseDeliveryReceipt.
package pdu
