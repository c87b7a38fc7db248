package pdu

import (
	"errors"
	"testing"
)

// FuzzDecode feeds arbitrary streams to the decoder. Decode must never panic,
// must never report more octets than it was given, and every decoded frame must
// survive an encode/decode cycle.
func FuzzDecode(f *testing.F) {
	// Seed: enquire_link
	f.Add([]byte{0, 0, 0, 16, 0, 0, 0, 0x15, 0, 0, 0, 0, 0, 0, 0, 1})

	// Seed: submit_sm_resp "abc"
	f.Add([]byte{0, 0, 0, 20, 0x80, 0, 0, 0x04, 0, 0, 0, 0, 0, 0, 0, 2, 'a', 'b', 'c', 0})

	// Seed: command_length below header size
	f.Add([]byte{0, 0, 0, 8, 0, 0, 0, 0x15, 0, 0, 0, 0, 0, 0, 0, 1})

	// Seed: deliver_sm with truncated body
	f.Add([]byte{0, 0, 0, 20, 0, 0, 0, 0x05, 0, 0, 0, 0, 0, 0, 0, 3, 0, 1, 1, '1'})

	// Seed: empty input
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		codec := Codec{MaxFrameSize: 4096}

		frame, n, err := codec.Decode(data)
		if n > len(data) {
			t.Fatalf("consumed %d of %d octets", n, len(data))
		}

		if err != nil {
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			return
		}

		if frame == nil {
			if n != 0 {
				t.Fatalf("incomplete frame consumed %d octets", n)
			}
			return
		}

		buf, err := codec.Encode(frame)
		if err != nil {
			t.Fatalf("re-encode %s: %v", frame.Header.CommandID, err)
		}

		again, _, err := codec.Decode(buf)
		if err != nil {
			t.Fatalf("decode re-encoded %s: %v", frame.Header.CommandID, err)
		}
		if again.Header.CommandID != frame.Header.CommandID || again.Header.Sequence != frame.Header.Sequence {
			t.Fatalf("header changed: %+v != %+v", again.Header, frame.Header)
		}
	})
}
