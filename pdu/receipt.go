package pdu

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotReceipt is returned by ParseDeliveryReceipt for a deliver_sm that is not a delivery receipt.
var ErrNotReceipt = errors.New("deliver_sm is not a delivery receipt")

// Final message states reported in receipts.
const (
	StateEnroute       = "ENROUTE"
	StateDelivered     = "DELIVRD"
	StateExpired       = "EXPIRED"
	StateDeleted       = "DELETED"
	StateUndeliverable = "UNDELIV"
	StateAccepted      = "ACCEPTD"
	StateUnknown       = "UNKNOWN"
	StateRejected      = "REJECTD"
)

// message_state TLV values, index = value.
var messageStates = [...]string{
	1: StateEnroute,
	2: StateDelivered,
	3: StateExpired,
	4: StateDeleted,
	5: StateUndeliverable,
	6: StateAccepted,
	7: StateUnknown,
	8: StateRejected,
}

// DeliveryReceipt is the SMSC report on a previously submitted message.
type DeliveryReceipt struct {
	MessageID  string
	Submitted  string
	Delivered  string
	SubmitDate time.Time
	DoneDate   time.Time
	Stat       string
	Err        string
	Text       string
}

// IsFinal reports whether the state is terminal for the message.
func (r *DeliveryReceipt) IsFinal() bool {
	switch r.Stat {
	case StateDelivered, StateExpired, StateDeleted, StateUndeliverable, StateRejected:
		return true
	}

	return false
}

// IsDelivered reports whether the message reached the handset.
func (r *DeliveryReceipt) IsDelivered() bool { return r.Stat == StateDelivered }

var receiptKeys = []string{"id", "sub", "dlvrd", "submit date", "done date", "stat", "err", "text"}

// ParseDeliveryReceipt extracts the receipt carried by d.
//
// The text body "id:... sub:... dlvrd:... submit date:... done date:... stat:... err:... text:..."
// is parsed leniently. The receipted_message_id and message_state TLVs take precedence.
func ParseDeliveryReceipt(d *DeliverSm) (*DeliveryReceipt, error) {
	if !d.IsDeliveryReceipt() {
		return nil, ErrNotReceipt
	}

	text, err := d.Text()
	if err != nil {
		return nil, err
	}

	fields := splitReceiptText(text)
	r := &DeliveryReceipt{
		MessageID: fields["id"],
		Submitted: fields["sub"],
		Delivered: fields["dlvrd"],
		Stat:      strings.ToUpper(fields["stat"]),
		Err:       fields["err"],
		Text:      fields["text"],
	}
	r.SubmitDate = parseReceiptTime(fields["submit date"])
	r.DoneDate = parseReceiptTime(fields["done date"])

	if t, ok := FindTLV(d.TLVs, TagReceiptedMessageID); ok {
		r.MessageID = t.String()
	}
	if t, ok := FindTLV(d.TLVs, TagMessageState); ok && len(t.Value) == 1 {
		if v := int(t.Value[0]); v < len(messageStates) && messageStates[v] != "" {
			r.Stat = messageStates[v]
		}
	}

	if r.MessageID == "" {
		return nil, errors.New("delivery receipt without message id")
	}

	return r, nil
}

type keyPos struct {
	key string
	pos int
	end int
}

func splitReceiptText(text string) map[string]string {
	lower := asciiLower(text)

	var found []keyPos
	for _, key := range receiptKeys {
		needle := key + ":"
		from := 0
		for {
			idx := strings.Index(lower[from:], needle)
			if idx < 0 {
				break
			}
			idx += from
			// "submit date:" contains "date:", require a word boundary
			if idx == 0 || lower[idx-1] == ' ' {
				found = append(found, keyPos{key: key, pos: idx, end: idx + len(needle)})
				break
			}
			from = idx + 1
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	out := make(map[string]string, len(found))
	for i, kp := range found {
		stop := len(text)
		if i+1 < len(found) {
			stop = found[i+1].pos
		}
		if kp.end > stop {
			continue
		}
		out[kp.key] = strings.TrimSpace(text[kp.end:stop])
	}

	return out
}

func parseReceiptTime(v string) time.Time {
	for _, layout := range []string{"0601021504", "060102150405"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}

	return time.Time{}
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}

	return string(b)
}

// FormatDeliveryReceipt renders r in the conventional text form.
func FormatDeliveryReceipt(r *DeliveryReceipt) string {
	var sb strings.Builder
	sb.WriteString("id:" + r.MessageID)
	sb.WriteString(" sub:" + defaultStr(r.Submitted, "001"))
	sb.WriteString(" dlvrd:" + defaultStr(r.Delivered, "001"))
	sb.WriteString(" submit date:" + formatReceiptTime(r.SubmitDate))
	sb.WriteString(" done date:" + formatReceiptTime(r.DoneDate))
	sb.WriteString(" stat:" + r.Stat)
	sb.WriteString(" err:" + defaultStr(r.Err, "000"))
	sb.WriteString(" text:" + r.Text)

	return sb.String()
}

func formatReceiptTime(t time.Time) string {
	if t.IsZero() {
		return "0000000000"
	}

	return t.Format("0601021504")
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
