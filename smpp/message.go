package smpp

import (
	"github.com/arloliu/go-smpp/pdu"
)

// OutboundMessage is one short message to submit.
type OutboundMessage struct {
	// Source is the originating address, at most 20 octets.
	Source string
	// Destination is the recipient address, at most 20 octets.
	Destination string
	// Content is the message text. It is encoded with the session's data coding.
	Content string
}

// Validate checks the addresses against their SMPP field sizes.
func (m OutboundMessage) Validate() error {
	if m.Destination == "" {
		return &ConfigError{Field: "destination_addr", Reason: "must not be empty"}
	}
	if err := validateCString("source_addr", m.Source, pdu.MaxAddressLen); err != nil {
		return err
	}

	return validateCString("destination_addr", m.Destination, pdu.MaxAddressLen)
}

// SubmitResult is the outcome of one submit_sm.
type SubmitResult struct {
	Sequence  uint32
	MessageID string
	Status    pdu.CommandStatus
	// Err is set when the submit failed: rejected by the SMSC, nacked, or lost with the session.
	Err error
	// Receipt is filled in by Run when it waits for delivery receipts.
	Receipt *pdu.DeliveryReceipt
}

// OK reports whether the SMSC accepted the message.
func (r SubmitResult) OK() bool { return r.Err == nil && r.Status.IsOK() }

// buildSubmitSm encodes m into a submit_sm body according to cfg.
func buildSubmitSm(cfg *sessionConfig, m OutboundMessage) (*pdu.SubmitSm, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	coding := cfg.dataCoding
	if cfg.autoDataCoding {
		coding = pdu.ChooseCoding(m.Content)
	}

	payload, err := pdu.EncodeText(coding, m.Content)
	if err != nil {
		return nil, &ConfigError{Field: "content", Reason: err.Error()}
	}

	sm := &pdu.SubmitSm{}
	sm.ServiceType = ""
	sm.SourceAddr = m.Source
	sm.DestinationAddr = m.Destination
	sm.RegisteredDelivery = cfg.registeredDelivery
	sm.DataCoding = coding
	sm.SetPayload(payload)

	return sm, nil
}
