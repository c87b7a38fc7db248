package smpp

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-smpp/pdu"
)

var (
	// ErrNotBound indicates an operation that requires a bound session.
	ErrNotBound = errors.New("session is not bound")

	// ErrSessionClosed indicates that the session terminated before the operation completed.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidTransition is returned when a state change is not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrSequenceExhausted is returned when the session has used every sequence number.
	ErrSequenceExhausted = errors.New("sequence numbers exhausted")
)

var (
	// ErrBindTimeout indicates that no bind_transceiver_resp arrived within the bind timeout.
	ErrBindTimeout = errors.New("bind timeout")

	// ErrUnbindTimeout indicates that no unbind_resp arrived within the unbind timeout.
	ErrUnbindTimeout = errors.New("unbind timeout")

	// ErrReceiptTimeout indicates that no delivery receipt arrived within the receipt timeout.
	ErrReceiptTimeout = errors.New("delivery receipt timeout")

	// ErrNoReceipt is returned by SubmitHandle.Receipt when the submit was not accepted
	// or did not request a delivery receipt.
	ErrNoReceipt = errors.New("no delivery receipt expected")
)

// ConfigError reports invalid credentials or options. It is returned before any network I/O.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConnectionError reports a transport failure: dial, read or write.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthenticationError reports a rejected bind.
type AuthenticationError struct {
	// Status is the command_status of the bind response, or of the frame that answered the bind.
	Status pdu.CommandStatus
	// Command is the command id that answered the bind.
	Command pdu.CommandID
}

func (e *AuthenticationError) Error() string {
	if e.Command != pdu.BindTransceiverRespID {
		return fmt.Sprintf("bind rejected: unexpected %s (status %s)", e.Command, e.Status)
	}

	return fmt.Sprintf("bind rejected: %s", e.Status)
}

func (e *AuthenticationError) Unwrap() error {
	if e.Status.IsOK() {
		return nil
	}

	return e.Status
}

// ProtocolError reports a peer that broke the SMPP session rules, or an operation
// attempted in a state that does not allow it.
type ProtocolError struct {
	Reason string
	Status pdu.CommandStatus
	Err    error
}

func (e *ProtocolError) Error() string {
	if !e.Status.IsOK() {
		return fmt.Sprintf("protocol error: %s (status %s)", e.Reason, e.Status)
	}

	return "protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// SubmitError reports a submit_sm answered with a non-OK status.
type SubmitError struct {
	Sequence uint32
	Status   pdu.CommandStatus
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit_sm seq=%d rejected: %s", e.Sequence, e.Status)
}

func (e *SubmitError) Unwrap() error { return e.Status }
