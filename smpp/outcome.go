package smpp

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-smpp/pdu"
)

// OutcomeKind classifies how a session ended.
type OutcomeKind int

const (
	// OutcomeUnknown is reported while the session is still open.
	OutcomeUnknown OutcomeKind = iota
	// OutcomeSuccess is a session closed by a completed unbind, from either side.
	OutcomeSuccess
	// OutcomeAuthenticationFailed is a rejected bind.
	OutcomeAuthenticationFailed
	// OutcomeConnectionError is a failed dial, a lost transport or an expired handshake.
	OutcomeConnectionError
	// OutcomeProtocolError is a framing error or a peer that broke the session rules.
	OutcomeProtocolError
	// OutcomeConfigError is invalid credentials or options. No connection was attempted.
	OutcomeConfigError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeUnknown:
		return "unknown"
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthenticationFailed:
		return "authentication-failed"
	case OutcomeConnectionError:
		return "connection-error"
	case OutcomeProtocolError:
		return "protocol-error"
	case OutcomeConfigError:
		return "config-error"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// SessionOutcome is the terminal result of a session.
type SessionOutcome struct {
	Kind   OutcomeKind
	Reason CloseReason
	// Err is the cause of an unsuccessful outcome.
	Err error
}

// OK reports whether the session ended successfully.
func (o SessionOutcome) OK() bool { return o.Kind == OutcomeSuccess }

func (o SessionOutcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s (%s): %v", o.Kind, o.Reason, o.Err)
	}

	return fmt.Sprintf("%s (%s)", o.Kind, o.Reason)
}

func outcomeOf(reason CloseReason, cause error) SessionOutcome {
	o := SessionOutcome{Reason: reason, Err: cause}

	switch reason {
	case ReasonNone:
		o.Kind = OutcomeUnknown
	case ReasonNormal, ReasonPeerUnbind:
		o.Kind = OutcomeSuccess
	case ReasonAuthFailed:
		o.Kind = OutcomeAuthenticationFailed
	case ReasonProtocol:
		o.Kind = OutcomeProtocolError
	default:
		o.Kind = OutcomeConnectionError
	}

	return o
}

// OutcomeFromError classifies an error returned by Connect.
func OutcomeFromError(err error) SessionOutcome {
	var (
		cfgErr   *ConfigError
		authErr  *AuthenticationError
		connErr  *ConnectionError
		protoErr *ProtocolError
		decErr   *pdu.DecodeError
	)

	switch {
	case err == nil:
		return outcomeOf(ReasonNormal, nil)
	case errors.As(err, &cfgErr):
		return SessionOutcome{Kind: OutcomeConfigError, Reason: ReasonNone, Err: err}
	case errors.As(err, &authErr):
		return outcomeOf(ReasonAuthFailed, err)
	case errors.Is(err, ErrBindTimeout), errors.Is(err, ErrUnbindTimeout):
		return outcomeOf(ReasonTimeout, err)
	case errors.As(err, &protoErr), errors.As(err, &decErr):
		return outcomeOf(ReasonProtocol, err)
	case errors.As(err, &connErr) && connErr.Op == "dial":
		return outcomeOf(ReasonConnectFailed, err)
	default:
		return outcomeOf(ReasonUnexpected, err)
	}
}
