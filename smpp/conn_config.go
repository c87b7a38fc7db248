package smpp

import (
	"context"
	"net"
	"time"

	"github.com/arloliu/go-smpp/logger"
	"github.com/arloliu/go-smpp/pdu"
)

// Dialer opens the transport to the SMSC. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DeliverHandler receives deliver_sm frames that are not matched to a submitted message,
// i.e. mobile originated messages and uncorrelated receipts. The frame has already been
// acknowledged when the handler runs.
type DeliverHandler func(s *Session, hdr pdu.Header, msg *pdu.DeliverSm)

// sessionConfig holds the settings of one session.
type sessionConfig struct {
	// connectTimeout bounds the TCP dial. Defaults to 5 seconds.
	connectTimeout time.Duration
	// bindTimeout bounds the wait for bind_transceiver_resp. Defaults to 10 seconds.
	bindTimeout time.Duration
	// unbindTimeout bounds the wait for unbind_resp. Defaults to 5 seconds.
	unbindTimeout time.Duration
	// writeTimeout bounds each frame write. Defaults to 10 seconds.
	writeTimeout time.Duration

	// enquireLinkInterval is the keepalive period while bound. Zero disables it. Defaults to 30 seconds.
	enquireLinkInterval time.Duration

	// maxFrameSize bounds inbound command_length. Defaults to pdu.DefaultMaxFrameSize.
	maxFrameSize uint32
	// windowSize is the number of submit_sm allowed to await a response at once. Defaults to 10.
	windowSize int
	// senderQueueSize buffers frames waiting for the writer. Defaults to 16.
	senderQueueSize int
	// deliverQueueSize buffers deliver_sm waiting for deliver handlers. Defaults to 16.
	deliverQueueSize int

	// dataCoding encodes message content. Defaults to UCS-2.
	dataCoding pdu.DataCoding
	// autoDataCoding picks IA5 or UCS-2 per message and overrides dataCoding.
	autoDataCoding bool
	// registeredDelivery is written to every submit_sm. Defaults to requesting all receipts.
	registeredDelivery byte

	// receiptTimeout bounds how long a submit waits for its delivery receipt. Defaults to 5 minutes.
	receiptTimeout time.Duration
	// receiptWait is how long Run waits for receipts before unbinding. Zero skips the wait.
	receiptWait time.Duration

	dialer          Dialer
	logger          logger.Logger
	deliverHandlers []DeliverHandler
	stateHandlers   []StateChangeHandler
}

func newSessionConfig(opts ...Option) (*sessionConfig, error) {
	cfg := &sessionConfig{
		connectTimeout:      5 * time.Second,
		bindTimeout:         10 * time.Second,
		unbindTimeout:       5 * time.Second,
		writeTimeout:        10 * time.Second,
		enquireLinkInterval: 30 * time.Second,
		maxFrameSize:        pdu.DefaultMaxFrameSize,
		windowSize:          10,
		senderQueueSize:     16,
		deliverQueueSize:    16,
		dataCoding:          pdu.CodingUCS2,
		registeredDelivery:  pdu.RegisteredDeliveryAll,
		receiptTimeout:      5 * time.Minute,
		dialer:              &net.Dialer{},
		logger:              logger.GetLogger(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option configures a Session.
type Option interface {
	apply(*sessionConfig) error
}

type optFunc struct {
	name      string
	applyFunc func(*sessionConfig) error
}

func (o *optFunc) apply(cfg *sessionConfig) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*sessionConfig) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

func positiveDuration(field string, val time.Duration) error {
	if val <= 0 {
		return &ConfigError{Field: field, Reason: "must be positive"}
	}

	return nil
}

// WithLogger sets the logger used by the session. Every entry carries session_id and provider.
//
// The default is the package level logger of the logger package.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *sessionConfig) error {
		if l == nil {
			return &ConfigError{Field: "logger", Reason: "must not be nil"}
		}
		cfg.logger = l

		return nil
	})
}

// WithDialer replaces the dialer used to reach the SMSC.
func WithDialer(d Dialer) Option {
	return newOptFunc("WithDialer", func(cfg *sessionConfig) error {
		if d == nil {
			return &ConfigError{Field: "dialer", Reason: "must not be nil"}
		}
		cfg.dialer = d

		return nil
	})
}

// WithConnectTimeout sets the timeout for establishing the TCP connection.
//
// The default value is 5 seconds.
func WithConnectTimeout(val time.Duration) Option {
	return newOptFunc("WithConnectTimeout", func(cfg *sessionConfig) error {
		if err := positiveDuration("connect_timeout", val); err != nil {
			return err
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithBindTimeout sets how long to wait for bind_transceiver_resp.
// When it expires the session closes with ReasonTimeout.
//
// The default value is 10 seconds.
func WithBindTimeout(val time.Duration) Option {
	return newOptFunc("WithBindTimeout", func(cfg *sessionConfig) error {
		if err := positiveDuration("bind_timeout", val); err != nil {
			return err
		}
		cfg.bindTimeout = val

		return nil
	})
}

// WithUnbindTimeout sets how long Close waits for unbind_resp.
// When it expires the session closes with ReasonTimeout.
//
// The default value is 5 seconds.
func WithUnbindTimeout(val time.Duration) Option {
	return newOptFunc("WithUnbindTimeout", func(cfg *sessionConfig) error {
		if err := positiveDuration("unbind_timeout", val); err != nil {
			return err
		}
		cfg.unbindTimeout = val

		return nil
	})
}

// WithWriteTimeout sets the deadline for writing one frame.
//
// The default value is 10 seconds.
func WithWriteTimeout(val time.Duration) Option {
	return newOptFunc("WithWriteTimeout", func(cfg *sessionConfig) error {
		if err := positiveDuration("write_timeout", val); err != nil {
			return err
		}
		cfg.writeTimeout = val

		return nil
	})
}

// WithEnquireLinkInterval sets the keepalive period. Zero disables enquire_link.
//
// The default value is 30 seconds.
func WithEnquireLinkInterval(val time.Duration) Option {
	return newOptFunc("WithEnquireLinkInterval", func(cfg *sessionConfig) error {
		if val < 0 {
			return &ConfigError{Field: "enquire_link_interval", Reason: "must not be negative"}
		}
		cfg.enquireLinkInterval = val

		return nil
	})
}

// WithMaxFrameSize bounds the command_length accepted from the SMSC.
// A larger frame closes the session with ReasonProtocol.
//
// The default value is 64 KiB.
func WithMaxFrameSize(val uint32) Option {
	return newOptFunc("WithMaxFrameSize", func(cfg *sessionConfig) error {
		if val < pdu.HeaderLen {
			return &ConfigError{Field: "max_frame_size", Reason: "smaller than the pdu header"}
		}
		cfg.maxFrameSize = val

		return nil
	})
}

// WithWindowSize sets how many submit_sm may await their response at once.
// Submit blocks while the window is full. A size of 1 gives strict stop-and-wait.
//
// The default value is 10.
func WithWindowSize(val int) Option {
	return newOptFunc("WithWindowSize", func(cfg *sessionConfig) error {
		if val < 1 || val > 1024 {
			return &ConfigError{Field: "window_size", Reason: "out of range [1, 1024]"}
		}
		cfg.windowSize = val

		return nil
	})
}

// WithSenderQueueSize sets the buffer between callers and the frame writer.
//
// The default value is 16.
func WithSenderQueueSize(val int) Option {
	return newOptFunc("WithSenderQueueSize", func(cfg *sessionConfig) error {
		if val < 1 {
			return &ConfigError{Field: "sender_queue_size", Reason: "must be positive"}
		}
		cfg.senderQueueSize = val

		return nil
	})
}

// WithDataCoding sets the data coding used for message content.
//
// The default value is UCS-2.
func WithDataCoding(dc pdu.DataCoding) Option {
	return newOptFunc("WithDataCoding", func(cfg *sessionConfig) error {
		if _, err := pdu.EncodeText(dc, ""); err != nil {
			return &ConfigError{Field: "data_coding", Reason: err.Error()}
		}
		cfg.dataCoding = dc
		cfg.autoDataCoding = false

		return nil
	})
}

// WithAutoDataCoding encodes ASCII content as IA5 and everything else as UCS-2.
func WithAutoDataCoding() Option {
	return newOptFunc("WithAutoDataCoding", func(cfg *sessionConfig) error {
		cfg.autoDataCoding = true
		return nil
	})
}

// WithRegisteredDelivery sets the registered_delivery flag of submitted messages.
//
// The default value requests a receipt for every outcome.
func WithRegisteredDelivery(val byte) Option {
	return newOptFunc("WithRegisteredDelivery", func(cfg *sessionConfig) error {
		cfg.registeredDelivery = val
		return nil
	})
}

// WithDeliverHandler adds a handler for deliver_sm not correlated to a submit.
// Handlers run one at a time on a dedicated goroutine.
func WithDeliverHandler(h DeliverHandler) Option {
	return newOptFunc("WithDeliverHandler", func(cfg *sessionConfig) error {
		if h == nil {
			return &ConfigError{Field: "deliver_handler", Reason: "must not be nil"}
		}
		cfg.deliverHandlers = append(cfg.deliverHandlers, h)

		return nil
	})
}

// WithDeliverQueueSize sets the buffer in front of the deliver handlers.
//
// The default value is 16.
func WithDeliverQueueSize(val int) Option {
	return newOptFunc("WithDeliverQueueSize", func(cfg *sessionConfig) error {
		if val < 1 {
			return &ConfigError{Field: "deliver_queue_size", Reason: "must be positive"}
		}
		cfg.deliverQueueSize = val

		return nil
	})
}

// WithStateChangeHandler adds a handler invoked on every session state change.
func WithStateChangeHandler(h StateChangeHandler) Option {
	return newOptFunc("WithStateChangeHandler", func(cfg *sessionConfig) error {
		if h == nil {
			return &ConfigError{Field: "state_change_handler", Reason: "must not be nil"}
		}
		cfg.stateHandlers = append(cfg.stateHandlers, h)

		return nil
	})
}

// WithReceiptTimeout sets how long an accepted submit waits for its delivery receipt.
//
// The default value is 5 minutes.
func WithReceiptTimeout(val time.Duration) Option {
	return newOptFunc("WithReceiptTimeout", func(cfg *sessionConfig) error {
		if err := positiveDuration("receipt_timeout", val); err != nil {
			return err
		}
		cfg.receiptTimeout = val

		return nil
	})
}

// WithReceiptWait makes Run wait up to val for delivery receipts before unbinding.
//
// The default value is zero: Run unbinds as soon as every submit is answered.
func WithReceiptWait(val time.Duration) Option {
	return newOptFunc("WithReceiptWait", func(cfg *sessionConfig) error {
		if val < 0 {
			return &ConfigError{Field: "receipt_wait", Reason: "must not be negative"}
		}
		cfg.receiptWait = val

		return nil
	})
}
