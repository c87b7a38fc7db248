package smsctest

import (
	"github.com/arloliu/go-smpp/logger"
	"github.com/arloliu/go-smpp/pdu"
)

type serverConfig struct {
	addr          string
	systemID      string
	systemIDCheck string
	passwordCheck string
	bindStatus    pdu.CommandStatus
	submitStatus  func(n uint64, sm *pdu.SubmitSm) pdu.CommandStatus
	messageID     func(n uint64) string
	receipts      bool
	firstSeq      uint32
	maxFrameSize  uint32
	handlers      map[pdu.CommandID]Handler
	logger        logger.Logger
}

func newServerConfig(opts ...Option) *serverConfig {
	cfg := &serverConfig{
		addr:      "127.0.0.1:0",
		systemID:  "SMSCTEST",
		messageID: defaultMessageID,
		firstSeq:  1,
		handlers:  make(map[pdu.CommandID]Handler),
		logger:    logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Option configures a Server.
type Option func(*serverConfig)

// WithAddr sets the listen address. The default is an ephemeral loopback port.
func WithAddr(addr string) Option {
	return func(cfg *serverConfig) { cfg.addr = addr }
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(cfg *serverConfig) { cfg.logger = l }
}

// WithSystemID sets the system_id returned in bind_transceiver_resp.
func WithSystemID(id string) Option {
	return func(cfg *serverConfig) { cfg.systemID = id }
}

// WithAccount rejects binds whose system_id or password differ.
func WithAccount(systemID, password string) Option {
	return func(cfg *serverConfig) {
		cfg.systemIDCheck = systemID
		cfg.passwordCheck = password
	}
}

// WithBindStatus answers every bind with status.
func WithBindStatus(status pdu.CommandStatus) Option {
	return func(cfg *serverConfig) { cfg.bindStatus = status }
}

// WithSubmitStatus decides the status of the n-th submit_sm, counting from 1.
func WithSubmitStatus(f func(n uint64, sm *pdu.SubmitSm) pdu.CommandStatus) Option {
	return func(cfg *serverConfig) { cfg.submitStatus = f }
}

// WithMessageID decides the message id of the n-th accepted submit_sm.
func WithMessageID(f func(n uint64) string) Option {
	return func(cfg *serverConfig) { cfg.messageID = f }
}

// WithReceipts sends a DELIVRD receipt right after each accepted submit_sm that requests one.
func WithReceipts() Option {
	return func(cfg *serverConfig) { cfg.receipts = true }
}

// WithFirstSequence sets the first sequence number of server-originated requests.
func WithFirstSequence(seq uint32) Option {
	return func(cfg *serverConfig) { cfg.firstSeq = seq }
}

// WithMaxFrameSize bounds the frames the server accepts.
func WithMaxFrameSize(size uint32) Option {
	return func(cfg *serverConfig) { cfg.maxFrameSize = size }
}

// WithHandler replaces the default behavior for frames carrying id.
func WithHandler(id pdu.CommandID, h Handler) Option {
	return func(cfg *serverConfig) { cfg.handlers[id] = h }
}

// Ignore is a Handler that never answers.
func Ignore(*Conn, *pdu.Frame) {}
