// Command smppc binds to an SMSC as a transceiver, submits one short message and unbinds.
//
//	smppc --endpoint smsc.example.com:2775 --system-id esme --password secret \
//	    send-sms --src 12345 --dst 447700900123 --content "hello"
//
// Settings can also come from a TOML profile given with --config. Flags override the file.
//
// Exit codes: 0 success, 1 usage, 2 invalid configuration, 3 bind rejected,
// 4 connection error, 5 protocol error, 6 message rejected.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/go-smpp/internal/observability"
	"github.com/arloliu/go-smpp/logger"
	"github.com/arloliu/go-smpp/pdu"
	"github.com/arloliu/go-smpp/smpp"
)

const (
	exitOK = iota
	exitUsage
	exitConfig
	exitAuth
	exitConnection
	exitProtocol
	exitRejected
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	inv, err := parseArgs(args, stderr)
	if errors.Is(err, errUsage) {
		return exitUsage
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}

	l, err := newLogger(inv.profile, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}
	defer func() { _ = l.Flush() }()
	logger.SetDefault(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, res := send(ctx, inv, l)
	printResult(stdout, outcome, res)

	return exitCode(outcome, res)
}

func newLogger(p profile, w io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(p.LogLevel)
	if err != nil {
		return nil, err
	}

	pretty := os.Getenv("ENV") == "development"
	switch strings.ToLower(p.LogFormat) {
	case "", "slog":
		return logger.NewSlogWithWriter(w, level, false, pretty), nil
	case "zerolog":
		return logger.NewZerolog(w, level, pretty), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", p.LogFormat)
	}
}

func sessionOptions(p profile, l logger.Logger) ([]smpp.Option, error) {
	opts := []smpp.Option{
		smpp.WithLogger(l),
		smpp.WithBindTimeout(p.BindTimeout),
		smpp.WithUnbindTimeout(p.UnbindTimeout),
		smpp.WithWindowSize(p.Window),
	}

	if strings.EqualFold(p.Coding, "auto") {
		opts = append(opts, smpp.WithAutoDataCoding())
	} else {
		dc, err := pdu.ParseDataCoding(p.Coding)
		if err != nil {
			return nil, &smpp.ConfigError{Field: "coding", Reason: err.Error()}
		}
		opts = append(opts, smpp.WithDataCoding(dc))
	}

	return opts, nil
}

// send runs one session and submits inv.message through it.
func send(ctx context.Context, inv *invocation, l logger.Logger) (smpp.SessionOutcome, smpp.SubmitResult) {
	p := inv.profile

	fail := func(err error) (smpp.SessionOutcome, smpp.SubmitResult) {
		return smpp.OutcomeFromError(err), smpp.SubmitResult{Err: err}
	}

	creds, err := smpp.NewCredentials(p.SMSCName, p.Endpoint, p.SystemID, p.Password, p.SystemType)
	if err != nil {
		return fail(err)
	}

	opts, err := sessionOptions(p, l)
	if err != nil {
		return fail(err)
	}

	s, err := smpp.Connect(ctx, creds, opts...)
	if err != nil {
		return fail(err)
	}
	// unbind even after an interrupt; the unbind timeout bounds it
	defer func() { _ = s.Close(context.WithoutCancel(ctx)) }()

	if p.MetricsAddr != "" {
		shutdown, err := serveMetrics(p.MetricsAddr, s, l)
		if err != nil {
			l.Warn("metrics disabled", "addr", p.MetricsAddr, "error", err)
		} else {
			defer shutdown()
		}
	}

	h, err := s.Submit(ctx, inv.message)
	if err != nil {
		_ = s.Close(context.WithoutCancel(ctx))
		if errors.Is(err, smpp.ErrSessionClosed) || errors.Is(err, smpp.ErrNotBound) {
			return s.Outcome(), smpp.SubmitResult{Err: err}
		}

		return fail(err)
	}

	res, err := h.Result(ctx)
	if err != nil && res.Err == nil {
		res.Err = err
	}

	if res.OK() && p.ReceiptWait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, p.ReceiptWait)
		r, err := h.Receipt(waitCtx)
		cancel()
		if err != nil {
			l.Warn("no delivery receipt", "message_id", res.MessageID, "error", err)
		} else {
			res.Receipt = r
		}
	}

	if err := s.Close(context.WithoutCancel(ctx)); err != nil {
		l.Warn("unbind failed", "error", err)
	}

	return s.Outcome(), res
}

// serveMetrics exposes the session counters on addr until the returned function is called.
func serveMetrics(addr string, s *smpp.Session, l logger.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	unregister, err := observability.RegisterSession(reg, s)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		unregister()
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server stopped", "error", err)
		}
	}()
	l.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		unregister()
	}, nil
}

func printResult(w io.Writer, outcome smpp.SessionOutcome, res smpp.SubmitResult) {
	switch {
	case res.OK():
		fmt.Fprintf(w, "submitted: message_id=%s seq=%d\n", res.MessageID, res.Sequence)
	case res.Err != nil:
		fmt.Fprintf(w, "not submitted: %v\n", res.Err)
	}

	if r := res.Receipt; r != nil {
		fmt.Fprintf(w, "receipt: stat=%s err=%s\n", r.Stat, r.Err)
	}

	fmt.Fprintf(w, "session: %s\n", outcome)
}

// exitCode maps a session outcome and the submit result to the process exit status.
func exitCode(outcome smpp.SessionOutcome, res smpp.SubmitResult) int {
	switch outcome.Kind {
	case smpp.OutcomeConfigError:
		return exitConfig
	case smpp.OutcomeAuthenticationFailed:
		return exitAuth
	case smpp.OutcomeConnectionError:
		return exitConnection
	case smpp.OutcomeProtocolError:
		return exitProtocol
	}

	var cfgErr *smpp.ConfigError
	if errors.As(res.Err, &cfgErr) {
		return exitConfig
	}
	if !res.OK() {
		return exitRejected
	}

	return exitOK
}
