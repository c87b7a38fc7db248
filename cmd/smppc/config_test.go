package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-smpp/internal/smsctest"
	"github.com/arloliu/go-smpp/logger"
	"github.com/arloliu/go-smpp/pdu"
	"github.com/arloliu/go-smpp/smpp"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadProfile(t *testing.T) {
	require := require.New(t)

	path := writeProfile(t, `
smsc_name = "acme"
endpoint = "smsc.example.com:2775"
system_id = "esme01"
password = "secret"
bind_timeout = "3s"
receipt_wait = "1m"
window = 4
log_format = "zerolog"
`)

	p := defaultProfile()
	require.NoError(loadProfile(path, &p))

	require.Equal("acme", p.SMSCName)
	require.Equal("smsc.example.com:2775", p.Endpoint)
	require.Equal("esme01", p.SystemID)
	require.Equal("secret", p.Password)
	require.Equal(3*time.Second, p.BindTimeout)
	require.Equal(time.Minute, p.ReceiptWait)
	require.Equal(4, p.Window)
	require.Equal("zerolog", p.LogFormat)

	// keys missing from the file keep their defaults
	require.Equal(5*time.Second, p.UnbindTimeout)
	require.Equal("ucs2", p.Coding)
	require.Equal("info", p.LogLevel)
}

func TestLoadProfile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", `sytem_id = "esme01"`},
		{"bad duration", `bind_timeout = "soon"`},
		{"bad toml", `endpoint = `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultProfile()
			require.Error(t, loadProfile(writeProfile(t, tt.content), &p))
		})
	}
}

func TestParseArgs_FlagsOverrideFile(t *testing.T) {
	require := require.New(t)

	path := writeProfile(t, `
endpoint = "file.example.com:2775"
system_id = "fromfile"
window = 4
coding = "ia5"
`)

	inv, err := parseArgs([]string{
		"--system-id", "fromflag",
		"--config", path,
		"send-sms", "--src", "ACME", "--dst", "886912345678", "--content", "hi", "--coding", "latin1",
	}, io.Discard)
	require.NoError(err)

	require.Equal("file.example.com:2775", inv.profile.Endpoint)
	require.Equal("fromflag", inv.profile.SystemID)
	require.Equal(4, inv.profile.Window)
	require.Equal("latin1", inv.profile.Coding)
	require.Equal(smpp.OutboundMessage{Source: "ACME", Destination: "886912345678", Content: "hi"}, inv.message)
}

func TestParseArgs_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"--endpoint", "localhost:2775"}},
		{"unknown command", []string{"query-sm"}},
		{"unknown flag", []string{"--bogus", "send-sms"}},
		{"missing destination", []string{"send-sms", "--content", "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := parseArgs(tt.args, &out)
			require.ErrorIs(t, err, errUsage)
			require.NotEmpty(t, out.String())
		})
	}
}

func TestExitCode(t *testing.T) {
	accepted := smpp.SubmitResult{MessageID: "m1", Status: pdu.StatusOK}
	rejected := smpp.SubmitResult{Status: pdu.StatusThrottled, Err: &smpp.SubmitError{Status: pdu.StatusThrottled}}

	tests := []struct {
		name    string
		outcome smpp.SessionOutcome
		res     smpp.SubmitResult
		want    int
	}{
		{"success", smpp.SessionOutcome{Kind: smpp.OutcomeSuccess}, accepted, exitOK},
		{"rejected", smpp.SessionOutcome{Kind: smpp.OutcomeSuccess}, rejected, exitRejected},
		{"config", smpp.SessionOutcome{Kind: smpp.OutcomeConfigError}, smpp.SubmitResult{}, exitConfig},
		{"auth", smpp.SessionOutcome{Kind: smpp.OutcomeAuthenticationFailed}, smpp.SubmitResult{}, exitAuth},
		{"connection", smpp.SessionOutcome{Kind: smpp.OutcomeConnectionError}, accepted, exitConnection},
		{"protocol", smpp.SessionOutcome{Kind: smpp.OutcomeProtocolError}, accepted, exitProtocol},
		{"bad content", smpp.SessionOutcome{Kind: smpp.OutcomeSuccess},
			smpp.SubmitResult{Err: &smpp.ConfigError{Field: "content", Reason: "x"}}, exitConfig},
		{"lost", smpp.SessionOutcome{Kind: smpp.OutcomeSuccess},
			smpp.SubmitResult{Err: errors.New("lost")}, exitRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, exitCode(tt.outcome, tt.res))
		})
	}
}

func TestRun_ConfigError(t *testing.T) {
	require := require.New(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"--endpoint", "no-port", "--system-id", "esme01", "--log-level", "error",
		"send-sms", "--dst", "886912345678", "--content", "hi",
	}, &stdout, &stderr)

	require.Equal(exitConfig, code)
	require.Contains(stdout.String(), "config-error")
}

func TestRun_SendWithReceipt(t *testing.T) {
	require := require.New(t)

	srv, err := smsctest.NewServer(
		smsctest.WithLogger(logger.NewMockLogger().AllowAll()),
		smsctest.WithMessageID(func(uint64) string { return "abc123" }),
		smsctest.WithReceipts(),
	)
	require.NoError(err)
	t.Cleanup(func() { _ = srv.Close() })

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"--endpoint", srv.Addr(), "--system-id", "esme01", "--password", "secret",
		"--receipt-wait", "3s", "--log-level", "error",
		"send-sms", "--src", "ACME", "--dst", "886912345678", "--content", "hello",
	}, &stdout, &stderr)

	require.Equal(exitOK, code, stderr.String())
	require.Contains(stdout.String(), "message_id=abc123")
	require.Contains(stdout.String(), "receipt: stat="+pdu.StateDelivered)
	require.Contains(stdout.String(), "session: success")

	require.Len(srv.FramesOf(pdu.SubmitSmID), 1)
	require.Len(srv.FramesOf(pdu.UnbindID), 1)
}

func TestRun_BindRejected(t *testing.T) {
	require := require.New(t)

	srv, err := smsctest.NewServer(
		smsctest.WithLogger(logger.NewMockLogger().AllowAll()),
		smsctest.WithBindStatus(pdu.StatusBindFail),
	)
	require.NoError(err)
	t.Cleanup(func() { _ = srv.Close() })

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"--endpoint", srv.Addr(), "--system-id", "esme01", "--log-level", "error",
		"send-sms", "--dst", "886912345678", "--content", "hello",
	}, &stdout, &stderr)

	require.Equal(exitAuth, code)
	require.Contains(stdout.String(), "authentication-failed")
}

func TestRun_RequestsDeliveryReceipt(t *testing.T) {
	require := require.New(t)

	srv, err := smsctest.NewServer(smsctest.WithLogger(logger.NewMockLogger().AllowAll()))
	require.NoError(err)
	t.Cleanup(func() { _ = srv.Close() })

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"--endpoint", srv.Addr(), "--system-id", "esme01", "--log-level", "error",
		"send-sms", "--dst", "886912345678", "--content", "hello",
	}, &stdout, &stderr)
	require.Equal(exitOK, code, stderr.String())
	require.NotContains(stdout.String(), "receipt:")

	frames := srv.FramesOf(pdu.SubmitSmID)
	require.Len(frames, 1)
	sm, ok := frames[0].Body.(*pdu.SubmitSm)
	require.True(ok)
	require.Equal(pdu.RegisteredDeliveryAll, sm.RegisteredDelivery)
}
