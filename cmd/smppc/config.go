package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/arloliu/go-smpp/smpp"
)

// profile is the effective configuration of one invocation.
type profile struct {
	SMSCName      string
	Endpoint      string
	SystemID      string
	Password      string
	SystemType    string
	BindTimeout   time.Duration
	UnbindTimeout time.Duration
	ReceiptWait   time.Duration
	Window        int
	Coding        string
	LogLevel      string
	LogFormat     string
	MetricsAddr   string
}

func defaultProfile() profile {
	return profile{
		SMSCName:      "smsc",
		BindTimeout:   10 * time.Second,
		UnbindTimeout: 5 * time.Second,
		Window:        10,
		Coding:        "ucs2",
		LogLevel:      "info",
		LogFormat:     "slog",
	}
}

// fileConfig mirrors the TOML profile file. Durations are Go duration strings.
type fileConfig struct {
	SMSCName      string `toml:"smsc_name"`
	Endpoint      string `toml:"endpoint"`
	SystemID      string `toml:"system_id"`
	Password      string `toml:"password"`
	SystemType    string `toml:"system_type"`
	BindTimeout   string `toml:"bind_timeout"`
	UnbindTimeout string `toml:"unbind_timeout"`
	ReceiptWait   string `toml:"receipt_wait"`
	Window        int    `toml:"window"`
	Coding        string `toml:"coding"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	MetricsAddr   string `toml:"metrics_addr"`
}

// loadProfile overlays the keys defined in the TOML file at path onto p.
func loadProfile(path string, p *profile) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load profile: unknown key %q", undecoded[0].String())
	}

	strs := []struct {
		key string
		val string
		dst *string
	}{
		{"smsc_name", raw.SMSCName, &p.SMSCName},
		{"endpoint", raw.Endpoint, &p.Endpoint},
		{"system_id", raw.SystemID, &p.SystemID},
		{"password", raw.Password, &p.Password},
		{"system_type", raw.SystemType, &p.SystemType},
		{"coding", raw.Coding, &p.Coding},
		{"log_level", raw.LogLevel, &p.LogLevel},
		{"log_format", raw.LogFormat, &p.LogFormat},
		{"metrics_addr", raw.MetricsAddr, &p.MetricsAddr},
	}
	for _, s := range strs {
		if meta.IsDefined(s.key) {
			*s.dst = strings.TrimSpace(s.val)
		}
	}

	durations := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"bind_timeout", raw.BindTimeout, &p.BindTimeout},
		{"unbind_timeout", raw.UnbindTimeout, &p.UnbindTimeout},
		{"receipt_wait", raw.ReceiptWait, &p.ReceiptWait},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.val))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("window") {
		p.Window = raw.Window
	}

	return nil
}

// invocation is a parsed command line.
type invocation struct {
	profile profile
	message smpp.OutboundMessage
}

var errUsage = errors.New("usage")

const usageText = `usage: smppc [global flags] send-sms --src SRC --dst DST --content TEXT [--coding ucs2|ia5|latin1|auto]

Global flags override the keys of the --config profile file.
`

func newGlobalFlags(p *profile, configPath *string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("smppc", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, usageText)
		fs.PrintDefaults()
	}

	fs.StringVar(configPath, "config", "", "TOML profile file")
	fs.StringVar(&p.SMSCName, "smsc-name", p.SMSCName, "SMSC display name used in logs")
	fs.StringVar(&p.Endpoint, "endpoint", p.Endpoint, "SMSC address, host:port")
	fs.StringVar(&p.SystemID, "system-id", p.SystemID, "ESME system_id")
	fs.StringVar(&p.Password, "password", p.Password, "ESME password")
	fs.StringVar(&p.SystemType, "system-type", p.SystemType, "ESME system_type")
	fs.DurationVar(&p.BindTimeout, "bind-timeout", p.BindTimeout, "bind_transceiver_resp timeout")
	fs.DurationVar(&p.UnbindTimeout, "unbind-timeout", p.UnbindTimeout, "unbind_resp timeout")
	fs.DurationVar(&p.ReceiptWait, "receipt-wait", p.ReceiptWait, "how long to wait for the delivery receipt, 0 to skip")
	fs.IntVar(&p.Window, "window", p.Window, "maximum submit_sm awaiting a response")
	fs.StringVar(&p.LogLevel, "log-level", p.LogLevel, "debug, info, warn or error")
	fs.StringVar(&p.LogFormat, "log-format", p.LogFormat, "slog or zerolog")
	fs.StringVar(&p.MetricsAddr, "metrics-addr", p.MetricsAddr, "serve Prometheus metrics on this address")

	return fs
}

// parseArgs builds the invocation from defaults, the profile file and the flags, in
// increasing precedence.
func parseArgs(args []string, out io.Writer) (*invocation, error) {
	// first pass only locates --config
	var configPath string
	scratch := defaultProfile()
	if err := newGlobalFlags(&scratch, &configPath, io.Discard).Parse(args); err != nil {
		fmt.Fprintln(out, err)
		fmt.Fprint(out, usageText)

		return nil, errUsage
	}

	p := defaultProfile()
	if configPath != "" {
		if err := loadProfile(configPath, &p); err != nil {
			return nil, err
		}
	}

	global := newGlobalFlags(&p, &configPath, out)
	if err := global.Parse(args); err != nil {
		return nil, errUsage
	}

	rest := global.Args()
	if len(rest) == 0 || rest[0] != "send-sms" {
		global.Usage()
		return nil, errUsage
	}

	inv := &invocation{}
	send := flag.NewFlagSet("send-sms", flag.ContinueOnError)
	send.SetOutput(out)
	send.StringVar(&inv.message.Source, "src", "", "source address")
	send.StringVar(&inv.message.Destination, "dst", "", "destination address")
	send.StringVar(&inv.message.Content, "content", "", "message text")
	send.StringVar(&p.Coding, "coding", p.Coding, "ucs2, ia5, latin1 or auto")
	if err := send.Parse(rest[1:]); err != nil {
		return nil, errUsage
	}

	if inv.message.Destination == "" {
		fmt.Fprintln(out, "send-sms: --dst is required")
		return nil, errUsage
	}

	inv.profile = p

	return inv, nil
}
