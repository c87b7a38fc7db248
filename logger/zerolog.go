package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	logger zerolog.Logger
	level  *atomic.Int32
	output io.Writer
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerolog creates a zerolog backed logger writing to w.
// When pretty is true entries are rendered by zerolog.ConsoleWriter with RFC3339 timestamps.
func NewZerolog(w io.Writer, level Level, pretty bool) *ZerologLogger {
	if w == nil {
		w = os.Stdout
	}

	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	inst := &ZerologLogger{
		logger: zerolog.New(out).With().Timestamp().Logger(),
		level:  &atomic.Int32{},
		output: w,
	}
	inst.level.Store(int32(level))

	return inst
}

func (l *ZerologLogger) Debug(msg string, keysAndValues ...any) {
	l.emit(DebugLevel, msg, keysAndValues)
}

func (l *ZerologLogger) Info(msg string, keysAndValues ...any) {
	l.emit(InfoLevel, msg, keysAndValues)
}

func (l *ZerologLogger) Warn(msg string, keysAndValues ...any) {
	l.emit(WarnLevel, msg, keysAndValues)
}

func (l *ZerologLogger) Error(msg string, keysAndValues ...any) {
	l.emit(ErrorLevel, msg, keysAndValues)
}

func (l *ZerologLogger) Fatal(msg string, keysAndValues ...any) {
	l.emit(FatalLevel, msg, keysAndValues)
	_ = l.Flush()
	os.Exit(1)
}

func (l *ZerologLogger) With(keyValues ...any) Logger {
	return &ZerologLogger{
		logger: l.logger.With().Fields(pairsToFields(keyValues)).Logger(),
		level:  l.level,
		output: l.output,
	}
}

func (l *ZerologLogger) Level() Level {
	return Level(l.level.Load())
}

func (l *ZerologLogger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// Flush syncs the underlying writer when it is backed by a file.
func (l *ZerologLogger) Flush() error {
	return syncWriter(l.output)
}

func (l *ZerologLogger) emit(level Level, msg string, keysAndValues []any) {
	if level < l.Level() && level != FatalLevel {
		return
	}

	var ev *zerolog.Event
	switch level {
	case DebugLevel:
		ev = l.logger.Debug()
	case InfoLevel:
		ev = l.logger.Info()
	case WarnLevel:
		ev = l.logger.Warn()
	default:
		// zerolog's Fatal exits on Msg; the exit is handled by Fatal above
		ev = l.logger.Error()
	}

	ev.Fields(pairsToFields(keysAndValues)).Msg(msg)
}

// fieldValue resolves slog.LogValuer values so both backends render them alike.
func fieldValue(v any) any {
	lv, ok := v.(slog.LogValuer)
	if !ok {
		return v
	}

	return lv.LogValue().Resolve().Any()
}

// pairsToFields converts alternating key/value arguments into a field map.
// A trailing key without value is kept under "!BADKEY", matching log/slog.
func pairsToFields(kv []any) map[string]any {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			fields["!BADKEY"] = kv[i]
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = fieldValue(kv[i+1])
	}

	return fields
}
