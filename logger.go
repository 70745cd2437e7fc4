package mongostore

import "github.com/rs/zerolog"

// Logger is the narrow logging surface the store components depend on.
// Supplying one is optional; a no-op implementation is used by default.
type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}

// NopLogger discards everything logged through it.
var NopLogger Logger = nopLogger{}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger wraps l.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{l: l}
}

func (z *ZerologLogger) Info(msg string, kv ...any) {
	applyFields(z.l.Info(), kv).Msg(msg)
}

func (z *ZerologLogger) Warn(msg string, kv ...any) {
	applyFields(z.l.Warn(), kv).Msg(msg)
}

// applyFields attaches alternating key/value pairs to a zerolog event. An
// odd trailing key with no value is logged as-is under "extra".
func applyFields(ev *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	if len(kv)%2 == 1 {
		ev = ev.Interface("extra", kv[len(kv)-1])
	}
	return ev
}
