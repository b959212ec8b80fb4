package logging

import (
	"context"
	"log/slog"

	"github.com/rollbar/rollbar-go"
)

var rollbarEnabled bool

// EnableRollbar wraps the global logger so records at error level and above
// are forwarded to Rollbar in addition to the normal output. Call after
// InitLogger.
func EnableRollbar(token, environment, codeVersion string) {
	rollbar.SetToken(token)
	rollbar.SetEnvironment(environment)
	rollbar.SetCodeVersion(codeVersion)
	rollbarEnabled = true

	Logger = slog.New(&rollbarHandler{inner: Logger.Handler()})
	slog.SetDefault(Logger)
}

// Flush blocks until queued Rollbar items are delivered. Safe to call when
// Rollbar was never enabled.
func Flush() {
	if rollbarEnabled {
		rollbar.Wait()
	}
}

type rollbarHandler struct {
	inner slog.Handler
}

func (h *rollbarHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *rollbarHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= slog.LevelError {
		extras := make(map[string]interface{}, record.NumAttrs())
		record.Attrs(func(attr slog.Attr) bool {
			extras[attr.Key] = attr.Value.Any()
			return true
		})
		rollbar.Error(record.Message, extras)
	}
	return h.inner.Handle(ctx, record)
}

func (h *rollbarHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &rollbarHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *rollbarHandler) WithGroup(name string) slog.Handler {
	return &rollbarHandler{inner: h.inner.WithGroup(name)}
}
