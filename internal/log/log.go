package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/lo"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type contextKey struct{}

var discardLogger = New(io.Discard, EnvProd)

// New builds the service logger. Local and dev environments get human readable
// debug output; prod gets JSON without timestamps, which the log collector adds.
func New(w io.Writer, env string) *slog.Logger {
	if env == EnvLocal || env == EnvDev {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return lo.Ternary(a.Key == slog.TimeKey, slog.Attr{}, a)
		},
	}))
}

func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

func FromContextOrDiscard(ctx context.Context) *slog.Logger {
	if v, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return v
	}
	return discardLogger
}

func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Secret keeps only the first five characters of a credential.
func Secret(key, value string) slog.Attr {
	masked := "***"
	switch {
	case value == "":
		masked = "?"
	case len(value) > 5:
		masked = fmt.Sprintf("%s***", value[:5])
	}
	return slog.String(key, masked)
}
