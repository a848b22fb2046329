package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/kanal-dev/kanal/pkg/api"
)

// Logging returns middleware that emits structured log entries for each
// request. The log entry includes the model, caller, streaming mode,
// duration, request ID (from context), and whether routing succeeded.
//
// The HTTP method and path are not available at the CompletionHandler
// level; status-code level logging lives in the HTTP adapter.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next CompletionHandler) CompletionHandler {
		return CompletionHandlerFunc(func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
			start := time.Now()

			err := next.HandleCompletion(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("caller", CallerIDFromContext(ctx)),
				slog.String("model", req.Model),
				slog.Bool("stream", req.Stream),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "completion failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "completion served", attrs...)
			}

			return err
		})
	}
}
