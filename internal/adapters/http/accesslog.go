package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/routegate/internal/pkg/logging"
)

// stageLocal is the fiber.Ctx local holding the pipeline stage of a failed request.
const stageLocal = "pipeline_stage"

// AccessLogMiddleware writes one structured line per request. Failed route
// requests carry the pipeline stage that produced the error.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		method, path := c.Method(), c.Path()

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if stage, ok := c.Locals(stageLocal).(string); ok && stage != "" {
			attrs = append(attrs, slog.String("stage", stage))
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		// The request-scoped logger already carries request_id.
		logging.FromContext(c.UserContext()).LogAttrs(c.UserContext(), level, method+" "+path, attrs...)
		return err
	}
}
