package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/decorchat/server/internal/observability"
)

// RequestContext attaches an observability.RequestContext to every request,
// echoes its id in X-Request-Id and logs the outcome.
func RequestContext(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqCtx := observability.NewRequestContextWithID(logger, req.Header.Get(echo.HeaderXRequestID), c.Path())
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))
			c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			reqCtx.Info("request completed",
				slog.String("method", req.Method),
				slog.Int(observability.LogFieldStatus, c.Response().Status),
				slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
			)
			return nil
		}
	}
}
