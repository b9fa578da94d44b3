package middleware

import (
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs every request through zap; health and metrics probes are skipped.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/healthz" || p == "/metrics"
		},
		HandleError:  true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("remote_ip", v.RemoteIP),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}

			switch {
			case v.Error != nil:
				log.Error("request failed", append(fields, zap.Error(v.Error))...)
			case v.Status >= 500:
				log.Error("server error", fields...)
			case v.Status >= 400:
				log.Warn("client error", fields...)
			default:
				log.Info("request completed", fields...)
			}
			return nil
		},
	})
}
