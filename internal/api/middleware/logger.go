package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const slogLoggerKey = "slogLogger"

// SlogLoggerMiddleware 为每个请求派生带关联 ID 与客户端地址的
// slog.Logger 放入上下文，处理器经 LoggerFromContext 取用；
// 请求结束时记录状态与耗时，处理器积累的 gin 错误以 Error 级落日志。
func SlogLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		requestLogger := logger.With(
			slog.String("correlation_id", GetCorrelationID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("client_ip", c.ClientIP()),
		)
		c.Set(slogLoggerKey, requestLogger)

		start := time.Now()
		c.Next()

		completed := requestLogger.With(
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
		if len(c.Errors) > 0 {
			completed.Error("request completed with errors",
				slog.String("errors", c.Errors.String()))
			return
		}
		completed.Info("request completed")
	}
}

// LoggerFromContext 返回上下文中的 slog.Logger。
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if value, ok := c.Get(slogLoggerKey); ok {
		if logger, ok := value.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}
