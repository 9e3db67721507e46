package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/vozsegura-api/pkg/config"
	"github.com/noah-isme/vozsegura-api/pkg/middleware/requestid"
)

const serviceName = "vozsegura-api"

// New builds the process logger. Production keeps zap's sampling; an
// unknown LOG_LEVEL is an error rather than a silent fallback.
func New(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	}

	zapCfg.Encoding = "json"
	if cfg.Log.Format == "console" {
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if cfg.Log.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Log.Level, err)
		}
		zapCfg.Level = level
	}
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	return zapCfg.Build(zap.Fields(
		zap.String("service", serviceName),
		zap.String("env", cfg.Env),
	))
}

// GinMiddleware writes one access log line per request. It logs the route
// template rather than the raw path so report codes and download tokens stay
// out of the logs. For the "METHOD /template" keys in private the client IP
// is omitted too.
func GinMiddleware(l *zap.Logger, private ...string) gin.HandlerFunc {
	hidden := make(map[string]struct{}, len(private))
	for _, key := range private {
		hidden[key] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
		}
		if _, ok := hidden[c.Request.Method+" "+route]; !ok {
			fields = append(fields, zap.String("ip", c.ClientIP()))
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= 500:
			l.Error("request", fields...)
		case status >= 400 || len(c.Errors) > 0:
			l.Warn("request", fields...)
		default:
			l.Debug("request", fields...)
		}
	}
}
