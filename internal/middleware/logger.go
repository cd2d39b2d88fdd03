package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// RequestLogger returns a zap-based request logging middleware.  Server
// errors log at error level, client errors at warn and the rest at info.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
    if logger == nil {
        logger = zap.NewNop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo render the error so the logged status is final
                c.Error(err)
            }

            req := c.Request()
            res := c.Response()
            status := res.Status
            level := zapcore.InfoLevel
            switch {
            case status >= 500:
                level = zapcore.ErrorLevel
            case status >= 400:
                level = zapcore.WarnLevel
            }
            fields := []zap.Field{
                zap.Int("status", status),
                zap.Duration("latency", time.Since(start)),
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("route", c.Path()),
                zap.String("client_ip", c.RealIP()),
                zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
            }
            if id, ok := UserID(c); ok {
                fields = append(fields, zap.Uint64("user_id", id))
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }
            logger.Log(level, "request", fields...)
            return nil
        }
    }
}
