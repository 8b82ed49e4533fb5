package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/synapse/domain"
	"github.com/satriahrh/synapse/utils/log"
)

// RequestID tags every request with an id, reusing the caller's
// X-Request-ID when present.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		c.SetRequest(c.Request().WithContext(log.WithRequestID(c.Request().Context(), id)))
		return next(c)
	}
}

func RequestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().Status),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_ip", c.RealIP()),
		}
		if uid := currentUser(c); uid != 0 {
			fields = append(fields, zap.Int64("user_id", uid))
		}
		log.WithCtx(req.Context()).Info("request", fields...)
		return nil
	}
}

// ErrorHandler renders every failure as {"detail": ...}. Domain errors map
// to their status; anything else is a 500 with a generic message.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status int
		detail string
		he     *echo.HTTPError
	)
	if errors.As(err, &he) {
		status = he.Code
		detail = fmt.Sprint(he.Message)
	} else {
		status = domain.StatusCode(err)
		detail = domain.PublicMessage(err)
	}

	logger := log.WithCtx(c.Request().Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err), zap.Int("status", status), zap.String("kind", string(domain.KindOf(err))))
	} else {
		logger.Debug("request rejected", zap.Error(err), zap.Int("status", status))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, map[string]string{"detail": detail})
	}
	if err != nil {
		logger.Error("writing error response", zap.Error(err))
	}
}
