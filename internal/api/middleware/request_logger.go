package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockview/internal/utils"
)

// RequestLogger writes one access line per request. Requests against a
// session carry its id; a failed request carries the code and op of the last
// error the handler recorded with c.Error.
func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-Id", reqID)
		c.Set("request_id", reqID)

		// the socket outlives the handshake; its line is written when it closes
		upgrade := c.IsWebsocket()

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if id := c.Param("session_id"); id != "" {
			fields["session_id"] = id
		}
		if upgrade {
			fields["websocket"] = true
		}

		if last := c.Errors.Last(); last != nil {
			fields["code"] = utils.CodeOf(last.Err)
			fields["op"] = opOf(last.Err)
			fields["errors"] = c.Errors.String()
		}

		entry := l.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

func opOf(err error) string {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return ae.Op
	}
	return ""
}
