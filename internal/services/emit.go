package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockview/internal/events"
)

const publishTimeout = 2 * time.Second

// emit delivers events best-effort. A renderer that misses one catches up
// from the next transcript snapshot, so failures are only logged.
func emit(pub events.Publisher, log *logrus.Logger, evs ...events.Event) {
	if pub == nil {
		return
	}
	for _, ev := range evs {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := pub.Publish(ctx, ev)
		cancel()
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"session_id": ev.SessionID,
				"event":      ev.Type,
				"reason":     ev.Reason,
			}).Warn("publish event")
		}
	}
}

func defaultLogger(l *logrus.Logger) *logrus.Logger {
	if l == nil {
		return logrus.New()
	}
	return l
}
