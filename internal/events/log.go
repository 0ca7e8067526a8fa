// internal/events/log.go
package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher writes events to the application log. Used when no broker is configured.
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, eventType string, payload []byte, key string) error {
	p.logger.WithFields(logrus.Fields{
		"event_type": eventType,
		"key":        key,
		"payload":    string(payload),
	}).Info("Event published")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
