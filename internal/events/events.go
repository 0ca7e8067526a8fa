// internal/events/events.go
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event types published by the entitlement service.
const (
	TypePaymentCodeIssued  = "payment_code.issued"
	TypeEntitlementCreated = "entitlement.created"
	TypeDownloadGranted    = "download.granted"
	TypeItemPublished      = "item.published"
)

// Publisher delivers an encoded event. Key selects the partition.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, key string) error
	Close() error
}

// Envelope is the wire format of every event.
type Envelope struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Emit wraps data in an Envelope and publishes it. Failures are logged and
// never returned: events are emitted after the state change has committed.
func Emit(ctx context.Context, pub Publisher, eventType, key string, data interface{}) {
	if pub == nil {
		return
	}

	payload, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Error("Failed to encode event")
		return
	}

	if err := pub.Publish(ctx, eventType, payload, key); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event_type": eventType,
			"key":        key,
		}).Warn("Failed to publish event")
	}
}
