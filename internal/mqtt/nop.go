package mqtt

import (
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/combo-lock/internal/lock"
)

// NopPublisher logs and discards events. It is used when no broker is configured.
type NopPublisher struct{}

// Publish discards the lock event.
func (NopPublisher) Publish(event lock.Event) error {
	log.WithField("event", event.Type).Debug("mqtt disabled, not publishing")
	return nil
}

// PublishSystem discards the system event.
func (NopPublisher) PublishSystem(event SystemEvent) error {
	log.WithField("event", event.Event).Debug("mqtt disabled, not publishing")
	return nil
}

// Close does nothing.
func (NopPublisher) Close() error { return nil }

// IsConnected always reports false.
func (NopPublisher) IsConnected() bool { return false }
