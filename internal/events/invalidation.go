// Package events carries the two broadcast channels the quoting engine
// needs in a multi-instance deployment: cache invalidation (NATS) and the
// SmartShield anomaly stream (Kafka). Neither gates the hot path — publish
// failures are logged and swallowed (SPEC_FULL.md §4).
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/iaros/freightquote/internal/logging"
)

// InvalidationBus broadcasts "flush your ResultCache" notifications so
// every process in a multi-instance deployment observes a carrier
// verification/approval flip, not just the process that made the change
// (spec.md §4.8/§9 "invalidated globally"; SPEC_FULL.md §4).
type InvalidationBus struct {
	conn    *nats.Conn
	subject string
	log     *logging.Logger
}

// InvalidationMessage is the payload published on a cache-flush event.
type InvalidationMessage struct {
	Reason    string    `json:"reason"` // "verification_flip" | "approval_flip" | "catalog_reload" | "scheduled_reload"
	CarrierID string    `json:"carrierId,omitempty"`
	At        time.Time `json:"at"`
}

// NewInvalidationBus connects to NATS at url. A nil return with no error
// is not possible; callers that want invalidation disabled should simply
// not construct a bus and treat PublishInvalidation as a no-op via a nil
// receiver.
func NewInvalidationBus(url, subject string, log *logging.Logger) (*InvalidationBus, error) {
	conn, err := nats.Connect(url, nats.MaxReconnects(-1), nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, err
	}
	return &InvalidationBus{conn: conn, subject: subject, log: log}, nil
}

// PublishInvalidation broadcasts a cache-flush notification. Failures are
// logged, never returned, so an administrative mutation never fails
// because the message bus is briefly unavailable.
func (b *InvalidationBus) PublishInvalidation(reason, carrierID string) {
	if b == nil {
		return
	}
	msg := InvalidationMessage{Reason: reason, CarrierID: carrierID, At: time.Now()}
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Warn("failed to marshal invalidation message")
		return
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		b.log.Warn("failed to publish invalidation message")
	}
}

// Subscribe registers handler to run for every InvalidationMessage
// received on the bus's subject, returning an unsubscribe function.
func (b *InvalidationBus) Subscribe(handler func(InvalidationMessage)) (func(), error) {
	sub, err := b.conn.Subscribe(b.subject, func(m *nats.Msg) {
		var msg InvalidationMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			return
		}
		handler(msg)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close closes the underlying NATS connection without draining it.
func (b *InvalidationBus) Close() {
	if b == nil {
		return
	}
	b.conn.Close()
}
