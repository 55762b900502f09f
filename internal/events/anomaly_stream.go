package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/iaros/freightquote/internal/logging"
	"github.com/iaros/freightquote/internal/smartshield"
)

// AnomalyStream publishes SmartShield's per-request flag summary to Kafka
// for the out-of-scope analytics/alerting consumers (SPEC_FULL.md §4).
// SmartShield's own behavior — flags reported alongside quotes, never
// filtering them — is unchanged whether or not anything is listening.
type AnomalyStream struct {
	writer *kafka.Writer
	log    *logging.Logger
}

// AnomalyEvent is the payload published for a single calculate request.
type AnomalyEvent struct {
	RequestID    string    `json:"requestId"`
	OwnerID      string    `json:"ownerId,omitempty"`
	OverallScore float64   `json:"overallScore"`
	Errors       int       `json:"errors"`
	Warnings     int       `json:"warnings"`
	CohortFlags  []smartshield.Flag `json:"cohortFlags,omitempty"`
	At           time.Time `json:"at"`
}

// NewAnomalyStream builds a Kafka writer targeting topic across brokers.
func NewAnomalyStream(brokers []string, topic string, log *logging.Logger) *AnomalyStream {
	return &AnomalyStream{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
		},
		log: log,
	}
}

// Publish sends a SmartShield summary for one request. Never blocks the
// quoting response: the writer is async and failures are only logged.
func (s *AnomalyStream) Publish(ctx context.Context, requestID, ownerID string, summary smartshield.Summary) {
	if s == nil {
		return
	}
	event := AnomalyEvent{
		RequestID:    requestID,
		OwnerID:      ownerID,
		OverallScore: summary.OverallScore,
		Errors:       summary.Errors,
		Warnings:     summary.Warnings,
		CohortFlags:  summary.CohortFlags,
		At:           time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Warn("failed to marshal anomaly event")
		return
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(requestID), Value: data}); err != nil {
		s.log.Warn("failed to publish anomaly event")
	}
}

// Close flushes and closes the Kafka writer.
func (s *AnomalyStream) Close() error {
	if s == nil {
		return nil
	}
	return s.writer.Close()
}
