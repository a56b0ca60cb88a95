// Package messaging holds bus-independent audit delivery helpers.
package messaging

import (
	"context"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/events"
)

// LogPublisher writes audit events to the application log. It stands in
// for EventBridge in development and tests, where no bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a log-backed audit publisher
func NewLogPublisher(logger *zap.Logger) ports.AuditPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs a single audit event
func (p *LogPublisher) Publish(ctx context.Context, event events.AuditEvent) error {
	p.logger.Info("audit",
		zap.String("event_type", event.GetEventType()),
		zap.String("session_id", event.GetSessionID()),
		zap.String("actor", event.Actor),
		zap.String("target_id", event.TargetID),
		zap.Any("details", event.Details),
	)
	return nil
}

// PublishBatch logs each event in the batch
func (p *LogPublisher) PublishBatch(ctx context.Context, batch []events.AuditEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
