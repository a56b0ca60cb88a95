// Package eventbridge publishes audit events to an AWS EventBridge bus.
// Downstream consumers (activity feeds, compliance sinks) subscribe via
// EventBridge rules managed outside this service.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/events"
)

const eventSource = "flowboard.api"

// AuditPublisher implements ports.AuditPublisher on EventBridge
type AuditPublisher struct {
	client       *eventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

// NewAuditPublisher creates an EventBridge-backed audit publisher
func NewAuditPublisher(client *eventbridge.Client, eventBusName string, logger *zap.Logger) ports.AuditPublisher {
	return &AuditPublisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

// Publish sends a single audit event
func (p *AuditPublisher) Publish(ctx context.Context, event events.AuditEvent) error {
	return p.PublishBatch(ctx, []events.AuditEvent{event})
}

// PublishBatch sends audit events in chunks of 10, the PutEvents limit
func (p *AuditPublisher) PublishBatch(ctx context.Context, batch []events.AuditEvent) error {
	const batchSize = 10

	for i := 0; i < len(batch); i += batchSize {
		end := i + batchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := p.putEvents(ctx, batch[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// buildEntries marshals a batch into PutEvents entries. It also returns the
// events that produced them, index-aligned with the entries, since a marshal
// failure skips an event and shifts every later index.
func (p *AuditPublisher) buildEntries(batch []events.AuditEvent) ([]types.PutEventsRequestEntry, []events.AuditEvent) {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	submitted := make([]events.AuditEvent, 0, len(batch))
	for _, event := range batch {
		detail, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal audit event",
				zap.Error(err),
				zap.String("event_type", event.GetEventType()),
			)
			continue
		}

		submitted = append(submitted, event)
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources: []string{
				fmt.Sprintf("arn:aws:flowboard::%s", event.GetSessionID()),
			},
		})
	}
	return entries, submitted
}

func (p *AuditPublisher) putEvents(ctx context.Context, batch []events.AuditEvent) error {
	entries, submitted := p.buildEntries(batch)
	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish audit events: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("Audit event rejected by EventBridge",
					zap.String("event_type", submitted[i].GetEventType()),
					zap.String("error_code", *entry.ErrorCode),
					zap.String("error_message", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d audit events failed to publish", result.FailedEntryCount)
	}

	p.logger.Debug("Audit events published",
		zap.Int("count", len(entries)),
		zap.String("event_bus", p.eventBusName),
	)
	return nil
}
