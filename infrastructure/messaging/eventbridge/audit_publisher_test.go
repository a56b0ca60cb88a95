package eventbridge

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowboard/domain/events"
)

func auditEvent(sessionID, targetID string, details map[string]interface{}) events.AuditEvent {
	return events.AuditEvent{
		SessionID:  sessionID,
		Actor:      "user-1",
		Action:     events.ActionUpdate,
		TargetType: events.TargetNode,
		TargetID:   targetID,
		Details:    details,
		Timestamp:  time.Now(),
	}
}

func TestBuildEntriesSkipsUnmarshalableEvents(t *testing.T) {
	p := &AuditPublisher{eventBusName: "audit-bus", logger: zap.NewNop()}

	good := auditEvent("session-1", "node-a", map[string]interface{}{"label": "a"})
	// Channels are not JSON-serializable, so this event cannot be submitted
	bad := auditEvent("session-1", "node-b", map[string]interface{}{"ch": make(chan int)})
	alsoGood := auditEvent("session-2", "node-c", nil)

	entries, submitted := p.buildEntries([]events.AuditEvent{good, bad, alsoGood})

	require.Len(t, entries, 2)
	require.Len(t, submitted, 2)

	// submitted stays index-aligned with entries after the skip
	assert.Equal(t, "node-a", submitted[0].TargetID)
	assert.Equal(t, "node-c", submitted[1].TargetID)
	assert.Equal(t, "arn:aws:flowboard::session-1", entries[0].Resources[0])
	assert.Equal(t, "arn:aws:flowboard::session-2", entries[1].Resources[0])
	assert.Equal(t, good.GetEventType(), aws.ToString(entries[0].DetailType))
	assert.Equal(t, alsoGood.GetEventType(), aws.ToString(entries[1].DetailType))
}

func TestBuildEntriesAllGood(t *testing.T) {
	p := &AuditPublisher{eventBusName: "audit-bus", logger: zap.NewNop()}

	entries, submitted := p.buildEntries([]events.AuditEvent{
		auditEvent("session-1", "node-a", nil),
		auditEvent("session-1", "node-b", nil),
	})

	require.Len(t, entries, 2)
	require.Len(t, submitted, 2)
	for _, entry := range entries {
		assert.Equal(t, "audit-bus", aws.ToString(entry.EventBusName))
	}
}
