package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
	"flowboard/pkg/utils"
)

const (
	skLock           = "LOCK"
	lockDuration     = 30 * time.Second
	lockAcquireLimit = 5 * time.Second
)

// SessionLock serializes mutations of one session across processes using
// conditional writes on a per-session lock item. The item carries a TTL so
// a crashed holder cannot wedge the session.
type SessionLock struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSessionLock creates a session lock over the store's table
func NewSessionLock(client *dynamodb.Client, tableName string, logger *zap.Logger) *SessionLock {
	return &SessionLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// WithSessionLock runs fn while holding the session's lock, retrying
// acquisition with backoff until the acquire limit elapses.
func (l *SessionLock) WithSessionLock(ctx context.Context, sessionID valueobjects.SessionID, fn func(ctx context.Context) error) error {
	lockID := uuid.NewString()
	pk := sessionPK(sessionID.String())

	deadline := time.Now().Add(lockAcquireLimit)
	retryInterval := 50 * time.Millisecond
	for {
		acquired, err := l.tryAcquire(ctx, pk, lockID)
		if err != nil {
			return err
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			return pkgerrors.ErrSessionLockTimeout.WithDetail("session_id", sessionID.String())
		}

		select {
		case <-ctx.Done():
			return pkgerrors.ErrSessionLockTimeout.WithCause(ctx.Err())
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
	defer l.release(pk, lockID, sessionID.String())

	return fn(ctx)
}

func (l *SessionLock) tryAcquire(ctx context.Context, pk, lockID string) (bool, error) {
	now := time.Now()
	expiresAt := now.Add(lockDuration)

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"PK":         &types.AttributeValueMemberS{Value: pk},
			"SK":         &types.AttributeValueMemberS{Value: skLock},
			"LockID":     &types.AttributeValueMemberS{Value: lockID},
			"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(utils.StorageTimeFormat)},
			"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(utils.StorageTimeFormat)},
			"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(utils.StorageTimeFormat)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		return false, pkgerrors.NewStorageError("acquire session lock", err)
	}
	return true, nil
}

// release deletes the lock item if this holder still owns it. Runs on a
// background context so a canceled request still frees the lock.
func (l *SessionLock) release(pk, lockID, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: skLock},
		},
		ConditionExpression: aws.String("LockID = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			// Lock expired and was taken over; nothing to release
			return
		}
		l.logger.Warn("Failed to release session lock",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}
