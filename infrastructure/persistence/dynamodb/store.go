// Package dynamodb provides the production GraphStore driver on a single
// DynamoDB table. Every item for one session shares the session's partition
// key, so per-session queries stay on one partition:
//
//	SESSION#<id> / METADATA       session record (GSI1: OWNER#<owner>)
//	SESSION#<id> / NODE#<id>      node record
//	SESSION#<id> / EDGE#<id>      edge record
//	SESSION#<id> / PAIR#<s>-><t>  ordered-pair uniqueness marker
//	SESSION#<id> / ACTIVE_BLITZ   single-active blitz marker
//	SESSION#<id> / LOCK           session mutation lock
//
// Pair and active-blitz markers are written with conditional expressions,
// which makes the uniqueness invariants hold even when two writers race
// past the application-level checks.
package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
	"flowboard/pkg/utils"
)

const (
	skMetadata    = "METADATA"
	skActiveBlitz = "ACTIVE_BLITZ"
)

func sessionPK(id string) string { return "SESSION#" + id }
func nodeSK(id string) string    { return "NODE#" + id }
func edgeSK(id string) string    { return "EDGE#" + id }
func blitzSK(id string) string   { return "BLITZ#" + id }
func pairSK(key string) string   { return "PAIR#" + key }

// Store is the shared client state behind the four repository views
type Store struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewStore creates a store over an existing table. indexName is the GSI
// keyed by GSI1PK/GSI1SK, used for owner-level session queries.
func NewStore(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// sessionItem is the DynamoDB record for a session
type sessionItem struct {
	PK         string                 `dynamodbav:"PK"`
	SK         string                 `dynamodbav:"SK"`
	GSI1PK     string                 `dynamodbav:"GSI1PK"`
	GSI1SK     string                 `dynamodbav:"GSI1SK"`
	EntityType string                 `dynamodbav:"EntityType"`
	SessionID  string                 `dynamodbav:"SessionID"`
	OwnerID    string                 `dynamodbav:"OwnerID"`
	Name       string                 `dynamodbav:"Name"`
	Status     string                 `dynamodbav:"Status"`
	Settings   map[string]interface{} `dynamodbav:"Settings,omitempty"`
	CreatedAt  string                 `dynamodbav:"CreatedAt"`
	UpdatedAt  string                 `dynamodbav:"UpdatedAt"`
}

// Save persists a session record
func (s *Store) Save(ctx context.Context, session *entities.Session) error {
	item := sessionItem{
		PK:         sessionPK(session.ID().String()),
		SK:         skMetadata,
		GSI1PK:     "OWNER#" + session.OwnerID(),
		GSI1SK:     sessionPK(session.ID().String()),
		EntityType: "SESSION",
		SessionID:  session.ID().String(),
		OwnerID:    session.OwnerID(),
		Name:       session.Name(),
		Status:     string(session.Status()),
		Settings:   session.Settings(),
		CreatedAt:  session.CreatedAt().Format(utils.StorageTimeFormat),
		UpdatedAt:  session.UpdatedAt().Format(utils.StorageTimeFormat),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewStorageError("marshal session", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return pkgerrors.NewStorageError("save session", err)
	}
	return nil
}

// GetByID retrieves a session, nil when absent
func (s *Store) GetByID(ctx context.Context, id valueobjects.SessionID) (*entities.Session, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewStorageError("get session", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, pkgerrors.NewStorageError("unmarshal session", err)
	}
	return sessionFromItem(item)
}

// GetByOwnerID retrieves all sessions owned by a user via the owner GSI
func (s *Store) GetByOwnerID(ctx context.Context, ownerID string) ([]*entities.Session, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(s.indexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "OWNER#" + ownerID},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewStorageError("query sessions by owner", err)
	}

	sessions := make([]*entities.Session, 0, len(out.Items))
	for _, raw := range out.Items {
		var item sessionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			s.logger.Warn("Skipping malformed session item", zap.Error(err))
			continue
		}
		session, err := sessionFromItem(item)
		if err != nil {
			s.logger.Warn("Skipping unreconstructable session item",
				zap.String("session_id", item.SessionID), zap.Error(err))
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Delete removes a session and every item in its partition
func (s *Store) Delete(ctx context.Context, id valueobjects.SessionID) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return pkgerrors.ErrSessionNotFound.WithDetail("session_id", id.String())
	}
	return s.deletePartition(ctx, sessionPK(id.String()))
}

// deletePartition queries every item under one partition key and batch
// deletes them in chunks of 25, the BatchWriteItem limit.
func (s *Store) deletePartition(ctx context.Context, pk string) error {
	var lastKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
			ProjectionExpression: aws.String("PK, SK"),
			ExclusiveStartKey:    lastKey,
		})
		if err != nil {
			return pkgerrors.NewStorageError("query partition for delete", err)
		}

		for start := 0; start < len(out.Items); start += 25 {
			end := start + 25
			if end > len(out.Items) {
				end = len(out.Items)
			}
			requests := make([]types.WriteRequest, 0, end-start)
			for _, item := range out.Items[start:end] {
				requests = append(requests, types.WriteRequest{
					DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
						"PK": item["PK"],
						"SK": item["SK"],
					}},
				})
			}
			if _, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{s.tableName: requests},
			}); err != nil {
				return pkgerrors.NewStorageError("batch delete partition", err)
			}
		}

		if out.LastEvaluatedKey == nil {
			return nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

func sessionFromItem(item sessionItem) (*entities.Session, error) {
	id, err := valueobjects.NewSessionIDFromString(item.SessionID)
	if err != nil {
		return nil, err
	}
	createdAt, err := utils.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := utils.ParseTimestamp(item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructSession(
		id, item.OwnerID, item.Name, entities.SessionStatus(item.Status),
		item.Settings, createdAt, updatedAt,
	), nil
}

