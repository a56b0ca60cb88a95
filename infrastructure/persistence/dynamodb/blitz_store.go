package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
	"flowboard/pkg/utils"
)

// BlitzStore returns the blitz repository view of the store
func (s *Store) BlitzStore() ports.BlitzRepository { return (*blitzStore)(s) }

type blitzStore Store

// blitzItem is the DynamoDB record for a blitz
type blitzItem struct {
	PK            string                 `dynamodbav:"PK"`
	SK            string                 `dynamodbav:"SK"`
	EntityType    string                 `dynamodbav:"EntityType"`
	BlitzID       string                 `dynamodbav:"BlitzID"`
	SessionID     string                 `dynamodbav:"SessionID"`
	Title         string                 `dynamodbav:"Title"`
	Status        string                 `dynamodbav:"Status"`
	MemberNodeIDs []string               `dynamodbav:"MemberNodeIDs,omitempty"`
	StartedAt     string                 `dynamodbav:"StartedAt,omitempty"`
	CompletedAt   string                 `dynamodbav:"CompletedAt,omitempty"`
	TimeLimitSecs int64                  `dynamodbav:"TimeLimitSecs,omitempty"`
	Results       map[string]interface{} `dynamodbav:"Results,omitempty"`
	CreatedAt     string                 `dynamodbav:"CreatedAt"`
	UpdatedAt     string                 `dynamodbav:"UpdatedAt"`
}

// activeMarker holds the session's single active slot. Activation puts it
// conditionally; the losing writer of a race gets BlitzAlreadyActive.
type activeMarker struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	BlitzID string `dynamodbav:"BlitzID"`
}

func (s *blitzStore) Save(ctx context.Context, blitz *entities.Blitz) error {
	pk := sessionPK(blitz.SessionID().String())
	bid := blitz.ID().String()

	memberIDs := make([]string, 0, len(blitz.MemberNodeIDs()))
	for _, id := range blitz.MemberNodeIDs() {
		memberIDs = append(memberIDs, id.String())
	}
	var timeLimitSecs int64
	if blitz.TimeLimit() != nil {
		timeLimitSecs = int64(blitz.TimeLimit().Seconds())
	}

	item := blitzItem{
		PK:            pk,
		SK:            blitzSK(bid),
		EntityType:    "BLITZ",
		BlitzID:       bid,
		SessionID:     blitz.SessionID().String(),
		Title:         blitz.Title(),
		Status:        string(blitz.Status()),
		MemberNodeIDs: memberIDs,
		StartedAt:     utils.FormatOptionalTimestamp(blitz.StartedAt()),
		CompletedAt:   utils.FormatOptionalTimestamp(blitz.CompletedAt()),
		TimeLimitSecs: timeLimitSecs,
		Results:       blitz.Results(),
		CreatedAt:     blitz.CreatedAt().Format(utils.StorageTimeFormat),
		UpdatedAt:     blitz.UpdatedAt().Format(utils.StorageTimeFormat),
	}
	blitzAV, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewStorageError("marshal blitz", err)
	}

	if blitz.IsActive() {
		markerAV, err := attributevalue.MarshalMap(activeMarker{PK: pk, SK: skActiveBlitz, BlitzID: bid})
		if err != nil {
			return pkgerrors.NewStorageError("marshal active marker", err)
		}

		_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Put: &types.Put{
					TableName: aws.String(s.tableName),
					Item:      blitzAV,
				}},
				{Put: &types.Put{
					TableName:           aws.String(s.tableName),
					Item:                markerAV,
					ConditionExpression: aws.String("attribute_not_exists(PK) OR BlitzID = :bid"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":bid": &types.AttributeValueMemberS{Value: bid},
					},
				}},
			},
		})
		if err != nil {
			var canceled *types.TransactionCanceledException
			if errors.As(err, &canceled) {
				for _, reason := range canceled.CancellationReasons {
					if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
						holder := s.activeMarkerHolder(ctx, pk)
						return pkgerrors.ErrBlitzAlreadyActive.WithDetail("active_blitz_id", holder)
					}
				}
			}
			return pkgerrors.NewStorageError("save blitz", err)
		}
		return nil
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      blitzAV,
	}); err != nil {
		return pkgerrors.NewStorageError("save blitz", err)
	}

	// A blitz leaving active frees the slot. The condition keeps a marker
	// owned by another blitz intact.
	s.releaseActiveMarker(ctx, pk, bid)
	return nil
}

func (s *blitzStore) releaseActiveMarker(ctx context.Context, pk, bid string) {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: skActiveBlitz},
		},
		ConditionExpression: aws.String("BlitzID = :bid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":bid": &types.AttributeValueMemberS{Value: bid},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if !errors.As(err, &conditionFailed) {
			s.logger.Warn("Failed to release active blitz marker",
				zap.String("blitz_id", bid), zap.Error(err))
		}
	}
}

func (s *blitzStore) activeMarkerHolder(ctx context.Context, pk string) string {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: skActiveBlitz},
		},
	})
	if err != nil || out.Item == nil {
		return ""
	}
	var marker activeMarker
	if err := attributevalue.UnmarshalMap(out.Item, &marker); err != nil {
		return ""
	}
	return marker.BlitzID
}

func (s *blitzStore) GetByID(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.BlitzID) (*entities.Blitz, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID.String())},
			"SK": &types.AttributeValueMemberS{Value: blitzSK(id.String())},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewStorageError("get blitz", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item blitzItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, pkgerrors.NewStorageError("unmarshal blitz", err)
	}
	return blitzFromItem(item)
}

func (s *blitzStore) ListBySession(ctx context.Context, sessionID valueobjects.SessionID) ([]*entities.Blitz, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: sessionPK(sessionID.String())},
			":sk": &types.AttributeValueMemberS{Value: "BLITZ#"},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewStorageError("query blitzes", err)
	}

	blitzes := make([]*entities.Blitz, 0, len(out.Items))
	for _, raw := range out.Items {
		var item blitzItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			s.logger.Warn("Skipping malformed blitz item", zap.Error(err))
			continue
		}
		blitz, err := blitzFromItem(item)
		if err != nil {
			s.logger.Warn("Skipping unreconstructable blitz item",
				zap.String("blitz_id", item.BlitzID), zap.Error(err))
			continue
		}
		blitzes = append(blitzes, blitz)
	}
	return blitzes, nil
}

// GetActive resolves the marker to its blitz. A marker pointing at a blitz
// that is no longer active is stale and reads as no active blitz.
func (s *blitzStore) GetActive(ctx context.Context, sessionID valueobjects.SessionID) (*entities.Blitz, error) {
	holder := s.activeMarkerHolder(ctx, sessionPK(sessionID.String()))
	if holder == "" {
		return nil, nil
	}
	blitzID, err := valueobjects.NewBlitzIDFromString(holder)
	if err != nil {
		return nil, pkgerrors.NewStorageError("parse active marker", err)
	}
	blitz, err := s.GetByID(ctx, sessionID, blitzID)
	if err != nil {
		return nil, err
	}
	if blitz == nil || !blitz.IsActive() {
		return nil, nil
	}
	return blitz, nil
}

func (s *blitzStore) Delete(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.BlitzID) error {
	existing, err := s.GetByID(ctx, sessionID, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return pkgerrors.ErrBlitzNotFound.WithDetail("blitz_id", id.String())
	}

	pk := sessionPK(sessionID.String())
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: blitzSK(id.String())},
		},
	}); err != nil {
		return pkgerrors.NewStorageError("delete blitz", err)
	}

	if existing.IsActive() {
		s.releaseActiveMarker(ctx, pk, id.String())
	}
	return nil
}

func blitzFromItem(item blitzItem) (*entities.Blitz, error) {
	id, err := valueobjects.NewBlitzIDFromString(item.BlitzID)
	if err != nil {
		return nil, err
	}
	sessionID, err := valueobjects.NewSessionIDFromString(item.SessionID)
	if err != nil {
		return nil, err
	}
	memberIDs := make([]valueobjects.NodeID, 0, len(item.MemberNodeIDs))
	for _, raw := range item.MemberNodeIDs {
		nodeID, err := valueobjects.NewNodeIDFromString(raw)
		if err != nil {
			return nil, err
		}
		memberIDs = append(memberIDs, nodeID)
	}
	startedAt, err := utils.ParseOptionalTimestamp(item.StartedAt)
	if err != nil {
		return nil, err
	}
	completedAt, err := utils.ParseOptionalTimestamp(item.CompletedAt)
	if err != nil {
		return nil, err
	}
	var timeLimit *time.Duration
	if item.TimeLimitSecs > 0 {
		d := time.Duration(item.TimeLimitSecs) * time.Second
		timeLimit = &d
	}
	createdAt, err := utils.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := utils.ParseTimestamp(item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return entities.ReconstructBlitz(
		id, sessionID, item.Title, entities.BlitzStatus(item.Status), memberIDs,
		startedAt, completedAt, timeLimit, item.Results, createdAt, updatedAt,
	), nil
}
