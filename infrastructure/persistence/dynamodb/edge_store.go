package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
	"flowboard/pkg/utils"
)

// EdgeStore returns the edge repository view of the store
func (s *Store) EdgeStore() ports.EdgeRepository { return (*edgeStore)(s) }

type edgeStore Store

// edgeItem is the DynamoDB record for an edge
type edgeItem struct {
	PK         string                 `dynamodbav:"PK"`
	SK         string                 `dynamodbav:"SK"`
	EntityType string                 `dynamodbav:"EntityType"`
	EdgeID     string                 `dynamodbav:"EdgeID"`
	SessionID  string                 `dynamodbav:"SessionID"`
	SourceID   string                 `dynamodbav:"SourceID"`
	TargetID   string                 `dynamodbav:"TargetID"`
	EdgeType   string                 `dynamodbav:"EdgeType"`
	Label      string                 `dynamodbav:"Label,omitempty"`
	Weight     float64                `dynamodbav:"Weight"`
	Metadata   map[string]interface{} `dynamodbav:"Metadata,omitempty"`
	CreatedAt  string                 `dynamodbav:"CreatedAt"`
	UpdatedAt  string                 `dynamodbav:"UpdatedAt"`
}

// pairItem marks an occupied ordered source->target pair. Its conditional
// put is what makes pair uniqueness hold under racing writers.
type pairItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	EdgeID string `dynamodbav:"EdgeID"`
}

// Save writes the edge and its pair marker in one transaction. The marker
// put is conditional on the pair being free or already owned by this edge;
// a lost race surfaces as DuplicateEdge.
func (s *edgeStore) Save(ctx context.Context, edge *entities.Edge) error {
	pk := sessionPK(edge.SessionID().String())
	eid := edge.ID().String()

	item := edgeItem{
		PK:         pk,
		SK:         edgeSK(eid),
		EntityType: "EDGE",
		EdgeID:     eid,
		SessionID:  edge.SessionID().String(),
		SourceID:   edge.SourceID().String(),
		TargetID:   edge.TargetID().String(),
		EdgeType:   string(edge.Type()),
		Label:      edge.Label(),
		Weight:     edge.Weight(),
		Metadata:   edge.Metadata(),
		CreatedAt:  edge.CreatedAt().Format(utils.StorageTimeFormat),
		UpdatedAt:  edge.UpdatedAt().Format(utils.StorageTimeFormat),
	}
	edgeAV, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewStorageError("marshal edge", err)
	}
	pairAV, err := attributevalue.MarshalMap(pairItem{PK: pk, SK: pairSK(edge.PairKey()), EdgeID: eid})
	if err != nil {
		return pkgerrors.NewStorageError("marshal pair marker", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item:      edgeAV,
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                pairAV,
				ConditionExpression: aws.String("attribute_not_exists(PK) OR EdgeID = :eid"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":eid": &types.AttributeValueMemberS{Value: eid},
				},
			}},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return pkgerrors.ErrDuplicateEdge.
						WithDetail("source_id", edge.SourceID().String()).
						WithDetail("target_id", edge.TargetID().String())
				}
			}
		}
		return pkgerrors.NewStorageError("save edge", err)
	}
	return nil
}

func (s *edgeStore) GetByID(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.EdgeID) (*entities.Edge, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID.String())},
			"SK": &types.AttributeValueMemberS{Value: edgeSK(id.String())},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewStorageError("get edge", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item edgeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, pkgerrors.NewStorageError("unmarshal edge", err)
	}
	return edgeFromItem(item)
}

func (s *edgeStore) ListBySession(ctx context.Context, sessionID valueobjects.SessionID, filter ports.EdgeFilter) ([]*entities.Edge, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(sessionPK(sessionID.String()))).
		And(expression.Key("SK").BeginsWith("EDGE#"))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	var filters []expression.ConditionBuilder
	if filter.Type != nil {
		filters = append(filters, expression.Name("EdgeType").Equal(expression.Value(string(*filter.Type))))
	}
	if filter.IncidentNodeID != "" {
		filters = append(filters, expression.Name("SourceID").Equal(expression.Value(filter.IncidentNodeID)).
			Or(expression.Name("TargetID").Equal(expression.Value(filter.IncidentNodeID))))
	}
	if len(filters) > 0 {
		cond := filters[0]
		for _, f := range filters[1:] {
			cond = cond.And(f)
		}
		builder = builder.WithFilter(cond)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, pkgerrors.NewStorageError("build edge query", err)
	}

	var edges []*entities.Edge
	var lastKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, pkgerrors.NewStorageError("query edges", err)
		}

		for _, raw := range out.Items {
			var item edgeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				s.logger.Warn("Skipping malformed edge item", zap.Error(err))
				continue
			}
			edge, err := edgeFromItem(item)
			if err != nil {
				s.logger.Warn("Skipping unreconstructable edge item",
					zap.String("edge_id", item.EdgeID), zap.Error(err))
				continue
			}
			edges = append(edges, edge)
		}

		if out.LastEvaluatedKey == nil {
			return edges, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

func (s *edgeStore) CountBySession(ctx context.Context, sessionID valueobjects.SessionID) (int, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: sessionPK(sessionID.String())},
			":sk": &types.AttributeValueMemberS{Value: "EDGE#"},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, pkgerrors.NewStorageError("count edges", err)
	}
	return int(out.Count), nil
}

// Delete removes the edge and frees its pair marker in one transaction
func (s *edgeStore) Delete(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.EdgeID) error {
	edge, err := s.GetByID(ctx, sessionID, id)
	if err != nil {
		return err
	}
	if edge == nil {
		return pkgerrors.ErrEdgeNotFound.WithDetail("edge_id", id.String())
	}

	pk := sessionPK(sessionID.String())
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: pk},
					"SK": &types.AttributeValueMemberS{Value: edgeSK(id.String())},
				},
			}},
			{Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: pk},
					"SK": &types.AttributeValueMemberS{Value: pairSK(edge.PairKey())},
				},
			}},
		},
	})
	if err != nil {
		return pkgerrors.NewStorageError("delete edge", err)
	}
	return nil
}

func edgeFromItem(item edgeItem) (*entities.Edge, error) {
	id, err := valueobjects.NewEdgeIDFromString(item.EdgeID)
	if err != nil {
		return nil, err
	}
	sessionID, err := valueobjects.NewSessionIDFromString(item.SessionID)
	if err != nil {
		return nil, err
	}
	sourceID, err := valueobjects.NewNodeIDFromString(item.SourceID)
	if err != nil {
		return nil, err
	}
	targetID, err := valueobjects.NewNodeIDFromString(item.TargetID)
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

	return entities.ReconstructEdge(
		id, sessionID, sourceID, targetID, entities.EdgeType(item.EdgeType),
		item.Label, item.Weight, item.Metadata, createdAt, updatedAt,
	), nil
}
