package dynamodb

import (
	"context"
	"errors"
	"strconv"

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

// NodeStore returns the node repository view of the store
func (s *Store) NodeStore() ports.NodeRepository { return (*nodeStore)(s) }

type nodeStore Store

// nodeItem is the DynamoDB record for a node
type nodeItem struct {
	PK          string                 `dynamodbav:"PK"`
	SK          string                 `dynamodbav:"SK"`
	EntityType  string                 `dynamodbav:"EntityType"`
	NodeID      string                 `dynamodbav:"NodeID"`
	SessionID   string                 `dynamodbav:"SessionID"`
	NodeType    string                 `dynamodbav:"NodeType"`
	Label       string                 `dynamodbav:"Label"`
	Description string                 `dynamodbav:"Description,omitempty"`
	Status      string                 `dynamodbav:"Status"`
	Priority    int                    `dynamodbav:"Priority"`
	PositionX   float64                `dynamodbav:"PositionX"`
	PositionY   float64                `dynamodbav:"PositionY"`
	Metadata    map[string]interface{} `dynamodbav:"Metadata,omitempty"`
	DueDate     string                 `dynamodbav:"DueDate,omitempty"`
	CompletedAt string                 `dynamodbav:"CompletedAt,omitempty"`
	CreatedAt   string                 `dynamodbav:"CreatedAt"`
	UpdatedAt   string                 `dynamodbav:"UpdatedAt"`
	Version     int                    `dynamodbav:"Version"`
}

func (s *nodeStore) Save(ctx context.Context, node *entities.Node) error {
	item := nodeItem{
		PK:          sessionPK(node.SessionID().String()),
		SK:          nodeSK(node.ID().String()),
		EntityType:  "NODE",
		NodeID:      node.ID().String(),
		SessionID:   node.SessionID().String(),
		NodeType:    string(node.Type()),
		Label:       node.Label(),
		Description: node.Description(),
		Status:      string(node.Status()),
		Priority:    node.Priority(),
		PositionX:   node.Position().X,
		PositionY:   node.Position().Y,
		Metadata:    node.Metadata(),
		DueDate:     utils.FormatOptionalTimestamp(node.DueDate()),
		CompletedAt: utils.FormatOptionalTimestamp(node.CompletedAt()),
		CreatedAt:   node.CreatedAt().Format(utils.StorageTimeFormat),
		UpdatedAt:   node.UpdatedAt().Format(utils.StorageTimeFormat),
		Version:     node.Version(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewStorageError("marshal node", err)
	}

	// Optimistic guard: the write only lands if it carries a newer version
	// than the stored item, so a writer holding a stale copy loses the race
	// instead of silently overwriting
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR Version < :version"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":version": &types.AttributeValueMemberN{Value: strconv.Itoa(node.Version())},
		},
	}); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return pkgerrors.ErrConcurrentModification.
				WithDetail("node_id", node.ID().String())
		}
		return pkgerrors.NewStorageError("save node", err)
	}
	return nil
}

func (s *nodeStore) GetByID(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.NodeID) (*entities.Node, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID.String())},
			"SK": &types.AttributeValueMemberS{Value: nodeSK(id.String())},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewStorageError("get node", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item nodeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, pkgerrors.NewStorageError("unmarshal node", err)
	}
	return nodeFromItem(item)
}

func (s *nodeStore) ListBySession(ctx context.Context, sessionID valueobjects.SessionID, filter ports.NodeFilter) ([]*entities.Node, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(sessionPK(sessionID.String()))).
		And(expression.Key("SK").BeginsWith("NODE#"))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	var filters []expression.ConditionBuilder
	if filter.Type != nil {
		filters = append(filters, expression.Name("NodeType").Equal(expression.Value(string(*filter.Type))))
	}
	if filter.Status != nil {
		filters = append(filters, expression.Name("Status").Equal(expression.Value(string(*filter.Status))))
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
		return nil, pkgerrors.NewStorageError("build node query", err)
	}

	var nodes []*entities.Node
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
			return nil, pkgerrors.NewStorageError("query nodes", err)
		}

		for _, raw := range out.Items {
			var item nodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				s.logger.Warn("Skipping malformed node item", zap.Error(err))
				continue
			}
			node, err := nodeFromItem(item)
			if err != nil {
				s.logger.Warn("Skipping unreconstructable node item",
					zap.String("node_id", item.NodeID), zap.Error(err))
				continue
			}
			nodes = append(nodes, node)
		}

		if out.LastEvaluatedKey == nil {
			return nodes, nil
		}
		lastKey = out.LastEvaluatedKey
	}
}

func (s *nodeStore) CountBySession(ctx context.Context, sessionID valueobjects.SessionID) (int, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: sessionPK(sessionID.String())},
			":sk": &types.AttributeValueMemberS{Value: "NODE#"},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, pkgerrors.NewStorageError("count nodes", err)
	}
	return int(out.Count), nil
}

// Delete removes a node and cascades to its incident edges and their pair
// markers, so no dangling edge survives the node.
func (s *nodeStore) Delete(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.NodeID) error {
	existing, err := s.GetByID(ctx, sessionID, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return pkgerrors.ErrNodeNotFound.WithDetail("node_id", id.String())
	}

	incident, err := (*edgeStore)(s).ListBySession(ctx, sessionID, ports.EdgeFilter{IncidentNodeID: id.String()})
	if err != nil {
		return err
	}

	pk := sessionPK(sessionID.String())
	requests := []types.WriteRequest{{
		DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: nodeSK(id.String())},
		}},
	}}
	for _, edge := range incident {
		requests = append(requests,
			types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: pk},
				"SK": &types.AttributeValueMemberS{Value: edgeSK(edge.ID().String())},
			}}},
			types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: pk},
				"SK": &types.AttributeValueMemberS{Value: pairSK(edge.PairKey())},
			}}},
		)
	}

	for start := 0; start < len(requests); start += 25 {
		end := start + 25
		if end > len(requests) {
			end = len(requests)
		}
		if _, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: requests[start:end]},
		}); err != nil {
			return pkgerrors.NewStorageError("cascade delete node", err)
		}
	}
	return nil
}

func nodeFromItem(item nodeItem) (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(item.NodeID)
	if err != nil {
		return nil, err
	}
	sessionID, err := valueobjects.NewSessionIDFromString(item.SessionID)
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
	dueDate, err := utils.ParseOptionalTimestamp(item.DueDate)
	if err != nil {
		return nil, err
	}
	completedAt, err := utils.ParseOptionalTimestamp(item.CompletedAt)
	if err != nil {
		return nil, err
	}

	return entities.ReconstructNode(
		id, sessionID, entities.NodeType(item.NodeType), item.Label, item.Description,
		entities.NodeStatus(item.Status), item.Priority,
		valueobjects.NewPosition(item.PositionX, item.PositionY), item.Metadata,
		dueDate, completedAt, createdAt, updatedAt, item.Version,
	), nil
}
