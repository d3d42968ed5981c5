package dynamodb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"loom-backend/domain/core/aggregates"
	pkgerrors "loom-backend/pkg/errors"
)

// SnapshotStore persists tree snapshots in DynamoDB, one item per
// workspace. The node list is stored as a JSON document rather than a
// nested attribute map: snapshots are read and written whole, never
// queried per-node.
type SnapshotStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSnapshotStore creates a new SnapshotStore
func NewSnapshotStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *SnapshotStore {
	return &SnapshotStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// snapshotItem is the DynamoDB item structure for a workspace snapshot
type snapshotItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	TreeID    string `dynamodbav:"TreeID"`
	Payload   string `dynamodbav:"Payload"`
	NodeCount int    `dynamodbav:"NodeCount"`
	SavedAt   string `dynamodbav:"SavedAt"`
}

func workspaceKey(workspaceID string) (string, string) {
	return "WORKSPACE#" + workspaceID, "SNAPSHOT"
}

// Save writes the snapshot for a workspace, replacing any previous one
func (s *SnapshotStore) Save(ctx context.Context, workspaceID string, snapshot aggregates.TreeSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode snapshot").WithCause(err)
	}

	pk, sk := workspaceKey(workspaceID)
	item, err := attributevalue.MarshalMap(snapshotItem{
		PK:        pk,
		SK:        sk,
		TreeID:    snapshot.TreeID,
		Payload:   string(payload),
		NodeCount: len(snapshot.Nodes),
		SavedAt:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal snapshot item").WithCause(err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save snapshot", err)
	}

	s.logger.Debug("snapshot saved to dynamodb",
		zap.String("workspace_id", workspaceID),
		zap.Int("node_count", len(snapshot.Nodes)))
	return nil
}

// Load reads the snapshot for a workspace
func (s *SnapshotStore) Load(ctx context.Context, workspaceID string) (aggregates.TreeSnapshot, error) {
	pk, sk := workspaceKey(workspaceID)
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return aggregates.TreeSnapshot{}, pkgerrors.NewDatabaseError("load snapshot", err)
	}
	if out.Item == nil {
		return aggregates.TreeSnapshot{}, pkgerrors.NewNotFoundError("snapshot for workspace", workspaceID)
	}

	var item snapshotItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return aggregates.TreeSnapshot{}, pkgerrors.NewInternalError("failed to unmarshal snapshot item").WithCause(err)
	}

	var snapshot aggregates.TreeSnapshot
	if err := json.Unmarshal([]byte(item.Payload), &snapshot); err != nil {
		return aggregates.TreeSnapshot{}, pkgerrors.NewInternalError("failed to decode snapshot payload").WithCause(err)
	}
	return snapshot, nil
}

// Delete removes the snapshot for a workspace
func (s *SnapshotStore) Delete(ctx context.Context, workspaceID string) error {
	pk, sk := workspaceKey(workspaceID)
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete snapshot", err)
	}
	return nil
}
