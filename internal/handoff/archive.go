package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const archiveTTL = 90 * 24 * time.Hour

// Archiver keeps closed tickets after they leave the live registry.
type Archiver interface {
	Archive(ctx context.Context, t *Ticket) error
	Get(ctx context.Context, ticketID string) (*Ticket, error)
}

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type archiveRecord struct {
	TicketID   string `dynamodbav:"ticketId"`
	SessionID  string `dynamodbav:"sessionId"`
	Status     string `dynamodbav:"status"`
	Reason     string `dynamodbav:"reason"`
	Department string `dynamodbav:"department"`
	CustomerID string `dynamodbav:"customerId,omitempty"`
	AgentID    string `dynamodbav:"agentId,omitempty"`
	Ticket     string `dynamodbav:"ticket"`
	CreatedAt  string `dynamodbav:"createdAt"`
	ArchivedAt string `dynamodbav:"archivedAt"`
	ExpiresAt  int64  `dynamodbav:"expiresAt,omitempty"`
}

// DynamoArchive stores closed tickets in a DynamoDB table keyed by ticketId.
type DynamoArchive struct {
	client    dynamoAPI
	tableName string
	now       func() time.Time
}

var _ Archiver = (*DynamoArchive)(nil)

// NewDynamoArchive stores tickets with verification answers and contact
// details masked.
func NewDynamoArchive(client dynamoAPI, tableName string) *DynamoArchive {
	if client == nil {
		panic("handoff: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("handoff: table name cannot be empty")
	}
	return &DynamoArchive{client: client, tableName: tableName, now: time.Now}
}

func (a *DynamoArchive) Archive(ctx context.Context, t *Ticket) error {
	if t == nil {
		return errors.New("handoff: ticket cannot be nil")
	}
	t = scrubbed(t)
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("handoff: marshal ticket: %w", err)
	}
	now := a.now().UTC()
	item, err := attributevalue.MarshalMap(archiveRecord{
		TicketID:   t.ID,
		SessionID:  t.SessionID,
		Status:     string(t.Status),
		Reason:     t.Reason,
		Department: t.Department,
		CustomerID: t.CustomerID,
		AgentID:    t.AgentID,
		Ticket:     string(body),
		CreatedAt:  t.CreatedAt.UTC().Format(time.RFC3339Nano),
		ArchivedAt: now.Format(time.RFC3339Nano),
		ExpiresAt:  now.Add(archiveTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("handoff: failed to marshal archive record: %w", err)
	}
	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("handoff: failed to archive ticket: %w", err)
	}
	return nil
}

func (a *DynamoArchive) Get(ctx context.Context, ticketID string) (*Ticket, error) {
	out, err := a.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(a.tableName),
		Key: map[string]types.AttributeValue{
			"ticketId": &types.AttributeValueMemberS{Value: ticketID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("handoff: failed to fetch archived ticket: %w", err)
	}
	if out.Item == nil {
		return nil, ErrTicketNotFound
	}
	var rec archiveRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("handoff: failed to decode archive record: %w", err)
	}
	var t Ticket
	if err := json.Unmarshal([]byte(rec.Ticket), &t); err != nil {
		return nil, fmt.Errorf("handoff: failed to decode archived ticket: %w", err)
	}
	return &t, nil
}
