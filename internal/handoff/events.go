package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const (
	EventCreated   = "created"
	EventClaimed   = "claimed"
	EventResponded = "responded"
	EventResolved  = "resolved"
	EventAbandoned = "abandoned"
)

// Event is the ticket lifecycle notification sent to downstream consumers.
type Event struct {
	Type           string         `json:"type"`
	TicketID       string         `json:"ticket_id"`
	SessionID      string         `json:"session_id"`
	Status         Status         `json:"status"`
	Reason         string         `json:"reason,omitempty"`
	Department     string         `json:"department,omitempty"`
	AgentID        string         `json:"agent_id,omitempty"`
	ResolutionKind ResolutionKind `json:"resolution_kind,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

func newEvent(kind string, t *Ticket, at time.Time) Event {
	evt := Event{
		Type:       kind,
		TicketID:   t.ID,
		SessionID:  t.SessionID,
		Status:     t.Status,
		Reason:     t.Reason,
		Department: t.Department,
		AgentID:    t.AgentID,
		OccurredAt: at,
	}
	if t.Resolution != nil {
		evt.ResolutionKind = t.Resolution.Kind
	}
	return evt
}

// EventPublisher fans ticket events out. Failures never block the ticket flow.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends ticket events to an SQS queue as JSON.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

func NewSQSPublisher(client *sqs.Client, queueURL string) *SQSPublisher {
	if client == nil {
		panic("handoff: SQS client cannot be nil")
	}
	return newSQSPublisher(client, queueURL)
}

func newSQSPublisher(client sqsAPI, queueURL string) *SQSPublisher {
	if queueURL == "" {
		panic("handoff: SQS queueURL cannot be empty")
	}
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("handoff: marshal event: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(evt.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("handoff: failed to send SQS message: %w", err)
	}
	return nil
}
