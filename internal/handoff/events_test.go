package handoff

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSPublisherSendsJSON(t *testing.T) {
	client := &fakeSQS{}
	pub := newSQSPublisher(client, "https://sqs.local/tickets")
	ticket := &Ticket{ID: "t-1", SessionID: "s-1", Status: StatusPending, Reason: "system error"}

	if err := pub.Publish(context.Background(), newEvent(EventCreated, ticket, time.Now())); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("expected one message, got %d", len(client.inputs))
	}
	in := client.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.local/tickets" {
		t.Fatalf("unexpected queue %q", aws.ToString(in.QueueUrl))
	}
	if got := aws.ToString(in.MessageAttributes["eventType"].StringValue); got != EventCreated {
		t.Fatalf("unexpected event type attribute %q", got)
	}
	var evt Event
	if err := json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &evt); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if evt.TicketID != "t-1" || evt.Reason != "system error" {
		t.Fatalf("unexpected event %+v", evt)
	}
}
