package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	if sender := NewSendGridSender(SendGridConfig{FromEmail: "support@example.com"}, nil); sender != nil {
		t.Fatal("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "support@example.com"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != defaultFromName {
		t.Fatalf("expected default from name, got %q", sender.fromName)
	}
}

type fakeSendGrid struct {
	status int
	err    error
	sent   *mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = email
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func TestSendGridSender_StatusHandling(t *testing.T) {
	ok := &fakeSendGrid{status: 202}
	sender := &SendGridSender{client: ok, fromEmail: "a@example.com", fromName: "A", logger: logging.Default()}
	if err := sender.Send(context.Background(), EmailMessage{To: "b@example.com", Subject: "hi", Body: "body"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok.sent == nil || ok.sent.Subject != "hi" {
		t.Fatalf("expected message to be handed to sendgrid, got %+v", ok.sent)
	}

	rejected := &fakeSendGrid{status: 401}
	sender.client = rejected
	if err := sender.Send(context.Background(), EmailMessage{To: "b@example.com"}); err == nil {
		t.Fatal("expected error for 4xx status")
	}

	sender.client = &fakeSendGrid{err: errors.New("dial")}
	if err := sender.Send(context.Background(), EmailMessage{To: "b@example.com"}); err == nil {
		t.Fatal("expected transport error")
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSenderBuildsSimpleMessage(t *testing.T) {
	api := &fakeSES{}
	sender := newSESSender(api, SESConfig{FromEmail: "desk@example.com"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "agent@example.com", Subject: "New ticket", Body: "text"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != "Billing Support <desk@example.com>" {
		t.Fatalf("unexpected from address %q", got)
	}
	if api.input.Content.Simple.Body.Html != nil {
		t.Fatal("html body should be omitted when empty")
	}
	if aws.ToString(api.input.Content.Simple.Body.Text.Data) != "text" {
		t.Fatal("expected text body")
	}
}

type recordingSender struct {
	msgs []EmailMessage
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestAgentAlertsTicketCreated(t *testing.T) {
	if NewAgentAlerts(&recordingSender{}, " ", nil) != nil {
		t.Fatal("expected nil alerts without recipient")
	}

	rec := &recordingSender{}
	alerts := NewAgentAlerts(rec, "desk@example.com", nil)
	err := alerts.TicketCreated(context.Background(), TicketAlert{
		TicketID:     "0123456789abcdef",
		SessionID:    "sess-1",
		CustomerName: "Jane Doe",
		Reason:       "authentication lockout",
		Department:   "Account Security",
		Summary:      "Customer failed verification three times.",
	})
	if err != nil {
		t.Fatalf("alert: %v", err)
	}
	if len(rec.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(rec.msgs))
	}
	msg := rec.msgs[0]
	if msg.Subject != "[Account Security] Handoff 01234567: authentication lockout" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Jane Doe") || !strings.Contains(msg.Body, "three times") {
		t.Fatalf("body missing details: %s", msg.Body)
	}

	var nilAlerts *AgentAlerts
	if err := nilAlerts.TicketCreated(context.Background(), TicketAlert{}); err != nil {
		t.Fatalf("nil alerts should be a no-op, got %v", err)
	}
}
