package providers

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type fakeConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
}

func (f *fakeConverse) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, nil
}

func TestBedrockLLMClientComplete(t *testing.T) {
	api := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "  {\"category\":\"billing_faq\"}  "}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(4), TotalTokens: aws.Int32(14)},
	}}
	client := NewBedrockLLMClient(api)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Model:  "anthropic.claude",
		System: []string{"classify"},
		Messages: []ChatMessage{
			{Role: ChatRoleSystem, Content: "extra rules"},
			{Role: ChatRoleUser, Content: "hello"},
			{Role: ChatRoleAssistant, Content: ""},
		},
		MaxTokens: 50,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != `{"category":"billing_faq"}` {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 14 || resp.StopReason != "end_turn" {
		t.Fatalf("unexpected usage/stop %+v %q", resp.Usage, resp.StopReason)
	}
	if len(api.input.System) != 2 || len(api.input.Messages) != 1 {
		t.Fatalf("expected 2 system blocks and 1 message, got %d and %d", len(api.input.System), len(api.input.Messages))
	}
	if aws.ToInt32(api.input.InferenceConfig.MaxTokens) != 50 {
		t.Fatal("expected max tokens to be forwarded")
	}
}

func TestBedrockLLMClientRequiresModel(t *testing.T) {
	client := NewBedrockLLMClient(&fakeConverse{})
	if _, err := client.Complete(context.Background(), LLMRequest{}); err == nil {
		t.Fatal("expected error without model id")
	}
}
