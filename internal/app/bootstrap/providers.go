package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/billing-support-ai/internal/config"
	"github.com/wolfman30/billing-support-ai/internal/identity"
	"github.com/wolfman30/billing-support-ai/internal/providers"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// Providers are the answer components the router consults.
type Providers struct {
	Classifier providers.Classifier
	FAQ        *providers.StaticFAQ
	Account    providers.AccountResponder
	Summarizer providers.Summarizer
}

// BuildProviders uses Bedrock for classification and summaries when a model
// is configured, always keeping the rule-based versions as fallbacks.
func BuildProviders(cfg *appconfig.Config, awsCfg aws.Config, ids identity.Store, logger *logging.Logger) Providers {
	if logger == nil {
		logger = logging.Default()
	}
	faq := providers.NewStaticFAQ(providers.DefaultFAQ())
	keyword := providers.NewKeywordClassifier(faq)
	template := providers.NewTemplateSummarizer()
	out := Providers{
		Classifier: keyword,
		FAQ:        faq,
		Account:    providers.NewLedgerResponder(ids),
		Summarizer: template,
	}

	model := ""
	if cfg != nil {
		model = strings.TrimSpace(cfg.BedrockModelID)
	}
	if model == "" {
		logger.Warn("no Bedrock model configured; using keyword classifier and template summaries")
		return out
	}

	client := providers.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	out.Classifier = providers.NewLLMClassifier(client, model, keyword, logger)
	out.Summarizer = providers.NewLLMSummarizer(client, model, template, logger)
	logger.Info("using Bedrock providers", "model", model)
	return out
}
