package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/billing-support-ai/internal/config"
	"github.com/wolfman30/billing-support-ai/internal/handoff"
	"github.com/wolfman30/billing-support-ai/internal/notify"
	"github.com/wolfman30/billing-support-ai/internal/observability/metrics"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// BuildTicketManager wires the handoff manager with whichever side channels
// are configured: SQS events, DynamoDB archive and agent e-mail alerts.
func BuildTicketManager(cfg *appconfig.Config, awsCfg aws.Config, sm *metrics.SupportMetrics, logger *logging.Logger) *handoff.Manager {
	if logger == nil {
		logger = logging.Default()
	}
	opts := []handoff.Option{handoff.WithMetrics(sm), handoff.WithLogger(logger)}
	if cfg == nil {
		return handoff.NewManager(opts...)
	}

	if url := strings.TrimSpace(cfg.TicketEventsQueueURL); url != "" {
		opts = append(opts, handoff.WithPublisher(handoff.NewSQSPublisher(sqs.NewFromConfig(awsCfg), url)))
		logger.Info("ticket events enabled", "queue_url", url)
	}
	if table := strings.TrimSpace(cfg.TicketArchiveTable); table != "" {
		opts = append(opts, handoff.WithArchive(handoff.NewDynamoArchive(dynamodb.NewFromConfig(awsCfg), table)))
		logger.Info("ticket archive enabled", "table", table)
	}
	if alerts := notify.NewAgentAlerts(BuildEmailSender(cfg, awsCfg, logger), cfg.AgentAlertEmail, logger); alerts != nil {
		opts = append(opts, handoff.WithAlerter(alerts))
		logger.Info("agent alerts enabled", "to", cfg.AgentAlertEmail, "provider", cfg.EmailProvider)
	}
	return handoff.NewManager(opts...)
}

// BuildEmailSender picks the configured provider, falling back to logging
// when the provider cannot be used.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "ses":
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
	case "log":
		return notify.NewLogSender(logger)
	default:
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			if cfg.AgentAlertEmail != "" {
				logger.Warn("SENDGRID_API_KEY not set; agent alerts will only be logged")
			}
			return notify.NewLogSender(logger)
		}
		return sender
	}
}
