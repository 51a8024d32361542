package config

import (
	"log/slog"

	httpctrl "github.com/secmon-lab/socialink/pkg/controller/http"
	"github.com/secmon-lab/socialink/pkg/usecase"
	"github.com/urfave/cli/v3"
)

const defaultWebhookBodyLimit = 4 << 20

// Webhook holds CLI flags for the Meta webhook receiver
type Webhook struct {
	enabled     bool
	verifyToken string
	bodyLimit   int64
}

func (x *Webhook) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "webhook",
			Usage:       "Enable the /hooks/meta receiver",
			Value:       true,
			Category:    "Webhook",
			Sources:     cli.EnvVars("SOCIALINK_WEBHOOK"),
			Destination: &x.enabled,
		},
		&cli.StringFlag{
			Name:        "webhook-verify-token",
			Usage:       "Token expected in the subscription handshake (hub.verify_token)",
			Category:    "Webhook",
			Sources:     cli.EnvVars("SOCIALINK_WEBHOOK_VERIFY_TOKEN"),
			Destination: &x.verifyToken,
		},
		&cli.Int64Flag{
			Name:        "webhook-body-limit",
			Usage:       "Maximum webhook body size in bytes",
			Value:       defaultWebhookBodyLimit,
			Category:    "Webhook",
			Sources:     cli.EnvVars("SOCIALINK_WEBHOOK_BODY_LIMIT"),
			Destination: &x.bodyLimit,
		},
	}
}

func (x Webhook) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", x.enabled),
		slog.Int("verify_token.len", len(x.verifyToken)),
		slog.Int64("body_limit", x.bodyLimit),
	)
}

// UseCaseOptions returns webhook use case options. appSecret enables signature checks.
func (x *Webhook) UseCaseOptions(appSecret string) []usecase.WebhookOption {
	return []usecase.WebhookOption{
		usecase.WithVerifyToken(x.verifyToken),
		usecase.WithAppSecret(appSecret),
	}
}

// ServerOptions returns HTTP server options for the receiver
func (x *Webhook) ServerOptions() []httpctrl.Options {
	opts := []httpctrl.Options{httpctrl.WithWebhook(x.enabled)}
	if x.bodyLimit > 0 {
		opts = append(opts, httpctrl.WithWebhookBodyLimit(x.bodyLimit))
	}
	return opts
}
