package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/service/graph"
	"github.com/urfave/cli/v3"
)

// Meta holds CLI flags for the Meta app used by the consent flow and the Graph API
type Meta struct {
	appID        string
	appSecret    string
	baseURL      string
	apiVersion   string
	timeout      time.Duration
	platformFile string
}

// Flags returns CLI flags for Meta app configuration
func (x *Meta) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "meta-app-id",
			Usage:       "Meta app ID",
			Category:    "Meta",
			Sources:     cli.EnvVars("SOCIALINK_META_APP_ID"),
			Destination: &x.appID,
		},
		&cli.StringFlag{
			Name:        "meta-app-secret",
			Usage:       "Meta app secret. Also used to verify webhook signatures",
			Category:    "Meta",
			Sources:     cli.EnvVars("SOCIALINK_META_APP_SECRET"),
			Destination: &x.appSecret,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Public base URL of this service for OAuth redirects (e.g., https://your-domain.com)",
			Category:    "Meta",
			Sources:     cli.EnvVars("SOCIALINK_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "meta-api-version",
			Usage:       "Graph API version",
			Value:       graph.DefaultAPIVersion,
			Category:    "Meta",
			Sources:     cli.EnvVars("SOCIALINK_META_API_VERSION"),
			Destination: &x.apiVersion,
		},
		&cli.DurationFlag{
			Name:        "meta-timeout",
			Usage:       "Timeout of each outbound Graph API call",
			Value:       graph.DefaultTimeout,
			Category:    "Meta",
			Sources:     cli.EnvVars("SOCIALINK_META_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.StringFlag{
			Name:        "platform-config",
			Usage:       "Path to a TOML file with per-platform scope overrides",
			Category:    "Meta",
			Sources:     cli.EnvVars("SOCIALINK_PLATFORM_CONFIG"),
			Destination: &x.platformFile,
		},
	}
}

func (x Meta) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("app_id", x.appID),
		slog.Int("app_secret.len", len(x.appSecret)),
		slog.String("base_url", x.baseURL),
		slog.String("api_version", x.apiVersion),
		slog.Duration("timeout", x.timeout),
		slog.String("platform_config", x.platformFile),
	)
}

// AppSecret returns the Meta app secret
func (x *Meta) AppSecret() string {
	return x.appSecret
}

// Configure builds the Graph API service
func (x *Meta) Configure() (graph.Service, error) {
	if x.appID == "" {
		return nil, goerr.Wrap(ErrMissingFlag, "meta-app-id is required", goerr.V(FlagKey, "meta-app-id"))
	}
	if x.appSecret == "" {
		return nil, goerr.Wrap(ErrMissingFlag, "meta-app-secret is required", goerr.V(FlagKey, "meta-app-secret"))
	}
	if x.baseURL == "" {
		return nil, goerr.Wrap(ErrMissingFlag, "base-url is required", goerr.V(FlagKey, "base-url"))
	}

	var opts []graph.Option
	if x.apiVersion != "" {
		opts = append(opts, graph.WithAPIVersion(x.apiVersion))
	}
	if x.timeout > 0 {
		opts = append(opts, graph.WithTimeout(x.timeout))
	}
	if x.platformFile != "" {
		file, err := LoadPlatformFile(x.platformFile)
		if err != nil {
			return nil, err
		}
		// file settings take precedence over flags
		opts = append(opts, file.GraphOptions()...)
	}

	svc, err := graph.New(x.appID, x.appSecret, x.baseURL, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create graph service")
	}
	return svc, nil
}
