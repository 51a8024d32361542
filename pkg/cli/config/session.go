package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/service/grant"
	"github.com/urfave/cli/v3"
)

const minSessionSecretLen = 32

// Session holds CLI flags for signing sessions, impersonation grants and OAuth state
type Session struct {
	secret     string
	issuer     string
	cookieName string
}

func (x *Session) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "session-secret",
			Usage:       "HMAC secret for session tokens, grants and OAuth state (at least 32 bytes)",
			Category:    "Session",
			Sources:     cli.EnvVars("SOCIALINK_SESSION_SECRET"),
			Destination: &x.secret,
		},
		&cli.StringFlag{
			Name:        "session-issuer",
			Usage:       "Issuer claim of signed tokens",
			Value:       "socialink",
			Category:    "Session",
			Sources:     cli.EnvVars("SOCIALINK_SESSION_ISSUER"),
			Destination: &x.issuer,
		},
		&cli.StringFlag{
			Name:        "session-cookie",
			Usage:       "Name of the session cookie",
			Value:       "socialink_session",
			Category:    "Session",
			Sources:     cli.EnvVars("SOCIALINK_SESSION_COOKIE"),
			Destination: &x.cookieName,
		},
	}
}

func (x Session) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("secret.len", len(x.secret)),
		slog.String("issuer", x.issuer),
		slog.String("cookie", x.cookieName),
	)
}

// CookieName returns the configured session cookie name
func (x *Session) CookieName() string {
	return x.cookieName
}

// Configure builds the token signer
func (x *Session) Configure() (*grant.Signer, error) {
	if x.secret == "" {
		return nil, goerr.Wrap(ErrMissingFlag, "session-secret is required", goerr.V(FlagKey, "session-secret"))
	}
	if len(x.secret) < minSessionSecretLen {
		return nil, goerr.Wrap(ErrInvalidConfig, "session-secret is too short",
			goerr.V(FlagKey, "session-secret"), goerr.V("min_length", minSessionSecretLen))
	}

	var opts []grant.Option
	if x.issuer != "" {
		opts = append(opts, grant.WithIssuer(x.issuer))
	}
	signer, err := grant.New([]byte(x.secret), opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create token signer")
	}
	return signer, nil
}
