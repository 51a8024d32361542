package config

import (
	"log/slog"
	"time"

	"github.com/secmon-lab/socialink/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Admin holds CLI flags for the impersonation endpoint
type Admin struct {
	secret   string
	grantTTL time.Duration
	operator string
}

func (x *Admin) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "admin-secret",
			Usage:       "Operator secret for the impersonation endpoint. Empty disables impersonation",
			Category:    "Admin",
			Sources:     cli.EnvVars("SOCIALINK_ADMIN_SECRET"),
			Destination: &x.secret,
		},
		&cli.DurationFlag{
			Name:        "admin-grant-ttl",
			Usage:       "Lifetime of impersonation grants",
			Value:       usecase.DefaultGrantTTL,
			Category:    "Admin",
			Sources:     cli.EnvVars("SOCIALINK_ADMIN_GRANT_TTL"),
			Destination: &x.grantTTL,
		},
		&cli.StringFlag{
			Name:        "admin-operator",
			Usage:       "Actor name recorded in impersonation grants",
			Value:       "admin",
			Category:    "Admin",
			Sources:     cli.EnvVars("SOCIALINK_ADMIN_OPERATOR"),
			Destination: &x.operator,
		},
	}
}

func (x Admin) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("secret.len", len(x.secret)),
		slog.Duration("grant_ttl", x.grantTTL),
		slog.String("operator", x.operator),
	)
}

// Enabled reports whether an admin secret is configured
func (x *Admin) Enabled() bool {
	return x.secret != ""
}

// GrantTTL returns the configured grant lifetime
func (x *Admin) GrantTTL() time.Duration {
	return x.grantTTL
}

// Operator returns the configured actor name
func (x *Admin) Operator() string {
	return x.operator
}

// Options returns use case options for impersonation
func (x *Admin) Options() []usecase.Option {
	var impOpts []usecase.ImpersonateOption
	if x.grantTTL > 0 {
		impOpts = append(impOpts, usecase.WithGrantTTL(x.grantTTL))
	}
	if x.operator != "" {
		impOpts = append(impOpts, usecase.WithOperator(x.operator))
	}
	return []usecase.Option{
		usecase.WithAdminSecret(x.secret),
		usecase.WithImpersonateOptions(impOpts...),
	}
}

// Secret returns the operator secret
func (x *Admin) Secret() string {
	return x.secret
}
