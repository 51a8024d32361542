package usecase

import (
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/service/archive"
	"github.com/secmon-lab/socialink/pkg/service/grant"
	"github.com/secmon-lab/socialink/pkg/service/graph"
)

type UseCases struct {
	repo interfaces.Repository

	graph       graph.Service
	signer      *grant.Signer
	adminSecret string
	connectOpts []ConnectOption
	webhookOpts []WebhookOption
	grantOpts   []ImpersonateOption

	Connect     *ConnectUseCase
	Webhook     *WebhookUseCase
	Publish     *PublishUseCase
	Impersonate *ImpersonateUseCase
}

type Option func(*UseCases)

func WithGraph(svc graph.Service) Option {
	return func(uc *UseCases) {
		uc.graph = svc
	}
}

func WithSigner(signer *grant.Signer) Option {
	return func(uc *UseCases) {
		uc.signer = signer
	}
}

func WithAdminSecret(secret string) Option {
	return func(uc *UseCases) {
		uc.adminSecret = secret
	}
}

func WithConnectOptions(opts ...ConnectOption) Option {
	return func(uc *UseCases) {
		uc.connectOpts = append(uc.connectOpts, opts...)
	}
}

func WithWebhookOptions(opts ...WebhookOption) Option {
	return func(uc *UseCases) {
		uc.webhookOpts = append(uc.webhookOpts, opts...)
	}
}

func WithImpersonateOptions(opts ...ImpersonateOption) Option {
	return func(uc *UseCases) {
		uc.grantOpts = append(uc.grantOpts, opts...)
	}
}

// WithArchive is shorthand for WithWebhookOptions(WithArchiver(a))
func WithArchive(a archive.Service) Option {
	return WithWebhookOptions(WithArchiver(a))
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Connect = NewConnectUseCase(repo, uc.graph, uc.signer, uc.connectOpts...)
	uc.Webhook = NewWebhookUseCase(repo, uc.webhookOpts...)
	uc.Publish = NewPublishUseCase(repo, uc.graph)
	uc.Impersonate = NewImpersonateUseCase(repo, uc.signer, uc.adminSecret, uc.grantOpts...)

	return uc
}
