package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/service/grant"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

const (
	// DefaultGrantTTL is the validity window of an impersonation grant
	DefaultGrantTTL = 15 * time.Minute

	defaultOperator = "admin"
)

// ImpersonateUseCase issues impersonation grants to operators holding the admin secret
type ImpersonateUseCase struct {
	repo     interfaces.Repository
	signer   *grant.Signer
	secret   []byte
	ttl      time.Duration
	operator string
}

// ImpersonateOption is a functional option for ImpersonateUseCase
type ImpersonateOption func(*ImpersonateUseCase)

func WithGrantTTL(ttl time.Duration) ImpersonateOption {
	return func(uc *ImpersonateUseCase) {
		uc.ttl = ttl
	}
}

// WithOperator sets the actor label recorded in issued grants
func WithOperator(name string) ImpersonateOption {
	return func(uc *ImpersonateUseCase) {
		uc.operator = name
	}
}

// NewImpersonateUseCase creates the issuer. An empty adminSecret disables issuance.
func NewImpersonateUseCase(repo interfaces.Repository, signer *grant.Signer, adminSecret string, opts ...ImpersonateOption) *ImpersonateUseCase {
	uc := &ImpersonateUseCase{
		repo:     repo,
		signer:   signer,
		secret:   []byte(adminSecret),
		ttl:      DefaultGrantTTL,
		operator: defaultOperator,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Issue verifies operatorSecret and signs a grant for targetUserID
func (uc *ImpersonateUseCase) Issue(ctx context.Context, operatorSecret, targetUserID string) (*model.Grant, error) {
	if len(uc.secret) == 0 || subtle.ConstantTimeCompare([]byte(operatorSecret), uc.secret) != 1 {
		logging.From(ctx).Warn("impersonation rejected", "target_user_id", targetUserID)
		return nil, goerr.Wrap(ErrUnauthorized, "operator secret mismatch")
	}
	if targetUserID == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "target user ID is required")
	}

	user, err := uc.repo.User().Get(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrUserNotFound, "target user does not exist", goerr.V(UserIDKey, targetUserID))
		}
		return nil, goerr.Wrap(err, "failed to get target user", goerr.V(UserIDKey, targetUserID))
	}

	g, err := uc.signer.IssueGrant(user.ID, uc.operator, uc.ttl)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to issue grant", goerr.V(UserIDKey, user.ID))
	}

	logging.From(ctx).Info("impersonation grant issued",
		"grant_id", g.ID, "user_id", g.UserID, "operator", uc.operator, "expires_at", g.ExpiresAt)
	return g, nil
}
