package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/service/grant"
	"github.com/secmon-lab/socialink/pkg/service/graph"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

// DefaultStateTTL bounds how long a user may stay on the provider consent screen
const DefaultStateTTL = 10 * time.Minute

// ConnectUseCase drives the authorization code flow and account discovery
type ConnectUseCase struct {
	repo     interfaces.Repository
	graph    graph.Service
	signer   *grant.Signer
	stateTTL time.Duration
	now      func() time.Time
}

// ConnectOption is a functional option for ConnectUseCase
type ConnectOption func(*ConnectUseCase)

func WithStateTTL(ttl time.Duration) ConnectOption {
	return func(uc *ConnectUseCase) {
		uc.stateTTL = ttl
	}
}

// WithConnectClock replaces the time source, for tests
func WithConnectClock(now func() time.Time) ConnectOption {
	return func(uc *ConnectUseCase) {
		uc.now = now
	}
}

func NewConnectUseCase(repo interfaces.Repository, graphSvc graph.Service, signer *grant.Signer, opts ...ConnectOption) *ConnectUseCase {
	uc := &ConnectUseCase{
		repo:     repo,
		graph:    graphSvc,
		signer:   signer,
		stateTTL: DefaultStateTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func requireInteractive(platform types.Platform) error {
	if !platform.IsValid() {
		return goerr.Wrap(ErrInvalidInput, "unknown platform", goerr.V(PlatformKey, platform))
	}
	if !platform.IsInteractive() {
		return goerr.Wrap(ErrPlatformNotInteractive, "platform is linked out-of-band", goerr.V(PlatformKey, platform))
	}
	return nil
}

// AuthorizationURL returns the consent screen URL for userID. The state
// parameter is a signed token binding the round trip to userID and platform.
func (uc *ConnectUseCase) AuthorizationURL(ctx context.Context, platform types.Platform, userID string) (string, error) {
	if err := requireInteractive(platform); err != nil {
		return "", err
	}
	if userID == "" {
		return "", goerr.Wrap(ErrUnauthorized, "user is required to start authorization")
	}

	state, err := uc.signer.IssueState(userID, platform, uc.stateTTL)
	if err != nil {
		return "", goerr.Wrap(err, "failed to issue state", goerr.V(UserIDKey, userID))
	}

	u, err := uc.graph.AuthCodeURL(platform, state)
	if err != nil {
		return "", goerr.Wrap(err, "failed to build authorization URL", goerr.V(PlatformKey, platform))
	}
	return u, nil
}

// HandleCallback completes the code flow: verify state, exchange the code,
// discover accounts and upsert one connection per account. When discovery
// fails the exchanged token is kept as a pending token for RetryDiscovery.
func (uc *ConnectUseCase) HandleCallback(ctx context.Context, platform types.Platform, code, state string) (*model.ConnectResult, error) {
	if err := requireInteractive(platform); err != nil {
		return nil, err
	}

	userID, err := uc.signer.VerifyState(state, platform)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidState, err), "failed to verify state", goerr.V(PlatformKey, platform))
	}
	if code == "" {
		return nil, goerr.Wrap(ErrExchange, "authorization code is missing", goerr.V(UserIDKey, userID))
	}

	token, err := uc.graph.Exchange(ctx, platform, code)
	if err != nil {
		return nil, outboundError(err, ErrExchange, "failed to exchange authorization code",
			goerr.V(UserIDKey, userID), goerr.V(PlatformKey, platform))
	}

	pending := &model.PendingToken{
		UserID:      userID,
		Platform:    platform,
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		CreatedAt:   uc.now(),
	}
	if err := uc.repo.Connection().PutPendingToken(ctx, pending); err != nil {
		return nil, goerr.Wrap(err, "failed to keep exchanged token",
			goerr.V(UserIDKey, userID), goerr.V(PlatformKey, platform))
	}

	return uc.discover(ctx, pending)
}

// RetryDiscovery repeats account discovery with the token kept by a previous callback
func (uc *ConnectUseCase) RetryDiscovery(ctx context.Context, userID string, platform types.Platform) (*model.ConnectResult, error) {
	if err := requireInteractive(platform); err != nil {
		return nil, err
	}

	pending, err := uc.repo.Connection().GetPendingToken(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrNotConnected, "no pending authorization to retry",
				goerr.V(UserIDKey, userID), goerr.V(PlatformKey, platform))
		}
		return nil, goerr.Wrap(err, "failed to get pending token", goerr.V(UserIDKey, userID))
	}

	return uc.discover(ctx, pending)
}

func (uc *ConnectUseCase) discover(ctx context.Context, pending *model.PendingToken) (*model.ConnectResult, error) {
	logger := logging.From(ctx)
	userID, platform := pending.UserID, pending.Platform

	var conns []*model.Connection
	now := uc.now()
	switch platform {
	case types.PlatformFacebook:
		pages, err := uc.graph.ListPages(ctx, pending.AccessToken)
		if err != nil {
			return nil, outboundError(err, ErrDiscovery, "failed to list pages",
				goerr.V(UserIDKey, userID), goerr.V(PlatformKey, platform))
		}
		for _, page := range pages {
			conn := model.NewConnection(userID, platform, page.ID, page.Name, page.AccessToken, now)
			conn.TokenExpiresAt = pending.ExpiresAt
			conns = append(conns, conn)
		}

	case types.PlatformInstagramBusiness:
		accounts, err := uc.graph.ListInstagramAccounts(ctx, pending.AccessToken)
		if err != nil {
			return nil, outboundError(err, ErrDiscovery, "failed to list instagram business accounts",
				goerr.V(UserIDKey, userID), goerr.V(PlatformKey, platform))
		}
		for _, acct := range accounts {
			conn := model.NewConnection(userID, platform, acct.ID, acct.Username, acct.AccessToken, now)
			conn.LinkedAccountID = acct.PageID
			conn.TokenExpiresAt = pending.ExpiresAt
			conns = append(conns, conn)
		}
	}

	for _, conn := range conns {
		if err := uc.upsert(ctx, conn); err != nil {
			return nil, err
		}
	}

	if err := uc.repo.Connection().DeletePendingToken(ctx, userID, platform); err != nil {
		// connections are already stored; a stale pending token only allows a redundant retry
		logger.Warn("failed to delete pending token", "user_id", userID, "platform", platform, "error", err.Error())
	}

	logger.Info("accounts connected", "user_id", userID, "platform", platform, "count", len(conns))

	return &model.ConnectResult{
		UserID:      userID,
		Platform:    platform,
		Connections: conns,
	}, nil
}

// upsert replaces the stored record wholesale; CreatedAt becomes the time of the latest link
func (uc *ConnectUseCase) upsert(ctx context.Context, conn *model.Connection) error {
	if err := uc.repo.Connection().Put(ctx, conn); err != nil {
		return goerr.Wrap(err, "failed to save connection",
			goerr.V(UserIDKey, conn.UserID), goerr.V(AccountIDKey, conn.ExternalAccountID))
	}
	return nil
}

// Disconnect removes every connection of the user for platform. Already disconnected is success.
func (uc *ConnectUseCase) Disconnect(ctx context.Context, userID string, platform types.Platform) error {
	if !platform.IsValid() {
		return goerr.Wrap(ErrInvalidInput, "unknown platform", goerr.V(PlatformKey, platform))
	}
	if err := uc.repo.Connection().DeleteAll(ctx, userID, platform); err != nil {
		return goerr.Wrap(err, "failed to delete connections",
			goerr.V(UserIDKey, userID), goerr.V(PlatformKey, platform))
	}
	if err := uc.repo.Connection().DeletePendingToken(ctx, userID, platform); err != nil {
		return goerr.Wrap(err, "failed to delete pending token",
			goerr.V(UserIDKey, userID), goerr.V(PlatformKey, platform))
	}
	return nil
}

// LinkRefreshAccount links an Instagram account from a long-lived token provisioned out-of-band
func (uc *ConnectUseCase) LinkRefreshAccount(ctx context.Context, userID, token string) (*model.Connection, error) {
	if userID == "" || token == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "user and token are required")
	}

	me, err := uc.graph.GetInstagramMe(ctx, token)
	if err != nil {
		return nil, outboundError(err, ErrDiscovery, "failed to resolve instagram account",
			goerr.V(UserIDKey, userID))
	}

	conn := model.NewConnection(userID, types.PlatformInstagram, me.ID, me.Username, token, uc.now())
	if err := uc.upsert(ctx, conn); err != nil {
		return nil, err
	}

	logging.From(ctx).Info("instagram account linked", "user_id", userID, "account_id", me.ID)
	return conn, nil
}

// ListConnections returns client-safe summaries. An empty platform lists every platform.
func (uc *ConnectUseCase) ListConnections(ctx context.Context, userID string, platform types.Platform) ([]model.ConnectionSummary, error) {
	platforms := types.AllPlatforms()
	if platform != "" {
		if !platform.IsValid() {
			return nil, goerr.Wrap(ErrInvalidInput, "unknown platform", goerr.V(PlatformKey, platform))
		}
		platforms = []types.Platform{platform}
	}

	summaries := []model.ConnectionSummary{}
	for _, p := range platforms {
		conns, err := uc.repo.Connection().FindByUser(ctx, userID, p)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to find connections",
				goerr.V(UserIDKey, userID), goerr.V(PlatformKey, p))
		}
		for _, conn := range conns {
			summaries = append(summaries, conn.Summary())
		}
	}
	return summaries, nil
}
