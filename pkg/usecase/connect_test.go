package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/repository/memory"
	"github.com/secmon-lab/socialink/pkg/service/grant"
	"github.com/secmon-lab/socialink/pkg/service/graph"
	"github.com/secmon-lab/socialink/pkg/usecase"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newSigner(t *testing.T) *grant.Signer {
	t.Helper()
	s, err := grant.New([]byte(testSecret))
	gt.NoError(t, err).Required()
	return s
}

// singleUseCodes mimics a provider whose authorization codes work once
func singleUseCodes() func(ctx context.Context, platform types.Platform, code string) (*graph.Token, error) {
	var mu sync.Mutex
	used := map[string]bool{}
	return func(ctx context.Context, platform types.Platform, code string) (*graph.Token, error) {
		mu.Lock()
		defer mu.Unlock()
		if used[code] {
			return nil, errors.New("oauth2: code has been used")
		}
		used[code] = true
		return &graph.Token{AccessToken: "user-token-" + code, ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
}

func twoPages(ctx context.Context, userToken string) ([]*graph.Page, error) {
	return []*graph.Page{
		{ID: "P1", Name: "Page One", AccessToken: "page-token-1"},
		{ID: "P2", Name: "Page Two", AccessToken: "page-token-2"},
	}, nil
}

func stateFromURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	gt.NoError(t, err).Required()
	return u.Query().Get("state")
}

func TestConnect_AuthorizationURL(t *testing.T) {
	ctx := context.Background()
	signer := newSigner(t)
	uc := usecase.NewConnectUseCase(memory.New(), &mockGraph{}, signer)

	u, err := uc.AuthorizationURL(ctx, types.PlatformFacebook, "user-1")
	gt.NoError(t, err).Required()

	userID, err := signer.VerifyState(stateFromURL(t, u), types.PlatformFacebook)
	gt.NoError(t, err).Required()
	gt.Value(t, userID).Equal("user-1")

	t.Run("secondary platform is not interactive", func(t *testing.T) {
		_, err := uc.AuthorizationURL(ctx, types.PlatformInstagram, "user-1")
		gt.Error(t, err).Is(usecase.ErrPlatformNotInteractive)
	})

	t.Run("user is required", func(t *testing.T) {
		_, err := uc.AuthorizationURL(ctx, types.PlatformFacebook, "")
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
	})

	t.Run("unknown platform", func(t *testing.T) {
		_, err := uc.AuthorizationURL(ctx, types.Platform("myspace"), "user-1")
		gt.Error(t, err).Is(usecase.ErrInvalidInput)
	})
}

func TestConnect_CallbackScenario(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	signer := newSigner(t)
	g := &mockGraph{exchangeFn: singleUseCodes(), listPagesFn: twoPages}
	uc := usecase.NewConnectUseCase(repo, g, signer)

	state, err := signer.IssueState("user-u", types.PlatformFacebook, time.Minute)
	gt.NoError(t, err).Required()

	result, err := uc.HandleCallback(ctx, types.PlatformFacebook, "code-1", state)
	gt.NoError(t, err).Required()
	gt.Value(t, result.UserID).Equal("user-u")
	gt.Array(t, result.Connections).Length(2)

	conns, err := repo.Connection().FindByUser(ctx, "user-u", types.PlatformFacebook)
	gt.NoError(t, err).Required()
	gt.Array(t, conns).Length(2)
	ids := map[string]string{}
	for _, c := range conns {
		ids[c.ExternalAccountID] = c.AccessToken
	}
	gt.Value(t, ids["P1"]).Equal("page-token-1")
	gt.Value(t, ids["P2"]).Equal("page-token-2")

	// codes are single use
	_, err = uc.HandleCallback(ctx, types.PlatformFacebook, "code-1", state)
	gt.Error(t, err).Is(usecase.ErrExchange)
	gt.Bool(t, usecase.IsRetriable(err)).False()

	// a fresh code re-upserts without duplicates
	_, err = uc.HandleCallback(ctx, types.PlatformFacebook, "code-2", state)
	gt.NoError(t, err).Required()
	conns, err = repo.Connection().FindByUser(ctx, "user-u", types.PlatformFacebook)
	gt.NoError(t, err).Required()
	gt.Array(t, conns).Length(2)

	// the pending token is gone after a successful discovery
	_, err = repo.Connection().GetPendingToken(ctx, "user-u", types.PlatformFacebook)
	gt.Error(t, err).Is(interfaces.ErrNotFound)
}

func TestConnect_InstagramBusinessDiscovery(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	signer := newSigner(t)
	g := &mockGraph{
		exchangeFn: singleUseCodes(),
		listIGAccountsFn: func(ctx context.Context, userToken string) ([]*graph.InstagramAccount, error) {
			return []*graph.InstagramAccount{
				{ID: "IG1", Username: "shop", PageID: "P1", AccessToken: "page-token-1"},
			}, nil
		},
	}
	uc := usecase.NewConnectUseCase(repo, g, signer)

	state, err := signer.IssueState("user-1", types.PlatformInstagramBusiness, time.Minute)
	gt.NoError(t, err).Required()

	_, err = uc.HandleCallback(ctx, types.PlatformInstagramBusiness, "code", state)
	gt.NoError(t, err).Required()

	conn, err := repo.Connection().FindOne(ctx, "user-1", "IG1")
	gt.NoError(t, err).Required()
	gt.Value(t, conn.Platform).Equal(types.PlatformInstagramBusiness)
	gt.Value(t, conn.LinkedAccountID).Equal("P1")
	gt.Value(t, conn.ExternalAccountName).Equal("shop")
	gt.Number(t, g.Calls("ListPages")).Equal(0)
}

func TestConnect_InvalidState(t *testing.T) {
	ctx := context.Background()
	signer := newSigner(t)
	g := &mockGraph{exchangeFn: singleUseCodes(), listPagesFn: twoPages}
	uc := usecase.NewConnectUseCase(memory.New(), g, signer)

	_, err := uc.HandleCallback(ctx, types.PlatformFacebook, "code", "forged")
	gt.Error(t, err).Is(usecase.ErrInvalidState)

	state, err := signer.IssueState("user-1", types.PlatformInstagramBusiness, time.Minute)
	gt.NoError(t, err).Required()
	_, err = uc.HandleCallback(ctx, types.PlatformFacebook, "code", state)
	gt.Error(t, err).Is(usecase.ErrInvalidState)

	gt.Number(t, g.Calls("Exchange")).Equal(0)
}

func TestConnect_MissingCode(t *testing.T) {
	ctx := context.Background()
	signer := newSigner(t)
	g := &mockGraph{exchangeFn: singleUseCodes(), listPagesFn: twoPages}
	uc := usecase.NewConnectUseCase(memory.New(), g, signer)

	state, err := signer.IssueState("user-1", types.PlatformFacebook, time.Minute)
	gt.NoError(t, err).Required()
	_, err = uc.HandleCallback(ctx, types.PlatformFacebook, "", state)
	gt.Error(t, err).Is(usecase.ErrExchange)
	gt.Number(t, g.Calls("Exchange")).Equal(0)
}

func TestConnect_ExchangeTimeout(t *testing.T) {
	ctx := context.Background()
	signer := newSigner(t)
	g := &mockGraph{
		exchangeFn: func(ctx context.Context, platform types.Platform, code string) (*graph.Token, error) {
			return nil, context.DeadlineExceeded
		},
	}
	uc := usecase.NewConnectUseCase(memory.New(), g, signer)

	state, err := signer.IssueState("user-1", types.PlatformFacebook, time.Minute)
	gt.NoError(t, err).Required()
	_, err = uc.HandleCallback(ctx, types.PlatformFacebook, "code", state)
	gt.Error(t, err).Is(usecase.ErrTimeout)
	gt.Bool(t, usecase.IsRetriable(err)).True()
}

func TestConnect_DiscoveryFailureKeepsToken(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	signer := newSigner(t)

	failing := true
	g := &mockGraph{
		exchangeFn: singleUseCodes(),
		listPagesFn: func(ctx context.Context, userToken string) ([]*graph.Page, error) {
			if failing {
				return nil, &graph.APIError{StatusCode: 500, Message: "temporarily unavailable"}
			}
			gt.Value(t, userToken).Equal("user-token-code")
			return twoPages(ctx, userToken)
		},
	}
	uc := usecase.NewConnectUseCase(repo, g, signer)

	state, err := signer.IssueState("user-1", types.PlatformFacebook, time.Minute)
	gt.NoError(t, err).Required()

	_, err = uc.HandleCallback(ctx, types.PlatformFacebook, "code", state)
	gt.Error(t, err).Is(usecase.ErrDiscovery)
	gt.Bool(t, usecase.IsRetriable(err)).True()

	pending, err := repo.Connection().GetPendingToken(ctx, "user-1", types.PlatformFacebook)
	gt.NoError(t, err).Required()
	gt.Value(t, pending.AccessToken).Equal("user-token-code")

	conns, err := repo.Connection().FindByUser(ctx, "user-1", types.PlatformFacebook)
	gt.NoError(t, err).Required()
	gt.Array(t, conns).Length(0)

	failing = false
	result, err := uc.RetryDiscovery(ctx, "user-1", types.PlatformFacebook)
	gt.NoError(t, err).Required()
	gt.Array(t, result.Connections).Length(2)
	gt.Number(t, g.Calls("Exchange")).Equal(1)

	_, err = repo.Connection().GetPendingToken(ctx, "user-1", types.PlatformFacebook)
	gt.Error(t, err).Is(interfaces.ErrNotFound)

	_, err = uc.RetryDiscovery(ctx, "user-1", types.PlatformFacebook)
	gt.Error(t, err).Is(usecase.ErrNotConnected)
}

func TestConnect_Disconnect(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	signer := newSigner(t)
	g := &mockGraph{exchangeFn: singleUseCodes(), listPagesFn: twoPages}
	uc := usecase.NewConnectUseCase(repo, g, signer)

	state, err := signer.IssueState("user-1", types.PlatformFacebook, time.Minute)
	gt.NoError(t, err).Required()
	_, err = uc.HandleCallback(ctx, types.PlatformFacebook, "code", state)
	gt.NoError(t, err).Required()

	gt.NoError(t, uc.Disconnect(ctx, "user-1", types.PlatformFacebook)).Required()
	conns, err := repo.Connection().FindByUser(ctx, "user-1", types.PlatformFacebook)
	gt.NoError(t, err).Required()
	gt.Array(t, conns).Length(0)

	// already empty
	gt.NoError(t, uc.Disconnect(ctx, "user-1", types.PlatformFacebook))

	gt.Error(t, uc.Disconnect(ctx, "user-1", types.Platform("unknown"))).Is(usecase.ErrInvalidInput)
}

func TestConnect_LinkRefreshAccount(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	g := &mockGraph{
		getInstagramMeFn: func(ctx context.Context, token string) (*graph.InstagramAccount, error) {
			gt.Value(t, token).Equal("long-lived")
			return &graph.InstagramAccount{ID: "17841400000000000", Username: "creator"}, nil
		},
	}
	uc := usecase.NewConnectUseCase(repo, g, newSigner(t))

	conn, err := uc.LinkRefreshAccount(ctx, "user-1", "long-lived")
	gt.NoError(t, err).Required()
	gt.Value(t, conn.Platform).Equal(types.PlatformInstagram)

	got, err := repo.Connection().FindOne(ctx, "user-1", "17841400000000000")
	gt.NoError(t, err).Required()
	gt.Value(t, got.AccessToken).Equal("long-lived")
	gt.Value(t, got.ExternalAccountName).Equal("creator")

	_, err = uc.LinkRefreshAccount(ctx, "user-1", "")
	gt.Error(t, err).Is(usecase.ErrInvalidInput)
}

func TestConnect_ListConnectionsHidesToken(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	signer := newSigner(t)
	g := &mockGraph{exchangeFn: singleUseCodes(), listPagesFn: twoPages}
	uc := usecase.NewConnectUseCase(repo, g, signer)

	state, err := signer.IssueState("user-1", types.PlatformFacebook, time.Minute)
	gt.NoError(t, err).Required()
	_, err = uc.HandleCallback(ctx, types.PlatformFacebook, "code", state)
	gt.NoError(t, err).Required()

	summaries, err := uc.ListConnections(ctx, "user-1", "")
	gt.NoError(t, err).Required()
	gt.Array(t, summaries).Length(2)
	for _, s := range summaries {
		gt.Bool(t, s.Connected).True()
	}

	raw, err := json.Marshal(summaries)
	gt.NoError(t, err).Required()
	gt.Bool(t, strings.Contains(string(raw), "page-token")).False()

	summaries, err = uc.ListConnections(ctx, "user-1", types.PlatformInstagram)
	gt.NoError(t, err).Required()
	gt.Array(t, summaries).Length(0)
}
