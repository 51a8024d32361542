package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

func runConnectionRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("Put and Get round trip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Millisecond)
		userID := uniqueID("user")

		conn := model.NewConnection(userID, types.PlatformFacebook, "page-1", "My Page", "token-1", now)
		conn.TokenExpiresAt = now.Add(60 * 24 * time.Hour)
		gt.NoError(t, repo.Connection().Put(ctx, conn)).Required()

		got, err := repo.Connection().Get(ctx, conn.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(conn.ID)
		gt.Value(t, got.UserID).Equal(userID)
		gt.Value(t, got.Platform).Equal(types.PlatformFacebook)
		gt.Value(t, got.ExternalAccountID).Equal("page-1")
		gt.Value(t, got.ExternalAccountName).Equal("My Page")
		gt.Value(t, got.AccessToken).Equal("token-1")
		gt.Bool(t, got.CreatedAt.Sub(now).Abs() < time.Second).True()
		gt.Bool(t, got.TokenExpiresAt.Sub(conn.TokenExpiresAt).Abs() < time.Second).True()
	})

	t.Run("Get returns ErrNotFound for missing connection", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Connection().Get(ctx, model.NewConnectionID(uniqueID("user"), types.PlatformFacebook, "x"))
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Put twice with the same key keeps one record with the last token", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		userID := uniqueID("user")

		first := model.NewConnection(userID, types.PlatformFacebook, "page-1", "Old", "token-A", now)
		second := model.NewConnection(userID, types.PlatformFacebook, "page-1", "New", "token-B", now.Add(time.Second))
		gt.NoError(t, repo.Connection().Put(ctx, first)).Required()
		gt.NoError(t, repo.Connection().Put(ctx, second)).Required()

		conns, err := repo.Connection().FindByUser(ctx, userID, types.PlatformFacebook)
		gt.NoError(t, err).Required()
		gt.A(t, conns).Length(1)
		gt.Value(t, conns[0].AccessToken).Equal("token-B")
		gt.Value(t, conns[0].ExternalAccountName).Equal("New")
	})

	t.Run("concurrent Put for one key leaves exactly one record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		userID := uniqueID("user")

		var wg sync.WaitGroup
		for _, token := range []string{"token-A", "token-B"} {
			wg.Add(1)
			go func(token string) {
				defer wg.Done()
				conn := model.NewConnection(userID, types.PlatformFacebook, "page-1", "Page", token, now)
				gt.NoError(t, repo.Connection().Put(ctx, conn))
			}(token)
		}
		wg.Wait()

		conns, err := repo.Connection().FindByUser(ctx, userID, types.PlatformFacebook)
		gt.NoError(t, err).Required()
		gt.A(t, conns).Length(1)
		gt.Bool(t, conns[0].AccessToken == "token-A" || conns[0].AccessToken == "token-B").True()
	})

	t.Run("Put rejects connection without token", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		conn := model.NewConnection(uniqueID("user"), types.PlatformFacebook, "page-1", "Page", "", time.Now())
		gt.Error(t, repo.Connection().Put(ctx, conn)).Is(model.ErrMissingRequired)
	})

	t.Run("FindByUser orders newest first and isolates platform and user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		userID := uniqueID("user")

		older := model.NewConnection(userID, types.PlatformFacebook, "page-1", "One", "t1", now.Add(-time.Hour))
		newer := model.NewConnection(userID, types.PlatformFacebook, "page-2", "Two", "t2", now)
		other := model.NewConnection(userID, types.PlatformInstagramBusiness, "ig-1", "IG", "t3", now)
		stranger := model.NewConnection(uniqueID("other"), types.PlatformFacebook, "page-9", "X", "t4", now)
		for _, c := range []*model.Connection{older, newer, other, stranger} {
			gt.NoError(t, repo.Connection().Put(ctx, c)).Required()
		}

		conns, err := repo.Connection().FindByUser(ctx, userID, types.PlatformFacebook)
		gt.NoError(t, err).Required()
		gt.A(t, conns).Length(2)
		gt.Value(t, conns[0].ExternalAccountID).Equal("page-2")
		gt.Value(t, conns[1].ExternalAccountID).Equal("page-1")
	})

	t.Run("FindOne matches external account on any platform", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueID("user")

		conn := model.NewConnection(userID, types.PlatformInstagramBusiness, "ig-42", "IG", "tok", time.Now().UTC())
		gt.NoError(t, repo.Connection().Put(ctx, conn)).Required()

		got, err := repo.Connection().FindOne(ctx, userID, "ig-42")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Platform).Equal(types.PlatformInstagramBusiness)

		_, err = repo.Connection().FindOne(ctx, userID, "ig-43")
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("ListByPlatform returns connections across users", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		acct := uniqueID("ig")

		a := model.NewConnection(uniqueID("a"), types.PlatformInstagram, acct+"-a", "A", "ta", now)
		b := model.NewConnection(uniqueID("b"), types.PlatformInstagram, acct+"-b", "B", "tb", now)
		gt.NoError(t, repo.Connection().Put(ctx, a)).Required()
		gt.NoError(t, repo.Connection().Put(ctx, b)).Required()

		conns, err := repo.Connection().ListByPlatform(ctx, types.PlatformInstagram)
		gt.NoError(t, err).Required()
		found := map[string]bool{}
		for _, c := range conns {
			found[c.ExternalAccountID] = true
		}
		gt.Bool(t, found[acct+"-a"]).True()
		gt.Bool(t, found[acct+"-b"]).True()
	})

	t.Run("DeleteAll is idempotent and scoped", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		userID := uniqueID("user")

		gt.NoError(t, repo.Connection().Put(ctx, model.NewConnection(userID, types.PlatformFacebook, "p1", "P1", "t", now))).Required()
		gt.NoError(t, repo.Connection().Put(ctx, model.NewConnection(userID, types.PlatformFacebook, "p2", "P2", "t", now))).Required()
		gt.NoError(t, repo.Connection().Put(ctx, model.NewConnection(userID, types.PlatformInstagramBusiness, "ig", "IG", "t", now))).Required()

		gt.NoError(t, repo.Connection().DeleteAll(ctx, userID, types.PlatformFacebook)).Required()
		gt.NoError(t, repo.Connection().DeleteAll(ctx, userID, types.PlatformFacebook)).Required()

		fb, err := repo.Connection().FindByUser(ctx, userID, types.PlatformFacebook)
		gt.NoError(t, err).Required()
		gt.A(t, fb).Length(0)

		ig, err := repo.Connection().FindByUser(ctx, userID, types.PlatformInstagramBusiness)
		gt.NoError(t, err).Required()
		gt.A(t, ig).Length(1)
	})

	t.Run("RotateToken updates only the credential fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC().Truncate(time.Millisecond)
		userID := uniqueID("user")

		conn := model.NewConnection(userID, types.PlatformInstagram, "ig-1", "ig account", "token-A", now)
		gt.NoError(t, repo.Connection().Put(ctx, conn)).Required()

		expiresAt := now.Add(60 * 24 * time.Hour)
		gt.NoError(t, repo.Connection().RotateToken(ctx, &model.TokenRotation{
			ID:          conn.ID,
			Previous:    "token-A",
			AccessToken: "token-B",
			ExpiresAt:   expiresAt,
			UpdatedAt:   now.Add(time.Minute),
		})).Required()

		got, err := repo.Connection().Get(ctx, conn.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.AccessToken).Equal("token-B")
		gt.Value(t, got.ExternalAccountName).Equal("ig account")
		gt.Bool(t, got.TokenExpiresAt.Sub(expiresAt).Abs() < time.Second).True()
		gt.Bool(t, got.CreatedAt.Sub(now).Abs() < time.Second).True()
	})

	t.Run("RotateToken does not recreate a deleted connection", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		userID := uniqueID("user")

		conn := model.NewConnection(userID, types.PlatformInstagram, "ig-1", "ig account", "token-A", now)
		gt.NoError(t, repo.Connection().Put(ctx, conn)).Required()
		gt.NoError(t, repo.Connection().DeleteAll(ctx, userID, types.PlatformInstagram)).Required()

		err := repo.Connection().RotateToken(ctx, &model.TokenRotation{
			ID:          conn.ID,
			Previous:    "token-A",
			AccessToken: "token-B",
			UpdatedAt:   now,
		})
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		conns, err := repo.Connection().FindByUser(ctx, userID, types.PlatformInstagram)
		gt.NoError(t, err).Required()
		gt.Array(t, conns).Length(0)
	})

	t.Run("RotateToken keeps a token written by a re-link", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()
		userID := uniqueID("user")

		conn := model.NewConnection(userID, types.PlatformInstagram, "ig-1", "ig account", "token-A", now)
		gt.NoError(t, repo.Connection().Put(ctx, conn)).Required()
		relinked := model.NewConnection(userID, types.PlatformInstagram, "ig-1", "ig account", "token-relinked", now)
		gt.NoError(t, repo.Connection().Put(ctx, relinked)).Required()

		err := repo.Connection().RotateToken(ctx, &model.TokenRotation{
			ID:          conn.ID,
			Previous:    "token-A",
			AccessToken: "token-B",
			UpdatedAt:   now,
		})
		gt.Error(t, err).Is(interfaces.ErrConflict)

		got, err := repo.Connection().Get(ctx, conn.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.AccessToken).Equal("token-relinked")
	})

	t.Run("pending token lifecycle", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueID("user")

		_, err := repo.Connection().GetPendingToken(ctx, userID, types.PlatformFacebook)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		token := &model.PendingToken{
			UserID:      userID,
			Platform:    types.PlatformFacebook,
			AccessToken: "user-token",
			CreatedAt:   time.Now().UTC(),
		}
		gt.NoError(t, repo.Connection().PutPendingToken(ctx, token)).Required()

		got, err := repo.Connection().GetPendingToken(ctx, userID, types.PlatformFacebook)
		gt.NoError(t, err).Required()
		gt.Value(t, got.AccessToken).Equal("user-token")

		token.AccessToken = "user-token-2"
		gt.NoError(t, repo.Connection().PutPendingToken(ctx, token)).Required()
		got, err = repo.Connection().GetPendingToken(ctx, userID, types.PlatformFacebook)
		gt.NoError(t, err).Required()
		gt.Value(t, got.AccessToken).Equal("user-token-2")

		gt.NoError(t, repo.Connection().DeletePendingToken(ctx, userID, types.PlatformFacebook)).Required()
		gt.NoError(t, repo.Connection().DeletePendingToken(ctx, userID, types.PlatformFacebook)).Required()
		_, err = repo.Connection().GetPendingToken(ctx, userID, types.PlatformFacebook)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func TestConnectionRepository(t *testing.T) {
	eachBackend(t, runConnectionRepositoryTest)
}
