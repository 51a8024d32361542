package grant_test

import (
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/service/grant"
)

var testSecret = []byte(strings.Repeat("k", grant.MinSecretLength))

func TestNew(t *testing.T) {
	_, err := grant.New([]byte("short"))
	gt.Error(t, err)

	s, err := grant.New(testSecret)
	gt.NoError(t, err).Required()
	gt.Value(t, s).NotNil()
}

func TestSession(t *testing.T) {
	s, err := grant.New(testSecret)
	gt.NoError(t, err).Required()

	token, exp, err := s.IssueSession("user-1", time.Hour)
	gt.NoError(t, err).Required()
	gt.Bool(t, exp.After(time.Now())).True()

	session, err := s.VerifySession(token)
	gt.NoError(t, err).Required()
	gt.Value(t, session.UserID).Equal("user-1")
	gt.Value(t, session.Role).Equal(model.RoleUser)
	gt.Bool(t, session.Impersonated).False()
}

func TestIssueGrant(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := now
	s, err := grant.New(testSecret, grant.WithClock(func() time.Time { return clock }))
	gt.NoError(t, err).Required()

	g, err := s.IssueGrant("user-42", "admin", 15*time.Minute)
	gt.NoError(t, err).Required()
	gt.Value(t, g.UserID).Equal("user-42")
	gt.Value(t, g.Role).Equal(model.RoleUser)
	gt.Bool(t, g.Impersonated).True()
	gt.Value(t, g.ExpiresAt).Equal(now.Add(15 * time.Minute))
	gt.String(t, g.ID).NotEqual("")

	t.Run("grant verifies as an impersonated session", func(t *testing.T) {
		session, err := s.VerifySession(g.Token)
		gt.NoError(t, err).Required()
		gt.Value(t, session.UserID).Equal("user-42")
		gt.Value(t, session.Role).Equal(model.RoleUser)
		gt.Bool(t, session.Impersonated).True()
	})

	t.Run("expired grant is rejected", func(t *testing.T) {
		clock = now.Add(16 * time.Minute)
		defer func() { clock = now }()

		_, err := s.VerifySession(g.Token)
		gt.Error(t, err).Is(grant.ErrInvalidToken)
	})

	t.Run("grant from another key is rejected", func(t *testing.T) {
		other, err := grant.New([]byte(strings.Repeat("z", grant.MinSecretLength)))
		gt.NoError(t, err).Required()

		_, err = other.VerifySession(g.Token)
		gt.Error(t, err).Is(grant.ErrInvalidToken)
	})
}

func TestState(t *testing.T) {
	s, err := grant.New(testSecret)
	gt.NoError(t, err).Required()

	state, err := s.IssueState("user-1", types.PlatformFacebook, 10*time.Minute)
	gt.NoError(t, err).Required()

	t.Run("round trip", func(t *testing.T) {
		userID, err := s.VerifyState(state, types.PlatformFacebook)
		gt.NoError(t, err).Required()
		gt.Value(t, userID).Equal("user-1")
	})

	t.Run("other platform rejected", func(t *testing.T) {
		_, err := s.VerifyState(state, types.PlatformInstagramBusiness)
		gt.Error(t, err).Is(grant.ErrInvalidToken)
	})

	t.Run("state is not a session", func(t *testing.T) {
		_, err := s.VerifySession(state)
		gt.Error(t, err).Is(grant.ErrInvalidToken)
	})

	t.Run("bare user id rejected", func(t *testing.T) {
		_, err := s.VerifyState("user-1", types.PlatformFacebook)
		gt.Error(t, err).Is(grant.ErrInvalidToken)
	})
}
