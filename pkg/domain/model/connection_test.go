package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

func TestNewConnectionID(t *testing.T) {
	a := model.NewConnectionID("u1", types.PlatformFacebook, "p1")
	b := model.NewConnectionID("u1", types.PlatformFacebook, "p1")
	gt.Value(t, a).Equal(b)

	gt.Value(t, model.NewConnectionID("u1", types.PlatformFacebook, "p2")).NotEqual(a)
	gt.Value(t, model.NewConnectionID("u2", types.PlatformFacebook, "p1")).NotEqual(a)
	gt.Value(t, model.NewConnectionID("u1", types.PlatformInstagramBusiness, "p1")).NotEqual(a)
}

func TestConnection_Validate(t *testing.T) {
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		conn := model.NewConnection("u1", types.PlatformFacebook, "p1", "Page One", "token", now)
		gt.NoError(t, conn.Validate())
	})

	t.Run("missing token", func(t *testing.T) {
		conn := model.NewConnection("u1", types.PlatformFacebook, "p1", "Page One", "", now)
		gt.Error(t, conn.Validate()).Is(model.ErrMissingRequired)
	})

	t.Run("missing user", func(t *testing.T) {
		conn := model.NewConnection("", types.PlatformFacebook, "p1", "Page One", "token", now)
		gt.Error(t, conn.Validate()).Is(model.ErrMissingRequired)
	})

	t.Run("invalid platform", func(t *testing.T) {
		conn := model.NewConnection("u1", types.Platform("myspace"), "p1", "", "token", now)
		gt.Error(t, conn.Validate())
	})

	t.Run("tampered ID", func(t *testing.T) {
		conn := model.NewConnection("u1", types.PlatformFacebook, "p1", "Page One", "token", now)
		conn.ExternalAccountID = "p2"
		gt.Error(t, conn.Validate())
	})
}

func TestConnection_Summary(t *testing.T) {
	conn := model.NewConnection("u1", types.PlatformFacebook, "p1", "Page One", "secret-token", time.Now())
	s := conn.Summary()
	gt.Value(t, s.ExternalAccountID).Equal("p1")
	gt.Value(t, s.ExternalAccountName).Equal("Page One")
	gt.Bool(t, s.Connected).True()
}
