package firestore_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/socialink/pkg/repository/firestore"
)

func TestIndexes(t *testing.T) {
	t.Run("default names", func(t *testing.T) {
		cfg := firestore.Indexes("")
		gt.Array(t, cfg.Collections).Length(3)
		gt.Value(t, cfg.Collections[0].Name).Equal("connections")
		gt.Array(t, cfg.Collections[0].Indexes).Length(3)
	})

	t.Run("prefixed names", func(t *testing.T) {
		cfg := firestore.Indexes("stg")
		for _, c := range cfg.Collections {
			gt.String(t, c.Name).Contains("stg_")
		}
	})
}
