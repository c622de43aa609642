package testsupport

import (
	"context"
	"testing"

	"replay/internal/config"
	"replay/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewRun records a started run for tests using the provided store.
func NewRun(t testing.TB, st *store.Store, id string) {
	t.Helper()

	if err := st.BeginRun(context.Background(), store.Run{ID: id, InputDir: "/exports", OutputPath: "/out/clean.json"}); err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
}
