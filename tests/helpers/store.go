package helpers

import (
	"testing"

	"github.com/rs/zerolog"

	store "github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore("sqlite3", ":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
