package session_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare-dashboard/internal/session"
)

func stores(t *testing.T, ttl time.Duration) map[string]session.Store {
	t.Helper()
	out := map[string]session.Store{"memory": session.NewMemory(ttl)}

	_ = godotenv.Load("../../.env")
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		r, err := session.NewRedis(addr, os.Getenv("REDIS_PASSWORD"), 0, ttl)
		require.NoError(t, err)
		t.Cleanup(func() { _ = r.Close() })
		out["redis"] = r
	}
	return out
}

func TestSessionLifecycle(t *testing.T) {
	for name, st := range stores(t, time.Minute) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := st.Create(ctx, session.Data{UserID: "u1", Name: "Ana"})
			require.NoError(t, err)
			require.NotEmpty(t, id)

			got, err := st.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "u1", got.UserID)
			assert.Equal(t, "Ana", got.Name)

			got.Flash = "Saved"
			require.NoError(t, st.Save(ctx, id, *got))
			again, err := st.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "Saved", again.Flash)

			require.NoError(t, st.Extend(ctx, id))
			require.NoError(t, st.Delete(ctx, id))

			_, err = st.Get(ctx, id)
			assert.True(t, errors.Is(err, session.ErrNotFound))
		})
	}
}

func TestSessionUnknownID(t *testing.T) {
	for name, st := range stores(t, time.Minute) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := st.Get(ctx, "missing")
			assert.ErrorIs(t, err, session.ErrNotFound)
			assert.ErrorIs(t, st.Save(ctx, "missing", session.Data{UserID: "x"}), session.ErrNotFound)
			assert.ErrorIs(t, st.Extend(ctx, "missing"), session.ErrNotFound)
			// deleting an unknown session is not an error
			assert.NoError(t, st.Delete(ctx, "missing"))
		})
	}
}

func TestSessionIDsUnique(t *testing.T) {
	st := session.NewMemory(time.Minute)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := st.Create(context.Background(), session.Data{UserID: "u"})
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
