//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ims/internal/auth/revocation"
	"ims/pkg/testutil/containers"
)

func TestRedisList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	list := revocation.NewRedisList(rc.Client)

	t.Run("unknown jti is not revoked", func(t *testing.T) {
		revoked, err := list.IsRevoked(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoked jti is revoked until ttl elapses", func(t *testing.T) {
		require.NoError(t, list.Revoke(ctx, "jti-1", time.Second))

		revoked, err := list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		time.Sleep(1500 * time.Millisecond)
		revoked, err = list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("empty jti is a no-op", func(t *testing.T) {
		require.NoError(t, list.Revoke(ctx, "", time.Minute))
		revoked, err := list.IsRevoked(ctx, "")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
