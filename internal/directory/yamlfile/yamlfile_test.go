package yamlfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ims/internal/directory"
	"ims/internal/domain"
)

func writeRoster(t *testing.T, hashed string) string {
	t.Helper()
	doc := `schema: 0
rangers:
  - handle: alice
    name: Alice A
    status: active
    email: alice@example.org
    enabled: true
    password: "` + hashed + `"
  - handle: bob
    name: Bob B
    status: vintage
    email: bob@example.org
    enabled: false
positions:
  - name: dispatch
    members: [alice]
`
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestLookupUser(t *testing.T) {
	hashed, err := directory.HashPassword("hunter2")
	require.NoError(t, err)
	d := New(writeRoster(t, hashed), "")
	ctx := context.Background()

	t.Run("by handle", func(t *testing.T) {
		user, found, err := d.LookupUser(ctx, "alice")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []string{"alice"}, user.ShortNames)
		assert.Equal(t, []string{"dispatch"}, user.Groups)
		assert.True(t, user.Active)
	})

	t.Run("by email, case-insensitive", func(t *testing.T) {
		_, found, err := d.LookupUser(ctx, "Alice@Example.Org")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("unknown term", func(t *testing.T) {
		_, found, err := d.LookupUser(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestVerifyPassword(t *testing.T) {
	hashed, err := directory.HashPassword("hunter2")
	require.NoError(t, err)
	d := New(writeRoster(t, hashed), "")
	ctx := context.Background()

	user, found, err := d.LookupUser(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)

	ok, err := d.VerifyPassword(ctx, user, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.VerifyPassword(ctx, user, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_MasterKey(t *testing.T) {
	hashed, err := directory.HashPassword("hunter2")
	require.NoError(t, err)
	d := New(writeRoster(t, hashed), "skeleton")
	ctx := context.Background()

	user, found, err := d.LookupUser(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)

	ok, err := d.VerifyPassword(ctx, user, "skeleton")
	require.NoError(t, err)
	assert.True(t, ok, "master key must validate against any account")
}

func TestPersonnel_SortedRoster(t *testing.T) {
	d := New(writeRoster(t, ""), "")

	roster, err := d.Personnel(context.Background())
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, domain.RangerHandle("alice"), roster[0].Handle)
	assert.Equal(t, domain.RangerStatusActive, roster[0].Status)
	assert.Equal(t, domain.RangerHandle("bob"), roster[1].Handle)
	assert.Equal(t, domain.RangerStatusVintage, roster[1].Status)
}
