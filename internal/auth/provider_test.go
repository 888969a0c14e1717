package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ims/internal/domain"
)

type fakeAccessSource struct {
	access map[domain.EventID]domain.Access
}

func (f *fakeAccessSource) Access(_ context.Context, event domain.EventID) (domain.Access, error) {
	return f.access[event], nil
}

func TestAuthorizationsFor_Anonymous(t *testing.T) {
	p := NewProvider(&fakeAccessSource{}, nil)
	auths, err := p.AuthorizationsFor(context.Background(), Identity{}, "2024")
	require.NoError(t, err)
	assert.Equal(t, Authorizations(0), auths)
}

func TestAuthorizationsFor_BaselineOnly(t *testing.T) {
	src := &fakeAccessSource{access: map[domain.EventID]domain.Access{
		"2024": {Readers: []string{"person:alice"}},
	}}
	p := NewProvider(src, nil)

	auths, err := p.AuthorizationsFor(context.Background(), Identity{ShortNames: []string{"bob"}}, "2024")
	require.NoError(t, err)
	assert.True(t, auths.Has(AuthReadPersonnel))
	assert.True(t, auths.Has(AuthReadIncidentReports))
	assert.False(t, auths.Has(AuthReadIncidents))
	assert.False(t, auths.Has(AuthWriteIncidents))
}

func TestAuthorizationsFor_Reader(t *testing.T) {
	src := &fakeAccessSource{access: map[domain.EventID]domain.Access{
		"2024": {Readers: []string{"person:alice"}},
	}}
	p := NewProvider(src, nil)

	auths, err := p.AuthorizationsFor(context.Background(), Identity{ShortNames: []string{"alice"}}, "2024")
	require.NoError(t, err)
	assert.True(t, auths.Has(AuthReadIncidents))
	assert.False(t, auths.Has(AuthWriteIncidents))
}

func TestAuthorizationsFor_WriterImpliesReader(t *testing.T) {
	src := &fakeAccessSource{access: map[domain.EventID]domain.Access{
		"2024": {Writers: []string{"position:dispatch"}},
	}}
	p := NewProvider(src, nil)

	auths, err := p.AuthorizationsFor(context.Background(), Identity{ShortNames: []string{"carol"}, Groups: []string{"dispatch"}}, "2024")
	require.NoError(t, err)
	assert.True(t, auths.Has(AuthWriteIncidents))
	assert.True(t, auths.Has(AuthReadIncidents))
}

func TestAuthorizationsFor_Admin(t *testing.T) {
	p := NewProvider(&fakeAccessSource{}, map[string]struct{}{"root": {}})

	auths, err := p.AuthorizationsFor(context.Background(), Identity{ShortNames: []string{"root"}}, "")
	require.NoError(t, err)
	assert.True(t, auths.Has(AuthImsAdmin))
}

func TestAuthorizeFieldReportRead(t *testing.T) {
	src := &fakeAccessSource{access: map[domain.EventID]domain.Access{
		"2024": {Readers: []string{"person:alice"}},
	}}
	p := NewProvider(src, nil)

	t.Run("attached to readable incident grants access", func(t *testing.T) {
		ok, err := p.AuthorizeFieldReportRead(context.Background(), Identity{ShortNames: []string{"alice"}},
			[]AttachedIncidentAccess{{Event: "2024"}}, "2024")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("attached but no incident read access denies", func(t *testing.T) {
		ok, err := p.AuthorizeFieldReportRead(context.Background(), Identity{ShortNames: []string{"bob"}},
			[]AttachedIncidentAccess{{Event: "2024"}}, "2024")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unattached falls back to baseline readIncidentReports", func(t *testing.T) {
		ok, err := p.AuthorizeFieldReportRead(context.Background(), Identity{ShortNames: []string{"bob"}}, nil, "2024")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("anonymous is always denied", func(t *testing.T) {
		ok, err := p.AuthorizeFieldReportRead(context.Background(), Identity{}, nil, "2024")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
