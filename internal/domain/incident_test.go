package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ims/pkg/domainerrors"
)

func TestIncidentValidate(t *testing.T) {
	base := NewIncident("2024", 1, time.Now().UTC())

	t.Run("defaults validate", func(t *testing.T) {
		assert.NoError(t, base.Validate())
	})

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, base.Validate())
		assert.NoError(t, base.Validate())
	})

	t.Run("rejects out-of-range priority", func(t *testing.T) {
		i := base
		i.Priority = 6
		err := i.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		i := base
		i.State = "exploding"
		err := i.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects zero created", func(t *testing.T) {
		i := base
		i.Created = time.Time{}
		err := i.Validate()
		require.Error(t, err)
	})

	t.Run("accepts UTC created", func(t *testing.T) {
		i := base
		i.Created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		// time.UTC location is non-nil, so this is valid; the zero-time
		// check above is what rejects an unset timestamp.
		assert.NoError(t, i.Validate())
	})

	t.Run("rejects invalid nested report entry", func(t *testing.T) {
		i := base
		i.ReportEntries = []ReportEntry{{Author: "alice", Created: time.Time{}, Text: "hi"}}
		err := i.Validate()
		require.Error(t, err)
	})
}

func TestParseIncidentNumber(t *testing.T) {
	_, err := ParseIncidentNumber(0)
	assert.Error(t, err)

	n, err := ParseIncidentNumber(1)
	require.NoError(t, err)
	assert.Equal(t, IncidentNumber(1), n)
}
