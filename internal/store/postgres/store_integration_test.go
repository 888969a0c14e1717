//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ims/internal/domain"
	"ims/internal/store/postgres"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(s.postgres.DB))

	st, err := postgres.New(context.Background(), s.postgres.DB)
	s.Require().NoError(err)
	s.store = st
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"field_report_report_entries",
		"field_reports",
		"incident_report_entries",
		"incident_incident_types",
		"incident_rangers",
		"incidents",
		"concentric_streets",
		"event_access",
		"events",
	))
	s.Require().NoError(s.store.CreateEvent(ctx, "2024"))
}

func (s *PostgresStoreSuite) newIncident() domain.Incident {
	return domain.NewIncident("2024", 0, time.Now().UTC().Truncate(time.Microsecond))
}

func (s *PostgresStoreSuite) TestSequentialNumberAllocation() {
	ctx := context.Background()

	first, err := s.store.CreateIncident(ctx, s.newIncident(), "alice")
	s.Require().NoError(err)
	second, err := s.store.CreateIncident(ctx, s.newIncident(), "alice")
	s.Require().NoError(err)

	s.Equal(domain.IncidentNumber(1), first.Number)
	s.Equal(first.Number+1, second.Number)
}

func (s *PostgresStoreSuite) TestSetterJournalsAndBumpsVersion() {
	ctx := context.Background()

	created, err := s.store.CreateIncident(ctx, s.newIncident(), "alice")
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetIncidentPriority(ctx, "2024", created.Number, 5, "alice"))

	after, err := s.store.IncidentWithNumber(ctx, "2024", created.Number)
	s.Require().NoError(err)
	s.Greater(after.Version, created.Version)

	s.Require().NotEmpty(after.ReportEntries)
	tail := after.ReportEntries[len(after.ReportEntries)-1]
	s.Equal("Changed priority to: 5", tail.Text)
	s.True(tail.Automatic)
}

func (s *PostgresStoreSuite) TestImportCollisionConflicts() {
	ctx := context.Background()

	created, err := s.store.CreateIncident(ctx, s.newIncident(), "alice")
	s.Require().NoError(err)

	dupe := s.newIncident()
	dupe.Number = created.Number
	dupe.Version = 1
	err = s.store.ImportIncident(ctx, dupe)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *PostgresStoreSuite) TestAttachDetachFieldReport() {
	ctx := context.Background()

	inc, err := s.store.CreateIncident(ctx, s.newIncident(), "alice")
	s.Require().NoError(err)
	fr, err := s.store.CreateIncidentReport(ctx,
		domain.NewFieldReport("2024", 0, time.Now().UTC().Truncate(time.Microsecond)), "bob")
	s.Require().NoError(err)

	s.Require().NoError(s.store.AttachIncidentReportToIncident(ctx, "2024", fr.Number, inc.Number, "bob"))

	attached, err := s.store.IncidentsAttachedToIncidentReport(ctx, "2024", fr.Number)
	s.Require().NoError(err)
	s.Equal([]domain.IncidentNumber{inc.Number}, attached)

	s.Require().NoError(s.store.DetachIncidentReportFromIncident(ctx, "2024", fr.Number, "bob"))
	attached, err = s.store.IncidentsAttachedToIncidentReport(ctx, "2024", fr.Number)
	s.Require().NoError(err)
	s.Empty(attached)
}

func (s *PostgresStoreSuite) TestExportImportRoundTrip() {
	ctx := context.Background()

	s.Require().NoError(s.store.SetReaders(ctx, "2024", []string{"person:alice"}))
	s.Require().NoError(s.store.CreateConcentricStreet(ctx, "2024", "A", "Arcade"))
	inc, err := s.store.CreateIncident(ctx, s.newIncident(), "alice")
	s.Require().NoError(err)
	s.Require().NoError(s.store.SetIncidentSummary(ctx, "2024", inc.Number, "lost child", "alice"))

	doc, err := s.store.Export(ctx)
	s.Require().NoError(err)
	firstJSON, err := json.Marshal(doc)
	s.Require().NoError(err)

	// Re-import into a fresh schema.
	fresh := containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(fresh.DB))
	freshStore, err := postgres.New(ctx, fresh.DB)
	s.Require().NoError(err)
	s.Require().NoError(freshStore.Import(ctx, doc))

	again, err := freshStore.Export(ctx)
	s.Require().NoError(err)
	secondJSON, err := json.Marshal(again)
	s.Require().NoError(err)

	s.Equal(string(firstJSON), string(secondJSON))
}

func (s *PostgresStoreSuite) TestConcurrentCreatesAllocateDistinctNumbers() {
	ctx := context.Background()
	const writers = 8

	results := make(chan domain.IncidentNumber, writers)
	for range writers {
		go func() {
			inc, err := s.store.CreateIncident(ctx, s.newIncident(), "alice")
			if err != nil {
				results <- 0
				return
			}
			results <- inc.Number
		}()
	}

	seen := make(map[domain.IncidentNumber]bool, writers)
	for range writers {
		n := <-results
		s.Require().NotZero(n)
		s.False(seen[n], "incident number %d allocated twice", n)
		seen[n] = true
	}
}
