// Package postgres implements internal/store.Store over PostgreSQL via
// database/sql and github.com/lib/pq. Incident and field report edits
// compose ad hoc multi-table, multi-statement transactions (partial
// field edits, atomic attach/detach, journal fan-out), so the queries
// are written in place rather than generated.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ims/internal/domain"
	"ims/internal/store"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/sentinel"
	"ims/pkg/stringutil"
)

// Clock lets tests substitute a fixed time source.
type Clock func() time.Time

// Store is the PostgreSQL-backed implementation of store.Store.
type Store struct {
	db    *sql.DB
	clock Clock
	sink  store.Sink
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to timestamp automatic report
// entries, for deterministic tests.
func WithClock(clock Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithSink registers the Sink that receives a WriteEvent after every
// committed mutation.
func WithSink(sink store.Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// New constructs a Store over an already-migrated *sql.DB and seeds the
// system incident types, without emitting WriteEvents for the seed.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	for _, it := range domain.DefaultIncidentTypes() {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO incident_types (name, hidden) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			it.Name, it.Hidden,
		); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed incident types")
		}
	}
	return s, nil
}

func (s *Store) now() time.Time { return s.clock().UTC() }

func (s *Store) publish(evt store.WriteEvent) {
	if s.sink != nil {
		s.sink.Publish(evt)
	}
}

func notFound(format string, args ...any) error {
	return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, fmt.Sprintf(format, args...))
}

func internalErr(err error, message string) error {
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// querier is the common subset of *sql.DB and *sql.Tx a Store method
// needs; s.q(ctx) resolves to the caller's transaction when one has
// been injected via tx.go, and to the bare *sql.DB otherwise.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) eventExists(ctx context.Context, event domain.EventID) error {
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE event_id = $1)`, event.String()).Scan(&exists)
	if err != nil {
		return internalErr(err, "failed to check event")
	}
	if !exists {
		return notFound("unknown event %q", event.String())
	}
	return nil
}

// lockEvent takes a row lock on the event for the duration of the
// caller's transaction, serializing number allocation per event so
// concurrent creates never race the MAX(number)+1 read. Doubles as the
// existence check.
func (s *Store) lockEvent(ctx context.Context, event domain.EventID) error {
	var id string
	err := s.q(ctx).QueryRowContext(ctx, `SELECT event_id FROM events WHERE event_id = $1 FOR UPDATE`, event.String()).Scan(&id)
	if err == sql.ErrNoRows {
		return notFound("unknown event %q", event.String())
	}
	if err != nil {
		return internalErr(err, "failed to lock event")
	}
	return nil
}

func (s *Store) incidentExists(ctx context.Context, event domain.EventID, number domain.IncidentNumber) error {
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM incidents WHERE event_id = $1 AND number = $2)`, event.String(), number.Int()).Scan(&exists)
	if err != nil {
		return internalErr(err, "failed to check incident")
	}
	if !exists {
		return notFound("unknown incident %s/%d", event.String(), number.Int())
	}
	return nil
}

func (s *Store) fieldReportExists(ctx context.Context, event domain.EventID, number domain.FieldReportNumber) error {
	var exists bool
	err := s.q(ctx).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM field_reports WHERE event_id = $1 AND number = $2)`, event.String(), number.Int()).Scan(&exists)
	if err != nil {
		return internalErr(err, "failed to check field report")
	}
	if !exists {
		return notFound("unknown field report %s/%d", event.String(), number.Int())
	}
	return nil
}

// Events returns every known event, in creation order.
func (s *Store) Events(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT event_id FROM events ORDER BY seq`)
	if err != nil {
		return nil, internalErr(err, "failed to list events")
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, internalErr(err, "failed to scan event")
		}
		out = append(out, domain.Event{ID: domain.EventID(id)})
	}
	return out, rows.Err()
}

// CreateEvent is idempotent.
func (s *Store) CreateEvent(ctx context.Context, event domain.EventID) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO events (event_id) VALUES ($1) ON CONFLICT DO NOTHING`, event.String())
		if err != nil {
			return internalErr(err, "failed to create event")
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO event_access (event_id) VALUES ($1) ON CONFLICT DO NOTHING`, event.String()); err != nil {
			return internalErr(err, "failed to initialize event access")
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.publish(store.WriteEvent{Class: store.WriteClassEvent, Event: event})
		}
		return nil
	})
}

// IncidentTypes returns the catalog, optionally including hidden types.
func (s *Store) IncidentTypes(ctx context.Context, includeHidden bool) ([]domain.IncidentType, error) {
	query := `SELECT name, hidden FROM incident_types`
	if !includeHidden {
		query += ` WHERE hidden = false`
	}
	query += ` ORDER BY seq`

	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, internalErr(err, "failed to list incident types")
	}
	defer rows.Close()

	out := make([]domain.IncidentType, 0)
	for rows.Next() {
		var it domain.IncidentType
		if err := rows.Scan(&it.Name, &it.Hidden); err != nil {
			return nil, internalErr(err, "failed to scan incident type")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CreateIncidentType is idempotent: creating a name that already exists
// leaves its hidden flag untouched.
func (s *Store) CreateIncidentType(ctx context.Context, name string, hidden bool) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO incident_types (name, hidden) VALUES ($1, $2) ON CONFLICT DO NOTHING`, name, hidden)
		if err != nil {
			return internalErr(err, "failed to create incident type")
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.publish(store.WriteEvent{Class: store.WriteClassIncidentType})
		}
		return nil
	})
}

func (s *Store) setIncidentTypeHidden(ctx context.Context, names []string, hidden bool) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, name := range names {
			res, err := tx.ExecContext(ctx, `UPDATE incident_types SET hidden = $1 WHERE name = $2`, hidden, name)
			if err != nil {
				return internalErr(err, "failed to update incident type")
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return notFound("unknown incident type %q", name)
			}
		}
		s.publish(store.WriteEvent{Class: store.WriteClassIncidentType})
		return nil
	})
}

// ShowIncidentTypes clears the hidden flag on the given names.
func (s *Store) ShowIncidentTypes(ctx context.Context, names []string) error {
	return s.setIncidentTypeHidden(ctx, names, false)
}

// HideIncidentTypes sets the hidden flag on the given names.
func (s *Store) HideIncidentTypes(ctx context.Context, names []string) error {
	return s.setIncidentTypeHidden(ctx, names, true)
}

// Access returns the per-event ACL.
func (s *Store) Access(ctx context.Context, event domain.EventID) (domain.Access, error) {
	var readers, writers, reporters pq.StringArray
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT readers, writers, reporters FROM event_access WHERE event_id = $1`, event.String(),
	).Scan(&readers, &writers, &reporters)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Access{}, notFound("unknown event %q", event.String())
	}
	if err != nil {
		return domain.Access{}, internalErr(err, "failed to load event access")
	}
	return domain.Access{Readers: []string(readers), Writers: []string(writers), Reporters: []string(reporters)}, nil
}

func (s *Store) setAccessColumn(ctx context.Context, event domain.EventID, column string, exprs []string) error {
	deduped := stringutil.DedupeAndTrim(exprs)
	query := fmt.Sprintf(`UPDATE event_access SET %s = $1 WHERE event_id = $2`, column)
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, pq.Array(deduped), event.String())
		if err != nil {
			return internalErr(err, "failed to update event access")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("unknown event %q", event.String())
		}
		s.publish(store.WriteEvent{Class: store.WriteClassAccess, Event: event})
		return nil
	})
}

func (s *Store) SetReaders(ctx context.Context, event domain.EventID, exprs []string) error {
	return s.setAccessColumn(ctx, event, "readers", exprs)
}

func (s *Store) SetWriters(ctx context.Context, event domain.EventID, exprs []string) error {
	return s.setAccessColumn(ctx, event, "writers", exprs)
}

func (s *Store) SetReporters(ctx context.Context, event domain.EventID, exprs []string) error {
	return s.setAccessColumn(ctx, event, "reporters", exprs)
}

// ConcentricStreets returns the per-event street dictionary.
func (s *Store) ConcentricStreets(ctx context.Context, event domain.EventID) (map[domain.ConcentricStreetID]string, error) {
	if err := s.eventExists(ctx, event); err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT street_id, name FROM concentric_streets WHERE event_id = $1`, event.String())
	if err != nil {
		return nil, internalErr(err, "failed to list concentric streets")
	}
	defer rows.Close()

	out := make(map[domain.ConcentricStreetID]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, internalErr(err, "failed to scan concentric street")
		}
		out[domain.ConcentricStreetID(id)] = name
	}
	return out, rows.Err()
}

// CreateConcentricStreet adds a street; IDs are never renumbered or
// removed.
func (s *Store) CreateConcentricStreet(ctx context.Context, event domain.EventID, id domain.ConcentricStreetID, name string) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.eventExists(ctx, event); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO concentric_streets (event_id, street_id, name) VALUES ($1, $2, $3)`, event.String(), id.String(), name)
		if err != nil {
			if isUniqueViolation(err) {
				return dErrors.Newf(dErrors.CodeConflict, "concentric street %q already exists", id.String())
			}
			return internalErr(err, "failed to create concentric street")
		}
		s.publish(store.WriteEvent{Class: store.WriteClassStreet, Event: event})
		return nil
	})
}

func (s *Store) loadIncidentRangers(ctx context.Context, event domain.EventID, number domain.IncidentNumber) ([]domain.RangerHandle, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT ranger_handle FROM incident_rangers WHERE event_id = $1 AND incident_number = $2 ORDER BY ranger_handle`,
		event.String(), number.Int(),
	)
	if err != nil {
		return nil, internalErr(err, "failed to load incident rangers")
	}
	defer rows.Close()

	var out []domain.RangerHandle
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, internalErr(err, "failed to scan incident ranger")
		}
		out = append(out, domain.RangerHandle(h))
	}
	return out, rows.Err()
}

func (s *Store) loadIncidentAssignedTypes(ctx context.Context, event domain.EventID, number domain.IncidentNumber) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT incident_type FROM incident_incident_types WHERE event_id = $1 AND incident_number = $2 ORDER BY incident_type`,
		event.String(), number.Int(),
	)
	if err != nil {
		return nil, internalErr(err, "failed to load incident types")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, internalErr(err, "failed to scan incident type")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) loadIncidentReportEntries(ctx context.Context, event domain.EventID, number domain.IncidentNumber) ([]domain.ReportEntry, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT author, created, body, automatic FROM incident_report_entries WHERE event_id = $1 AND incident_number = $2 ORDER BY created, id`,
		event.String(), number.Int(),
	)
	if err != nil {
		return nil, internalErr(err, "failed to load incident report entries")
	}
	defer rows.Close()

	var out []domain.ReportEntry
	for rows.Next() {
		var e domain.ReportEntry
		var author string
		if err := rows.Scan(&author, &e.Created, &e.Text, &e.Automatic); err != nil {
			return nil, internalErr(err, "failed to scan incident report entry")
		}
		e.Author = domain.RangerHandle(author)
		e.Created = e.Created.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) insertIncidentReportEntry(ctx context.Context, event domain.EventID, number domain.IncidentNumber, e domain.ReportEntry) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO incident_report_entries (event_id, incident_number, author, created, body, automatic) VALUES ($1, $2, $3, $4, $5, $6)`,
		event.String(), number.Int(), e.Author.String(), e.Created, e.Text, e.Automatic,
	)
	if err != nil {
		return internalErr(err, "failed to record incident report entry")
	}
	return nil
}

func (s *Store) replaceIncidentRangers(ctx context.Context, event domain.EventID, number domain.IncidentNumber, handles []domain.RangerHandle) error {
	ex := s.q(ctx)
	if _, err := ex.ExecContext(ctx, `DELETE FROM incident_rangers WHERE event_id = $1 AND incident_number = $2`, event.String(), number.Int()); err != nil {
		return internalErr(err, "failed to clear incident rangers")
	}
	for _, h := range handles {
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO incident_rangers (event_id, incident_number, ranger_handle) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			event.String(), number.Int(), h.String(),
		); err != nil {
			return internalErr(err, "failed to set incident rangers")
		}
	}
	return nil
}

func (s *Store) replaceIncidentTypes(ctx context.Context, event domain.EventID, number domain.IncidentNumber, types []string) error {
	ex := s.q(ctx)
	if _, err := ex.ExecContext(ctx, `DELETE FROM incident_incident_types WHERE event_id = $1 AND incident_number = $2`, event.String(), number.Int()); err != nil {
		return internalErr(err, "failed to clear incident types")
	}
	for _, t := range types {
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO incident_incident_types (event_id, incident_number, incident_type) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			event.String(), number.Int(), t,
		); err != nil {
			return internalErr(err, "failed to set incident types")
		}
	}
	return nil
}

func (s *Store) loadIncident(ctx context.Context, event domain.EventID, number domain.IncidentNumber) (domain.Incident, error) {
	var inc domain.Incident
	var locType, concentric string
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT version, created, priority, state, summary,
		       location_name, location_type, location_concentric,
		       location_radial_hour, location_radial_minute, location_description
		FROM incidents WHERE event_id = $1 AND number = $2
	`, event.String(), number.Int()).Scan(
		&inc.Version, &inc.Created, &inc.Priority, &inc.State, &inc.Summary,
		&inc.Location.Name, &locType, &concentric,
		&inc.Location.RadialHour, &inc.Location.RadialMinute, &inc.Location.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Incident{}, notFound("unknown incident %s/%d", event.String(), number.Int())
	}
	if err != nil {
		return domain.Incident{}, internalErr(err, "failed to load incident")
	}
	inc.Event = event
	inc.Number = number
	inc.Created = inc.Created.UTC()
	inc.Location.Type = domain.LocationType(locType)
	inc.Location.Concentric = domain.ConcentricStreetID(concentric)

	rangers, err := s.loadIncidentRangers(ctx, event, number)
	if err != nil {
		return domain.Incident{}, err
	}
	inc.RangerHandles = rangers

	types, err := s.loadIncidentAssignedTypes(ctx, event, number)
	if err != nil {
		return domain.Incident{}, err
	}
	inc.IncidentTypes = types

	entries, err := s.loadIncidentReportEntries(ctx, event, number)
	if err != nil {
		return domain.Incident{}, err
	}
	inc.ReportEntries = entries

	// Validation on every read back, so row corruption surfaces at the
	// read site instead of leaking to clients.
	if err := inc.Validate(); err != nil {
		return domain.Incident{}, err
	}
	return inc, nil
}

func (s *Store) insertIncidentRow(ctx context.Context, incident domain.Incident) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO incidents (event_id, number, version, created, priority, state, summary,
			location_name, location_type, location_concentric, location_radial_hour,
			location_radial_minute, location_description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, incident.Event.String(), incident.Number.Int(), incident.Version, incident.Created, incident.Priority,
		string(incident.State), incident.Summary, incident.Location.Name, string(incident.Location.Type),
		incident.Location.Concentric.String(), incident.Location.RadialHour, incident.Location.RadialMinute,
		incident.Location.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.Newf(dErrors.CodeConflict, "incident %d already exists in event %q", incident.Number.Int(), incident.Event.String())
		}
		return internalErr(err, "failed to insert incident")
	}
	if err := s.replaceIncidentRangers(ctx, incident.Event, incident.Number, incident.RangerHandles); err != nil {
		return err
	}
	if err := s.replaceIncidentTypes(ctx, incident.Event, incident.Number, incident.IncidentTypes); err != nil {
		return err
	}
	for _, e := range incident.ReportEntries {
		if err := s.insertIncidentReportEntry(ctx, incident.Event, incident.Number, e); err != nil {
			return err
		}
	}
	return nil
}

// Incidents returns every incident in the event, ordered by number.
func (s *Store) Incidents(ctx context.Context, event domain.EventID) ([]domain.Incident, error) {
	if err := s.eventExists(ctx, event); err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT number FROM incidents WHERE event_id = $1 ORDER BY number`, event.String())
	if err != nil {
		return nil, internalErr(err, "failed to list incidents")
	}
	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, internalErr(err, "failed to scan incident number")
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, internalErr(err, "failed to list incidents")
	}
	rows.Close()

	out := make([]domain.Incident, 0, len(numbers))
	for _, n := range numbers {
		inc, err := s.loadIncident(ctx, event, domain.IncidentNumber(n))
		if err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, nil
}

// IncidentWithNumber looks up one incident by number.
func (s *Store) IncidentWithNumber(ctx context.Context, event domain.EventID, number domain.IncidentNumber) (domain.Incident, error) {
	return s.loadIncident(ctx, event, number)
}

// CreateIncident allocates the next number within event and records the
// creation's automatic report entries.
func (s *Store) CreateIncident(ctx context.Context, incident domain.Incident, author domain.RangerHandle) (domain.Incident, error) {
	_ = author
	var result domain.Incident
	err := runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.lockEvent(ctx, incident.Event); err != nil {
			return err
		}

		var number int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM incidents WHERE event_id = $1`, incident.Event.String()).Scan(&number); err != nil {
			return internalErr(err, "failed to allocate incident number")
		}
		incident.Number = domain.IncidentNumber(number)
		incident.Version = 1

		now := s.now()
		entries := append([]domain.ReportEntry(nil), incident.ReportEntries...)
		entries = append(entries, store.AutomaticEntry(now, store.FieldPriority, store.FormatPriority(incident.Priority)))
		entries = append(entries, store.AutomaticEntry(now, store.FieldState, string(incident.State)))
		if incident.Summary != "" {
			entries = append(entries, store.AutomaticEntry(now, store.FieldSummary, incident.Summary))
		}
		if len(incident.RangerHandles) > 0 {
			entries = append(entries, store.AutomaticSetEntry(now, store.FieldRangers, store.RangerHandleStrings(incident.RangerHandles)))
		}
		if len(incident.IncidentTypes) > 0 {
			entries = append(entries, store.AutomaticSetEntry(now, store.FieldIncidentTypes, incident.IncidentTypes))
		}
		incident.ReportEntries = entries

		if err := incident.Validate(); err != nil {
			return err
		}
		if err := s.insertIncidentRow(ctx, incident); err != nil {
			return err
		}

		loaded, err := s.loadIncident(ctx, incident.Event, incident.Number)
		if err != nil {
			return err
		}
		result = loaded
		s.publish(store.WriteEvent{Class: store.WriteClassIncident, Event: incident.Event, IncidentNumber: &result.Number})
		return nil
	})
	if err != nil {
		return domain.Incident{}, err
	}
	return result, nil
}

// ImportIncident honors the incident's own number, raising a conflict
// if it's already taken.
func (s *Store) ImportIncident(ctx context.Context, incident domain.Incident) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.eventExists(ctx, incident.Event); err != nil {
			return err
		}
		if err := incident.Validate(); err != nil {
			return err
		}
		return s.insertIncidentRow(ctx, incident)
	})
}

// mutateIncident centralizes the read-validate-write-bump-publish
// sequence every SetIncident_* operation shares, all within one
// transaction.
func (s *Store) mutateIncident(ctx context.Context, event domain.EventID, number domain.IncidentNumber, mutate func(ctx context.Context, tx *sql.Tx, now time.Time) error) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.incidentExists(ctx, event, number); err != nil {
			return err
		}
		now := s.now()
		if err := mutate(ctx, tx, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE incidents SET version = version + 1 WHERE event_id = $1 AND number = $2`, event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to bump incident version")
		}
		updated, err := s.loadIncident(ctx, event, number)
		if err != nil {
			return err
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		s.publish(store.WriteEvent{Class: store.WriteClassIncident, Event: event, IncidentNumber: &number})
		return nil
	})
}

func (s *Store) SetIncidentPriority(ctx context.Context, event domain.EventID, number domain.IncidentNumber, priority int, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, `UPDATE incidents SET priority = $1 WHERE event_id = $2 AND number = $3`, priority, event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to update incident priority")
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticEntry(now, store.FieldPriority, store.FormatPriority(priority)))
	})
}

func (s *Store) SetIncidentState(ctx context.Context, event domain.EventID, number domain.IncidentNumber, state domain.IncidentState, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, `UPDATE incidents SET state = $1 WHERE event_id = $2 AND number = $3`, string(state), event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to update incident state")
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticEntry(now, store.FieldState, string(state)))
	})
}

func (s *Store) SetIncidentSummary(ctx context.Context, event domain.EventID, number domain.IncidentNumber, summary string, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, `UPDATE incidents SET summary = $1 WHERE event_id = $2 AND number = $3`, summary, event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to update incident summary")
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticEntry(now, store.FieldSummary, summary))
	})
}

func (s *Store) SetIncidentLocationName(ctx context.Context, event domain.EventID, number domain.IncidentNumber, name string, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, `UPDATE incidents SET location_name = $1 WHERE event_id = $2 AND number = $3`, name, event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to update incident location name")
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticEntry(now, store.FieldLocationName, name))
	})
}

func (s *Store) SetIncidentLocationConcentric(ctx context.Context, event domain.EventID, number domain.IncidentNumber, id domain.ConcentricStreetID, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, `UPDATE incidents SET location_type = $1, location_concentric = $2 WHERE event_id = $3 AND number = $4`,
			string(domain.LocationTypeGarett), id.String(), event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to update incident location concentric street")
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticEntry(now, store.FieldLocationConcentric, id.String()))
	})
}

func (s *Store) SetIncidentLocationRadialHour(ctx context.Context, event domain.EventID, number domain.IncidentNumber, hour int, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, `UPDATE incidents SET location_type = $1, location_radial_hour = $2 WHERE event_id = $3 AND number = $4`,
			string(domain.LocationTypeGarett), hour, event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to update incident location radial hour")
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticEntry(now, store.FieldLocationRadialHour, store.FormatPriority(hour)))
	})
}

func (s *Store) SetIncidentLocationRadialMinute(ctx context.Context, event domain.EventID, number domain.IncidentNumber, minute int, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, `UPDATE incidents SET location_type = $1, location_radial_minute = $2 WHERE event_id = $3 AND number = $4`,
			string(domain.LocationTypeGarett), minute, event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to update incident location radial minute")
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticEntry(now, store.FieldLocationRadialMin, store.FormatPriority(minute)))
	})
}

func (s *Store) SetIncidentLocationDescription(ctx context.Context, event domain.EventID, number domain.IncidentNumber, description string, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, `UPDATE incidents SET location_description = $1 WHERE event_id = $2 AND number = $3`, description, event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to update incident location description")
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticEntry(now, store.FieldLocationDescription, description))
	})
}

func (s *Store) SetIncidentRangers(ctx context.Context, event domain.EventID, number domain.IncidentNumber, handles []domain.RangerHandle, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if err := s.replaceIncidentRangers(ctx, event, number, handles); err != nil {
			return err
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticSetEntry(now, store.FieldRangers, store.RangerHandleStrings(handles)))
	})
}

func (s *Store) SetIncidentIncidentTypes(ctx context.Context, event domain.EventID, number domain.IncidentNumber, types []string, _ domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if err := s.replaceIncidentTypes(ctx, event, number, types); err != nil {
			return err
		}
		return s.insertIncidentReportEntry(ctx, event, number, store.AutomaticSetEntry(now, store.FieldIncidentTypes, types))
	})
}

// AddReportEntriesToIncident appends user-authored entries, stamping
// Automatic=false and the author handle on each.
func (s *Store) AddReportEntriesToIncident(ctx context.Context, event domain.EventID, number domain.IncidentNumber, entries []domain.ReportEntry, author domain.RangerHandle) error {
	return s.mutateIncident(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		for _, e := range entries {
			if e.Created.IsZero() {
				e.Created = now
			}
			e.Author = author
			e.Automatic = false
			if err := s.insertIncidentReportEntry(ctx, event, number, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) loadFieldReportEntries(ctx context.Context, event domain.EventID, number domain.FieldReportNumber) ([]domain.ReportEntry, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT author, created, body, automatic FROM field_report_report_entries WHERE event_id = $1 AND field_report_number = $2 ORDER BY created, id`,
		event.String(), number.Int(),
	)
	if err != nil {
		return nil, internalErr(err, "failed to load field report entries")
	}
	defer rows.Close()

	var out []domain.ReportEntry
	for rows.Next() {
		var e domain.ReportEntry
		var author string
		if err := rows.Scan(&author, &e.Created, &e.Text, &e.Automatic); err != nil {
			return nil, internalErr(err, "failed to scan field report entry")
		}
		e.Author = domain.RangerHandle(author)
		e.Created = e.Created.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) insertFieldReportEntry(ctx context.Context, event domain.EventID, number domain.FieldReportNumber, e domain.ReportEntry) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO field_report_report_entries (event_id, field_report_number, author, created, body, automatic) VALUES ($1, $2, $3, $4, $5, $6)`,
		event.String(), number.Int(), e.Author.String(), e.Created, e.Text, e.Automatic,
	)
	if err != nil {
		return internalErr(err, "failed to record field report entry")
	}
	return nil
}

func (s *Store) loadFieldReport(ctx context.Context, event domain.EventID, number domain.FieldReportNumber) (domain.FieldReport, error) {
	var fr domain.FieldReport
	var incidentNumber sql.NullInt64
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT created, summary, incident_number FROM field_reports WHERE event_id = $1 AND number = $2`,
		event.String(), number.Int(),
	).Scan(&fr.Created, &fr.Summary, &incidentNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FieldReport{}, notFound("unknown field report %s/%d", event.String(), number.Int())
	}
	if err != nil {
		return domain.FieldReport{}, internalErr(err, "failed to load field report")
	}
	fr.Event = event
	fr.Number = number
	fr.Created = fr.Created.UTC()
	if incidentNumber.Valid {
		n := domain.IncidentNumber(incidentNumber.Int64)
		fr.Incident = &n
	}

	entries, err := s.loadFieldReportEntries(ctx, event, number)
	if err != nil {
		return domain.FieldReport{}, err
	}
	fr.ReportEntries = entries

	if err := fr.Validate(); err != nil {
		return domain.FieldReport{}, err
	}
	return fr, nil
}

func (s *Store) insertFieldReportRow(ctx context.Context, report domain.FieldReport) error {
	var incidentNumber any
	if report.Incident != nil {
		incidentNumber = report.Incident.Int()
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO field_reports (event_id, number, created, summary, incident_number) VALUES ($1, $2, $3, $4, $5)`,
		report.Event.String(), report.Number.Int(), report.Created, report.Summary, incidentNumber,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.Newf(dErrors.CodeConflict, "field report %d already exists in event %q", report.Number.Int(), report.Event.String())
		}
		return internalErr(err, "failed to insert field report")
	}
	for _, e := range report.ReportEntries {
		if err := s.insertFieldReportEntry(ctx, report.Event, report.Number, e); err != nil {
			return err
		}
	}
	return nil
}

// IncidentReports returns every field report in the event.
func (s *Store) IncidentReports(ctx context.Context, event domain.EventID) ([]domain.FieldReport, error) {
	return s.queryFieldReportNumbers(ctx, event, `SELECT number FROM field_reports WHERE event_id = $1 ORDER BY number`, event.String())
}

// IncidentReportsByIncident filters to reports currently attached to
// incident.
func (s *Store) IncidentReportsByIncident(ctx context.Context, event domain.EventID, incident domain.IncidentNumber) ([]domain.FieldReport, error) {
	return s.queryFieldReportNumbers(ctx, event,
		`SELECT number FROM field_reports WHERE event_id = $1 AND incident_number = $2 ORDER BY number`,
		event.String(), incident.Int())
}

func (s *Store) queryFieldReportNumbers(ctx context.Context, event domain.EventID, query string, args ...any) ([]domain.FieldReport, error) {
	if err := s.eventExists(ctx, event); err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalErr(err, "failed to list field reports")
	}
	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return nil, internalErr(err, "failed to scan field report number")
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, internalErr(err, "failed to list field reports")
	}
	rows.Close()

	out := make([]domain.FieldReport, 0, len(numbers))
	for _, n := range numbers {
		fr, err := s.loadFieldReport(ctx, event, domain.FieldReportNumber(n))
		if err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, nil
}

// IncidentReportWithNumber looks up one field report by number.
func (s *Store) IncidentReportWithNumber(ctx context.Context, event domain.EventID, number domain.FieldReportNumber) (domain.FieldReport, error) {
	return s.loadFieldReport(ctx, event, number)
}

// CreateIncidentReport allocates the next field report number within
// event.
func (s *Store) CreateIncidentReport(ctx context.Context, report domain.FieldReport, author domain.RangerHandle) (domain.FieldReport, error) {
	_ = author
	var result domain.FieldReport
	err := runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.lockEvent(ctx, report.Event); err != nil {
			return err
		}

		var number int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM field_reports WHERE event_id = $1`, report.Event.String()).Scan(&number); err != nil {
			return internalErr(err, "failed to allocate field report number")
		}
		report.Number = domain.FieldReportNumber(number)

		now := s.now()
		entries := append([]domain.ReportEntry(nil), report.ReportEntries...)
		if report.Summary != "" {
			entries = append(entries, store.AutomaticEntry(now, store.FieldSummary, report.Summary))
		}
		report.ReportEntries = entries

		if err := report.Validate(); err != nil {
			return err
		}
		if err := s.insertFieldReportRow(ctx, report); err != nil {
			return err
		}

		loaded, err := s.loadFieldReport(ctx, report.Event, report.Number)
		if err != nil {
			return err
		}
		result = loaded
		s.publish(store.WriteEvent{Class: store.WriteClassFieldReport, Event: report.Event, FieldReportNumber: &result.Number})
		return nil
	})
	if err != nil {
		return domain.FieldReport{}, err
	}
	return result, nil
}

// ImportIncidentReport honors the report's own number.
func (s *Store) ImportIncidentReport(ctx context.Context, report domain.FieldReport) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.eventExists(ctx, report.Event); err != nil {
			return err
		}
		if err := report.Validate(); err != nil {
			return err
		}
		return s.insertFieldReportRow(ctx, report)
	})
}

func (s *Store) mutateFieldReport(ctx context.Context, event domain.EventID, number domain.FieldReportNumber, mutate func(ctx context.Context, tx *sql.Tx, now time.Time) error) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.fieldReportExists(ctx, event, number); err != nil {
			return err
		}
		now := s.now()
		if err := mutate(ctx, tx, now); err != nil {
			return err
		}
		updated, err := s.loadFieldReport(ctx, event, number)
		if err != nil {
			return err
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		s.publish(store.WriteEvent{Class: store.WriteClassFieldReport, Event: event, FieldReportNumber: &number})
		return nil
	})
}

func (s *Store) SetIncidentReportSummary(ctx context.Context, event domain.EventID, number domain.FieldReportNumber, summary string, _ domain.RangerHandle) error {
	return s.mutateFieldReport(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		if _, err := tx.ExecContext(ctx, `UPDATE field_reports SET summary = $1 WHERE event_id = $2 AND number = $3`, summary, event.String(), number.Int()); err != nil {
			return internalErr(err, "failed to update field report summary")
		}
		return s.insertFieldReportEntry(ctx, event, number, store.AutomaticEntry(now, store.FieldSummary, summary))
	})
}

// AddReportEntriesToIncidentReport appends user-authored entries.
func (s *Store) AddReportEntriesToIncidentReport(ctx context.Context, event domain.EventID, number domain.FieldReportNumber, entries []domain.ReportEntry, author domain.RangerHandle) error {
	return s.mutateFieldReport(ctx, event, number, func(ctx context.Context, tx *sql.Tx, now time.Time) error {
		for _, e := range entries {
			if e.Created.IsZero() {
				e.Created = now
			}
			e.Author = author
			e.Automatic = false
			if err := s.insertFieldReportEntry(ctx, event, number, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// AttachIncidentReportToIncident attaches report to incident, both
// within event. Both sides must exist.
func (s *Store) AttachIncidentReportToIncident(ctx context.Context, event domain.EventID, report domain.FieldReportNumber, incident domain.IncidentNumber, author domain.RangerHandle) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.fieldReportExists(ctx, event, report); err != nil {
			return err
		}
		if err := s.incidentExists(ctx, event, incident); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE field_reports SET incident_number = $1 WHERE event_id = $2 AND number = $3`, incident.Int(), event.String(), report.Int()); err != nil {
			return internalErr(err, "failed to attach field report")
		}

		now := s.now()
		entry := domain.ReportEntry{
			Author:    author,
			Created:   now,
			Text:      domain.AutomaticText("incident", store.FormatPriority(incident.Int())),
			Automatic: true,
		}
		if err := s.insertFieldReportEntry(ctx, event, report, entry); err != nil {
			return err
		}

		s.publish(store.WriteEvent{Class: store.WriteClassFieldReport, Event: event, FieldReportNumber: &report})
		return nil
	})
}

// DetachIncidentReportFromIncident clears the report's attachment, if
// any.
func (s *Store) DetachIncidentReportFromIncident(ctx context.Context, event domain.EventID, report domain.FieldReportNumber, author domain.RangerHandle) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.fieldReportExists(ctx, event, report); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE field_reports SET incident_number = NULL WHERE event_id = $1 AND number = $2`, event.String(), report.Int()); err != nil {
			return internalErr(err, "failed to detach field report")
		}

		now := s.now()
		entry := domain.ReportEntry{Author: author, Created: now, Text: "Detached from incident", Automatic: true}
		if err := s.insertFieldReportEntry(ctx, event, report, entry); err != nil {
			return err
		}

		s.publish(store.WriteEvent{Class: store.WriteClassFieldReport, Event: event, FieldReportNumber: &report})
		return nil
	})
}

// IncidentsAttachedToIncidentReport returns 0 or 1 incident numbers.
func (s *Store) IncidentsAttachedToIncidentReport(ctx context.Context, event domain.EventID, report domain.FieldReportNumber) ([]domain.IncidentNumber, error) {
	var incidentNumber sql.NullInt64
	err := s.q(ctx).QueryRowContext(ctx, `SELECT incident_number FROM field_reports WHERE event_id = $1 AND number = $2`, event.String(), report.Int()).Scan(&incidentNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("unknown field report %s/%d", event.String(), report.Int())
	}
	if err != nil {
		return nil, internalErr(err, "failed to check field report attachment")
	}
	if !incidentNumber.Valid {
		return nil, nil
	}
	return []domain.IncidentNumber{domain.IncidentNumber(incidentNumber.Int64)}, nil
}

// Export serializes the full logical state inside one transaction, so
// the snapshot is consistent even under concurrent writers.
func (s *Store) Export(ctx context.Context) (*domain.ExportDocument, error) {
	var doc *domain.ExportDocument
	err := runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		d := &domain.ExportDocument{}

		typeRows, err := tx.QueryContext(ctx, `SELECT name, hidden FROM incident_types ORDER BY name`)
		if err != nil {
			return internalErr(err, "failed to export incident types")
		}
		for typeRows.Next() {
			var it domain.IncidentType
			if err := typeRows.Scan(&it.Name, &it.Hidden); err != nil {
				typeRows.Close()
				return internalErr(err, "failed to scan incident type")
			}
			d.IncidentTypes = append(d.IncidentTypes, it)
		}
		if err := typeRows.Err(); err != nil {
			typeRows.Close()
			return internalErr(err, "failed to export incident types")
		}
		typeRows.Close()

		eventRows, err := tx.QueryContext(ctx, `SELECT event_id FROM events ORDER BY event_id`)
		if err != nil {
			return internalErr(err, "failed to export events")
		}
		var eventIDs []domain.EventID
		for eventRows.Next() {
			var id string
			if err := eventRows.Scan(&id); err != nil {
				eventRows.Close()
				return internalErr(err, "failed to scan event")
			}
			eventIDs = append(eventIDs, domain.EventID(id))
		}
		if err := eventRows.Err(); err != nil {
			eventRows.Close()
			return internalErr(err, "failed to export events")
		}
		eventRows.Close()

		for _, id := range eventIDs {
			access, err := s.Access(ctx, id)
			if err != nil {
				return err
			}
			streets, err := s.ConcentricStreets(ctx, id)
			if err != nil {
				return err
			}
			incidents, err := s.Incidents(ctx, id)
			if err != nil {
				return err
			}
			reports, err := s.IncidentReports(ctx, id)
			if err != nil {
				return err
			}
			d.Events = append(d.Events, domain.ExportedEvent{
				Event:             id,
				Access:            access,
				ConcentricStreets: streets,
				Incidents:         incidents,
				FieldReports:      reports,
			})
		}

		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Import restores state into this store from an ExportDocument, inside
// one transaction. It is the caller's responsibility to ensure the
// store has no prior state; Import does not wipe existing data.
func (s *Store) Import(ctx context.Context, doc *domain.ExportDocument) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, it := range doc.IncidentTypes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO incident_types (name, hidden) VALUES ($1, $2) ON CONFLICT (name) DO UPDATE SET hidden = EXCLUDED.hidden`,
				it.Name, it.Hidden,
			); err != nil {
				return internalErr(err, "failed to import incident type")
			}
		}

		for _, ev := range doc.Events {
			if _, err := tx.ExecContext(ctx, `INSERT INTO events (event_id) VALUES ($1) ON CONFLICT DO NOTHING`, ev.Event.String()); err != nil {
				return internalErr(err, "failed to import event")
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO event_access (event_id) VALUES ($1) ON CONFLICT DO NOTHING`, ev.Event.String()); err != nil {
				return internalErr(err, "failed to import event access")
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE event_access SET readers = $1, writers = $2, reporters = $3 WHERE event_id = $4`,
				pq.Array(ev.Access.Readers), pq.Array(ev.Access.Writers), pq.Array(ev.Access.Reporters), ev.Event.String(),
			); err != nil {
				return internalErr(err, "failed to import event access")
			}
			for id, name := range ev.ConcentricStreets {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO concentric_streets (event_id, street_id, name) VALUES ($1, $2, $3) ON CONFLICT (event_id, street_id) DO UPDATE SET name = EXCLUDED.name`,
					ev.Event.String(), id.String(), name,
				); err != nil {
					return internalErr(err, "failed to import concentric street")
				}
			}
			for _, inc := range ev.Incidents {
				if err := s.insertIncidentRow(ctx, inc); err != nil {
					return err
				}
			}
			for _, fr := range ev.FieldReports {
				if err := s.insertFieldReportRow(ctx, fr); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

var _ store.Store = (*Store)(nil)
