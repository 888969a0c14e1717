// Package store defines the transactional data-store contract: per-event
// incident records with append-only report-entry journals, field reports,
// concentric-street dictionaries, the incident-type catalog, and per-event
// ACLs. Concrete implementations live in internal/store/memory and
// internal/store/postgres; both satisfy the same Store interface so the
// API and auth layers never depend on a storage engine directly.
package store

import (
	"context"

	"ims/internal/domain"
)

// Store is the full operation surface of the IMS data store. Every
// mutating method is one transaction: if any step fails, no partial
// write is observable, and the store never exposes cross-call locking
// beyond that per-transaction guarantee.
type Store interface {
	Events(ctx context.Context) ([]domain.Event, error)
	// CreateEvent is idempotent: creating an event that already exists
	// is a no-op, not an error.
	CreateEvent(ctx context.Context, event domain.EventID) error

	IncidentTypes(ctx context.Context, includeHidden bool) ([]domain.IncidentType, error)
	// CreateIncidentType is idempotent.
	CreateIncidentType(ctx context.Context, name string, hidden bool) error
	ShowIncidentTypes(ctx context.Context, names []string) error
	HideIncidentTypes(ctx context.Context, names []string) error

	Access(ctx context.Context, event domain.EventID) (domain.Access, error)
	SetReaders(ctx context.Context, event domain.EventID, exprs []string) error
	SetWriters(ctx context.Context, event domain.EventID, exprs []string) error
	SetReporters(ctx context.Context, event domain.EventID, exprs []string) error

	ConcentricStreets(ctx context.Context, event domain.EventID) (map[domain.ConcentricStreetID]string, error)
	// CreateConcentricStreet is add-only: there is deliberately no
	// delete or rename operation anywhere on this interface. Street
	// IDs are never renumbered.
	CreateConcentricStreet(ctx context.Context, event domain.EventID, id domain.ConcentricStreetID, name string) error

	Incidents(ctx context.Context, event domain.EventID) ([]domain.Incident, error)
	IncidentWithNumber(ctx context.Context, event domain.EventID, number domain.IncidentNumber) (domain.Incident, error)
	// CreateIncident allocates the next incident number within event
	// and returns the stored incident, including its automatic
	// creation report entries.
	CreateIncident(ctx context.Context, incident domain.Incident, author domain.RangerHandle) (domain.Incident, error)
	// ImportIncident honors the incident's own Number, for bulk
	// restore from an ExportDocument. It raises a conflict error if
	// the number already exists in the event.
	ImportIncident(ctx context.Context, incident domain.Incident) error

	SetIncidentPriority(ctx context.Context, event domain.EventID, number domain.IncidentNumber, priority int, author domain.RangerHandle) error
	SetIncidentState(ctx context.Context, event domain.EventID, number domain.IncidentNumber, state domain.IncidentState, author domain.RangerHandle) error
	SetIncidentSummary(ctx context.Context, event domain.EventID, number domain.IncidentNumber, summary string, author domain.RangerHandle) error
	SetIncidentLocationName(ctx context.Context, event domain.EventID, number domain.IncidentNumber, name string, author domain.RangerHandle) error
	SetIncidentLocationConcentric(ctx context.Context, event domain.EventID, number domain.IncidentNumber, id domain.ConcentricStreetID, author domain.RangerHandle) error
	SetIncidentLocationRadialHour(ctx context.Context, event domain.EventID, number domain.IncidentNumber, hour int, author domain.RangerHandle) error
	SetIncidentLocationRadialMinute(ctx context.Context, event domain.EventID, number domain.IncidentNumber, minute int, author domain.RangerHandle) error
	SetIncidentLocationDescription(ctx context.Context, event domain.EventID, number domain.IncidentNumber, description string, author domain.RangerHandle) error
	SetIncidentRangers(ctx context.Context, event domain.EventID, number domain.IncidentNumber, handles []domain.RangerHandle, author domain.RangerHandle) error
	SetIncidentIncidentTypes(ctx context.Context, event domain.EventID, number domain.IncidentNumber, types []string, author domain.RangerHandle) error
	AddReportEntriesToIncident(ctx context.Context, event domain.EventID, number domain.IncidentNumber, entries []domain.ReportEntry, author domain.RangerHandle) error

	IncidentReports(ctx context.Context, event domain.EventID) ([]domain.FieldReport, error)
	// IncidentReportsByIncident filters IncidentReports to those
	// currently attached to the given incident number, for the
	// field_reports?event=&incident= query.
	IncidentReportsByIncident(ctx context.Context, event domain.EventID, incident domain.IncidentNumber) ([]domain.FieldReport, error)
	IncidentReportWithNumber(ctx context.Context, event domain.EventID, number domain.FieldReportNumber) (domain.FieldReport, error)
	CreateIncidentReport(ctx context.Context, report domain.FieldReport, author domain.RangerHandle) (domain.FieldReport, error)
	ImportIncidentReport(ctx context.Context, report domain.FieldReport) error
	SetIncidentReportSummary(ctx context.Context, event domain.EventID, number domain.FieldReportNumber, summary string, author domain.RangerHandle) error
	AddReportEntriesToIncidentReport(ctx context.Context, event domain.EventID, number domain.FieldReportNumber, entries []domain.ReportEntry, author domain.RangerHandle) error
	AttachIncidentReportToIncident(ctx context.Context, event domain.EventID, report domain.FieldReportNumber, incident domain.IncidentNumber, author domain.RangerHandle) error
	DetachIncidentReportFromIncident(ctx context.Context, event domain.EventID, report domain.FieldReportNumber, author domain.RangerHandle) error
	// IncidentsAttachedToIncidentReport returns the incidents the
	// field report is attached to — today always 0 or 1, returned as
	// a slice for forward compatibility.
	IncidentsAttachedToIncidentReport(ctx context.Context, event domain.EventID, report domain.FieldReportNumber) ([]domain.IncidentNumber, error)

	Export(ctx context.Context) (*domain.ExportDocument, error)
	// Import restores state into an empty store. It is the caller's
	// responsibility to ensure the store has no prior state; Import
	// does not wipe existing data.
	Import(ctx context.Context, doc *domain.ExportDocument) error
}

// WriteClass names the entity kind a WriteEvent describes, mirroring the
// SSE frame's "event:" field.
type WriteClass string

const (
	WriteClassEvent        WriteClass = "Event"
	WriteClassIncidentType WriteClass = "IncidentType"
	WriteClassAccess       WriteClass = "EventAccess"
	WriteClassStreet       WriteClass = "ConcentricStreet"
	WriteClassIncident     WriteClass = "Incident"
	WriteClassFieldReport  WriteClass = "FieldReport"
)

// WriteEvent is the structured signal a Store emits after every
// committed mutation. internal/eventbus.Bus implements Sink and
// transmogrifies each WriteEvent into a rendered SSE frame; the store
// itself never imports the event bus.
type WriteEvent struct {
	Class             WriteClass
	Event             domain.EventID
	IncidentNumber    *domain.IncidentNumber
	FieldReportNumber *domain.FieldReportNumber
}

// Sink receives a WriteEvent after each successful commit. Passing nil
// to a store constructor is valid; stores treat a nil Sink as a no-op.
type Sink interface {
	Publish(event WriteEvent)
}

// Fanout multiplexes one WriteEvent to several sinks, letting a store
// feed the live SSE bus and the durable audit trail from the same
// post-commit signal.
type Fanout []Sink

func (f Fanout) Publish(event WriteEvent) {
	for _, sink := range f {
		if sink != nil {
			sink.Publish(event)
		}
	}
}
