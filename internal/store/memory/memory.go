// Package memory implements internal/store.Store over plain in-process
// maps: favor clarity over performance, guard everything with one
// mutex. Used for unit tests and local development;
// internal/store/postgres is the production-grade twin of the same
// interface.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ims/internal/domain"
	"ims/internal/store"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/sentinel"
	"ims/pkg/stringutil"
)

// Clock lets tests substitute a fixed time source.
type Clock func() time.Time

type eventRecord struct {
	access            domain.Access
	streetOrder       []domain.ConcentricStreetID
	streets           map[domain.ConcentricStreetID]string
	incidents         map[domain.IncidentNumber]domain.Incident
	maxIncidentNumber int
	reports           map[domain.FieldReportNumber]domain.FieldReport
	maxReportNumber   int
}

func newEventRecord() *eventRecord {
	return &eventRecord{
		streets:   make(map[domain.ConcentricStreetID]string),
		incidents: make(map[domain.IncidentNumber]domain.Incident),
		reports:   make(map[domain.FieldReportNumber]domain.FieldReport),
	}
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu    sync.Mutex
	clock Clock
	sink  store.Sink

	eventOrder []domain.EventID
	events     map[domain.EventID]*eventRecord

	incidentTypeOrder []string
	incidentTypes     map[string]domain.IncidentType
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

// New constructs an empty Store seeded with the system incident types.
func New(opts ...Option) *Store {
	s := &Store{
		clock:         time.Now,
		events:        make(map[domain.EventID]*eventRecord),
		incidentTypes: make(map[string]domain.IncidentType),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, it := range domain.DefaultIncidentTypes() {
		s.incidentTypes[it.Name] = it
		s.incidentTypeOrder = append(s.incidentTypeOrder, it.Name)
	}
	return s
}

func (s *Store) now() time.Time {
	return s.clock().UTC()
}

func (s *Store) publish(evt store.WriteEvent) {
	if s.sink != nil {
		s.sink.Publish(evt)
	}
}

func notFound(format string, args ...any) error {
	return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, fmt.Sprintf(format, args...))
}

func (s *Store) eventRecord(event domain.EventID) (*eventRecord, error) {
	rec, ok := s.events[event]
	if !ok {
		return nil, notFound("unknown event %q", event.String())
	}
	return rec, nil
}

// Events returns every known event, in creation order.
func (s *Store) Events(_ context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Event, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		out = append(out, domain.Event{ID: id})
	}
	return out, nil
}

// CreateEvent is idempotent.
func (s *Store) CreateEvent(_ context.Context, event domain.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event]; ok {
		return nil
	}
	s.events[event] = newEventRecord()
	s.eventOrder = append(s.eventOrder, event)
	s.publish(store.WriteEvent{Class: store.WriteClassEvent, Event: event})
	return nil
}

// IncidentTypes returns the catalog, optionally including hidden types.
func (s *Store) IncidentTypes(_ context.Context, includeHidden bool) ([]domain.IncidentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.IncidentType, 0, len(s.incidentTypeOrder))
	for _, name := range s.incidentTypeOrder {
		it := s.incidentTypes[name]
		if it.Hidden && !includeHidden {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// CreateIncidentType is idempotent: creating a name that already exists
// leaves its hidden flag untouched.
func (s *Store) CreateIncidentType(_ context.Context, name string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.incidentTypes[name]; ok {
		return nil
	}
	s.incidentTypes[name] = domain.IncidentType{Name: name, Hidden: hidden}
	s.incidentTypeOrder = append(s.incidentTypeOrder, name)
	s.publish(store.WriteEvent{Class: store.WriteClassIncidentType})
	return nil
}

func (s *Store) setIncidentTypeHidden(names []string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		it, ok := s.incidentTypes[name]
		if !ok {
			return notFound("unknown incident type %q", name)
		}
		it.Hidden = hidden
		s.incidentTypes[name] = it
	}
	s.publish(store.WriteEvent{Class: store.WriteClassIncidentType})
	return nil
}

// ShowIncidentTypes clears the hidden flag on the given names.
func (s *Store) ShowIncidentTypes(_ context.Context, names []string) error {
	return s.setIncidentTypeHidden(names, false)
}

// HideIncidentTypes sets the hidden flag on the given names.
func (s *Store) HideIncidentTypes(_ context.Context, names []string) error {
	return s.setIncidentTypeHidden(names, true)
}

// Access returns the per-event ACL.
func (s *Store) Access(_ context.Context, event domain.EventID) (domain.Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return domain.Access{}, err
	}
	return rec.access, nil
}

func (s *Store) SetReaders(ctx context.Context, event domain.EventID, exprs []string) error {
	s.mu.Lock()
	rec, err := s.eventRecord(event)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	rec.access.Readers = stringutil.DedupeAndTrim(exprs)
	s.mu.Unlock()
	s.publish(store.WriteEvent{Class: store.WriteClassAccess, Event: event})
	return nil
}

func (s *Store) SetWriters(ctx context.Context, event domain.EventID, exprs []string) error {
	s.mu.Lock()
	rec, err := s.eventRecord(event)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	rec.access.Writers = stringutil.DedupeAndTrim(exprs)
	s.mu.Unlock()
	s.publish(store.WriteEvent{Class: store.WriteClassAccess, Event: event})
	return nil
}

func (s *Store) SetReporters(ctx context.Context, event domain.EventID, exprs []string) error {
	s.mu.Lock()
	rec, err := s.eventRecord(event)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	rec.access.Reporters = stringutil.DedupeAndTrim(exprs)
	s.mu.Unlock()
	s.publish(store.WriteEvent{Class: store.WriteClassAccess, Event: event})
	return nil
}

// ConcentricStreets returns the per-event street dictionary.
func (s *Store) ConcentricStreets(_ context.Context, event domain.EventID) (map[domain.ConcentricStreetID]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ConcentricStreetID]string, len(rec.streets))
	for id, name := range rec.streets {
		out[id] = name
	}
	return out, nil
}

// CreateConcentricStreet adds a street; IDs are never renumbered or
// removed.
func (s *Store) CreateConcentricStreet(_ context.Context, event domain.EventID, id domain.ConcentricStreetID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return err
	}
	if _, ok := rec.streets[id]; ok {
		return dErrors.Newf(dErrors.CodeConflict, "concentric street %q already exists", id.String())
	}
	rec.streets[id] = name
	rec.streetOrder = append(rec.streetOrder, id)
	s.publish(store.WriteEvent{Class: store.WriteClassStreet, Event: event})
	return nil
}

// Incidents returns every incident in the event, ordered by number.
func (s *Store) Incidents(_ context.Context, event domain.EventID) ([]domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Incident, 0, len(rec.incidents))
	for _, inc := range rec.incidents {
		out = append(out, inc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// IncidentWithNumber looks up one incident by number.
func (s *Store) IncidentWithNumber(_ context.Context, event domain.EventID, number domain.IncidentNumber) (domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return domain.Incident{}, err
	}
	inc, ok := rec.incidents[number]
	if !ok {
		return domain.Incident{}, notFound("unknown incident %s/%d", event.String(), number.Int())
	}
	return inc, nil
}

// CreateIncident allocates the next number within event and records the
// creation's automatic report entries.
func (s *Store) CreateIncident(_ context.Context, incident domain.Incident, author domain.RangerHandle) (domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(incident.Event)
	if err != nil {
		return domain.Incident{}, err
	}

	rec.maxIncidentNumber++
	incident.Number = domain.IncidentNumber(rec.maxIncidentNumber)
	incident.Version = 1
	incident = s.withCreationJournal(incident, author)

	if err := incident.Validate(); err != nil {
		return domain.Incident{}, err
	}
	rec.incidents[incident.Number] = incident

	s.publish(store.WriteEvent{Class: store.WriteClassIncident, Event: incident.Event, IncidentNumber: &incident.Number})
	return incident, nil
}

func (s *Store) withCreationJournal(incident domain.Incident, author domain.RangerHandle) domain.Incident {
	now := s.now()
	entries := make([]domain.ReportEntry, 0, 4)
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
	_ = author
	incident.ReportEntries = append(append([]domain.ReportEntry(nil), incident.ReportEntries...), entries...)
	sortReportEntries(incident.ReportEntries)
	return incident
}

// ImportIncident honors the incident's own number, raising a conflict
// if it's already taken.
func (s *Store) ImportIncident(_ context.Context, incident domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(incident.Event)
	if err != nil {
		return err
	}
	if _, ok := rec.incidents[incident.Number]; ok {
		return dErrors.Newf(dErrors.CodeConflict, "incident %d already exists in event %q", incident.Number.Int(), incident.Event.String())
	}
	if err := incident.Validate(); err != nil {
		return err
	}
	rec.incidents[incident.Number] = incident
	if incident.Number.Int() > rec.maxIncidentNumber {
		rec.maxIncidentNumber = incident.Number.Int()
	}
	return nil
}

func sortReportEntries(entries []domain.ReportEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Created.Before(entries[j].Created)
	})
}

// mutateIncident centralizes the read-validate-write-bump-publish
// sequence every SetIncident_* operation shares.
func (s *Store) mutateIncident(event domain.EventID, number domain.IncidentNumber, mutate func(*domain.Incident, time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return err
	}
	inc, ok := rec.incidents[number]
	if !ok {
		return notFound("unknown incident %s/%d", event.String(), number.Int())
	}

	now := s.now()
	mutate(&inc, now)
	inc.Version++
	sortReportEntries(inc.ReportEntries)

	if err := inc.Validate(); err != nil {
		return err
	}
	rec.incidents[number] = inc

	s.publish(store.WriteEvent{Class: store.WriteClassIncident, Event: event, IncidentNumber: &number})
	return nil
}

func (s *Store) SetIncidentPriority(_ context.Context, event domain.EventID, number domain.IncidentNumber, priority int, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.Priority = priority
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticEntry(now, store.FieldPriority, store.FormatPriority(priority)))
	})
}

func (s *Store) SetIncidentState(_ context.Context, event domain.EventID, number domain.IncidentNumber, state domain.IncidentState, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.State = state
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticEntry(now, store.FieldState, string(state)))
	})
}

func (s *Store) SetIncidentSummary(_ context.Context, event domain.EventID, number domain.IncidentNumber, summary string, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.Summary = summary
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticEntry(now, store.FieldSummary, summary))
	})
}

func (s *Store) SetIncidentLocationName(_ context.Context, event domain.EventID, number domain.IncidentNumber, name string, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.Location.Name = name
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticEntry(now, store.FieldLocationName, name))
	})
}

func (s *Store) SetIncidentLocationConcentric(_ context.Context, event domain.EventID, number domain.IncidentNumber, id domain.ConcentricStreetID, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.Location.Type = domain.LocationTypeGarett
		inc.Location.Concentric = id
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticEntry(now, store.FieldLocationConcentric, id.String()))
	})
}

func (s *Store) SetIncidentLocationRadialHour(_ context.Context, event domain.EventID, number domain.IncidentNumber, hour int, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.Location.Type = domain.LocationTypeGarett
		inc.Location.RadialHour = hour
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticEntry(now, store.FieldLocationRadialHour, store.FormatPriority(hour)))
	})
}

func (s *Store) SetIncidentLocationRadialMinute(_ context.Context, event domain.EventID, number domain.IncidentNumber, minute int, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.Location.Type = domain.LocationTypeGarett
		inc.Location.RadialMinute = minute
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticEntry(now, store.FieldLocationRadialMin, store.FormatPriority(minute)))
	})
}

func (s *Store) SetIncidentLocationDescription(_ context.Context, event domain.EventID, number domain.IncidentNumber, description string, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.Location.Description = description
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticEntry(now, store.FieldLocationDescription, description))
	})
}

func (s *Store) SetIncidentRangers(_ context.Context, event domain.EventID, number domain.IncidentNumber, handles []domain.RangerHandle, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.RangerHandles = handles
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticSetEntry(now, store.FieldRangers, store.RangerHandleStrings(handles)))
	})
}

func (s *Store) SetIncidentIncidentTypes(_ context.Context, event domain.EventID, number domain.IncidentNumber, types []string, _ domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		inc.IncidentTypes = types
		inc.ReportEntries = append(inc.ReportEntries, store.AutomaticSetEntry(now, store.FieldIncidentTypes, types))
	})
}

// AddReportEntriesToIncident appends user-authored entries, stamping
// Automatic=false and the author handle on each.
func (s *Store) AddReportEntriesToIncident(_ context.Context, event domain.EventID, number domain.IncidentNumber, entries []domain.ReportEntry, author domain.RangerHandle) error {
	return s.mutateIncident(event, number, func(inc *domain.Incident, now time.Time) {
		for _, e := range entries {
			if e.Created.IsZero() {
				e.Created = now
			}
			e.Author = author
			e.Automatic = false
			inc.ReportEntries = append(inc.ReportEntries, e)
		}
	})
}

// IncidentReports returns every field report in the event.
func (s *Store) IncidentReports(_ context.Context, event domain.EventID) ([]domain.FieldReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return nil, err
	}
	out := make([]domain.FieldReport, 0, len(rec.reports))
	for _, fr := range rec.reports {
		out = append(out, fr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// IncidentReportsByIncident filters to reports currently attached to
// incident.
func (s *Store) IncidentReportsByIncident(_ context.Context, event domain.EventID, incident domain.IncidentNumber) ([]domain.FieldReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return nil, err
	}
	out := make([]domain.FieldReport, 0)
	for _, fr := range rec.reports {
		if fr.Incident != nil && *fr.Incident == incident {
			out = append(out, fr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// IncidentReportWithNumber looks up one field report by number.
func (s *Store) IncidentReportWithNumber(_ context.Context, event domain.EventID, number domain.FieldReportNumber) (domain.FieldReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return domain.FieldReport{}, err
	}
	fr, ok := rec.reports[number]
	if !ok {
		return domain.FieldReport{}, notFound("unknown field report %s/%d", event.String(), number.Int())
	}
	return fr, nil
}

// CreateIncidentReport allocates the next field report number within
// event.
func (s *Store) CreateIncidentReport(_ context.Context, report domain.FieldReport, _ domain.RangerHandle) (domain.FieldReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(report.Event)
	if err != nil {
		return domain.FieldReport{}, err
	}

	rec.maxReportNumber++
	report.Number = domain.FieldReportNumber(rec.maxReportNumber)

	now := s.now()
	if report.Summary != "" {
		report.ReportEntries = append(report.ReportEntries, store.AutomaticEntry(now, store.FieldSummary, report.Summary))
	}
	sortReportEntries(report.ReportEntries)

	if err := report.Validate(); err != nil {
		return domain.FieldReport{}, err
	}
	rec.reports[report.Number] = report

	s.publish(store.WriteEvent{Class: store.WriteClassFieldReport, Event: report.Event, FieldReportNumber: &report.Number})
	return report, nil
}

// ImportIncidentReport honors the report's own number.
func (s *Store) ImportIncidentReport(_ context.Context, report domain.FieldReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(report.Event)
	if err != nil {
		return err
	}
	if _, ok := rec.reports[report.Number]; ok {
		return dErrors.Newf(dErrors.CodeConflict, "field report %d already exists in event %q", report.Number.Int(), report.Event.String())
	}
	if err := report.Validate(); err != nil {
		return err
	}
	rec.reports[report.Number] = report
	if report.Number.Int() > rec.maxReportNumber {
		rec.maxReportNumber = report.Number.Int()
	}
	return nil
}

func (s *Store) mutateReport(event domain.EventID, number domain.FieldReportNumber, mutate func(*domain.FieldReport, time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return err
	}
	fr, ok := rec.reports[number]
	if !ok {
		return notFound("unknown field report %s/%d", event.String(), number.Int())
	}

	now := s.now()
	mutate(&fr, now)
	sortReportEntries(fr.ReportEntries)

	if err := fr.Validate(); err != nil {
		return err
	}
	rec.reports[number] = fr

	s.publish(store.WriteEvent{Class: store.WriteClassFieldReport, Event: event, FieldReportNumber: &number})
	return nil
}

func (s *Store) SetIncidentReportSummary(_ context.Context, event domain.EventID, number domain.FieldReportNumber, summary string, _ domain.RangerHandle) error {
	return s.mutateReport(event, number, func(fr *domain.FieldReport, now time.Time) {
		fr.Summary = summary
		fr.ReportEntries = append(fr.ReportEntries, store.AutomaticEntry(now, store.FieldSummary, summary))
	})
}

// AddReportEntriesToIncidentReport appends user-authored entries.
func (s *Store) AddReportEntriesToIncidentReport(_ context.Context, event domain.EventID, number domain.FieldReportNumber, entries []domain.ReportEntry, author domain.RangerHandle) error {
	return s.mutateReport(event, number, func(fr *domain.FieldReport, now time.Time) {
		for _, e := range entries {
			if e.Created.IsZero() {
				e.Created = now
			}
			e.Author = author
			e.Automatic = false
			fr.ReportEntries = append(fr.ReportEntries, e)
		}
	})
}

// AttachIncidentReportToIncident attaches report to incident, both
// within event. Both sides must exist; the incident must belong to the
// same event as the report.
func (s *Store) AttachIncidentReportToIncident(_ context.Context, event domain.EventID, report domain.FieldReportNumber, incident domain.IncidentNumber, author domain.RangerHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return err
	}
	fr, ok := rec.reports[report]
	if !ok {
		return notFound("unknown field report %s/%d", event.String(), report.Int())
	}
	if _, ok := rec.incidents[incident]; !ok {
		return notFound("unknown incident %s/%d", event.String(), incident.Int())
	}

	now := s.now()
	inc := incident
	fr.Incident = &inc
	fr.ReportEntries = append(fr.ReportEntries, domain.ReportEntry{
		Author:    author,
		Created:   now,
		Text:      domain.AutomaticText("incident", store.FormatPriority(incident.Int())),
		Automatic: true,
	})
	sortReportEntries(fr.ReportEntries)
	rec.reports[report] = fr

	s.publish(store.WriteEvent{Class: store.WriteClassFieldReport, Event: event, FieldReportNumber: &report})
	return nil
}

// DetachIncidentReportFromIncident clears the report's attachment, if
// any.
func (s *Store) DetachIncidentReportFromIncident(_ context.Context, event domain.EventID, report domain.FieldReportNumber, author domain.RangerHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return err
	}
	fr, ok := rec.reports[report]
	if !ok {
		return notFound("unknown field report %s/%d", event.String(), report.Int())
	}

	now := s.now()
	fr.Incident = nil
	fr.ReportEntries = append(fr.ReportEntries, domain.ReportEntry{
		Author:    author,
		Created:   now,
		Text:      "Detached from incident",
		Automatic: true,
	})
	sortReportEntries(fr.ReportEntries)
	rec.reports[report] = fr

	s.publish(store.WriteEvent{Class: store.WriteClassFieldReport, Event: event, FieldReportNumber: &report})
	return nil
}

// IncidentsAttachedToIncidentReport returns 0 or 1 incident numbers:
// the model is many-to-one, exposed as a slice for forward
// compatibility.
func (s *Store) IncidentsAttachedToIncidentReport(_ context.Context, event domain.EventID, report domain.FieldReportNumber) ([]domain.IncidentNumber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.eventRecord(event)
	if err != nil {
		return nil, err
	}
	fr, ok := rec.reports[report]
	if !ok {
		return nil, notFound("unknown field report %s/%d", event.String(), report.Int())
	}
	if fr.Incident == nil {
		return nil, nil
	}
	return []domain.IncidentNumber{*fr.Incident}, nil
}

// Export serializes the full logical state, sorted into canonical order
// so export -> wipe -> import -> export round-trips byte-identically.
func (s *Store) Export(_ context.Context) (*domain.ExportDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &domain.ExportDocument{}
	for _, name := range s.incidentTypeOrder {
		doc.IncidentTypes = append(doc.IncidentTypes, s.incidentTypes[name])
	}
	sort.Slice(doc.IncidentTypes, func(i, j int) bool { return doc.IncidentTypes[i].Name < doc.IncidentTypes[j].Name })

	events := append([]domain.EventID(nil), s.eventOrder...)
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })

	for _, id := range events {
		rec := s.events[id]

		streets := make(map[domain.ConcentricStreetID]string, len(rec.streets))
		for k, v := range rec.streets {
			streets[k] = v
		}

		incidents := make([]domain.Incident, 0, len(rec.incidents))
		for _, inc := range rec.incidents {
			inc.ReportEntries = append([]domain.ReportEntry(nil), inc.ReportEntries...)
			sortReportEntries(inc.ReportEntries)
			incidents = append(incidents, inc)
		}
		sort.Slice(incidents, func(i, j int) bool { return incidents[i].Number < incidents[j].Number })

		reports := make([]domain.FieldReport, 0, len(rec.reports))
		for _, fr := range rec.reports {
			fr.ReportEntries = append([]domain.ReportEntry(nil), fr.ReportEntries...)
			sortReportEntries(fr.ReportEntries)
			reports = append(reports, fr)
		}
		sort.Slice(reports, func(i, j int) bool { return reports[i].Number < reports[j].Number })

		doc.Events = append(doc.Events, domain.ExportedEvent{
			Event:             id,
			Access:            rec.access,
			ConcentricStreets: streets,
			Incidents:         incidents,
			FieldReports:      reports,
		})
	}

	return doc, nil
}

// Import restores state into this store from an ExportDocument. The
// store is assumed empty; Import does not delete pre-existing data.
func (s *Store) Import(_ context.Context, doc *domain.ExportDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range doc.IncidentTypes {
		if _, ok := s.incidentTypes[it.Name]; !ok {
			s.incidentTypeOrder = append(s.incidentTypeOrder, it.Name)
		}
		s.incidentTypes[it.Name] = it
	}

	for _, ev := range doc.Events {
		rec, ok := s.events[ev.Event]
		if !ok {
			rec = newEventRecord()
			s.events[ev.Event] = rec
			s.eventOrder = append(s.eventOrder, ev.Event)
		}
		rec.access = ev.Access
		for id, name := range ev.ConcentricStreets {
			if _, ok := rec.streets[id]; !ok {
				rec.streetOrder = append(rec.streetOrder, id)
			}
			rec.streets[id] = name
		}
		for _, inc := range ev.Incidents {
			rec.incidents[inc.Number] = inc
			if inc.Number.Int() > rec.maxIncidentNumber {
				rec.maxIncidentNumber = inc.Number.Int()
			}
		}
		for _, fr := range ev.FieldReports {
			rec.reports[fr.Number] = fr
			if fr.Number.Int() > rec.maxReportNumber {
				rec.maxReportNumber = fr.Number.Int()
			}
		}
	}

	return nil
}
