package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ims/internal/auth"
	"ims/internal/domain"
	"ims/internal/store"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/httputil"
	"ims/pkg/requestcontext"
	"ims/pkg/stringutil"
)

// handleListIncidents streams every incident in the event, ordered by
// number.
func (a *API) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "api.incidents.list")
	defer span.End()

	eventID, ok := a.eventFromURL(w, r, urlParam(r, "eventID"))
	if !ok {
		return
	}
	if _, ok := a.requireAuthorizations(w, r, eventID, auth.AuthReadIncidents); !ok {
		return
	}

	incidents, err := a.store.Incidents(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	wires := make([]incidentWire, 0, len(incidents))
	for _, inc := range incidents {
		wires = append(wires, toIncidentWire(inc))
	}

	setETag(w, wires)
	aw := httputil.NewArrayWriter(w, http.StatusOK)
	for _, wire := range wires {
		if err := aw.WriteItem(wire); err != nil {
			return
		}
	}
	_ = aw.Close()
}

func (a *API) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, ok := a.eventFromURL(w, r, urlParam(r, "eventID"))
	if !ok {
		return
	}
	if _, ok := a.requireAuthorizations(w, r, eventID, auth.AuthReadIncidents); !ok {
		return
	}
	number, ok := incidentNumberParam(w, r)
	if !ok {
		return
	}

	incident, err := a.store.IncidentWithNumber(ctx, eventID, number)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	wire := toIncidentWire(incident)
	setETag(w, wire)
	httputil.WriteJSON(w, http.StatusOK, wire)
}

// handleCreateIncident creates an incident from a (possibly partial)
// incident object. The store allocates the number; the response is 204
// with Incident-Number and Location headers pointing at the new
// resource.
func (a *API) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "api.incidents.create")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	eventID, ok := a.eventFromURL(w, r, urlParam(r, "eventID"))
	if !ok {
		return
	}
	id, ok := a.requireAuthorizations(w, r, eventID, auth.AuthWriteIncidents)
	if !ok {
		return
	}
	author := domain.RangerHandle(id.ShortNames[0])

	req, ok := httputil.DecodeAndPrepare[incidentEdit](w, r, a.logger, requestID)
	if !ok {
		return
	}
	if req.Event != nil && *req.Event != eventID.String() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "incident event does not match request URL"))
		return
	}
	if req.Number != nil && *req.Number != 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "incident number is assigned by the server"))
		return
	}

	now := requestcontext.Now(ctx).UTC()

	// Timestamp policy: default to the request time, backdate to the
	// oldest contained report entry, and reject client clocks running
	// ahead of ours.
	created := now
	if req.Created != nil {
		if req.Created.After(now) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "created timestamp must not be in the future"))
			return
		}
		created = req.Created.UTC()
	}

	entries := make([]domain.ReportEntry, 0, len(req.ReportEntries))
	for _, wire := range req.ReportEntries {
		if wire.Text == "" {
			continue
		}
		entryCreated := now
		if !wire.Created.IsZero() {
			if wire.Created.After(now) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "report entry created timestamp must not be in the future"))
				return
			}
			entryCreated = wire.Created.UTC()
		}
		if entryCreated.Before(created) {
			created = entryCreated
		}
		entries = append(entries, domain.ReportEntry{
			Author:  author,
			Created: entryCreated,
			Text:    wire.Text,
		})
	}

	incident := domain.NewIncident(eventID, 0, created)
	incident.ReportEntries = entries

	if req.Priority != nil {
		incident.Priority = *req.Priority
	}
	if req.State != nil {
		incident.State = domain.IncidentState(*req.State)
	}
	if req.Summary != nil {
		incident.Summary = *req.Summary
	}
	if req.Location != nil {
		incident.Location = locationFromEdit(*req.Location)
	}
	if req.RangerHandles != nil {
		for _, h := range stringutil.DedupeAndTrim(*req.RangerHandles) {
			incident.RangerHandles = append(incident.RangerHandles, domain.RangerHandle(h))
		}
	}
	if req.IncidentTypes != nil {
		visible, err := a.visibleIncidentTypeNames(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		incident.IncidentTypes = filterAssignableTypes(stringutil.DedupeAndTrim(*req.IncidentTypes), visible, nil)
	}

	if err := incident.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	stored, err := a.store.CreateIncident(ctx, incident, author)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a.metrics.IncrementIncidentsCreated()

	w.Header().Set("Incident-Number", strconv.Itoa(stored.Number.Int()))
	w.Header().Set("Location", fmt.Sprintf("/ims/api/events/%s/incidents/%d", eventID.String(), stored.Number.Int()))
	w.WriteHeader(http.StatusNoContent)
}

// incidentSetter is one row of the declarative edit table: a present
// check against the decoded request and the store call that applies
// the field. The table replaces the source's dynamic "edit apply"
// closures with an explicit, statically-typed iteration.
type incidentSetter struct {
	field   string
	present func(*incidentEdit) bool
	apply   func(*API, *http.Request, domain.EventID, domain.IncidentNumber, *incidentEdit, domain.RangerHandle) error
}

var incidentSetters = []incidentSetter{
	{
		field:   store.FieldPriority,
		present: func(e *incidentEdit) bool { return e.Priority != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			if *e.Priority < 1 || *e.Priority > 5 {
				return dErrors.New(dErrors.CodeBadRequest, "incident priority must be 1..5")
			}
			return a.store.SetIncidentPriority(r.Context(), ev, n, *e.Priority, author)
		},
	},
	{
		field:   store.FieldState,
		present: func(e *incidentEdit) bool { return e.State != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			state := domain.IncidentState(*e.State)
			probe := domain.NewIncident(ev, n, time.Now().UTC())
			probe.State = state
			if err := probe.Validate(); err != nil {
				return err
			}
			return a.store.SetIncidentState(r.Context(), ev, n, state, author)
		},
	},
	{
		field:   store.FieldSummary,
		present: func(e *incidentEdit) bool { return e.Summary != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			return a.store.SetIncidentSummary(r.Context(), ev, n, *e.Summary, author)
		},
	},
	{
		field:   store.FieldLocationName,
		present: func(e *incidentEdit) bool { return e.Location != nil && e.Location.Name != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			return a.store.SetIncidentLocationName(r.Context(), ev, n, *e.Location.Name, author)
		},
	},
	{
		field:   store.FieldLocationConcentric,
		present: func(e *incidentEdit) bool { return e.Location != nil && e.Location.Concentric != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			return a.store.SetIncidentLocationConcentric(r.Context(), ev, n, domain.ConcentricStreetID(*e.Location.Concentric), author)
		},
	},
	{
		field:   store.FieldLocationRadialHour,
		present: func(e *incidentEdit) bool { return e.Location != nil && e.Location.RadialHour != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			hour := *e.Location.RadialHour
			if hour < 1 || hour > 12 {
				return dErrors.New(dErrors.CodeBadRequest, "location radial hour must be 1..12")
			}
			return a.store.SetIncidentLocationRadialHour(r.Context(), ev, n, hour, author)
		},
	},
	{
		field:   store.FieldLocationRadialMin,
		present: func(e *incidentEdit) bool { return e.Location != nil && e.Location.RadialMinute != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			minute := *e.Location.RadialMinute
			if minute < 0 || minute > 59 {
				return dErrors.New(dErrors.CodeBadRequest, "location radial minute must be 0..59")
			}
			return a.store.SetIncidentLocationRadialMinute(r.Context(), ev, n, minute, author)
		},
	},
	{
		field:   store.FieldLocationDescription,
		present: func(e *incidentEdit) bool { return e.Location != nil && e.Location.Description != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			return a.store.SetIncidentLocationDescription(r.Context(), ev, n, *e.Location.Description, author)
		},
	},
	{
		field:   store.FieldRangers,
		present: func(e *incidentEdit) bool { return e.RangerHandles != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			handles := make([]domain.RangerHandle, 0, len(*e.RangerHandles))
			for _, h := range stringutil.DedupeAndTrim(*e.RangerHandles) {
				handles = append(handles, domain.RangerHandle(h))
			}
			return a.store.SetIncidentRangers(r.Context(), ev, n, handles, author)
		},
	},
	{
		field:   store.FieldIncidentTypes,
		present: func(e *incidentEdit) bool { return e.IncidentTypes != nil },
		apply: func(a *API, r *http.Request, ev domain.EventID, n domain.IncidentNumber, e *incidentEdit, author domain.RangerHandle) error {
			visible, err := a.visibleIncidentTypeNames(r)
			if err != nil {
				return err
			}
			current, err := a.store.IncidentWithNumber(r.Context(), ev, n)
			if err != nil {
				return err
			}
			types := filterAssignableTypes(stringutil.DedupeAndTrim(*e.IncidentTypes), visible, current.IncidentTypes)
			return a.store.SetIncidentIncidentTypes(r.Context(), ev, n, types, author)
		},
	},
}

// handleEditIncident applies a partial edit: every field present in
// the body runs its corresponding store setter, and any included
// report entries are appended. number and created are immutable.
func (a *API) handleEditIncident(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "api.incidents.edit")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	eventID, ok := a.eventFromURL(w, r, urlParam(r, "eventID"))
	if !ok {
		return
	}
	id, ok := a.requireAuthorizations(w, r, eventID, auth.AuthWriteIncidents)
	if !ok {
		return
	}
	author := domain.RangerHandle(id.ShortNames[0])
	number, ok := incidentNumberParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[incidentEdit](w, r, a.logger, requestID)
	if !ok {
		return
	}
	if req.Event != nil && *req.Event != eventID.String() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "incident event does not match request URL"))
		return
	}
	if req.Number != nil && *req.Number != number.Int() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "incident number may not be modified"))
		return
	}
	if req.Created != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "incident created timestamp may not be modified"))
		return
	}

	// Existence check up front so an edit of an unknown incident is a
	// clean 404 before any setter runs.
	if _, err := a.store.IncidentWithNumber(ctx, eventID, number); err != nil {
		httputil.WriteError(w, err)
		return
	}

	for _, setter := range incidentSetters {
		if !setter.present(&req) {
			continue
		}
		if err := setter.apply(a, r, eventID, number, &req, author); err != nil {
			httputil.WriteError(w, err)
			return
		}
		a.metrics.IncrementIncidentsEdited(setter.field)
	}

	if entries := userEntries(req.ReportEntries, author, requestcontext.Now(ctx).UTC()); len(entries) > 0 {
		if err := a.store.AddReportEntriesToIncident(ctx, eventID, number, entries, author); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func locationFromEdit(edit locationEdit) domain.Location {
	var loc domain.Location
	if edit.Name != nil {
		loc.Name = *edit.Name
	}
	if edit.Type != nil {
		loc.Type = domain.LocationType(*edit.Type)
	}
	if edit.Concentric != nil {
		loc.Concentric = domain.ConcentricStreetID(*edit.Concentric)
	}
	if edit.RadialHour != nil {
		loc.RadialHour = *edit.RadialHour
	}
	if edit.RadialMinute != nil {
		loc.RadialMinute = *edit.RadialMinute
	}
	if edit.Description != nil {
		loc.Description = *edit.Description
	}
	if loc.Type == "" && (loc.Concentric != "" || loc.RadialHour != 0) {
		loc.Type = domain.LocationTypeGarett
	}
	if loc.Type == "" && !loc.IsZero() {
		loc.Type = domain.LocationTypeText
	}
	return loc
}

func incidentNumberParam(w http.ResponseWriter, r *http.Request) (domain.IncidentNumber, bool) {
	raw := urlParam(r, "number")
	n, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown incident number"))
		return 0, false
	}
	number, err := domain.ParseIncidentNumber(n)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown incident number"))
		return 0, false
	}
	return number, true
}
