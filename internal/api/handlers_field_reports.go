package api

import (
	"fmt"
	"net/http"
	"strconv"

	"ims/internal/auth"
	"ims/internal/domain"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/httputil"
	"ims/pkg/requestcontext"
)

// readableFieldReports filters reports down to those the caller may
// read under the field-report access policy: attachment to a readable
// incident grants access, otherwise the baseline readIncidentReports
// capability applies.
func (a *API) readableFieldReports(r *http.Request, reports []domain.FieldReport) ([]domain.FieldReport, error) {
	ctx := r.Context()
	id := a.identity(r)

	out := make([]domain.FieldReport, 0, len(reports))
	for _, report := range reports {
		var attachments []auth.AttachedIncidentAccess
		if report.Incident != nil {
			attachments = append(attachments, auth.AttachedIncidentAccess{Event: report.Event})
		}
		allowed, err := a.provider.AuthorizeFieldReportRead(ctx, id, attachments, report.Event)
		if err != nil {
			return nil, err
		}
		if allowed {
			out = append(out, report)
		}
	}
	return out, nil
}

func (a *API) handleListFieldReports(w http.ResponseWriter, r *http.Request) {
	eventID, ok := a.eventFromURL(w, r, urlParam(r, "eventID"))
	if !ok {
		return
	}
	a.listFieldReports(w, r, eventID, 0)
}

// handleListFieldReportsFlat serves GET /ims/api/field_reports with
// event and optional incident query parameters.
func (a *API) handleListFieldReportsFlat(w http.ResponseWriter, r *http.Request) {
	rawEvent := r.URL.Query().Get("event")
	if rawEvent == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "event query parameter is required"))
		return
	}
	eventID, err := domain.ParseEventID(rawEvent)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var incident domain.IncidentNumber
	if raw := r.URL.Query().Get("incident"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "incident query parameter must be an integer"))
			return
		}
		incident, err = domain.ParseIncidentNumber(n)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	a.listFieldReports(w, r, eventID, incident)
}

func (a *API) listFieldReports(w http.ResponseWriter, r *http.Request, eventID domain.EventID, incident domain.IncidentNumber) {
	ctx := r.Context()
	id := a.identity(r)
	if id.Anonymous() {
		a.writeUnauthenticated(w, r)
		return
	}

	var (
		reports []domain.FieldReport
		err     error
	)
	if incident != 0 {
		reports, err = a.store.IncidentReportsByIncident(ctx, eventID, incident)
	} else {
		reports, err = a.store.IncidentReports(ctx, eventID)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	readable, err := a.readableFieldReports(r, reports)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	wires := make([]fieldReportWire, 0, len(readable))
	for _, report := range readable {
		wires = append(wires, toFieldReportWire(report))
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

func (a *API) handleGetFieldReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, ok := a.eventFromURL(w, r, urlParam(r, "eventID"))
	if !ok {
		return
	}
	number, ok := fieldReportNumberParam(w, r)
	if !ok {
		return
	}

	report, err := a.store.IncidentReportWithNumber(ctx, eventID, number)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !a.requireFieldReportRead(w, r, report) {
		return
	}

	wire := toFieldReportWire(report)
	setETag(w, wire)
	httputil.WriteJSON(w, http.StatusOK, wire)
}

// handleCreateFieldReport creates a field report from the field. The
// same timestamp backdating policy as incident creation applies.
func (a *API) handleCreateFieldReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "api.field_reports.create")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	eventID, ok := a.eventFromURL(w, r, urlParam(r, "eventID"))
	if !ok {
		return
	}
	id, ok := a.requireFieldReportWrite(w, r, eventID)
	if !ok {
		return
	}
	author := domain.RangerHandle(id.ShortNames[0])

	req, ok := httputil.DecodeAndPrepare[fieldReportEdit](w, r, a.logger, requestID)
	if !ok {
		return
	}
	if req.Event != nil && *req.Event != eventID.String() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "field report event does not match request URL"))
		return
	}
	if req.Number != nil && *req.Number != 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "field report number is assigned by the server"))
		return
	}

	now := requestcontext.Now(ctx).UTC()
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

	report := domain.NewFieldReport(eventID, 0, created)
	report.ReportEntries = entries
	if req.Summary != nil {
		report.Summary = *req.Summary
	}

	stored, err := a.store.CreateIncidentReport(ctx, report, author)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a.metrics.IncrementFieldReportsCreated()

	w.Header().Set("Field-Report-Number", strconv.Itoa(stored.Number.Int()))
	w.Header().Set("Location", fmt.Sprintf("/ims/api/events/%s/field_reports/%d", eventID.String(), stored.Number.Int()))
	w.WriteHeader(http.StatusNoContent)
}

// handleEditFieldReport handles three operations on one endpoint, the
// way the dispatch clients use it: ?action=attach / ?action=detach
// with an incident query parameter, or a partial edit body (summary
// and appended report entries).
func (a *API) handleEditFieldReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "api.field_reports.edit")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	eventID, ok := a.eventFromURL(w, r, urlParam(r, "eventID"))
	if !ok {
		return
	}
	id, ok := a.requireFieldReportWrite(w, r, eventID)
	if !ok {
		return
	}
	author := domain.RangerHandle(id.ShortNames[0])
	number, ok := fieldReportNumberParam(w, r)
	if !ok {
		return
	}

	switch action := r.URL.Query().Get("action"); action {
	case "attach":
		incident, ok := a.attachTarget(w, r, eventID)
		if !ok {
			return
		}
		if err := a.store.AttachIncidentReportToIncident(ctx, eventID, number, incident, author); err != nil {
			httputil.WriteError(w, err)
			return
		}
		a.metrics.IncrementFieldReportsEdited("incident")
		w.WriteHeader(http.StatusNoContent)
		return
	case "detach":
		if err := a.store.DetachIncidentReportFromIncident(ctx, eventID, number, author); err != nil {
			httputil.WriteError(w, err)
			return
		}
		a.metrics.IncrementFieldReportsEdited("incident")
		w.WriteHeader(http.StatusNoContent)
		return
	case "":
	default:
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown action %q", action))
		return
	}

	req, ok := httputil.DecodeAndPrepare[fieldReportEdit](w, r, a.logger, requestID)
	if !ok {
		return
	}
	if req.Event != nil && *req.Event != eventID.String() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "field report event does not match request URL"))
		return
	}
	if req.Number != nil && *req.Number != number.Int() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "field report number may not be modified"))
		return
	}
	if req.Created != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "field report created timestamp may not be modified"))
		return
	}

	if _, err := a.store.IncidentReportWithNumber(ctx, eventID, number); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if req.Summary != nil {
		if err := a.store.SetIncidentReportSummary(ctx, eventID, number, *req.Summary, author); err != nil {
			httputil.WriteError(w, err)
			return
		}
		a.metrics.IncrementFieldReportsEdited("summary")
	}
	if entries := userEntries(req.ReportEntries, author, requestcontext.Now(ctx).UTC()); len(entries) > 0 {
		if err := a.store.AddReportEntriesToIncidentReport(ctx, eventID, number, entries, author); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// attachTarget validates the event and incident query parameters of an
// attach action. A cross-event attach is a conflict: the target
// incident must live in the same event as the field report.
func (a *API) attachTarget(w http.ResponseWriter, r *http.Request, eventID domain.EventID) (domain.IncidentNumber, bool) {
	if rawEvent := r.URL.Query().Get("event"); rawEvent != "" && rawEvent != eventID.String() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "attach target incident must belong to the same event"))
		return 0, false
	}

	raw := r.URL.Query().Get("incident")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "incident query parameter is required for attach"))
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "incident query parameter must be an integer"))
		return 0, false
	}
	number, err := domain.ParseIncidentNumber(n)
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return number, true
}

func fieldReportNumberParam(w http.ResponseWriter, r *http.Request) (domain.FieldReportNumber, bool) {
	raw := urlParam(r, "number")
	n, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown field report number"))
		return 0, false
	}
	number, err := domain.ParseFieldReportNumber(n)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown field report number"))
		return 0, false
	}
	return number, true
}
