package api

import (
	"net/http"

	"ims/internal/auth"
	"ims/internal/domain"
	"ims/pkg/httputil"
	"ims/pkg/requestcontext"
)

// requireAuthorizations authenticates and authorizes in one step: it
// computes the caller's capability set for event (which may be empty
// for event-independent endpoints) and verifies every flag in want is
// present. On failure it writes the 401/403 response itself and
// returns ok=false; handlers just return.
func (a *API) requireAuthorizations(w http.ResponseWriter, r *http.Request, event domain.EventID, want auth.Authorizations) (auth.Identity, bool) {
	ctx := r.Context()
	id := a.identity(r)
	if id.Anonymous() {
		a.writeUnauthenticated(w, r)
		return auth.Identity{}, false
	}

	auths, err := a.provider.AuthorizationsFor(ctx, id, event)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to compute authorizations",
			"error", err,
			"event", event.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return auth.Identity{}, false
	}
	// Admin standing satisfies any capability check, so an admin can
	// operate on an event before its ACLs are provisioned.
	if !auths.Has(want) && !auths.Has(auth.AuthImsAdmin) {
		httputil.WriteError(w, auth.ErrNotAuthorized(describeAuthorizations(want)))
		return auth.Identity{}, false
	}
	return id, true
}

// requireFieldReportWrite gates the field-report mutation endpoints:
// the caller passes with admin standing, write access to the event's
// incidents, the event's reporters ACL, or the baseline
// writeIncidentReports flag, which every authenticated user carries.
func (a *API) requireFieldReportWrite(w http.ResponseWriter, r *http.Request, event domain.EventID) (auth.Identity, bool) {
	ctx := r.Context()
	id := a.identity(r)
	if id.Anonymous() {
		a.writeUnauthenticated(w, r)
		return auth.Identity{}, false
	}

	auths, err := a.provider.AuthorizationsFor(ctx, id, event)
	if err != nil {
		httputil.WriteError(w, err)
		return auth.Identity{}, false
	}
	if auths.Has(auth.AuthImsAdmin) || auths.Has(auth.AuthWriteIncidents) {
		return id, true
	}

	allowed, err := a.provider.AuthorizeIncidentReportsWrite(ctx, id, event)
	if err != nil {
		httputil.WriteError(w, err)
		return auth.Identity{}, false
	}
	if !allowed && !auths.Has(auth.AuthWriteIncidentReports) {
		httputil.WriteError(w, auth.ErrNotAuthorized("writeIncidentReports"))
		return auth.Identity{}, false
	}
	return id, true
}

// requireFieldReportRead implements the field-report special case: a
// report attached to an incident is readable by anyone with
// readIncidents on that incident's event; an unattached report needs
// readIncidentReports.
func (a *API) requireFieldReportRead(w http.ResponseWriter, r *http.Request, report domain.FieldReport) bool {
	ctx := r.Context()
	id := a.identity(r)
	if id.Anonymous() {
		a.writeUnauthenticated(w, r)
		return false
	}

	var attached []auth.AttachedIncidentAccess
	if report.Incident != nil {
		attached = append(attached, auth.AttachedIncidentAccess{Event: report.Event})
	}
	allowed, err := a.provider.AuthorizeFieldReportRead(ctx, id, attached, report.Event)
	if err != nil {
		httputil.WriteError(w, err)
		return false
	}
	if !allowed {
		httputil.WriteError(w, auth.ErrNotAuthorized("readIncidentReports"))
		return false
	}
	return true
}

func describeAuthorizations(want auth.Authorizations) string {
	switch {
	case want.Has(auth.AuthImsAdmin):
		return "imsAdmin"
	case want.Has(auth.AuthWriteIncidents):
		return "writeIncidents"
	case want.Has(auth.AuthReadIncidents):
		return "readIncidents"
	case want.Has(auth.AuthWriteIncidentReports):
		return "writeIncidentReports"
	case want.Has(auth.AuthReadIncidentReports):
		return "readIncidentReports"
	case want.Has(auth.AuthReadPersonnel):
		return "readPersonnel"
	default:
		return "unknown"
	}
}
