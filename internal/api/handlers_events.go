package api

import (
	"net/http"

	"ims/internal/auth"
	"ims/internal/domain"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/httputil"
	"ims/pkg/requestcontext"
)

type eventJSON struct {
	ID string `json:"id"`
}

// handleListEvents streams the events the caller can see: those where
// the caller holds readIncidents, or all of them for an admin.
func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := a.identity(r)
	if id.Anonymous() {
		a.writeUnauthenticated(w, r)
		return
	}

	events, err := a.store.Events(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	visible := make([]eventJSON, 0, len(events))
	for _, e := range events {
		auths, err := a.provider.AuthorizationsFor(ctx, id, e.ID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if auths.Has(auth.AuthReadIncidents) || auths.Has(auth.AuthImsAdmin) {
			visible = append(visible, eventJSON{ID: e.ID.String()})
		}
	}

	setETag(w, visible)
	aw := httputil.NewArrayWriter(w, http.StatusOK)
	for _, e := range visible {
		if err := aw.WriteItem(e); err != nil {
			return
		}
	}
	_ = aw.Close()
}

// handleCreateEvent creates a new tenant. Admin-only; idempotent at
// the store layer, so re-posting an existing event is a quiet success.
func (a *API) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := a.requireAuthorizations(w, r, "", auth.AuthImsAdmin); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[eventJSON](w, r, a.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	eventID, err := domain.ParseEventID(req.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := a.store.CreateEvent(ctx, eventID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetEvent returns one event by ID, confirming it exists.
func (a *API) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, ok := a.eventFromURL(w, r, urlParam(r, "eventID"))
	if !ok {
		return
	}
	if _, ok := a.requireAuthorizations(w, r, eventID, auth.AuthReadIncidents); !ok {
		return
	}

	events, err := a.store.Events(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	for _, e := range events {
		if e.ID == eventID {
			resp := eventJSON{ID: e.ID.String()}
			setETag(w, resp)
			httputil.WriteJSON(w, http.StatusOK, resp)
			return
		}
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown event"))
}

// eventFromURL parses the {eventID} path segment, writing a 404 when it
// is not a valid event ID. It does not look the event up; store calls
// on an unknown event report not-found themselves.
func (a *API) eventFromURL(w http.ResponseWriter, r *http.Request, raw string) (domain.EventID, bool) {
	eventID, err := domain.ParseEventID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown event"))
		return "", false
	}
	return eventID, true
}
