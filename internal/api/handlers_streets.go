package api

import (
	"net/http"

	"ims/internal/auth"
	"ims/internal/domain"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/httputil"
	"ims/pkg/requestcontext"
)

// handleGetStreets returns the concentric-street dictionaries, keyed
// by event. With ?event_id= it returns just that event's dictionary;
// without, every event the caller can read.
func (a *API) handleGetStreets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	out := make(map[string]map[domain.ConcentricStreetID]string)

	if raw := r.URL.Query().Get("event_id"); raw != "" {
		eventID, err := domain.ParseEventID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if _, ok := a.requireAuthorizations(w, r, eventID, auth.AuthReadIncidents); !ok {
			return
		}
		streets, err := a.store.ConcentricStreets(ctx, eventID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		out[eventID.String()] = streets
	} else {
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
		for _, e := range events {
			auths, err := a.provider.AuthorizationsFor(ctx, id, e.ID)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			if !auths.Has(auth.AuthReadIncidents) && !auths.Has(auth.AuthImsAdmin) {
				continue
			}
			streets, err := a.store.ConcentricStreets(ctx, e.ID)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			out[e.ID.String()] = streets
		}
	}

	setETag(w, out)
	httputil.WriteJSON(w, http.StatusOK, out)
}

type createStreetRequest struct {
	Event string `json:"event"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

// handleCreateStreet adds one street to an event's dictionary. Streets
// are add-only; there is no delete or rename counterpart anywhere in
// the API or the store.
func (a *API) handleCreateStreet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := a.requireAuthorizations(w, r, "", auth.AuthImsAdmin); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[createStreetRequest](w, r, a.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	eventID, err := domain.ParseEventID(req.Event)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.ID == "" || req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "street id and name must not be empty"))
		return
	}

	if err := a.store.CreateConcentricStreet(ctx, eventID, domain.ConcentricStreetID(req.ID), req.Name); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLocations streams the distinct location names used by the
// event's incidents, for address autocompletion in dispatch clients.
func (a *API) handleLocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
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

	seen := make(map[string]struct{})
	locations := make([]domain.Location, 0)
	for _, inc := range incidents {
		if inc.Location.IsZero() || inc.Location.Name == "" {
			continue
		}
		if _, dup := seen[inc.Location.Name]; dup {
			continue
		}
		seen[inc.Location.Name] = struct{}{}
		locations = append(locations, inc.Location)
	}

	setETag(w, locations)
	aw := httputil.NewArrayWriter(w, http.StatusOK)
	for _, loc := range locations {
		if err := aw.WriteItem(loc); err != nil {
			return
		}
	}
	_ = aw.Close()
}
