package api

import (
	"net/http"

	"ims/internal/auth"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/httputil"
	"ims/pkg/requestcontext"
	"ims/pkg/stringutil"
)

// handleGetIncidentTypes streams the catalog names. ?hidden=true
// includes hidden entries (dispatch clients showing historic incidents
// need them to label existing assignments).
func (a *API) handleGetIncidentTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := a.identity(r)
	if id.Anonymous() {
		a.writeUnauthenticated(w, r)
		return
	}

	includeHidden := r.URL.Query().Get("hidden") == "true"
	types, err := a.store.IncidentTypes(ctx, includeHidden)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name)
	}

	setETag(w, names)
	aw := httputil.NewArrayWriter(w, http.StatusOK)
	for _, name := range names {
		if err := aw.WriteItem(name); err != nil {
			return
		}
	}
	_ = aw.Close()
}

type editIncidentTypesRequest struct {
	Add  []string `json:"add"`
	Show []string `json:"show"`
	Hide []string `json:"hide"`
}

// handleEditIncidentTypes applies catalog changes in one request:
// create new visible types, unhide, and hide. Admin only.
func (a *API) handleEditIncidentTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := a.requireAuthorizations(w, r, "", auth.AuthImsAdmin); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[editIncidentTypesRequest](w, r, a.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	for _, name := range stringutil.DedupeAndTrim(req.Add) {
		if name == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "incident type name must not be empty"))
			return
		}
		if err := a.store.CreateIncidentType(ctx, name, false); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if names := stringutil.DedupeAndTrim(req.Show); len(names) > 0 {
		if err := a.store.ShowIncidentTypes(ctx, names); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if names := stringutil.DedupeAndTrim(req.Hide); len(names) > 0 {
		if err := a.store.HideIncidentTypes(ctx, names); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
