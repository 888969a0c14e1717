package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ims/internal/auth"
	"ims/pkg/httputil"
)

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

type rangerJSON struct {
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
	Email  string `json:"email,omitempty"`
}

// handlePersonnel streams the ranger roster. A directory outage
// degrades to an empty list rather than failing the request: a
// directory error is logged and served as an empty roster, and the
// DegradingDirectory wrapper returns an empty roster without an error
// once its breaker is open.
func (a *API) handlePersonnel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := a.requireAuthorizations(w, r, "", auth.AuthReadPersonnel); !ok {
		return
	}

	personnel, err := a.directory.Personnel(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "personnel directory unavailable, degrading to empty roster", "error", err)
		personnel = nil
	}

	out := make([]rangerJSON, 0, len(personnel))
	for _, ranger := range personnel {
		out = append(out, rangerJSON{
			Handle: ranger.Handle.String(),
			Name:   ranger.Name,
			Status: string(ranger.Status),
			Email:  ranger.Email,
		})
	}

	setETag(w, out)
	aw := httputil.NewArrayWriter(w, http.StatusOK)
	for _, ranger := range out {
		if err := aw.WriteItem(ranger); err != nil {
			return
		}
	}
	_ = aw.Close()
}

// visibleIncidentTypeNames returns the names a client may freshly
// assign: the catalog minus hidden entries.
func (a *API) visibleIncidentTypeNames(r *http.Request) (map[string]struct{}, error) {
	types, err := a.store.IncidentTypes(r.Context(), false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(types))
	for _, t := range types {
		names[t.Name] = struct{}{}
	}
	return names, nil
}

// filterAssignableTypes drops hidden or unknown types from a requested
// assignment, keeping any type the incident already carries: hidden
// types persist on existing incidents but may not be freshly assigned.
func filterAssignableTypes(requested []string, visible map[string]struct{}, existing []string) []string {
	keep := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		keep[t] = struct{}{}
	}
	out := make([]string, 0, len(requested))
	for _, t := range requested {
		_, isVisible := visible[t]
		_, alreadyOn := keep[t]
		if isVisible || alreadyOn {
			out = append(out, t)
		}
	}
	return out
}
