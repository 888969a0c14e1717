package api

import (
	"net/http"

	"ims/internal/auth"
	"ims/internal/domain"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/httputil"
	"ims/pkg/requestcontext"
	"ims/pkg/stringutil"
)

// handleGetAccess returns the full ACL table, keyed by event. Admin
// only: ACL contents reveal who holds access everywhere.
func (a *API) handleGetAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := a.requireAuthorizations(w, r, "", auth.AuthImsAdmin); !ok {
		return
	}

	events, err := a.store.Events(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make(map[string]domain.Access, len(events))
	for _, e := range events {
		access, err := a.store.Access(ctx, e.ID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		out[e.ID.String()] = access
	}

	setETag(w, out)
	httputil.WriteJSON(w, http.StatusOK, out)
}

type setAccessRequest map[string]accessModes

type accessModes struct {
	Readers   *[]string `json:"readers"`
	Writers   *[]string `json:"writers"`
	Reporters *[]string `json:"reporters"`
}

// handleSetAccess replaces ACL expression lists per event and mode.
// Only the modes present in the request body are replaced; a missing
// key leaves that mode untouched.
func (a *API) handleSetAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := a.requireAuthorizations(w, r, "", auth.AuthImsAdmin); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[setAccessRequest](w, r, a.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	for rawEvent, modes := range req {
		eventID, err := domain.ParseEventID(rawEvent)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		for _, expr := range collectExpressions(modes) {
			if !validExpression(expr) {
				httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "invalid ACL expression %q", expr))
				return
			}
		}

		if modes.Readers != nil {
			if err := a.store.SetReaders(ctx, eventID, stringutil.DedupeAndTrim(*modes.Readers)); err != nil {
				httputil.WriteError(w, err)
				return
			}
		}
		if modes.Writers != nil {
			if err := a.store.SetWriters(ctx, eventID, stringutil.DedupeAndTrim(*modes.Writers)); err != nil {
				httputil.WriteError(w, err)
				return
			}
		}
		if modes.Reporters != nil {
			if err := a.store.SetReporters(ctx, eventID, stringutil.DedupeAndTrim(*modes.Reporters)); err != nil {
				httputil.WriteError(w, err)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func collectExpressions(modes accessModes) []string {
	var out []string
	for _, list := range []*[]string{modes.Readers, modes.Writers, modes.Reporters} {
		if list != nil {
			out = append(out, *list...)
		}
	}
	return out
}

// validExpression accepts the three ACL expression forms: "*",
// "person:<handle>", and "position:<group>".
func validExpression(expr string) bool {
	if expr == "*" {
		return true
	}
	for _, prefix := range []string{"person:", "position:"} {
		if rest, ok := cutPrefixNonEmpty(expr, prefix); ok && rest != "" {
			return true
		}
	}
	return false
}

func cutPrefixNonEmpty(s, prefix string) (string, bool) {
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}
