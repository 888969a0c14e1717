package api

import (
	"net/http"
	"strings"

	"ims/internal/auth"
	dErrors "ims/pkg/domainerrors"
	"ims/pkg/httputil"
	"ims/pkg/requestcontext"
)

type pingResponse struct {
	Ack        string `json:"ack"`
	Deployment string `json:"deployment,omitempty"`
}

func (a *API) handlePing(w http.ResponseWriter, r *http.Request) {
	resp := pingResponse{Ack: "ack", Deployment: a.deployment}
	setETag(w, resp)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type loginRequest struct {
	Identification string `json:"identification"`
	Password       string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	Handle    string `json:"handle"`
}

// handleLogin resolves the identification against the personnel
// directory, verifies the password (the directory backend applies the
// master-key escape hatch when one is configured), and issues a signed
// bearer token. The o= query parameter that writeUnauthenticated adds
// to the login redirect is not read here and is not part of the
// response.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "api.login")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, a.logger, requestID)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Identification) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identification must not be empty"))
		return
	}

	user, found, err := a.directory.LookupUser(ctx, req.Identification)
	if err != nil {
		a.logger.ErrorContext(ctx, "personnel lookup failed during login",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "personnel directory unavailable"))
		return
	}
	if !found || !user.Active {
		a.metrics.IncrementAuthFailures()
		httputil.WriteError(w, auth.ErrInvalidCredentials())
		return
	}

	verified, err := a.directory.VerifyPassword(ctx, user, req.Password)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "personnel directory unavailable"))
		return
	}
	if !verified {
		a.metrics.IncrementAuthFailures()
		httputil.WriteError(w, auth.ErrInvalidCredentials())
		return
	}

	handle := user.ShortNames[0]
	token, _, err := a.tokens.Issue(handle, user.Groups, a.tokenLifetime)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	a.logger.InfoContext(ctx, "login succeeded", "handle", handle, "request_id", requestID)
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresIn: int64(a.tokenLifetime.Seconds()),
		Handle:    handle,
	})
}

// handleLogout revokes the presented token's JTI for the remainder of
// its lifetime, so a stolen or retired token dies immediately instead
// of aging out.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		a.writeUnauthenticated(w, r)
		return
	}
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		a.writeUnauthenticated(w, r)
		return
	}

	if a.revocations != nil && claims.JTI != "" {
		if err := a.revocations.Revoke(ctx, claims.JTI, a.tokenLifetime); err != nil {
			a.logger.ErrorContext(ctx, "failed to revoke token on logout",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to revoke token"))
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
