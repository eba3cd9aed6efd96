package session

import (
	"errors"
	"net/http"
	"time"

	"taeu.kr/invoicedesk/internal/platform/web"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/session", web.Handler(h.handleCurrent))
	mux.Handle("POST /api/session", web.Handler(h.handleLogin))
	mux.Handle("DELETE /api/session", web.Handler(h.handleLogout))
	mux.Handle("POST /api/session/switch", web.Handler(h.handleSwitch))
}

type loginRequest struct {
	AccessToken string `json:"accessToken"`
}

type sessionResponse struct {
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toResponse(sess *Session) sessionResponse {
	return sessionResponse{
		Email:     sess.Email,
		IssuedAt:  sess.IssuedAt,
		ExpiresAt: sess.ExpiresAt(),
	}
}

func loginError(err error) *web.Error {
	if errors.Is(err, ErrLoginFailed) {
		return &web.Error{Code: http.StatusUnauthorized, Message: "Failed to verify Google access token", Err: err}
	}
	return &web.Error{Code: http.StatusInternalServerError, Message: "Failed to start session", Err: err}
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) *web.Error {
	sess, ok := FromContext(r.Context())
	if !ok {
		return &web.Error{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	}
	return web.WriteJSON(w, http.StatusOK, toResponse(sess))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) *web.Error {
	var req loginRequest
	if webErr := web.DecodeJSON(r, &req); webErr != nil {
		return webErr
	}

	sess, token, err := h.manager.Login(r.Context(), req.AccessToken)
	if err != nil {
		return loginError(err)
	}
	setSessionCookie(w, r, token, sess.ExpiresAt())
	return web.WriteJSON(w, http.StatusOK, toResponse(sess))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) *web.Error {
	if sess, ok := FromContext(r.Context()); ok {
		_ = h.manager.Logout(sess.ID)
	}
	clearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) handleSwitch(w http.ResponseWriter, r *http.Request) *web.Error {
	var req loginRequest
	if webErr := web.DecodeJSON(r, &req); webErr != nil {
		return webErr
	}

	currentID := ""
	if current, ok := FromContext(r.Context()); ok {
		currentID = current.ID
	}

	sess, token, err := h.manager.SwitchAccount(r.Context(), currentID, req.AccessToken)
	if err != nil {
		return loginError(err)
	}
	setSessionCookie(w, r, token, sess.ExpiresAt())
	return web.WriteJSON(w, http.StatusOK, toResponse(sess))
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}
