package http

import (
	"net/http"
	"strings"

	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type UserHandler struct {
	service      ports.UserService
	cookieDomain string
}

func NewUserHandler(service ports.UserService, cookieDomain string) *UserHandler {
	return &UserHandler{
		service:      service,
		cookieDomain: cookieDomain,
	}
}

type googleLoginRequest struct {
	Credential string `validate:"required,max=4096"`
}

type loginResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// GoogleLogin accepts the Google Identity Services callback, which posts the
// ID token as the form field "credential".
func (h *UserHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeBadRequest(w, "failed to parse form")
		return
	}

	req := googleLoginRequest{Credential: strings.TrimSpace(r.FormValue("credential"))}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, "missing credential")
		return
	}

	user, token, err := h.service.LoginWithGoogle(r.Context(), req.Credential)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setAccessTokenCookie(w, token)
	writeJSON(w, http.StatusOK, loginResponse{User: user, AccessToken: token})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, MaxAge: -1, Path: "/", Domain: h.cookieDomain})
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	if !identity.IsAuthenticated() {
		writeError(w, domain.ErrAuthRequired)
		return
	}

	user, err := h.service.GetByID(r.Context(), *identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) setAccessTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   24 * 60 * 60,
	})
}
