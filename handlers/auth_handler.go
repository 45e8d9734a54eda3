package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Dosada05/alumni-network/middleware"
	"github.com/Dosada05/alumni-network/services"
	"github.com/google/uuid"
)

const oauthStateCookie = "alumni_oauth_state"

type AuthHandler struct {
	authService services.AuthService
	tokens      *middleware.TokenManager
}

func NewAuthHandler(authService services.AuthService, tokens *middleware.TokenManager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
	}
}

// Login godoc
// @Summary Вход по email и паролю
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Учётные данные"
// @Success 200 {object} map[string]interface{} "token и user"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string "Неверные учётные данные"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput

	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Email == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	user, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": token, "user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GoogleLogin godoc
// @Summary Ссылка на вход через Google
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{} "url"
// @Failure 401 {object} map[string]string "Вход через Google не настроен"
// @Router /auth/google [get]
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	url, err := h.authService.GoogleAuthURL(state)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	if err := writeJSON(w, http.StatusOK, jsonResponse{"url": url}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GoogleCallback godoc
// @Summary Завершение входа через Google
// @Description Новые пользователи создаются с ролью UNVERIFIED.
// @Tags auth
// @Produce json
// @Param code query string true "Код авторизации"
// @Param state query string true "Состояние из /auth/google"
// @Success 200 {object} map[string]interface{} "token и user"
// @Failure 400 {object} map[string]string "Неверный state"
// @Failure 401 {object} map[string]string
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		badRequestResponse(w, r, errors.New("invalid oauth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	code := q.Get("code")
	if code == "" {
		badRequestResponse(w, r, errors.New("authorization code is required"))
		return
	}

	user, err := h.authService.LoginWithGoogle(r.Context(), code)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": token, "user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Me godoc
// @Summary Текущий пользователь
// @Tags auth
// @Produce json
// @Success 200 {object} services.MeResult
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	me, err := h.authService.Me(r.Context(), actor.UserID())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, me, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
