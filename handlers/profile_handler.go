package handlers

import (
	"net/http"

	"github.com/Dosada05/alumni-network/services"
)

type ProfileHandler struct {
	profileService services.ProfileService
}

func NewProfileHandler(ps services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: ps}
}

// GetOwn godoc
// @Summary Моя запись в справочнике
// @Tags profile
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Запись ещё не создана"
// @Security BearerAuth
// @Router /profile [get]
func (h *ProfileHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	profile, err := h.profileService.GetOwn(r.Context(), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateOwn godoc
// @Summary Изменить свою запись
// @Description Имя, направление и год выпуска не редактируются.
// @Tags profile
// @Accept json
// @Produce json
// @Param body body services.UpdateProfileInput true "Изменяемые поля"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /profile [patch]
func (h *ProfileHandler) UpdateOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var input services.UpdateProfileInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	profile, err := h.profileService.UpdateOwn(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadPhoto godoc
// @Summary Загрузить фото профиля
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file true "Изображение (jpeg, png, webp)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /profile/photo [post]
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	photo, closeFn, err := readPhoto(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer closeFn()

	profile, err := h.profileService.UploadPhoto(r.Context(), actor, photo)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
