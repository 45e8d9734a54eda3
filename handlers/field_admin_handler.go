package handlers

import (
	"net/http"

	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/services"
	"github.com/go-chi/chi/v5"
)

type FieldAdminHandler struct {
	fieldAdminService services.FieldAdminService
}

func NewFieldAdminHandler(s services.FieldAdminService) *FieldAdminHandler {
	return &FieldAdminHandler{fieldAdminService: s}
}

func fieldFromURL(w http.ResponseWriter, r *http.Request) (models.Field, bool) {
	field, err := models.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		failedValidationResponse(w, r, map[string]string{"field": err.Error()})
		return "", false
	}
	return field, true
}

// List godoc
// @Summary Реестр полевых администраторов
// @Tags field-admins
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /field-admins [get]
func (h *FieldAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	assignments, err := h.fieldAdminService.List(r.Context(), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"field_admins": assignments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type assignFieldAdminRequest struct {
	UserID int `json:"user_id"`
}

// Assign godoc
// @Summary Назначить полевого администратора
// @Description Предыдущий администратор направления понижается до VERIFIED_USER.
// @Tags field-admins
// @Accept json
// @Produce json
// @Param field path string true "Направление"
// @Param body body assignFieldAdminRequest true "Пользователь"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Пользователь администрирует другое направление"
// @Security BearerAuth
// @Router /field-admins/{field} [put]
func (h *FieldAdminHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	field, ok := fieldFromURL(w, r)
	if !ok {
		return
	}

	var input assignFieldAdminRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		failedValidationResponse(w, r, map[string]string{"user_id": "must be a positive integer"})
		return
	}

	assignment, err := h.fieldAdminService.Assign(r.Context(), actor, field, input.UserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"field_admin": assignment}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Remove godoc
// @Summary Снять полевого администратора
// @Tags field-admins
// @Param field path string true "Направление"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string "Направление без администратора"
// @Security BearerAuth
// @Router /field-admins/{field} [delete]
func (h *FieldAdminHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	field, ok := fieldFromURL(w, r)
	if !ok {
		return
	}
	if err := h.fieldAdminService.Remove(r.Context(), actor, field); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
