package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/services"
)

const maxPhotoUploadSize = 5 << 20 // 5MB

type SubmissionHandler struct {
	submissionService services.SubmissionService
}

func NewSubmissionHandler(ss services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

// Create godoc
// @Summary Подать анкету на верификацию
// @Tags submissions
// @Accept json
// @Produce json
// @Param body body services.CreateSubmissionInput true "Данные выпускника"
// @Success 201 {object} map[string]interface{} "Анкета создана (PENDING)"
// @Failure 403 {object} map[string]string "Пользователь уже верифицирован"
// @Failure 409 {object} map[string]string "Уже есть анкета на проверке"
// @Failure 422 {object} map[string]interface{} "Ошибки валидации по полям"
// @Security BearerAuth
// @Router /submissions [post]
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var input services.CreateSubmissionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submission, err := h.submissionService.Create(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadPhoto godoc
// @Summary Прикрепить фото к анкете на проверке
// @Tags submissions
// @Accept multipart/form-data
// @Produce json
// @Param submissionID path int true "Submission ID"
// @Param photo formData file true "Изображение (jpeg, png, webp)"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Анкета уже рассмотрена"
// @Security BearerAuth
// @Router /submissions/{submissionID}/photo [post]
func (h *SubmissionHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	submissionID, err := getIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	photo, closeFn, err := readPhoto(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer closeFn()

	submission, err := h.submissionService.AttachPhoto(r.Context(), actor, submissionID, photo)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListOwn godoc
// @Summary История собственных анкет
// @Tags submissions
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /submissions/mine [get]
func (h *SubmissionHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	submissions, err := h.submissionService.ListOwn(r.Context(), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"submissions": submissions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListForReview godoc
// @Summary Очередь анкет для рецензента
// @Description Полевой администратор видит только своё направление.
// @Tags submissions
// @Produce json
// @Param status query string false "PENDING (по умолчанию), APPROVED или REJECTED"
// @Param field query string false "Направление"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /submissions [get]
func (h *SubmissionHandler) ListForReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := services.ReviewFilter{
		Limit:  toInt(q.Get("limit"), 50),
		Offset: toInt(q.Get("offset"), 0),
	}
	if status := strings.TrimSpace(q.Get("status")); status != "" {
		s := models.SubmissionStatus(strings.ToUpper(status))
		filter.Status = &s
	}
	if raw := q.Get("field"); raw != "" {
		field, err := models.ParseField(raw)
		if err != nil {
			failedValidationResponse(w, r, map[string]string{"field": err.Error()})
			return
		}
		filter.Field = &field
	}

	submissions, err := h.submissionService.ListForReview(r.Context(), actor, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"submissions": submissions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Анкета по ID
// @Tags submissions
// @Produce json
// @Param submissionID path int true "Submission ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /submissions/{submissionID} [get]
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	submissionID, err := getIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	submission, err := h.submissionService.Get(r.Context(), actor, submissionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type approveRequest struct {
	AssignedField *string `json:"assigned_field"`
}

// Approve godoc
// @Summary Одобрить анкету
// @Description assigned_field дополнительно назначает владельца полевым администратором (только SUPER_ADMIN).
// @Tags submissions
// @Accept json
// @Produce json
// @Param submissionID path int true "Submission ID"
// @Param body body approveRequest false "Назначаемое направление"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Чужое направление"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Анкета уже рассмотрена"
// @Security BearerAuth
// @Router /submissions/{submissionID}/approve [post]
func (h *SubmissionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	submissionID, err := getIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input approveRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	var assignedField *models.Field
	if input.AssignedField != nil && strings.TrimSpace(*input.AssignedField) != "" {
		field, err := models.ParseField(*input.AssignedField)
		if err != nil {
			failedValidationResponse(w, r, map[string]string{"assigned_field": err.Error()})
			return
		}
		assignedField = &field
	}

	submission, err := h.submissionService.Approve(r.Context(), actor, submissionID, assignedField)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject godoc
// @Summary Отклонить анкету
// @Tags submissions
// @Accept json
// @Produce json
// @Param submissionID path int true "Submission ID"
// @Param body body rejectRequest true "Причина отказа"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Анкета уже рассмотрена"
// @Failure 422 {object} map[string]interface{} "Не указана причина"
// @Security BearerAuth
// @Router /submissions/{submissionID}/reject [post]
func (h *SubmissionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	submissionID, err := getIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input rejectRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submission, err := h.submissionService.Reject(r.Context(), actor, submissionID, input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// readPhoto читает поле "photo" multipart-формы.
func readPhoto(w http.ResponseWriter, r *http.Request) (services.PhotoUpload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUploadSize+1024)
	if err := r.ParseMultipartForm(maxPhotoUploadSize); err != nil {
		return services.PhotoUpload{}, nil, errors.New("photo must be a multipart upload of at most 5MB")
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		return services.PhotoUpload{}, nil, errors.New("photo file is required")
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		file.Close()
		return services.PhotoUpload{}, nil, errors.New("content type required")
	}
	return services.PhotoUpload{Reader: file, ContentType: contentType}, func() { file.Close() }, nil
}
