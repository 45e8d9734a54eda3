package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/services"
)

type DirectoryHandler struct {
	directoryService services.DirectoryService
	reportService    services.ReportService
}

func NewDirectoryHandler(ds services.DirectoryService, rs services.ReportService) *DirectoryHandler {
	return &DirectoryHandler{directoryService: ds, reportService: rs}
}

// parseDirectoryFilter разбирает q, field (повторяемый или через запятую), country, batch, limit, offset.
func parseDirectoryFilter(r *http.Request) (models.DirectoryFilter, map[string]string) {
	q := r.URL.Query()
	filter := models.DirectoryFilter{
		Query:   strings.TrimSpace(q.Get("q")),
		Country: strings.TrimSpace(q.Get("country")),
		Limit:   toInt(q.Get("limit"), 0),
		Offset:  toInt(q.Get("offset"), 0),
	}
	problems := map[string]string{}

	for _, raw := range q["field"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			field, err := models.ParseField(part)
			if err != nil {
				problems["field"] = err.Error()
				continue
			}
			filter.Fields = append(filter.Fields, field)
		}
	}

	if raw := q.Get("batch"); raw != "" {
		batch, err := strconv.Atoi(raw)
		if err != nil {
			problems["batch"] = "must be an integer"
		} else {
			filter.Batch = &batch
		}
	}

	return filter, problems
}

// Search godoc
// @Summary Поиск по справочнику выпускников
// @Description Полевой администратор видит только своё направление.
// @Tags directory
// @Produce json
// @Param q query string false "Имя, прозвище или место работы"
// @Param field query []string false "Направления" collectionFormat(multi)
// @Param country query string false "Страна"
// @Param batch query int false "Год выпуска"
// @Param limit query int false "Лимит (по умолчанию 20, максимум 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{} "alumni и total"
// @Failure 403 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /directory [get]
func (h *DirectoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	filter, problems := parseDirectoryFilter(r)
	if len(problems) > 0 {
		failedValidationResponse(w, r, problems)
		return
	}

	alumni, total, err := h.directoryService.Search(r.Context(), actor, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"alumni": alumni, "total": total}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Report godoc
// @Summary Отчёт по выпускникам
// @Description format=csv возвращает файл вместо JSON.
// @Tags reports
// @Produce json
// @Produce text/csv
// @Param field query []string false "Направления" collectionFormat(multi)
// @Param country query string false "Страна"
// @Param batch query int false "Год выпуска"
// @Param format query string false "json (по умолчанию) или csv"
// @Success 200 {object} models.Report
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /reports/alumni [get]
func (h *DirectoryHandler) Report(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	filter, problems := parseDirectoryFilter(r)
	if len(problems) > 0 {
		failedValidationResponse(w, r, problems)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		h.exportCSV(w, r, actor, filter)
		return
	}

	report, err := h.reportService.Generate(r.Context(), actor, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, report, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DirectoryHandler) exportCSV(w http.ResponseWriter, r *http.Request, actor authz.Principal, filter models.DirectoryFilter) {
	// пишем в буфер, чтобы ошибка не оборвала файл посередине
	var buf strings.Builder
	if err := h.reportService.ExportCSV(r.Context(), actor, filter, &buf); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	filename := fmt.Sprintf("alumni-report-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(buf.String()))
}
