package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
)

const (
	defaultDirectoryLimit = 20
	maxDirectoryLimit     = 100
	maxReportRows         = 10000
)

type DirectoryService interface {
	Search(ctx context.Context, actor authz.Principal, filter models.DirectoryFilter) ([]models.AlumniProfile, int, error)
}

type ReportService interface {
	Generate(ctx context.Context, actor authz.Principal, filter models.DirectoryFilter) (*models.Report, error)
	ExportCSV(ctx context.Context, actor authz.Principal, filter models.DirectoryFilter, w io.Writer) error
}

// scopedQuery пересекает запрошенные направления с областью видимости решения.
// ok == false означает, что пересечение пусто и результат заведомо пустой.
func scopedQuery(scope authz.Scope, filter models.DirectoryFilter) (repositories.AlumniQuery, bool) {
	q := repositories.AlumniQuery{
		Query:   strings.TrimSpace(filter.Query),
		Country: strings.TrimSpace(filter.Country),
		Batch:   filter.Batch,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}
	if scope.Unrestricted() {
		q.Fields = filter.Fields
		return q, true
	}
	if len(filter.Fields) == 0 {
		q.Fields = []models.Field{scope.Field}
		return q, true
	}
	for _, f := range filter.Fields {
		if f == scope.Field {
			q.Fields = []models.Field{scope.Field}
			return q, true
		}
	}
	return q, false
}

func validateDirectoryFilter(filter models.DirectoryFilter) error {
	v := NewValidationError()
	for _, f := range filter.Fields {
		if !f.Valid() {
			v.Add("field", fmt.Sprintf("unknown engineering field %q", f))
		}
	}
	v.Check(filter.Limit >= 0, "limit", "must not be negative")
	v.Check(filter.Offset >= 0, "offset", "must not be negative")
	return v.Err()
}

// requestedField - единственное запрошенное направление передаётся движку, чтобы
// полевой администратор получил отказ при явном запросе чужого направления.
func requestedField(filter models.DirectoryFilter) models.Field {
	if len(filter.Fields) == 1 {
		return filter.Fields[0]
	}
	return ""
}

type directoryService struct {
	alumniRepo repositories.AlumniRepository
}

func NewDirectoryService(alumniRepo repositories.AlumniRepository) DirectoryService {
	return &directoryService{alumniRepo: alumniRepo}
}

func (s *directoryService) Search(ctx context.Context, actor authz.Principal, filter models.DirectoryFilter) ([]models.AlumniProfile, int, error) {
	decision := authz.Decide(actor, authz.ActionViewDirectory, authz.Resource{Field: requestedField(filter)})
	if !decision.Allowed {
		return nil, 0, forbidden(decision.Reason)
	}
	if err := validateDirectoryFilter(filter); err != nil {
		return nil, 0, err
	}

	if filter.Limit == 0 {
		filter.Limit = defaultDirectoryLimit
	}
	if filter.Limit > maxDirectoryLimit {
		filter.Limit = maxDirectoryLimit
	}

	q, ok := scopedQuery(decision.Scope, filter)
	if !ok {
		return []models.AlumniProfile{}, 0, nil
	}
	profiles, total, err := s.alumniRepo.Search(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search directory: %w", err)
	}
	return profiles, total, nil
}

type reportService struct {
	alumniRepo repositories.AlumniRepository
	maxRows    int
}

func NewReportService(alumniRepo repositories.AlumniRepository) ReportService {
	return &reportService{alumniRepo: alumniRepo, maxRows: maxReportRows}
}

func (s *reportService) Generate(ctx context.Context, actor authz.Principal, filter models.DirectoryFilter) (*models.Report, error) {
	decision := authz.Decide(actor, authz.ActionExportReport, authz.Resource{Field: requestedField(filter)})
	if !decision.Allowed {
		return nil, forbidden(decision.Reason)
	}
	if err := validateDirectoryFilter(filter); err != nil {
		return nil, err
	}

	// отчёт всегда строится по всем подходящим строкам
	filter.Limit = s.maxRows
	filter.Offset = 0

	report := &models.Report{
		Rows:      []models.AlumniProfile{},
		ByField:   []models.CountBucket{},
		ByCountry: []models.CountBucket{},
	}
	q, ok := scopedQuery(decision.Scope, filter)
	if !ok {
		return report, nil
	}

	rows, total, err := s.alumniRepo.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query report rows: %w", err)
	}
	if total > s.maxRows {
		return nil, validationFailed("filter",
			fmt.Sprintf("report matches %d alumni, narrow the filter to at most %d", total, s.maxRows))
	}
	byField, err := s.alumniRepo.CountBy(ctx, "field", q)
	if err != nil {
		return nil, err
	}
	byCountry, err := s.alumniRepo.CountBy(ctx, "country", q)
	if err != nil {
		return nil, err
	}

	report.Rows = rows
	report.Total = total
	report.ByField = byField
	report.ByCountry = byCountry
	return report, nil
}

var reportHeader = []string{
	"full_name", "calling_name", "nickname", "field", "batch", "country", "workplace", "phone", "contact_email",
}

func (s *reportService) ExportCSV(ctx context.Context, actor authz.Principal, filter models.DirectoryFilter, w io.Writer) error {
	report, err := s.Generate(ctx, actor, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, p := range report.Rows {
		batch := ""
		if p.Batch != nil {
			batch = strconv.Itoa(*p.Batch)
		}
		record := []string{
			p.FullName,
			p.CallingName,
			derefString(p.Nickname),
			string(p.Field),
			batch,
			p.Country,
			derefString(p.Workplace),
			derefString(p.Phone),
			derefString(p.ContactEmail),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
