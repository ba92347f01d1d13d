package services

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/soaringjerry/Tally/internal/models"
)

// SurveyReader is the read side of the survey store shared by the reporting services.
type SurveyReader interface {
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	ListResponses(ctx context.Context, surveyID string) ([]*models.Response, error)
}

type ExportParams struct {
	SurveyID string
	Format   string
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	store    SurveyReader
	fontPath string
}

func NewExportService(store SurveyReader) *ExportService {
	return &ExportService{store: store}
}

// WithPDFFont sets a UTF-8 TrueType font for PDF exports.
func (s *ExportService) WithPDFFont(path string) *ExportService {
	s.fontPath = path
	return s
}

// Export renders every response of a survey in the requested format: csv (one row per
// response, the default), long (one row per answer), xlsx, pdf or json.
func (s *ExportService) Export(ctx context.Context, params ExportParams) (*ExportResult, error) {
	if strings.TrimSpace(params.SurveyID) == "" {
		return nil, NewInvalidError("survey id required")
	}
	format := strings.ToLower(strings.TrimSpace(params.Format))
	if format == "" {
		format = "csv"
	}
	survey, err := s.store.GetSurvey(ctx, params.SurveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	rs, err := s.store.ListResponses(ctx, params.SurveyID)
	if err != nil {
		return nil, err
	}
	base := exportBaseName(survey.Title)

	switch format {
	case "csv":
		b, err := ExportTableCSV(ExportTable(survey, rs))
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: base + ".csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	case "long":
		b, err := ExportLongCSV(BuildLongRows(survey, rs))
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: base + "_long.csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	case "xlsx":
		b, err := ExportTableXLSX(ExportTable(survey, rs))
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: base + ".xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Data: b}, nil
	case "pdf":
		b, err := ExportTablePDF(ExportTable(survey, rs), PDFOptions{Title: survey.Title, FontPath: s.fontPath})
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: base + ".pdf", ContentType: "application/pdf", Data: b}, nil
	case "json":
		b, err := json.MarshalIndent(ExportTable(survey, rs), "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: base + ".json", ContentType: "application/json", Data: b}, nil
	default:
		return nil, NewInvalidError("unsupported format")
	}
}

// exportBaseName turns a survey title into a file-safe stem.
func exportBaseName(title string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	name := strings.TrimRight(b.String(), "_")
	if name == "" {
		return "survey_responses"
	}
	return name + "_responses"
}
