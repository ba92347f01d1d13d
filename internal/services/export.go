package services

import (
	"bytes"
	"encoding/csv"
	"time"
	"unicode/utf8"

	"github.com/soaringjerry/Tally/internal/models"
)

const (
	// DateLayout renders submission timestamps in every export sink.
	DateLayout = "2006-01-02 15:04"

	maxColumnWidth = 50
	columnPadding  = 2
)

// Table is the sink-independent export matrix. Every row has len(Header) cells.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// ExportTable flattens responses into one row per response: submission date, the
// respondent email for non-anonymous surveys, then one formatted cell per question in
// schema order.
func ExportTable(survey *models.Survey, responses []*models.Response) Table {
	if survey == nil {
		return Table{Header: []string{"Date"}, Rows: [][]string{}}
	}
	withEmail := !survey.IsAnonymous
	header := make([]string, 0, 2+len(survey.Questions))
	header = append(header, "Date")
	if withEmail {
		header = append(header, "Email")
	}
	for _, q := range survey.Questions {
		header = append(header, q.Text)
	}
	rows := make([][]string, 0, len(responses))
	for _, r := range compactResponses(responses) {
		row := make([]string, 0, len(header))
		row = append(row, formatDate(r.SubmittedAt))
		if withEmail {
			email := r.UserEmail
			if email == "" {
				email = NoAnswer
			}
			row = append(row, email)
		}
		for _, q := range survey.Questions {
			row = append(row, formatCell(q, r))
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return NoAnswer
	}
	return t.UTC().Format(DateLayout)
}

// ColumnWidths returns a character width per column: the longest of header and cells
// plus padding, capped at 50.
func ColumnWidths(t Table) []int {
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] = min(maxColumnWidth, widths[i]+columnPadding)
	}
	return widths
}

// ExportTableCSV writes the table as CSV, header first.
func ExportTableCSV(t Table) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// LongRow is one answer in long format. Value uses the same formatting as the table.
type LongRow struct {
	ResponseID   string
	Respondent   string
	QuestionID   string
	QuestionText string
	Value        string
	SubmittedAt  string
}

// BuildLongRows emits one row per (response, question) pair in schema order.
func BuildLongRows(survey *models.Survey, responses []*models.Response) []LongRow {
	if survey == nil {
		return nil
	}
	rs := compactResponses(responses)
	out := make([]LongRow, 0, len(rs)*len(survey.Questions))
	for i, r := range rs {
		key := RespondentKey(survey, r, i)
		for _, q := range survey.Questions {
			out = append(out, LongRow{
				ResponseID:   r.ID,
				Respondent:   key,
				QuestionID:   q.ID,
				QuestionText: q.Text,
				Value:        formatCell(q, r),
				SubmittedAt:  r.SubmittedAt.UTC().Format(time.RFC3339),
			})
		}
	}
	return out
}

// ExportLongCSV renders rows into a long-format CSV.
func ExportLongCSV(rows []LongRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "respondent", "question_id", "question", "value", "submitted_at"})
	for _, r := range rows {
		rec := []string{r.ResponseID, r.Respondent, r.QuestionID, r.QuestionText, r.Value, r.SubmittedAt}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
