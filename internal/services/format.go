package services

import (
	"strings"

	"github.com/soaringjerry/Tally/internal/models"
)

// NoAnswer marks a question without a recorded answer. Frequency tables never count it.
const NoAnswer = "-"

// FormatValue renders any answer value as display text: scalars pass through, lists
// join with ", ", grids render as "row: col1, col2 | row2: col3" in row-label order.
func FormatValue(v models.Value) string {
	switch v.Kind() {
	case models.ValueScalar:
		return v.Text()
	case models.ValueList:
		return strings.Join(v.Items(), ", ")
	case models.ValueRowMap:
		return formatRows(v, v.RowNames())
	}
	return NoAnswer
}

// FormatAnswer is FormatValue with grid rows in the question's declared order; rows
// the question no longer declares follow in label order.
func FormatAnswer(q models.Question, v models.Value) string {
	if v.Kind() != models.ValueRowMap {
		return FormatValue(v)
	}
	order := make([]string, 0, len(q.Rows))
	seen := make(map[string]bool, len(q.Rows))
	for _, r := range q.Rows {
		if _, ok := v.Row(r); ok && !seen[r] {
			order = append(order, r)
			seen[r] = true
		}
	}
	for _, r := range v.RowNames() {
		if !seen[r] {
			order = append(order, r)
		}
	}
	return formatRows(v, order)
}

func formatRows(v models.Value, order []string) string {
	parts := make([]string, 0, len(order))
	for _, r := range order {
		cols, _ := v.Row(r)
		parts = append(parts, r+": "+strings.Join(cols, ", "))
	}
	return strings.Join(parts, " | ")
}

// formatCell renders the answer to q in r, or NoAnswer.
func formatCell(q models.Question, r *models.Response) string {
	v, ok := r.Answer(q.ID)
	if !ok || v.IsAbsent() {
		return NoAnswer
	}
	return FormatAnswer(q, v)
}
