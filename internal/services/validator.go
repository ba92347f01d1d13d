package services

import (
	"sort"

	"github.com/soaringjerry/Tally/internal/models"
)

// Reason explains an invalid verdict.
type Reason string

const (
	ReasonMissingRequired Reason = "missing-required"
	ReasonWrongShape      Reason = "wrong-shape"
	ReasonEmptySelection  Reason = "empty-selection"
)

type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
}

var validVerdict = Verdict{Valid: true}

func invalid(r Reason) Verdict { return Verdict{Reason: r} }

// VerdictMap is keyed by question id.
type VerdictMap map[string]Verdict

// Valid reports whether every verdict in m is valid.
func (m VerdictMap) Valid() bool {
	for _, v := range m {
		if !v.Valid {
			return false
		}
	}
	return true
}

// Invalid returns the ids of failing questions, sorted.
func (m VerdictMap) Invalid() []string {
	ids := []string{}
	for id, v := range m {
		if !v.Valid {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ValidateOptions scopes validation. A nil Partial validates every question; a
// non-nil Partial validates only the listed ids.
type ValidateOptions struct {
	Partial []string
}

// Validate computes a verdict for each question in scope. Answers are read, never
// modified; when a question id appears more than once the first answer is used.
func Validate(survey *models.Survey, answers []models.Answer, opts ValidateOptions) VerdictMap {
	if survey == nil {
		return VerdictMap{}
	}
	values := make(map[string]models.Value, len(answers))
	for _, a := range answers {
		if _, seen := values[a.QuestionID]; !seen {
			values[a.QuestionID] = a.Value
		}
	}
	var scope map[string]bool
	if opts.Partial != nil {
		scope = make(map[string]bool, len(opts.Partial))
		for _, id := range opts.Partial {
			scope[id] = true
		}
	}
	out := make(VerdictMap, len(survey.Questions))
	for _, q := range survey.Questions {
		if scope != nil && !scope[q.ID] {
			continue
		}
		out[q.ID] = ValidateAnswer(q, values[q.ID])
	}
	return out
}

// ValidateAnswer applies the required-answer policy for a single question.
func ValidateAnswer(q models.Question, v models.Value) Verdict {
	if !q.Required {
		return validVerdict
	}
	expected := models.ExpectedValueShape(q)
	if shape, ok := v.Shape(); ok && shape != expected {
		return invalid(ReasonWrongShape)
	}
	switch expected {
	case models.ShapeList:
		if len(v.Items()) == 0 {
			return invalid(ReasonEmptySelection)
		}
	case models.ShapeRowMap:
		return validateGrid(q, v)
	default:
		if v.Blank() {
			return invalid(ReasonMissingRequired)
		}
	}
	return validVerdict
}

// validateGrid requires a selection on every declared row. For grid-check an empty
// column set counts the same as a missing row.
func validateGrid(q models.Question, v models.Value) Verdict {
	if v.IsAbsent() {
		return invalid(ReasonMissingRequired)
	}
	for _, row := range q.Rows {
		cols, ok := v.Row(row)
		if !ok || len(cols) == 0 {
			return invalid(ReasonMissingRequired)
		}
		if q.Type == models.TypeGridRadio && len(cols) > 1 {
			return invalid(ReasonWrongShape)
		}
	}
	return validVerdict
}

// CheckShapes reports the first present answer whose shape disagrees with its
// question, or that references a question the survey does not declare, or repeats a
// question id. It backs the schema-mismatch error on normal submissions.
func CheckShapes(survey *models.Survey, answers []models.Answer) error {
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		q, ok := survey.Question(a.QuestionID)
		if !ok {
			return schemaMismatch(a.QuestionID, "unknown question")
		}
		if seen[a.QuestionID] {
			return schemaMismatch(a.QuestionID, "duplicate answer")
		}
		seen[a.QuestionID] = true
		shape, present := a.Value.Shape()
		if !present {
			continue
		}
		if want := models.ExpectedValueShape(q); shape != want {
			return schemaMismatch(a.QuestionID, "got %s, want %s", shape, want)
		}
		if q.Type == models.TypeGridRadio {
			for _, row := range a.Value.RowNames() {
				if cols, _ := a.Value.Row(row); len(cols) > 1 {
					return schemaMismatch(a.QuestionID, "row %q has %d columns", row, len(cols))
				}
			}
		}
	}
	return nil
}
