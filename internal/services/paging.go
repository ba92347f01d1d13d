package services

import "github.com/soaringjerry/Tally/internal/models"

// Page is one screen of questions.
type Page struct {
	Index       int      `json:"index"`
	QuestionIDs []string `json:"questionIds"`
}

// Pages splits the survey's questions into consecutive pages of perPage questions.
// perPage <= 0 puts every question on a single page. A survey without questions still
// has one empty page.
func Pages(survey *models.Survey, perPage int) []Page {
	ids := make([]string, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		ids = append(ids, q.ID)
	}
	if perPage <= 0 || perPage >= len(ids) {
		return []Page{{Index: 0, QuestionIDs: ids}}
	}
	out := make([]Page, 0, (len(ids)+perPage-1)/perPage)
	for start := 0; start < len(ids); start += perPage {
		end := min(start+perPage, len(ids))
		out = append(out, Page{Index: len(out), QuestionIDs: ids[start:end:end]})
	}
	return out
}

// ValidatePage validates only the questions on page index of the paging. The result
// is computed fresh on every call.
func ValidatePage(survey *models.Survey, answers []models.Answer, perPage, index int) (VerdictMap, error) {
	pages := Pages(survey, perPage)
	if index < 0 || index >= len(pages) {
		return nil, NewInvalidError("page out of range")
	}
	return Validate(survey, answers, ValidateOptions{Partial: pages[index].QuestionIDs}), nil
}
