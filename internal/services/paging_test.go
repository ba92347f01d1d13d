package services

import (
	"reflect"
	"testing"

	"github.com/soaringjerry/Tally/internal/models"
)

func TestPages(t *testing.T) {
	s := requiredSurvey()
	if got := Pages(s, 0); len(got) != 1 || len(got[0].QuestionIDs) != len(s.Questions) {
		t.Fatalf("default paging = %+v", got)
	}
	got := Pages(s, 2)
	want := [][]string{{"name", "langs"}, {"grid", "radio"}, {"note"}}
	if len(got) != len(want) {
		t.Fatalf("pages = %d, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.Index != i || !reflect.DeepEqual(p.QuestionIDs, want[i]) {
			t.Fatalf("page %d = %+v, want %v", i, p, want[i])
		}
	}
	if empty := Pages(&models.Survey{}, 3); len(empty) != 1 || len(empty[0].QuestionIDs) != 0 {
		t.Fatalf("empty survey paging = %+v", empty)
	}
}

func TestValidatePageScopesToPage(t *testing.T) {
	s := requiredSurvey()
	answers := []models.Answer{{QuestionID: "name", Value: models.Text("Ada")}, {QuestionID: "langs", Value: models.List("Go")}}
	v, err := ValidatePage(s, answers, 2, 0)
	if err != nil || !v.Valid() || len(v) != 2 {
		t.Fatalf("page 0 = %+v, %v", v, err)
	}
	v, _ = ValidatePage(s, answers, 2, 1)
	if v.Valid() {
		t.Fatalf("page 1 should be invalid")
	}
	if _, err := ValidatePage(s, answers, 2, 3); err == nil {
		t.Fatalf("out of range page accepted")
	}
}
