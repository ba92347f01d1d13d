package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soaringjerry/Tally/internal/models"
)

type recordingListener struct{ got []*models.Response }

func (l *recordingListener) ResponseSaved(r *models.Response) { l.got = append(l.got, r) }

func newTestResponseService(st *stubStore, domain string) *ResponseService {
	svc := NewResponseService(st, domain)
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	svc.idGenerator = func() string { return "resp1" }
	return svc
}

func TestSubmitEndToEndExample(t *testing.T) {
	st := newStubStore()
	_ = st.CreateSurvey(context.Background(), multiSurvey(false))
	l := &recordingListener{}
	svc := newTestResponseService(st, "@institution.example").WithListener(l)

	resp, err := svc.Submit(context.Background(), SubmitRequest{
		SurveyID:  "s1",
		UserEmail: " x@Institution.example ",
		Answers:   []models.Answer{{QuestionID: "q1", Value: models.List("A", "C")}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.UserEmail != "x@Institution.example" || resp.TimeExpired {
		t.Fatalf("response = %+v", resp)
	}
	if len(st.responses) != 1 || len(l.got) != 1 {
		t.Fatalf("stored %d, notified %d", len(st.responses), len(l.got))
	}
	table := FrequencyTableFor(multiSurvey(false).Questions[0], st.responses)
	if table.Map()["A"] != 1 || table.Map()["B"] != 0 || table.Map()["C"] != 1 {
		t.Fatalf("table = %v", table.Map())
	}
}

func TestSubmitIdentityGate(t *testing.T) {
	st := newStubStore()
	_ = st.CreateSurvey(context.Background(), multiSurvey(false))
	svc := newTestResponseService(st, "@institution.example")
	for _, email := range []string{"", "   ", "x@elsewhere.example", "@institution.example"} {
		for _, expired := range []bool{false, true} {
			_, err := svc.Submit(context.Background(), SubmitRequest{
				SurveyID:    "s1",
				UserEmail:   email,
				Answers:     []models.Answer{{QuestionID: "q1", Value: models.List("A")}},
				TimeExpired: expired,
			})
			if !errors.Is(err, ErrIdentityRequired) {
				t.Fatalf("email %q expired=%v: err = %v, want identity-required", email, expired, err)
			}
		}
	}
	if len(st.responses) != 0 {
		t.Fatalf("rejected submissions were persisted")
	}
}

func TestSubmitAnonymousDropsEmail(t *testing.T) {
	st := newStubStore()
	_ = st.CreateSurvey(context.Background(), multiSurvey(true))
	svc := newTestResponseService(st, "@institution.example")
	resp, err := svc.Submit(context.Background(), SubmitRequest{
		SurveyID:  "s1",
		UserEmail: "someone@institution.example",
		Answers:   []models.Answer{{QuestionID: "q1", Value: models.List("B")}},
	})
	if err != nil || resp.UserEmail != "" {
		t.Fatalf("resp = %+v, err = %v", resp, err)
	}
}

func TestSubmitValidationAndShape(t *testing.T) {
	st := newStubStore()
	_ = st.CreateSurvey(context.Background(), requiredSurvey())
	svc := newTestResponseService(st, "")

	_, err := svc.Submit(context.Background(), SubmitRequest{SurveyID: "s1", UserEmail: "a@b", Answers: []models.Answer{
		{QuestionID: "name", Value: models.Text("Ada")},
	}})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Verdicts["langs"].Reason != ReasonEmptySelection {
		t.Fatalf("err = %v, want validation error", err)
	}
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorValidation {
		t.Fatalf("validation error code = %v", se)
	}

	_, err = svc.Submit(context.Background(), SubmitRequest{SurveyID: "s1", UserEmail: "a@b", Answers: []models.Answer{
		{QuestionID: "name", Value: models.List("Ada")},
	}})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("err = %v, want schema mismatch", err)
	}
	if len(st.responses) != 0 {
		t.Fatalf("invalid submissions were persisted")
	}

	resp, err := svc.Submit(context.Background(), SubmitRequest{SurveyID: "s1", UserEmail: "a@b", Answers: []models.Answer{
		{QuestionID: "radio", Value: models.RowChoice(map[string]string{"r1": "c2"})},
		{QuestionID: "name", Value: models.Text("Ada")},
		{QuestionID: "langs", Value: models.List("Go")},
		{QuestionID: "grid", Value: models.RowChoices(map[string][]string{"r1": {"c1"}, "r2": {"c2"}})},
	}})
	if err != nil {
		t.Fatalf("valid submit: %v", err)
	}
	if len(resp.Answers) != 5 || resp.Answers[0].QuestionID != "name" || !resp.Answers[4].Value.IsAbsent() {
		t.Fatalf("answers not completed in schema order: %+v", resp.Answers)
	}
}

func TestSubmitTimeExpiredBypassesValidation(t *testing.T) {
	st := newStubStore()
	_ = st.CreateSurvey(context.Background(), requiredSurvey())
	svc := newTestResponseService(st, "")
	partial := []models.Answer{{QuestionID: "langs", Value: models.List()}}
	resp, err := svc.Submit(context.Background(), SubmitRequest{SurveyID: "s1", UserEmail: "a@b", Answers: partial, TimeExpired: true})
	if err != nil {
		t.Fatalf("expired submit: %v", err)
	}
	if !resp.TimeExpired || len(resp.Answers) != 1 || resp.Answers[0].QuestionID != "langs" {
		t.Fatalf("expired response = %+v", resp)
	}
	if len(st.responses) != 1 || len(st.responses[0].Answers) != 1 {
		t.Fatalf("stored answers were backfilled: %+v", st.responses)
	}
}

func TestSubmitClosedAndMissingSurvey(t *testing.T) {
	st := newStubStore()
	sv := multiSurvey(true)
	past := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	sv.ExpiresAt = &past
	_ = st.CreateSurvey(context.Background(), sv)
	svc := newTestResponseService(st, "")
	if _, err := svc.Submit(context.Background(), SubmitRequest{SurveyID: "s1"}); !errors.Is(err, ErrSurveyClosed) {
		t.Fatalf("err = %v, want closed", err)
	}
	if _, err := svc.Submit(context.Background(), SubmitRequest{SurveyID: "nope"}); !errors.Is(err, ErrSurveyNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if _, err := svc.ListResponses(context.Background(), "nope"); !errors.Is(err, ErrSurveyNotFound) {
		t.Fatalf("list err = %v, want not found", err)
	}
}
