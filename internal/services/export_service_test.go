package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/soaringjerry/Tally/internal/models"
)

func TestExportServiceFormats(t *testing.T) {
	st := newStubStore()
	s := multiSurvey(false)
	s.Title = "Course feedback: week 1"
	_ = st.CreateSurvey(context.Background(), s)
	_ = st.SaveResponse(context.Background(), response("r1", "x@institution.example", ans("q1", models.List("B"))))
	svc := NewExportService(st)

	res, err := svc.Export(context.Background(), ExportParams{SurveyID: "s1"})
	if err != nil {
		t.Fatalf("csv export: %v", err)
	}
	if res.Filename != "Course_feedback_week_1_responses.csv" {
		t.Fatalf("filename = %q", res.Filename)
	}
	recs, err := readCSV(res.Data)
	if err != nil || len(recs) != 2 || recs[1][2] != "B" {
		t.Fatalf("csv = %v (%v)", recs, err)
	}

	for _, f := range []string{"long", "xlsx", "pdf", "JSON"} {
		res, err := svc.Export(context.Background(), ExportParams{SurveyID: "s1", Format: f})
		if err != nil {
			t.Fatalf("%s export: %v", f, err)
		}
		if len(res.Data) == 0 || res.ContentType == "" {
			t.Fatalf("%s export empty", f)
		}
	}
	res, _ = svc.Export(context.Background(), ExportParams{SurveyID: "s1", Format: "json"})
	if !strings.Contains(string(res.Data), `"header"`) {
		t.Fatalf("json export = %s", res.Data)
	}
}

func TestExportServiceErrors(t *testing.T) {
	svc := NewExportService(newStubStore())
	if _, err := svc.Export(context.Background(), ExportParams{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
	if _, err := svc.Export(context.Background(), ExportParams{SurveyID: "nope"}); !errors.Is(err, ErrSurveyNotFound) {
		t.Fatalf("err = %v, want ErrSurveyNotFound", err)
	}
	st := newStubStore()
	_ = st.CreateSurvey(context.Background(), multiSurvey(true))
	_, err := NewExportService(st).Export(context.Background(), ExportParams{SurveyID: "s1", Format: "ods"})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorInvalid {
		t.Fatalf("err = %v, want invalid", err)
	}
}
