//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// Runs against a live server, e.g.
//
//	TALLY_ADMIN_KEY_HASH=$(go run ./cmd/server -hash-admin-key secret) TALLY_ADDR=:18080 go run ./cmd/server
//	TALLY_TEST_ADMIN_KEY=secret go test -tags integration ./tests/integration
func baseURL() string {
	if v := os.Getenv("TALLY_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

func TestSurveyJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()

	token := ""
	if key := os.Getenv("TALLY_TEST_ADMIN_KEY"); key != "" {
		var loginResp struct {
			Token string `json:"token"`
		}
		doJSON(t, client, http.MethodPost, base+"/api/auth/login", "", map[string]string{"key": key}, &loginResp)
		if loginResp.Token == "" {
			t.Fatalf("login did not return token")
		}
		token = loginResp.Token
	}

	var survey struct {
		ID        string `json:"id"`
		Questions []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	doJSON(t, client, http.MethodPost, base+"/api/surveys", token, map[string]any{
		"title":       fmt.Sprintf("Integration %d", time.Now().Unix()%100000),
		"isAnonymous": true,
		"questions": []map[string]any{
			{"text": "How satisfied are you?", "type": "scale", "required": true, "options": []string{"Not at all", "Very"}},
			{"text": "Which topics?", "type": "multi", "options": []string{"Go", "SQL", "HTTP"}},
		},
	}, &survey)
	if survey.ID == "" || len(survey.Questions) != 2 {
		t.Fatalf("unexpected survey: %+v", survey)
	}
	scaleID, multiID := survey.Questions[0].ID, survey.Questions[1].ID

	for _, v := range []string{"4", "5"} {
		doJSON(t, client, http.MethodPost, base+"/api/responses", "", map[string]any{
			"surveyId": survey.ID,
			"answers": []map[string]any{
				{"questionId": scaleID, "value": v},
				{"questionId": multiID, "value": []string{"Go"}},
			},
		}, nil)
	}

	var stats struct {
		TotalResponses int `json:"totalResponses"`
		Questions      []struct {
			Numeric *struct {
				Mean float64 `json:"mean"`
			} `json:"numeric"`
		} `json:"questions"`
	}
	doJSON(t, client, http.MethodGet, base+"/api/surveys/"+survey.ID+"/stats", token, nil, &stats)
	if stats.TotalResponses != 2 || stats.Questions[0].Numeric == nil || stats.Questions[0].Numeric.Mean != 4.5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/api/surveys/"+survey.ID+"/export?format=xlsx", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("PK")) {
		t.Fatalf("export status %d, %d bytes", resp.StatusCode, len(body))
	}

	var deleted struct {
		RemovedResponses int `json:"removedResponses"`
	}
	doJSON(t, client, http.MethodDelete, base+"/api/surveys/"+survey.ID, token, nil, &deleted)
	if deleted.RemovedResponses != 2 {
		t.Fatalf("removed = %d, want 2", deleted.RemovedResponses)
	}
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, out any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}
