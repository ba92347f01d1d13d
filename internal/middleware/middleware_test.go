package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	tok, err := SignSessionToken("sess1", "s1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	var sid, svy string
	var ok bool
	h := WithAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, svy, ok = SessionFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || sid != "sess1" || svy != "s1" {
		t.Fatalf("claims = %q %q %v", sid, svy, ok)
	}
}

func TestRequireAdmin(t *testing.T) {
	SetSecret("test-secret")
	h := WithAuth(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	admin, _ := SignAdminToken("admin", time.Hour)
	session, _ := SignSessionToken("x", "y", time.Hour)
	expired, _ := SignAdminToken("admin", -time.Minute)
	cases := map[string]int{
		"":                http.StatusUnauthorized,
		"Bearer " + admin: http.StatusNoContent,
		"Bearer " + session: http.StatusUnauthorized,
		"Bearer " + expired: http.StatusUnauthorized,
		"Bearer garbage":  http.StatusUnauthorized,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("header %.20q: status %d, want %d", header, rec.Code, want)
		}
	}
}

func TestLocaleAndHeaders(t *testing.T) {
	var got string
	h := CORS("")(SecureHeaders(Locale(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))))
	req := httptest.NewRequest(http.MethodGet, "/?lang=es", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got != "es" || rec.Header().Get("Content-Language") != "es" {
		t.Fatalf("locale = %q, header %q", got, rec.Header().Get("Content-Language"))
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("headers = %v", rec.Header())
	}
	pre := httptest.NewRecorder()
	h.ServeHTTP(pre, httptest.NewRequest(http.MethodOptions, "/", nil))
	if pre.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", pre.Code)
	}
}
