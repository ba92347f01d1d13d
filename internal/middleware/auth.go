package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/soaringjerry/Tally/internal/utils"
)

type authCtxKey int

const authKey authCtxKey = 7

const (
	RoleAdmin   = "admin"
	RoleSession = "session"
)

// Claims cover both token kinds: author tokens carry only the admin role, respondent
// session tokens carry the session and survey they belong to.
type Claims struct {
	Role      string `json:"role"`
	SessionID string `json:"sid,omitempty"`
	SurveyID  string `json:"svy,omitempty"`
	jwt.RegisteredClaims
}

var (
	secretMu sync.RWMutex
	secretV  []byte
)

// SetSecret configures the HMAC key. Without it TALLY_JWT_SECRET or a development
// default is used.
func SetSecret(s string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	secretV = []byte(s)
}

func secret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	if len(secretV) > 0 {
		return secretV
	}
	return []byte(utils.SafeEnv("TALLY_JWT_SECRET", "tally-dev-secret"))
}

func sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// SignAdminToken matches services.AdminTokenSigner.
func SignAdminToken(subject string, ttl time.Duration) (string, error) {
	return sign(Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}, ttl)
}

// SignSessionToken addresses a respondent session. ttl should outlive the session
// deadline so a late submit still reaches the session.
func SignSessionToken(sessionID, surveyID string, ttl time.Duration) (string, error) {
	return sign(Claims{Role: RoleSession, SessionID: sessionID, SurveyID: surveyID}, ttl)
}

func parseToken(tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) { return secret(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// Attach auth claims to context if a valid bearer token is present. Websocket clients
// cannot set headers, so ?access_token= is accepted on upgrade requests.
func WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := ""
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tok = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		} else if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			tok = r.URL.Query().Get("access_token")
		}
		if tok != "" {
			if c, err := parseToken(tok); err == nil {
				ctx := context.WithValue(r.Context(), authKey, c)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose token lacks role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := r.Context().Value(authKey).(*Claims)
			if !ok || c.Role != role {
				locale := LocaleFromContext(r.Context())
				http.Error(w, utils.T(locale, "error.unauthorized"), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards author endpoints.
func RequireAdmin(next http.Handler) http.Handler { return RequireRole(RoleAdmin)(next) }

// SessionFromContext returns the session claims attached by WithAuth.
func SessionFromContext(ctx context.Context) (sessionID, surveyID string, ok bool) {
	if c, ok := ctx.Value(authKey).(*Claims); ok && c.Role == RoleSession && c.SessionID != "" {
		return c.SessionID, c.SurveyID, true
	}
	return "", "", false
}
