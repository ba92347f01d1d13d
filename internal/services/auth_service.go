package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AdminTokenSigner issues a bearer token for survey authors.
type AdminTokenSigner func(subject string, ttl time.Duration) (string, error)

// AdminAuthService exchanges the shared admin key for a short-lived token. The key
// itself is only ever stored as a bcrypt hash.
type AdminAuthService struct {
	keyHash   []byte
	signToken AdminTokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewAdminAuthService(keyHash string, signer AdminTokenSigner) *AdminAuthService {
	return &AdminAuthService{
		keyHash:   []byte(strings.TrimSpace(keyHash)),
		signToken: signer,
		tokenTTL:  12 * time.Hour,
	}
}

// Enabled reports whether an admin key hash is configured.
func (s *AdminAuthService) Enabled() bool { return len(s.keyHash) > 0 }

func (s *AdminAuthService) Login(key string) (*AuthResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, NewInvalidError("key required")
	}
	if !s.Enabled() {
		return nil, NewForbiddenError("admin login disabled")
	}
	if err := bcrypt.CompareHashAndPassword(s.keyHash, []byte(key)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken("admin", s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: time.Now().UTC().Add(s.tokenTTL)}, nil
}

func (s *AdminAuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// HashAdminKey returns the bcrypt hash to configure for key.
func HashAdminKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
