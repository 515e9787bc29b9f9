package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// SessionTTL is the fixed lifetime of a session token.
//
// Sessions are not revocable server-side: a token stays valid until it
// expires, the signing secret rotates, or the client drops the cookie.
const SessionTTL = 7 * 24 * time.Hour

// MinSecretLength is the shortest signing secret accepted at startup.
const MinSecretLength = 32

// SessionClaims is the identity carried inside a session token.
type SessionClaims struct {
	Subject   string
	Role      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionJWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionTokenService signs and verifies HS256 session tokens.
type SessionTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokenService fails when the secret is absent or too short. The
// caller treats this as fatal.
func NewSessionTokenService(secret string) (*SessionTokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, oops.Code("CONFIG_MISSING_SECRET").Wrap(ErrMissingSecret)
	}
	if len(secret) < MinSecretLength {
		return nil, oops.Code("CONFIG_WEAK_SECRET").
			With("min_length", MinSecretLength).
			Errorf("session signing secret is too short")
	}

	return &SessionTokenService{
		secret: []byte(secret),
		ttl:    SessionTTL,
		now:    time.Now,
	}, nil
}

// SetNowFunc overrides the clock. Intended for tests.
func (s *SessionTokenService) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		fn = time.Now
	}
	s.now = fn
}

// TTL is the lifetime of issued tokens and of the session cookie.
func (s *SessionTokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs claims.Subject and claims.Role. IssuedAt, ExpiresAt and
// TokenID are assigned here and returned alongside the token.
func (s *SessionTokenService) Issue(claims SessionClaims) (string, SessionClaims, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", SessionClaims{}, oops.Code("AUTH_TOKEN_SUBJECT_REQUIRED").Errorf("session subject is required")
	}

	now := s.now().UTC().Truncate(time.Second)
	claims.IssuedAt = now
	claims.ExpiresAt = now.Add(s.ttl)
	claims.TokenID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionJWTClaims{
		Role: claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", SessionClaims{}, oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}

	return signed, claims, nil
}

// Verify checks signature and expiry. Every failure is ErrInvalidToken.
func (s *SessionTokenService) Verify(token string) (SessionClaims, error) {
	if strings.TrimSpace(token) == "" {
		return SessionClaims{}, invalidToken()
	}

	parsed, err := jwt.ParseWithClaims(token, &sessionJWTClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return SessionClaims{}, invalidToken()
	}

	claims, ok := parsed.Claims.(*sessionJWTClaims)
	if !ok || claims.Subject == "" || claims.ExpiresAt == nil {
		return SessionClaims{}, invalidToken()
	}

	out := SessionClaims{
		Subject:   claims.Subject,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}

	return out, nil
}

func invalidToken() error {
	return oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrInvalidToken)
}
