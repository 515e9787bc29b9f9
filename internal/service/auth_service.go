package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"go-trip-planner/internal/auth"
	"go-trip-planner/internal/event"
	"go-trip-planner/internal/metrics"
	"go-trip-planner/internal/model"
	"go-trip-planner/internal/notify"
	"go-trip-planner/pkg/errutil"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

// UserStore is the identity store. Every update goes through the user id.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
	UpdateLanguage(ctx context.Context, userID string, language string) error
}

type AuthDeps struct {
	Users        UserStore
	Hasher       auth.PasswordHasher
	Sessions     *auth.SessionTokenService
	Resets       *auth.PasswordResetTokenService
	Notifier     notify.Notifier
	Bus          event.Bus
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	ResetURLBase string
}

// AuthService runs the login, logout and password reset flows.
type AuthService struct {
	users        UserStore
	hasher       auth.PasswordHasher
	sessions     *auth.SessionTokenService
	resets       *auth.PasswordResetTokenService
	notifier     notify.Notifier
	bus          event.Bus
	metrics      *metrics.Metrics
	logger       *slog.Logger
	resetURLBase string
	resetQueue   chan resetRequest
}

func NewAuthService(deps AuthDeps) (*AuthService, error) {
	if deps.Users == nil || deps.Hasher == nil || deps.Sessions == nil || deps.Resets == nil {
		return nil, oops.Code("SERVICE_MISCONFIGURED").Errorf("auth service requires users, hasher, sessions and resets")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogNotifier(deps.Logger)
	}

	return &AuthService{
		users:        deps.Users,
		hasher:       deps.Hasher,
		sessions:     deps.Sessions,
		resets:       deps.Resets,
		notifier:     deps.Notifier,
		bus:          deps.Bus,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		resetURLBase: deps.ResetURLBase,
		resetQueue:   make(chan resetRequest, resetQueueSize),
	}, nil
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(auth.ErrInvalidCredentials)
}

// Login checks email and password and issues a session. An unknown email
// and a wrong password fail identically and take the same time.
func (s *AuthService) Login(ctx context.Context, email string, password string) (model.Session, error) {
	email = strings.TrimSpace(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			return model.Session{}, oops.Code("AUTH_LOGIN_FAILED").With("operation", "find user").Wrap(err)
		}
		s.hasher.VerifyDummy(password)
		s.loginFailed(ctx, "", "unknown_account")
		return model.Session{}, invalidCredentials()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, user.ID, "bad_password")
		return model.Session{}, invalidCredentials()
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}

	token, claims, err := s.sessions.Issue(auth.SessionClaims{Subject: user.ID, Role: user.Role})
	if err != nil {
		return model.Session{}, err
	}

	s.metrics.AuthAttempt("success")
	s.publish(ctx, event.TypeLoginSucceeded, user.ID, nil)

	return model.Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		User:      user.Public(),
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID string, reason string) {
	s.metrics.AuthAttempt("failure")
	s.publish(ctx, event.TypeLoginFailed, userID, map[string]string{"reason": reason})
}

func (s *AuthService) rehash(ctx context.Context, userID string, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hash)
	}
	if err != nil {
		errutil.LogError(s.logger, "password rehash failed", err, "user_id", userID)
	}
}

// Authenticate verifies a session token and returns its claims.
func (s *AuthService) Authenticate(token string) (*model.AuthClaims, error) {
	claims, err := s.sessions.Verify(token)
	if err != nil {
		return nil, err
	}
	return &model.AuthClaims{UserID: claims.Subject, Role: claims.Role, TokenID: claims.TokenID}, nil
}

// Logout has no server-side state to clear. The handler drops the cookie.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	s.publish(ctx, event.TypeLogout, userID, nil)
}

func (s *AuthService) SessionTTL() time.Duration {
	return s.sessions.TTL()
}

// RequestPasswordReset never reports whether the email belongs to an
// account. Known and unknown emails cost the same lookup; the token and the
// notice are produced by RunResetWorker.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) {
	s.metrics.ResetEvent("requested")

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			errutil.LogError(s.logger, "password reset lookup failed", err)
		}
		return
	}

	s.enqueueReset(resetRequest{
		userID:   user.ID,
		email:    user.Email,
		language: user.Language,
		clientIP: event.ClientIP(ctx),
	})
}

func (s *AuthService) resetURL(raw string) string {
	u, err := url.Parse(s.resetURLBase)
	if err != nil || s.resetURLBase == "" {
		return "?token=" + url.QueryEscape(raw)
	}
	q := u.Query()
	q.Set("token", raw)
	u.RawQuery = q.Encode()
	return u.String()
}

// ResetPassword consumes rawToken and sets newPassword for its owner. The
// password policy is checked first so a rejected password leaves the token
// usable.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken string, newPassword string) error {
	if err := auth.ValidatePasswordPolicy(newPassword); err != nil {
		return err
	}

	userID, err := s.resets.Consume(ctx, rawToken)
	if err != nil {
		if auth.IsResetTokenFailure(err) {
			s.metrics.ResetEvent("rejected")
			s.publish(ctx, event.TypeResetRejected, "", map[string]string{"reason": errutil.Code(err)})
		}
		return err
	}

	if err := s.setPassword(ctx, userID, newPassword); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return oops.Code("RESET_TOKEN_NOT_FOUND").With("user_id", userID).Wrap(auth.ErrResetTokenNotFound)
		}
		return err
	}

	s.metrics.ResetEvent("completed")
	s.publish(ctx, event.TypeResetCompleted, userID, nil)
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, userID string, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// CurrentUser resolves the session subject. A token for a user that no
// longer exists is treated as an invalid token.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (model.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return model.AuthUser{}, oops.Code("AUTH_UNKNOWN_SUBJECT").With("user_id", userID).Wrap(auth.ErrInvalidToken)
		}
		return model.AuthUser{}, err
	}
	return user.Public(), nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, currentPassword string, newPassword string) error {
	if err := auth.ValidatePasswordPolicy(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return oops.Code("AUTH_UNKNOWN_SUBJECT").With("user_id", userID).Wrap(auth.ErrInvalidToken)
		}
		return err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return invalidCredentials()
	}

	if err := s.setPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	s.publish(ctx, event.TypePasswordChanged, user.ID, nil)
	return nil
}

func (s *AuthService) UpdateLanguage(ctx context.Context, userID string, language string) (model.AuthUser, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if !slices.Contains(model.SupportedLanguages, language) {
		return model.AuthUser{}, oops.Code("USER_UNSUPPORTED_LANGUAGE").
			With("language", language).
			Wrap(ErrUnsupportedLanguage)
	}

	if err := s.users.UpdateLanguage(ctx, userID, language); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return model.AuthUser{}, oops.Code("AUTH_UNKNOWN_SUBJECT").With("user_id", userID).Wrap(auth.ErrInvalidToken)
		}
		return model.AuthUser{}, err
	}

	s.publish(ctx, event.TypeLanguageUpdated, userID, map[string]string{"language": language})
	return s.CurrentUser(ctx, userID)
}

// CreateUser provisions an account. Used by the CLI; there is no public
// sign-up endpoint.
func (s *AuthService) CreateUser(ctx context.Context, email string, password string, role string) (model.AuthUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return model.AuthUser{}, oops.Code("USER_INVALID_EMAIL").Errorf("a valid email is required")
	}
	if role == "" {
		role = model.RoleTraveler
	}
	if role != model.RoleTraveler && role != model.RoleAdmin {
		return model.AuthUser{}, oops.Code("USER_INVALID_ROLE").With("role", role).Errorf("unknown role")
	}
	if err := auth.ValidatePasswordPolicy(password); err != nil {
		return model.AuthUser{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.AuthUser{}, err
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Language:     model.DefaultLanguage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return model.AuthUser{}, err
	}
	return user.Public(), nil
}

// PurgeResetTokens deletes expired reset tokens.
func (s *AuthService) PurgeResetTokens(ctx context.Context) (int64, error) {
	return s.resets.Purge(ctx)
}

func (s *AuthService) publish(ctx context.Context, t event.Type, actorID string, payload map[string]string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		Type:     t,
		ActorID:  actorID,
		ClientIP: event.ClientIP(ctx),
		Payload:  payload,
	})
}
