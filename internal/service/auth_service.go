// Package service implements the authentication and client-management flows.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/config"
	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/jwt"
	"github.com/manziosee/IST-auth-system/internal/lockout"
	"github.com/manziosee/IST-auth-system/internal/notification"
	pw "github.com/manziosee/IST-auth-system/internal/password"
	"github.com/manziosee/IST-auth-system/internal/repository"
	"github.com/manziosee/IST-auth-system/internal/token"
)

// AuthService orchestrates registration, login, token refresh and the
// email verification flow.
type AuthService struct {
	users         repository.UserStore
	tokens        *token.Manager
	verifications repository.VerificationTokenStore
	codec         *jwt.Codec
	locks         *lockout.Policy
	notifier      notification.Notifier
	ids           jwt.IDGenerator
	cfg           config.Config
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserStore, tokens *token.Manager, verifications repository.VerificationTokenStore, codec *jwt.Codec, locks *lockout.Policy, notifier notification.Notifier, ids jwt.IDGenerator, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:         users,
		tokens:        tokens,
		verifications: verifications,
		codec:         codec,
		locks:         locks,
		notifier:      notifier,
		ids:           ids,
		cfg:           cfg,
		logger:        logger,
		tracer:        otel.Tracer("github.com/manziosee/IST-auth-system/internal/service"),
	}
}

// Register creates a local account and queues a verification token for
// delivery. No tokens are issued: the account cannot authenticate until the
// email is verified, so handing out a pair here would bypass that gate.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegistrationResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if taken, err := s.users.ExistsByEmail(ctx, email); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, domain.ErrUserExists
	}
	if taken, err := s.users.ExistsByUsername(ctx, username); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check username: %w", err)
	} else if taken {
		return nil, domain.ErrUserExists
	}

	hash, err := pw.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = s.cfg.DefaultRole
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, domain.User{
		ID:             s.ids.Generate(),
		Username:       username,
		Email:          email,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		PasswordHash:   hash,
		Roles:          []string{role},
		AccountEnabled: true,
		AuthProvider:   domain.ProviderLocal,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	emailSent := true
	if err := s.queueVerification(ctx, user); err != nil {
		// Registration already succeeded. The user can request a resend.
		emailSent = false
		s.log().Warn("verification delivery failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.audit("user.registered", "user_id", user.ID, "email", user.Email)
	return &RegistrationResult{
		Message:   "Registration successful. Please verify your email address.",
		User:      summarize(user),
		EmailSent: emailSent,
	}, nil
}

// Login authenticates with a username or email plus password. Lockout state
// is checked before the password so a locked account cannot be probed, and
// every credential failure feeds the lockout counter.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	identifier := strings.TrimSpace(req.Identifier)
	user, err := s.users.GetByEmailOrUsername(ctx, strings.ToLower(identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentials
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load user: %w", err)
	}

	if user.AccountLocked {
		s.audit("login.rejected.locked", "user_id", user.ID)
		return nil, domain.ErrAccountLocked
	}
	if !user.AccountEnabled {
		s.audit("login.rejected.disabled", "user_id", user.ID)
		return nil, domain.ErrAccountDisabled
	}

	ok, err := pw.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		updated, recordErr := s.locks.RecordFailure(ctx, user)
		if recordErr != nil {
			span.RecordError(recordErr)
			return nil, recordErr
		}
		if updated.AccountLocked {
			s.audit("account.locked", "user_id", user.ID, "failed_attempts", updated.FailedLoginAttempts)
			if s.notifier != nil {
				_ = s.notifier.SendAccountLocked(ctx, user.Email)
			}
		}
		return nil, domain.ErrCredentials
	}

	if !user.EmailVerified {
		s.audit("login.rejected.unverified", "user_id", user.ID)
		return nil, domain.ErrEmailUnverified
	}

	user, err = s.locks.RecordSuccess(ctx, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.audit("login.success", "user_id", user.ID)
	return s.issuePair(ctx, user)
}

// Refresh rotates the presented refresh token and returns a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	user, replacement, err := s.tokens.ValidateAndRotate(ctx, refreshToken)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	access, err := s.codec.SignAccessToken(user)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.audit("token.refreshed", "user_id", user.ID)
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: replacement.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.codec.AccessTokenTTL().Seconds()),
		User:         summarize(user),
	}, nil
}

// Logout revokes the presented refresh token. Revoking a token that is
// unknown or already revoked is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := s.startSpan(ctx, "AuthService.Logout")
	defer span.End()
	return s.tokens.Revoke(ctx, refreshToken)
}

// LogoutAll revokes every outstanding refresh token of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	ctx, span := s.startSpan(ctx, "AuthService.LogoutAll")
	defer span.End()
	if err := s.tokens.RevokeAll(ctx, userID); err != nil {
		span.RecordError(err)
		return err
	}
	s.audit("logout.all", "user_id", userID)
	return nil
}

// ValidateToken inspects any token string and reports whether it is a live,
// correctly signed token. It never returns an error; a broken token is
// simply invalid.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) TokenValidation {
	_, span := s.startSpan(ctx, "AuthService.ValidateToken")
	defer span.End()

	std, custom, err := s.codec.Verify(tokenString)
	if err != nil {
		return TokenValidation{Valid: false}
	}
	claims := map[string]any{
		"sub":       std.Subject,
		"iss":       std.Issuer,
		"jti":       std.ID,
		"email":     custom.Email,
		"username":  custom.Username,
		"roles":     custom.Roles,
		"tokenType": custom.TokenType,
	}
	if std.Expiry != nil {
		claims["exp"] = std.Expiry.Time().Unix()
	}
	if std.IssuedAt != nil {
		claims["iat"] = std.IssuedAt.Time().Unix()
	}
	return TokenValidation{Valid: true, Claims: claims}
}

// CurrentUser loads the profile behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (UserSummary, error) {
	ctx, span := s.startSpan(ctx, "AuthService.CurrentUser")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserSummary{}, domain.ErrUserNotFound
		}
		span.RecordError(err)
		return UserSummary{}, fmt.Errorf("load user: %w", err)
	}
	return summarize(user), nil
}

// VerifyEmail redeems a verification token and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenValue string) error {
	ctx, span := s.startSpan(ctx, "AuthService.VerifyEmail")
	defer span.End()

	userID, err := s.verifications.Consume(ctx, tokenValue)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("consume verification token: %w", err)
	}
	if userID == 0 {
		return domain.ErrTokenNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTokenNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("load user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}
	user.EmailVerified = true
	if err := s.users.Save(ctx, user); err != nil {
		span.RecordError(err)
		return fmt.Errorf("mark verified: %w", err)
	}
	s.audit("email.verified", "user_id", user.ID)
	return nil
}

// ResendVerification queues a fresh verification token. It reports success
// for unknown addresses so the endpoint cannot be used to enumerate users.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	ctx, span := s.startSpan(ctx, "AuthService.ResendVerification")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		span.RecordError(err)
		return fmt.Errorf("load user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}
	return s.queueVerification(ctx, user)
}

// FederatedLogin completes sign-in for a user authenticated by an external
// identity provider. The account is created on first login and the email is
// trusted as verified.
func (s *AuthService) FederatedLogin(ctx context.Context, provider, providerID, email, firstName, lastName string) (*TokenPair, error) {
	ctx, span := s.startSpan(ctx, "AuthService.FederatedLogin")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, normalized)
	switch {
	case err == nil:
		if user.AccountLocked {
			return nil, domain.ErrAccountLocked
		}
		if !user.AccountEnabled {
			return nil, domain.ErrAccountDisabled
		}
	case errors.Is(err, pgx.ErrNoRows):
		now := time.Now().UTC()
		user, err = s.users.Create(ctx, domain.User{
			ID:             s.ids.Generate(),
			Username:       normalized,
			Email:          normalized,
			FirstName:      firstName,
			LastName:       lastName,
			Roles:          []string{s.cfg.DefaultRole},
			EmailVerified:  true,
			AccountEnabled: true,
			AuthProvider:   provider,
			ProviderID:     providerID,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("provision federated user: %w", err)
		}
		s.audit("user.provisioned", "user_id", user.ID, "provider", provider)
	default:
		span.RecordError(err)
		return nil, fmt.Errorf("load user: %w", err)
	}

	user, err = s.locks.RecordSuccess(ctx, user)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.audit("login.federated", "user_id", user.ID, "provider", provider)
	return s.issuePair(ctx, user)
}

// UnlockAccount clears the lockout state. Admin only.
func (s *AuthService) UnlockAccount(ctx context.Context, userID int64) error {
	ctx, span := s.startSpan(ctx, "AuthService.UnlockAccount")
	defer span.End()
	if err := s.locks.Unlock(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		span.RecordError(err)
		return err
	}
	s.audit("account.unlocked", "user_id", userID)
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, user domain.User) (*TokenPair, error) {
	access, err := s.codec.SignAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.codec.AccessTokenTTL().Seconds()),
		User:         summarize(user),
	}, nil
}

func (s *AuthService) queueVerification(ctx context.Context, user domain.User) error {
	verification := uuid.NewString()
	if err := s.verifications.Save(ctx, verification, user.ID, s.cfg.VerificationTokenTTL); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	if s.notifier == nil {
		return nil
	}
	return s.notifier.SendVerification(ctx, user.Email, verification)
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AuthService) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}
