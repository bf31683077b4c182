// Package bootstrap seeds required records at startup.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/config"
	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/jwt"
	"github.com/manziosee/IST-auth-system/internal/password"
	"github.com/manziosee/IST-auth-system/internal/repository"
)

const adminRole = "ADMIN"

// EnsureAdmin creates the admin user on startup when one is configured and
// missing. Without admin credentials in the environment it is a no-op.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, users repository.UserStore, ids jwt.IDGenerator, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, users, ids, logger)
		},
	})
}

func ensureAdmin(ctx context.Context, cfg config.Config, users repository.UserStore, ids jwt.IDGenerator, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || strings.TrimSpace(cfg.AdminPassword) == "" {
		return nil
	}

	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("bootstrap lookup admin: %w", err)
	}

	hashed, err := password.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := users.Create(ctx, domain.User{
		ID:             ids.Generate(),
		Username:       cfg.AdminUsername,
		Email:          email,
		FirstName:      "System",
		LastName:       "Admin",
		PasswordHash:   hashed,
		Roles:          []string{adminRole, cfg.DefaultRole},
		EmailVerified:  true,
		AccountEnabled: true,
		AuthProvider:   domain.ProviderLocal,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("bootstrap create admin: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap admin user created",
			zap.String("email", created.Email),
			zap.Int64("user_id", created.ID),
		)
	}
	return nil
}
