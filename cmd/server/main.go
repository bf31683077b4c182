package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/database"
	cacheadapter "github.com/manziosee/IST-auth-system/internal/adapter/cache"
	"github.com/manziosee/IST-auth-system/internal/bootstrap"
	"github.com/manziosee/IST-auth-system/internal/config"
	httptransport "github.com/manziosee/IST-auth-system/internal/http"
	"github.com/manziosee/IST-auth-system/internal/http/handler"
	httpmiddleware "github.com/manziosee/IST-auth-system/internal/http/middleware"
	"github.com/manziosee/IST-auth-system/internal/jwt"
	"github.com/manziosee/IST-auth-system/internal/lockout"
	apimiddleware "github.com/manziosee/IST-auth-system/internal/middleware"
	"github.com/manziosee/IST-auth-system/internal/notification"
	"github.com/manziosee/IST-auth-system/internal/repository"
	"github.com/manziosee/IST-auth-system/internal/server"
	"github.com/manziosee/IST-auth-system/internal/service"
	"github.com/manziosee/IST-auth-system/internal/telemetry"
	"github.com/manziosee/IST-auth-system/internal/token"
	"github.com/manziosee/IST-auth-system/internal/worker"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newIDGenerator,
			newPGXPool,
			newUserStore,
			newRefreshTokenStore,
			newKeyStore,
			newOAuthClientStore,
			newRedisClient,
			newVerificationStore,
			newNotifier,
			newRateLimiter,
			newKeyManager,
			newCodec,
			newTokenManager,
			newLockoutPolicy,
			service.NewAuthService,
			newClientService,
			newAuthHandler,
			newClientHandler,
			newWellKnownHandler,
			newAuthMiddleware,
			newCleanupWorker,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, initializeKeys, bootstrap.EnsureAdmin, startCleanupWorker, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

// snowflakeIDs adapts a snowflake node to the id generator interface.
type snowflakeIDs struct {
	node *snowflake.Node
}

func (s snowflakeIDs) Generate() int64 { return s.node.Generate().Int64() }

func newIDGenerator() (jwt.IDGenerator, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return snowflakeIDs{node: node}, nil
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.Migrate(ctx, cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserStore(pool *pgxpool.Pool) repository.UserStore {
	return repository.NewPostgresUserStore(pool)
}

func newRefreshTokenStore(pool *pgxpool.Pool) repository.RefreshTokenStore {
	return repository.NewPostgresRefreshTokenStore(pool)
}

func newKeyStore(pool *pgxpool.Pool) repository.KeyStore {
	return repository.NewPostgresKeyStore(pool)
}

func newOAuthClientStore(pool *pgxpool.Pool) repository.OAuthClientStore {
	return repository.NewPostgresOAuthClientStore(pool)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newVerificationStore(client redis.UniversalClient) repository.VerificationTokenStore {
	return cacheadapter.NewRedisVerificationStore(client)
}

func newNotifier(logger *zap.Logger) notification.Notifier {
	return notification.NewLogNotifier(logger)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newKeyManager(store repository.KeyStore, ids jwt.IDGenerator, cfg config.Config, logger *zap.Logger) *jwt.KeyManager {
	return jwt.NewKeyManager(store, ids, cfg.RSAKeyBits, logger)
}

func newCodec(keys *jwt.KeyManager, cfg config.Config) *jwt.Codec {
	return jwt.NewCodec(keys, cfg.Issuer, cfg.Audience, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}

func newTokenManager(tokens repository.RefreshTokenStore, users repository.UserStore, codec *jwt.Codec, ids jwt.IDGenerator, cfg config.Config, logger *zap.Logger) *token.Manager {
	return token.NewManager(tokens, users, codec, ids, cfg.MaxRefreshTokensPerUser, logger)
}

func newLockoutPolicy(users repository.UserStore, cfg config.Config, logger *zap.Logger) *lockout.Policy {
	return lockout.NewPolicy(users, cfg.LockoutThreshold, logger)
}

func newClientService(clients repository.OAuthClientStore, ids jwt.IDGenerator, logger *zap.Logger) *service.ClientService {
	return service.NewClientService(clients, ids, logger)
}

func newAuthHandler(auth *service.AuthService, logger *zap.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, logger)
}

func newClientHandler(clients *service.ClientService, logger *zap.Logger) *handler.ClientHandler {
	return handler.NewClientHandler(clients, logger)
}

func newWellKnownHandler(keys *jwt.KeyManager, cfg config.Config) *handler.WellKnownHandler {
	return handler.NewWellKnownHandler(keys, cfg.Issuer)
}

func newAuthMiddleware(codec *jwt.Codec) *httpmiddleware.Auth {
	return httpmiddleware.NewAuth(codec)
}

func newCleanupWorker(tokens *token.Manager, cfg config.Config, logger *zap.Logger) *worker.Cleanup {
	return worker.NewCleanup(tokens, cfg.CleanupInterval, cfg.CleanupGrace, logger)
}

// initializeKeys loads or generates the signing key before the server starts
// accepting requests. A failure here aborts startup.
func initializeKeys(lc fx.Lifecycle, keys *jwt.KeyManager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return keys.Initialize(ctx)
		},
	})
}

func startCleanupWorker(lc fx.Lifecycle, cleanup *worker.Cleanup) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			cleanup.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			cleanup.Stop()
			return nil
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
