package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptshare/internal/config"
	"promptshare/internal/database"
	"promptshare/internal/handlers"
	"promptshare/internal/metrics"
	"promptshare/internal/middleware"
	"promptshare/internal/oauth"
	"promptshare/internal/repositories"
	"promptshare/internal/services"
	"promptshare/pkg/rabbitmq"
	"promptshare/pkg/sessionstore"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// application is the wired process: the Fiber app plus the resources it owns.
type application struct {
	app     *fiber.App
	cfg     *config.Config
	log     *logrus.Logger
	mq      *rabbitmq.Client
	closers []func() error
}

// newApp builds every component from cfg. Resources opened before a failure
// are released.
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (_ *application, err error) {
	a := &application{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	users, err := a.openUserRepository(ctx)
	if err != nil {
		return nil, err
	}

	var storage fiber.Storage
	if cfg.RedisURL != "" {
		redisStorage, err := sessionstore.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, redisStorage.Close)
		storage = redisStorage
	}

	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, mq.Close)
		a.mq = mq
		events = mq
	} else {
		log.Info("RABBITMQ_URL not set, user events disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	tokens := services.NewTokenService([]byte(cfg.JWTSecret))
	authService := services.NewAuthService(users, services.NewPasswordHasher(), tokens, events, log)
	resolver := services.NewIdentityResolver(users, events, log)
	projector, err := services.NewSessionProjector(users, services.DefaultSessionCacheSize)
	if err != nil {
		return nil, err
	}

	providers := oauth.NewRegistryFromConfig(oauth.RegistryConfig{
		BaseURL:  cfg.OAuthBaseURL,
		Google:   oauth.Credentials{ClientID: cfg.GoogleID, ClientSecret: cfg.GoogleSecret},
		GitHub:   oauth.Credentials{ClientID: cfg.GitHubID, ClientSecret: cfg.GitHubSecret},
		Facebook: oauth.Credentials{ClientID: cfg.FacebookClientID, ClientSecret: cfg.FacebookSecret},
	})
	for _, p := range providers.List() {
		log.WithField("provider", p.ID()).Info("OAuth provider enabled")
	}

	sessions := session.New(session.Config{
		Expiration:     cfg.SessionExpiration,
		Storage:        storage,
		KeyLookup:      "cookie:" + cfg.SessionCookieName,
		CookieSecure:   cfg.SessionSecure,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})

	app := fiber.New(fiber.Config{
		AppName:               "promptshare",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: log.Writer()}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", m.Handler())

	api := app.Group("/api")
	handlers.NewAuthHandler(authService, m, log).
		RegisterRoutes(api, middleware.AuthRequired(authService, m, log))
	handlers.NewOAuthHandler(providers, resolver, projector, sessions, m, log, handlers.OAuthConfig{
		BaseURL:           cfg.OAuthBaseURL,
		ErrorURL:          cfg.AuthErrorURL,
		SessionExpiration: cfg.SessionExpiration,
		CookieSecure:      cfg.SessionSecure,
	}).RegisterRoutes(api.Group("/auth"))

	a.app = app
	return a, nil
}

func (a *application) openUserRepository(ctx context.Context) (repositories.UserRepository, error) {
	switch a.cfg.DatabaseDriver {
	case config.DriverMemory:
		a.log.Warn("using the in-memory user directory, data is lost on exit")
		return repositories.NewMemoryUserRepository(), nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := database.OpenGORM(a.cfg.DatabaseDriver, a.cfg.DatabaseDSN, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return database.CloseGORM(db) })
		repo := repositories.NewGORMUserRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate users: %w", err)
		}
		return repo, nil

	case config.DriverMongo:
		client, db, err := database.OpenMongo(ctx, a.cfg.MongoURI, a.cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		repo := repositories.NewMongoUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create user indexes: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", a.cfg.DatabaseDriver)
}

// run serves HTTP, and consumes user events when a broker is configured,
// until ctx is cancelled or one of them fails.
func (a *application) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.WithField("addr", a.cfg.AppPort).Info("Starting server")
		if err := a.app.Listen(a.cfg.AppPort); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Shutting down server...")
		return a.app.ShutdownWithTimeout(shutdownTimeout)
	})

	if a.mq != nil {
		g.Go(func() error {
			err := a.mq.ConsumeUserEvents(gctx, rabbitmq.LogUserCreated(a.log))
			if err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// close releases resources in reverse order of acquisition.
func (a *application) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
