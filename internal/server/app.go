// Package server assembles the GophAuth server: storage backend, credential
// hasher, token manager and the HTTP and gRPC transports, and runs them
// until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/rest"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/telemetry"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const serviceName = "gophauth"

// driverNames maps a storage type to its database/sql driver.
var driverNames = map[string]string{
	config.StoragePostgres: "pgx",
	config.StorageSQLite:   "sqlite",
}

type App struct {
	config            *config.Config
	logger            logging.Logger
	db                *sql.DB
	userService       *services.UserService
	shutdownTelemetry telemetry.ShutdownFunc
}

// NewApp builds every component from c. On error, anything already opened
// is released.
func NewApp(ctx context.Context, c *config.Config) (app *App, err error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	shutdownTelemetry, err := telemetry.Setup(ctx, serviceName, c.OtelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}
	defer func() {
		if err != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	secret := c.SecretKey
	if secret == "" {
		secret, err = common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("secret generation error: %w", err)
		}
		logger.Warn(ctx, "no secret key configured, using a random one; tokens will not survive a restart")
	}

	rm, err := repomanager.New(c.StorageType)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, c.StorageType, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	defer func() {
		if err != nil && db != nil {
			_ = db.Close()
		}
	}()

	if err = rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	hasher, err := auth.NewPasswordHasher(c.PasswordHashAlgorithm, c.BcryptCost)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewJWTManager(auth.TokenConfig{SecretKey: []byte(secret), Issuer: serviceName})
	if err != nil {
		return nil, err
	}

	us, err := services.NewUserService(db, rm, hasher, tokens, logger, c.AccessTokenValidityDuration,
		services.WithOperators(c.OperatorEmails...))
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "app configured",
		"storage", c.StorageType,
		"password_hash", c.PasswordHashAlgorithm,
		"access_token_ttl", c.AccessTokenValidityDuration.String(),
		"operators", len(c.OperatorEmails),
	)

	return &App{
		config:            c,
		logger:            logger,
		db:                db,
		userService:       us,
		shutdownTelemetry: shutdownTelemetry,
	}, nil
}

// openDB returns nil for the memory backend.
func openDB(ctx context.Context, storageType, dsn string) (*sql.DB, error) {
	driver, ok := driverNames[storageType]
	if !ok {
		return nil, nil
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run starts the HTTP server and, when an address is configured, the gRPC
// server. It blocks until ctx is done, a signal arrives, or either server
// fails; a failure stops the other server too. Resources are released
// before Run returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, "server failed", "server", name, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	run("http", rest.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.userService).Run)
	if app.config.EndpointAddrGRPC != "" {
		run("grpc", gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService).Run)
	}

	wg.Wait()

	errs = append(errs, app.close())
	app.logger.Info(context.Background(), "App stopped")
	return errors.Join(errs...)
}

func (app *App) close() error {
	var errs []error
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if app.shutdownTelemetry != nil {
		errs = append(errs, app.shutdownTelemetry(context.Background()))
	}
	return errors.Join(errs...)
}
