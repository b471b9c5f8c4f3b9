// internal/app.go
package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	router "cardvault/internal/api"
	"cardvault/internal/api/handler"
	"cardvault/internal/cardsec"
	"cardvault/internal/config"
	"cardvault/internal/repository"
	"cardvault/internal/repository/postgres"
	"cardvault/internal/service"
	"cardvault/internal/util"
	"cardvault/migrations"
	"cardvault/pkg/db"
	"cardvault/pkg/lock"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	// Repositories
	UserRepository        repository.UserRepository
	CardRepository        repository.CardRepository
	TransactionRepository repository.TransactionRepository

	// Services
	AuthService     service.AuthService
	CardService     service.CardService
	TransferService service.TransferService
	UserService     service.UserService
	Sweeper         *service.Sweeper

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.Server.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database and apply migrations
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if err := db.RunMigrations(ctx, app.DB, migrations.FS); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	app.Logger.Info("Database migrations applied.")

	// 4. Initialize card number cipher
	encKey, err := hex.DecodeString(app.Config.Auth.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to decode card encryption key: %w", err)
	}
	cipher, err := cardsec.NewCipher(encKey, []byte(app.Config.Auth.HMACSecret))
	if err != nil {
		return fmt.Errorf("failed to initialize card cipher: %w", err)
	}

	// 5. Initialize Repositories
	app.UserRepository = postgres.NewUserRepository(app.DB)
	app.CardRepository = postgres.NewCardRepository(app.DB)
	app.TransactionRepository = postgres.NewTransactionRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 6. Initialize Services
	// Cards involved in a transfer or status change are locked through a
	// single shared KeyedMutex so both services serialize on the same card.
	locks := lock.NewKeyedMutex()

	app.AuthService = service.NewAuthService(
		app.DB,
		app.UserRepository,
		[]byte(app.Config.Auth.JWTSecret),
		app.Config.Auth.TokenTTL,
		app.Logger,
	)
	app.CardService = service.NewCardService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.CardRepository,
		app.TransactionRepository,
		app.UserRepository,
		cipher,
		locks,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Logger,
	)
	app.TransferService = service.NewTransferService(
		app.DB,
		app.DB,
		app.CardRepository,
		app.TransactionRepository,
		locks,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Logger,
	)
	app.UserService = service.NewUserService(app.DB, app.UserRepository, app.Logger)
	app.Sweeper = service.NewSweeper(app.CardService, app.TransferService, app.Config.Sweep.StaleCutoff, app.Logger)
	app.Logger.Info("Services initialized.")

	// 7. Initialize HTTP Handlers and Router
	validate := validator.New()
	authHandler := handler.NewAuthHandler(app.AuthService, validate, app.Logger)
	cardHandler := handler.NewCardHandler(app.CardService, app.TransferService, validate, app.Logger)
	transactionHandler := handler.NewTransactionHandler(app.TransferService, app.Sweeper, validate, app.Logger)
	userHandler := handler.NewUserHandler(app.UserService, app.Logger)
	app.HTTPHandler = router.NewRouter(authHandler, cardHandler, transactionHandler, userHandler, app.AuthService)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.Sweeper != nil {
		app.Sweeper.Stop()
		app.Logger.Info("Background sweeper stopped.")
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
