package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/egegvner/minibank/pkg/auth"
	"github.com/egegvner/minibank/pkg/config"
	accounthandlers "github.com/egegvner/minibank/pkg/handlers/accounts"
	reporthandlers "github.com/egegvner/minibank/pkg/handlers/reporting"
	transferhandlers "github.com/egegvner/minibank/pkg/handlers/transfers"
	"github.com/egegvner/minibank/pkg/ledger"
	appmiddleware "github.com/egegvner/minibank/pkg/middleware"
	"github.com/egegvner/minibank/pkg/reporting"
	"github.com/egegvner/minibank/pkg/storage"
	dynamodbstore "github.com/egegvner/minibank/pkg/storage/dynamodb"
	memorystore "github.com/egegvner/minibank/pkg/storage/memory"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var store storage.Storage
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using the in-memory store, state will not survive restarts")
		store = memorystore.New()
	default:
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatalf("unable to load SDK config: %v", err)
		}
		store = dynamodbstore.New(awsdynamodb.NewFromConfig(awsCfg), cfg.AccountsTable, cfg.TransactionsTable)
	}

	engine := ledger.NewEngine(store, ledger.Config{
		StartingBalance:     cfg.StartingBalance,
		MaxOperationAmount:  cfg.MaxOperationAmount,
		DepositBalanceRatio: cfg.DepositBalanceRatio,
		CooldownWindow:      cfg.CooldownWindow,
		Logger:              logger,
	})
	gateway := auth.NewGateway(engine, store, auth.Config{
		Secret:         cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		AdminUsernames: cfg.AdminUsernames,
	})
	reports := reporting.NewService(store, store, nil)

	accountsHandler := accounthandlers.NewHandler(engine, gateway, store)
	transfersHandler := transferhandlers.NewHandler(engine)
	reportingHandler := reporthandlers.NewHandler(reports)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(appmiddleware.NewStructuredLogger(logger))
	router.Use(chimiddleware.Recoverer)

	router.Post("/register", accountsHandler.Register)
	router.Post("/login", accountsHandler.Login)

	router.Group(func(r chi.Router) {
		r.Use(appmiddleware.Authenticator(gateway))

		r.Get("/accounts/{id}", accountsHandler.Get)
		r.Get("/accounts/by-username/{username}", accountsHandler.GetByUsername)
		r.Get("/accounts/{id}/history", accountsHandler.History)
		r.Post("/accounts/{id}/deposit", accountsHandler.Deposit)
		r.Post("/accounts/{id}/withdraw", accountsHandler.Withdraw)
		r.Delete("/accounts/{id}", accountsHandler.Delete)
		r.Put("/accounts/{id}/suspended", accountsHandler.SetSuspended)

		r.Post("/transfers", transfersHandler.Initiate)
		r.Post("/transfers/{id}/accept", transfersHandler.Accept)
		r.Post("/transfers/{id}/reject", transfersHandler.Reject)

		r.Get("/reporting/accounts/{id}/lifetime", reportingHandler.Lifetime)
		r.Get("/reporting/accounts/{id}/recent", reportingHandler.Recent)
		r.Get("/reporting/leaderboard", reportingHandler.Leaderboard)
	})

	logger.Info("starting server", "port", cfg.HTTPPort, "store", cfg.Store)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
