package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-email-verify/internal/application/verification"
	"github.com/go-email-verify/internal/config"
	"github.com/go-email-verify/internal/domain"
	"github.com/go-email-verify/internal/infrastructure/dynamo"
	"github.com/go-email-verify/internal/infrastructure/memory"
	mongoinfra "github.com/go-email-verify/internal/infrastructure/mongo"
	"github.com/go-email-verify/internal/infrastructure/smtp"
	"github.com/go-email-verify/internal/infrastructure/sns"
	"github.com/go-email-verify/internal/pkg/logger"
	"github.com/go-email-verify/internal/pkg/logger/sl"
	transporthttp "github.com/go-email-verify/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.MustLoad()
	log := logger.New(cfg.AppEnv)
	if envErr != nil {
		log.Debug("no .env file found, reading from environment")
	}

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open record store", slog.String("backend", cfg.StoreBackend), sl.Err(err))
		os.Exit(1)
	}
	defer closeStore()

	deps := &transporthttp.Deps{
		Log:    log,
		Store:  store,
		Mailer: smtp.NewMailer(cfg),
	}

	// SNS sender is optional; lead verification still works by email alone.
	if cfg.LeadSMSEnabled {
		if sender, err := sns.NewSender(ctx, cfg); err == nil {
			deps.SMSSender = sender
		} else {
			log.Warn("SNS sender not available", sl.Err(err))
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", slog.String("addr", srv.Addr), slog.String("env", cfg.AppEnv), slog.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", sl.Err(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", sl.Err(err))
		return
	}
	log.Info("server stopped")
}

// openStore builds the record store selected by STORE_BACKEND. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (verification.RecordStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, err := mongoinfra.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Warn("mongo disconnect", sl.Err(err))
			}
		}
		// Index creation failing is not fatal; the probe before each send reports connectivity.
		if err := mongoinfra.EnsureIndexes(ctx, client.Database(cfg.MongoDatabase),
			string(domain.CollectionUsers), string(domain.CollectionLeads)); err != nil {
			log.Warn("could not ensure unique email index", sl.Err(err))
		}
		return mongoinfra.NewRecordRepo(client, cfg.MongoDatabase), closeFn, nil

	case config.BackendDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables, log)
		return dynamo.NewRecordRepo(client, cfg.DynamoTables), func() {}, nil

	default:
		log.Warn("using in-memory record store; records are lost on restart")
		return memory.NewRecordStore(), func() {}, nil
	}
}
