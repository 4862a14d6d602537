package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ebdesignwerks/quotebackend/config"
	"github.com/ebdesignwerks/quotebackend/controllers"
	"github.com/ebdesignwerks/quotebackend/logging"
	"github.com/ebdesignwerks/quotebackend/mailer"
	"github.com/ebdesignwerks/quotebackend/services"
	"github.com/ebdesignwerks/quotebackend/telemetry"
	"github.com/ebdesignwerks/quotebackend/utils"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if !cfg.DotEnvLoaded {
		logger.Info("no .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg)
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}

	store, err := utils.NewObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("object store", zap.Error(err))
	}

	dispatcher, err := mailer.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("mailer", zap.Error(err))
	}

	quotes := services.NewQuoteService(store, dispatcher, services.QuoteServiceConfig{
		Sender:            cfg.Mail.Sender,
		BusinessRecipient: cfg.Mail.Recipient,
		BusinessName:      cfg.Business.Name,
		ContactEmail:      cfg.Business.Email,
		LinkTTL:           utils.PresignTTL,
	}, logger)

	r := controllers.NewRouter(controllers.RouterDeps{
		Config: cfg,
		Logger: logger,
		Quotes: quotes,
		Store:  store,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout + 30*time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Provider),
			zap.String("mail", cfg.Mail.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown", zap.Error(err))
	}
	if c, ok := store.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
