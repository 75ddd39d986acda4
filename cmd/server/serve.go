package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/zjoart/go-intouch-transfer/cmd/routes"
	"github.com/zjoart/go-intouch-transfer/internal/auth"
	"github.com/zjoart/go-intouch-transfer/internal/otp"
	"github.com/zjoart/go-intouch-transfer/internal/transfer"
	"github.com/zjoart/go-intouch-transfer/internal/user"
	"github.com/zjoart/go-intouch-transfer/internal/webhook"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo := user.NewRepository(a.db)
	otpService := otp.NewService(otp.NewRepository(a.db), otp.LogSender{}, cfg.OTPExpiry)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)

	deps := routes.Dependencies{
		Users:    userRepo,
		Tokens:   tokens,
		Auth:     auth.NewHandler(auth.NewService(userRepo, otpService, tokens)),
		Transfer: transfer.NewHandler(cfg, a.transfers, webhook.NewAuthenticator(cfg.IntouchWebhookSecret, cfg.WebhookTolerance)),
	}
	handler := routes.RegisterRoutes(ctx, mux.NewRouter(), cfg, deps)

	if cfg.ReconcileSchedule != "" {
		reconciler := transfer.NewReconciler(a.transfers, cfg.ReconcileMinAge, cfg.ReconcileBatch)
		if err := reconciler.Start(cfg.ReconcileSchedule); err != nil {
			return err
		}
		defer func() { <-reconciler.Stop().Done() }()
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProviderTimeout + 15*time.Second,
	}

	go func() {
		logger.Info("Server starting", logger.Fields{"port": cfg.Port, "env": cfg.Env, "provider": cfg.ProviderMode})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Could not listen", logger.Fields{"port": cfg.Port, "error": err.Error()})
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", logger.WithError(err))
		return err
	}
	logger.Info("Server gracefully shut down")
	return nil
}
