package main

import (
	"github.com/zjoart/go-intouch-transfer/internal/otp"
	"github.com/zjoart/go-intouch-transfer/internal/provider"
	"github.com/zjoart/go-intouch-transfer/internal/transfer"
	"github.com/zjoart/go-intouch-transfer/internal/user"
	"github.com/zjoart/go-intouch-transfer/pkg/config"
	"github.com/zjoart/go-intouch-transfer/pkg/database"
	"github.com/zjoart/go-intouch-transfer/pkg/events"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
	"gorm.io/gorm"
)

var models = []interface{}{&user.User{}, &otp.OTP{}, &transfer.Transaction{}}

type app struct {
	cfg       config.Config
	db        *gorm.DB
	publisher events.Publisher
	transfers *transfer.Service
}

func bootstrap() (*app, error) {
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, models...); err != nil {
		return nil, err
	}

	publisher := events.NewPublisher(cfg)
	service := transfer.NewService(transfer.NewRepository(db), newProvider(cfg), publisher, transfer.Options{
		ProviderTimeout: cfg.ProviderTimeout,
		PhonePrefix:     cfg.PhonePrefix,
		MaxPageSize:     cfg.MaxPageSize,
	})

	return &app{cfg: cfg, db: db, publisher: publisher, transfers: service}, nil
}

func newProvider(cfg config.Config) provider.Client {
	if cfg.ProviderMode == config.ProviderModeStub {
		logger.Warn("Using the stub payment provider, no money will move", logger.Fields{"settle_after": cfg.StubSettleAfter.String()})
		stub := provider.NewStub()
		stub.SettleAfter = cfg.StubSettleAfter
		return stub
	}
	return provider.NewIntouchClient(cfg.IntouchBaseURL, cfg.IntouchAPIKey, cfg.ProviderTimeout)
}

func (a *app) close() {
	if err := a.publisher.Close(); err != nil {
		logger.Warn("Failed to close event publisher", logger.WithError(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
