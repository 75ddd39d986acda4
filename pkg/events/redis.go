package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zjoart/go-intouch-transfer/pkg/config"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
)

const (
	TransactionQueue = "transaction_events"
	FailedQueue      = "failed_transaction_events"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg config.Config) (*RedisClient, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("Failed to parse Redis url, treating it as an address", logger.Fields{"error": err.Error()})
		opt = &redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		}
	}

	if opt.Password == "" {
		opt.Password = cfg.RedisPassword
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Connected to Redis", logger.Fields{"addr": opt.Addr})

	return &RedisClient{Client: rdb}, nil
}

func (r *RedisClient) Publish(ctx context.Context, event TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.Client.RPush(ctx, TransactionQueue, data).Err(); err != nil {
		if dlqErr := r.PushToDLQ(context.Background(), data); dlqErr != nil {
			logger.Error("Failed to park event in DLQ", logger.WithError(dlqErr))
		}
		return fmt.Errorf("failed to push event to redis: %w", err)
	}

	return nil
}

func (r *RedisClient) PushToDLQ(ctx context.Context, data []byte) error {
	if err := r.Client.RPush(ctx, FailedQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to push event to DLQ: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}
