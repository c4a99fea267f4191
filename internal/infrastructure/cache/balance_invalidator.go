package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appreceivable "github.com/arledger/backend/internal/application/receivable"
	"github.com/arledger/backend/internal/infrastructure/config"
)

const (
	balanceKeyPrefix   = "arledger:balance:"
	defaultChannel     = "arledger:balance:invalidated"
	connectTimeout     = 5 * time.Second
	invalidateDeadline = 2 * time.Second
)

// InvalidationMessage is broadcast on the Pub/Sub channel whenever a
// customer's cached balance becomes stale.
type InvalidationMessage struct {
	CustomerTaxCode string `json:"customerTaxCode"`
	Timestamp       int64  `json:"timestamp"`
}

// RedisBalanceInvalidator drops the cached balance key for a customer and
// broadcasts the invalidation so other instances drop their local copies too.
type RedisBalanceInvalidator struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger
}

// RedisBalanceInvalidatorOption is a functional option for configuring the invalidator
type RedisBalanceInvalidatorOption func(*RedisBalanceInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) RedisBalanceInvalidatorOption {
	return func(i *RedisBalanceInvalidator) {
		if channel != "" {
			i.channel = channel
		}
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) RedisBalanceInvalidatorOption {
	return func(i *RedisBalanceInvalidator) {
		i.logger = logger
	}
}

// NewRedisBalanceInvalidator connects to Redis and verifies the connection
func NewRedisBalanceInvalidator(cfg config.RedisConfig, opts ...RedisBalanceInvalidatorOption) (*RedisBalanceInvalidator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	invalidator := &RedisBalanceInvalidator{
		client:     client,
		ownsClient: true,
		channel:    defaultChannel,
		logger:     zap.NewNop(),
	}
	if cfg.InvalidationChannel != "" {
		invalidator.channel = cfg.InvalidationChannel
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator, nil
}

// NewRedisBalanceInvalidatorWithClient wraps an existing client. The caller
// retains ownership and is responsible for closing it.
func NewRedisBalanceInvalidatorWithClient(client *redis.Client, opts ...RedisBalanceInvalidatorOption) *RedisBalanceInvalidator {
	invalidator := &RedisBalanceInvalidator{
		client:     client,
		ownsClient: false,
		channel:    defaultChannel,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator
}

// InvalidateCustomer deletes the cached balance and publishes the
// invalidation. Failures are logged and swallowed: a stale cache heals on the
// next reconciliation pass and must never fail the business operation.
func (i *RedisBalanceInvalidator) InvalidateCustomer(ctx context.Context, customerTaxCode string) error {
	ctx, cancel := context.WithTimeout(ctx, invalidateDeadline)
	defer cancel()

	key := balanceKeyPrefix + customerTaxCode
	if err := i.client.Del(ctx, key).Err(); err != nil {
		i.logger.Warn("failed to delete cached balance",
			zap.String("key", key),
			zap.Error(err))
	}

	msg := InvalidationMessage{
		CustomerTaxCode: customerTaxCode,
		Timestamp:       time.Now().UnixNano(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		i.logger.Warn("failed to marshal invalidation message",
			zap.String("customerTaxCode", customerTaxCode),
			zap.Error(err))
		return nil
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Warn("failed to publish balance invalidation",
			zap.String("channel", i.channel),
			zap.String("customerTaxCode", customerTaxCode),
			zap.Error(err))
	}
	return nil
}

// Close releases the Redis client if this invalidator created it
func (i *RedisBalanceInvalidator) Close() error {
	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}

var _ appreceivable.CacheInvalidator = (*RedisBalanceInvalidator)(nil)
