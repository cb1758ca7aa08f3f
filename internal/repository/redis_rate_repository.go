package repository

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

// RedisConfig holds the connection options for the rate store.
type RedisConfig struct {
	Addr           string
	Username       string
	Password       string
	DB             int
	UseTLS         bool
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PoolSize       int
	ConnectTimeout time.Duration
}

// NewRedisClient returns a client that answered PING, retrying with backoff
// until cfg.ConnectTimeout elapses.
func NewRedisClient(cfg RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDuration(cfg.DialTimeout, 3*time.Second),
		ReadTimeout:  defaultDuration(cfg.ReadTimeout, 2*time.Second),
		WriteTimeout: defaultDuration(cfg.WriteTimeout, 2*time.Second),
		PoolSize:     defaultInt(cfg.PoolSize, 10),
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = defaultDuration(cfg.ConnectTimeout, 15*time.Second)
	err := backoff.Retry(func() error {
		return client.Ping(context.Background()).Err()
	}, policy)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("Connected to redis rate store", "addr", cfg.Addr)
	return client, nil
}

// RedisRateRepository keeps each pair's observations in a sorted set scored
// by observation time, so the latest one is the highest score. Members carry
// a zero-padded id from a shared counter; equal scores order by that id.
type RedisRateRepository struct {
	client *redis.Client
	prefix string
	seqKey string
	logger *slog.Logger
}

var _ domain.ExchangeRateRepository = (*RedisRateRepository)(nil)

func NewRedisRateRepository(client *redis.Client, logger *slog.Logger) *RedisRateRepository {
	return &RedisRateRepository{
		client: client,
		prefix: "rates:",
		seqKey: "rates:seq",
		logger: logger,
	}
}

type redisRate struct {
	ID        string    `json:"id"`
	Rate      string    `json:"rate"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *RedisRateRepository) key(pair domain.CurrencyPair) string {
	return r.prefix + pair.Key()
}

func (r *RedisRateRepository) GetLatestRate(pair domain.CurrencyPair) (*domain.ExchangeRate, error) {
	ctx := context.Background()

	members, err := r.client.ZRevRangeWithScores(ctx, r.key(pair), 0, 0).Result()
	if err != nil {
		r.logger.Error("Failed to read rate from redis", "pair", pair.Key(), "error", err)
		return nil, errors.Internal("failed to get exchange rate", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	raw, ok := members[0].Member.(string)
	if !ok {
		return nil, errors.Internal("unexpected rate member type", nil)
	}

	var stored redisRate
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, errors.Internal("failed to decode exchange rate", err)
	}

	rate, err := decimal.NewFromString(stored.Rate)
	if err != nil {
		return nil, errors.Internal("failed to parse exchange rate", err)
	}

	id, err := strconv.ParseInt(stored.ID, 10, 64)
	if err != nil {
		return nil, errors.Internal("failed to parse exchange rate id", err)
	}

	return &domain.ExchangeRate{
		ID:        id,
		Pair:      pair,
		Rate:      rate,
		Timestamp: stored.Timestamp,
	}, nil
}

func (r *RedisRateRepository) SaveRate(rate *domain.ExchangeRate) error {
	ctx := context.Background()

	id, err := r.client.Incr(ctx, r.seqKey).Result()
	if err != nil {
		r.logger.Error("Failed to allocate rate id", "pair", rate.Pair.Key(), "error", err)
		return errors.Internal("failed to save exchange rate", err)
	}

	payload, err := json.Marshal(redisRate{
		ID:        fmt.Sprintf("%019d", id),
		Rate:      rate.Rate.StringFixed(domain.RateScale),
		Timestamp: rate.Timestamp.UTC(),
	})
	if err != nil {
		return errors.Internal("failed to encode exchange rate", err)
	}

	err = r.client.ZAdd(ctx, r.key(rate.Pair), redis.Z{
		Score:  float64(rate.Timestamp.UnixMilli()),
		Member: string(payload),
	}).Err()
	if err != nil {
		r.logger.Error("Failed to save rate to redis", "pair", rate.Pair.Key(), "error", err)
		return errors.Internal("failed to save exchange rate", err)
	}
	rate.ID = id

	r.logger.Info("Exchange rate saved", "pair", rate.Pair.Key(), "rate", rate.Rate, "store", "redis")
	return nil
}
