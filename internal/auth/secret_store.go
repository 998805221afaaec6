package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SecretStore holds the current merchant key. ChangePassword writes it, every
// webhook request reads it.
type SecretStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, key string) error
}

type MemorySecretStore struct {
	mu  sync.RWMutex
	key string
}

func NewMemorySecretStore(initial string) *MemorySecretStore {
	return &MemorySecretStore{key: initial}
}

func (s *MemorySecretStore) Get(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, nil
}

func (s *MemorySecretStore) Set(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	return nil
}

const merchantKey = "payme:merchant_key"

// RedisSecretStore shares the key between replicas. Until ChangePassword
// has written one, the configured key is served.
type RedisSecretStore struct {
	client   *redis.Client
	fallback string
	logger   *zap.Logger
}

func NewRedisSecretStore(client *redis.Client, fallback string, logger *zap.Logger) *RedisSecretStore {
	return &RedisSecretStore{
		client:   client,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *RedisSecretStore) Get(ctx context.Context) (string, error) {
	key, err := s.client.Get(ctx, merchantKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.fallback, nil
		}
		s.logger.Error("failed to read merchant key from redis", zap.Error(err))
		return "", fmt.Errorf("failed to read merchant key: %w", err)
	}
	return key, nil
}

func (s *RedisSecretStore) Set(ctx context.Context, key string) error {
	if err := s.client.Set(ctx, merchantKey, key, 0).Err(); err != nil {
		s.logger.Error("failed to store merchant key in redis", zap.Error(err))
		return fmt.Errorf("failed to store merchant key: %w", err)
	}
	s.logger.Info("merchant key stored in redis")
	return nil
}
