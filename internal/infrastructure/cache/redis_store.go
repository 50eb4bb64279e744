package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore almacén compartido entre procesos. Las claves llevan la versión del
// espacio de nombres; invalidar todo es incrementar la versión, y las entradas
// viejas expiran solas por su TTL.
type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisStore crea el almacén bajo el espacio de nombres indicado (p. ej. "inventario:ledger").
func NewRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) versionKey() string {
	return s.namespace + ":version"
}

// Version versión vigente del espacio de nombres; 0 si nunca se invalidó.
func (s *RedisStore) Version(ctx context.Context) (int64, error) {
	ver, err := s.client.Get(ctx, s.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache redis: leer versión: %w", err)
	}
	return ver, nil
}

func (s *RedisStore) buildKey(ctx context.Context, key string) (string, error) {
	ver, err := s.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d:%s", s.namespace, ver, key), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k, err := s.buildKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	payload, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache redis: get: %w", err)
	}
	return payload, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	k, err := s.buildKey(ctx, key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, k, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache redis: set: %w", err)
	}
	return nil
}

func (s *RedisStore) InvalidateAll(ctx context.Context) error {
	if err := s.client.Incr(ctx, s.versionKey()).Err(); err != nil {
		return fmt.Errorf("cache redis: invalidar: %w", err)
	}
	return nil
}
