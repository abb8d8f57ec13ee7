// Package rediscache caches triage backend results in Redis.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// DefaultKeyPrefix namespaces cache entries.
const DefaultKeyPrefix = "opsgenix:triage:"

// Client is the subset of a Redis client the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Backend wraps another backend and memoizes its successful results.
// Redis failures are logged and bypassed; they never fail a classification.
type Backend struct {
	inner  triage.Backend
	client Client
	ttl    time.Duration
	prefix string
	logger log.Logger
}

// New wraps inner with a cache whose entries expire after ttl.
func New(inner triage.Backend, client Client, ttl time.Duration, logger log.Logger) *Backend {
	if logger == nil {
		logger = log.Nop()
	}
	return &Backend{
		inner:  inner,
		client: client,
		ttl:    ttl,
		prefix: DefaultKeyPrefix + inner.Name() + ":",
		logger: logger,
	}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Name reports the wrapped backend's name so metrics and logs stay unchanged.
func (b *Backend) Name() string { return b.inner.Name() }

// Classify implements triage.Backend.
func (b *Backend) Classify(ctx context.Context, text triage.AlertText) (triage.Result, error) {
	key := b.key(text)

	data, err := b.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var r triage.Result
		uerr := json.Unmarshal(data, &r)
		if uerr == nil {
			return r, nil
		}
		b.logger.Warn(ctx, "discarding undecodable triage cache entry", "key", key, "error", uerr.Error())
	case errors.Is(err, redis.Nil):
	default:
		b.logger.Warn(ctx, "triage cache read failed", "error", err.Error())
	}

	r, err := b.inner.Classify(ctx, text)
	if err != nil {
		return r, err
	}

	data, err = json.Marshal(r)
	if err != nil {
		b.logger.Warn(ctx, "triage cache encode failed", "error", err.Error())
		return r, nil
	}
	if err := b.client.Set(ctx, key, data, b.ttl).Err(); err != nil {
		b.logger.Warn(ctx, "triage cache write failed", "error", err.Error())
	}
	return r, nil
}

func (b *Backend) key(t triage.AlertText) string {
	h := sha256.New()
	h.Write([]byte(t.Title))
	h.Write([]byte{0})
	h.Write([]byte(t.Description))
	return b.prefix + hex.EncodeToString(h.Sum(nil))
}
