// Package presence mirrors local connection registrations to Redis so that
// instances can answer presence queries for users connected elsewhere.
package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// EnvConfig defines fields used for parsing from environment variables.
// Empty Addr disables the mirror.
type EnvConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	Prefix   string        `env:"PRESENCE_PREFIX" envDefault:"chat"`
	TTL      time.Duration `env:"PRESENCE_TTL" envDefault:"24h"`
}

// NewClient builds redis client from cfg
func NewClient(cfg EnvConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisMirror keeps <prefix>:conn:<userID> sets of live connection ids.
// The TTL protects against entries left by a crashed instance.
type RedisMirror struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisMirror(client redis.Cmdable, prefix string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, prefix: prefix, ttl: ttl}
}

func (m *RedisMirror) key(userID int64) string {
	return fmt.Sprintf("%s:conn:%s", m.prefix, strconv.FormatInt(userID, 10))
}

func (m *RedisMirror) SetOnline(ctx context.Context, userID int64, connID string) error {
	key := m.key(userID)
	_, err := m.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, key, connID)
		if m.ttl > 0 {
			p.Expire(ctx, key, m.ttl)
		}
		return nil
	})
	return err
}

func (m *RedisMirror) SetOffline(ctx context.Context, userID int64, connID string) error {
	return m.client.SRem(ctx, m.key(userID), connID).Err()
}

func (m *RedisMirror) IsOnline(ctx context.Context, userID int64) (bool, error) {
	n, err := m.client.SCard(ctx, m.key(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
