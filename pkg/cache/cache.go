package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/vozsegura-api/pkg/config"
)

const (
	dialTimeout = 2 * time.Second
	ioTimeout   = 500 * time.Millisecond
)

// NewRedis connects to Redis and checks it answers before returning.
// Short I/O timeouts keep a slow cache from stalling requests.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", client.Options().Addr, err)
	}
	return client, nil
}

// NewMemcache connects to Memcached and checks it answers.
func NewMemcache(addr string) (*memcache.Client, error) {
	client := memcache.New(addr)
	client.Timeout = ioTimeout
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("memcached %s: %w", addr, err)
	}
	return client, nil
}

// NewLocal returns a bounded in-process LRU holding encoded payloads.
func NewLocal(maxItems int64) *ccache.Cache[[]byte] {
	if maxItems <= 0 {
		maxItems = 1000
	}
	prune := uint32(maxItems / 10)
	if prune == 0 {
		prune = 1
	}
	return ccache.New(ccache.Configure[[]byte]().MaxSize(maxItems).ItemsToPrune(prune))
}
