package backend

import (
	"context"
	"errors"

	"github.com/ValentinKolb/trol/lib/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
)

var Logger = logger.GetLogger("backend")

// Conn is the backend connection consumed by properties, collections and
// models. It is the full command surface of the key-value server plus the
// optimistic transaction entry point.
//
// *redis.Client satisfies Conn. Connections are shared between goroutines;
// the client is responsible for making that safe.
type Conn interface {
	redis.Cmdable

	// Watch runs fn in an optimistic transaction guarded by WATCH on keys.
	// EXEC fails with redis.TxFailedErr if any watched key changed.
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

// Open creates a client for cfg and installs the configured hooks.
// No network round trip happens until the first command.
func Open(cfg common.ClientConfig) *redis.Client {
	opts := &redis.Options{
		Addr:       cfg.Endpoint,
		Username:   cfg.Username,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: cfg.RetryCount,
		PoolSize:   cfg.PoolSize,
	}
	if cfg.RetryCount == 0 {
		// go-redis treats 0 as "use default (3)", -1 disables retries
		opts.MaxRetries = -1
	}
	if cfg.TimeoutSecond > 0 {
		opts.DialTimeout = cfg.Timeout()
		opts.ReadTimeout = cfg.Timeout()
		opts.WriteTimeout = cfg.Timeout()
	}

	client := redis.NewClient(opts)
	if cfg.EnableMetrics {
		client.AddHook(NewMetricsHook())
	}
	if cfg.LogCommands {
		client.AddHook(NewLogHook(Logger))
	}

	Logger.Debugf("opened client for %s (db %d)", cfg.Endpoint, cfg.DB)
	return client
}

// Ping checks that the server behind conn answers.
func Ping(ctx context.Context, conn Conn) error {
	return conn.Ping(ctx).Err()
}

// IsNil reports whether err is the "no such value" reply of the server.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// NoNil maps the "no such value" reply to a nil error.
func NoNil(err error) error {
	if IsNil(err) {
		return nil
	}
	return err
}
