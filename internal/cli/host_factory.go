package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/config"
	"github.com/aretw0/conduit/internal/httpx"
	"github.com/aretw0/conduit/internal/metrics"
	"github.com/aretw0/conduit/pkg/adapters/connections"
	"github.com/aretw0/conduit/pkg/adapters/file"
	"github.com/aretw0/conduit/pkg/adapters/memory"
	"github.com/aretw0/conduit/pkg/adapters/redis"
	"github.com/aretw0/conduit/pkg/adapters/sqlite"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/all"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
	"github.com/aretw0/conduit/pkg/persistence/middleware"
	"github.com/aretw0/conduit/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Stack is a host together with the adapters it was built from.
type Stack struct {
	Host        *conduit.Host
	Metrics     *metrics.Metrics
	Connections *connections.FileResolver

	closers []func() error
}

// Close releases the adapters in reverse order of creation.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// BuildHost wires a host from cfg: session store, knowledge sink, connections,
// metrics and the bundled extensions.
func BuildHost(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *Stack, err error) {
	stack := &Stack{Metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = stack.Close()
		}
	}()

	var client *backend.Client
	redisClient := func() (*backend.Client, error) {
		if client != nil {
			return client, nil
		}
		c, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		client = c
		stack.closers = append(stack.closers, c.Close)
		return c, nil
	}

	opts := []conduit.Option{
		conduit.WithLogger(logger),
		conduit.WithChunking(cfg.ChunkSize, cfg.ChunkOverlap),
		conduit.WithNodeTimeout(cfg.NodeTimeout),
		conduit.WithLifecycleHooks(domain.ChainHooks(stack.Metrics.Hooks(), debugHooks(logger))),
	}

	var store ports.SessionStore
	switch cfg.Store {
	case "file":
		store = file.New(cfg.SessionDir)
	case "redis":
		c, err := redisClient()
		if err != nil {
			return nil, err
		}
		store = redis.New(c, redis.WithTTL(cfg.SessionTTL))
		opts = append(opts, conduit.WithLocker(redis.NewLocker(c, "conduit:")))
	default:
		store = memory.NewStore()
	}
	store, err = wrapStore(store, cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, conduit.WithStore(store))

	switch cfg.KnowledgeSink {
	case "redis":
		c, err := redisClient()
		if err != nil {
			return nil, err
		}
		opts = append(opts, conduit.WithKnowledgeSink(redis.NewSink(c, "")))
	case "sqlite":
		sink, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		stack.closers = append(stack.closers, sink.Close)
		opts = append(opts, conduit.WithKnowledgeSink(sink))
	}

	if cfg.ConnectionsFile != "" {
		resolver, err := connections.Load(cfg.ConnectionsFile, connections.WithLogger(logger))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("connections file not found, nodes needing credentials will fail", "path", cfg.ConnectionsFile)
		case err != nil:
			return nil, err
		default:
			stack.Connections = resolver
			opts = append(opts, conduit.WithConnectionResolver(resolver))
			if cfg.WatchConnections {
				if err := resolver.Watch(ctx); err != nil {
					return nil, err
				}
			}
		}
	}

	httpClient := httpx.New(
		httpx.WithTimeout(cfg.HTTPTimeout),
		httpx.WithUserAgent("conduit/"+conduit.Version),
		httpx.WithLogger(logger),
	)
	opts = append(opts, conduit.WithExtensions(all.Extensions(extkit.WithClient(httpClient))...))

	host, err := conduit.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing host: %w", err)
	}
	stack.Host = host
	return stack, nil
}

// wrapStore applies PII masking and encryption when configured. Masking runs first so
// the encrypted envelope never holds the raw values.
func wrapStore(store ports.SessionStore, cfg config.Config) (ports.SessionStore, error) {
	var mws []middleware.Middleware
	if len(cfg.PIIKeys) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.PIIKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.SessionKey != "" {
		active, err := middleware.DecodeKey(cfg.SessionKey)
		if err != nil {
			return nil, fmt.Errorf("session key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range cfg.SessionFallbackKeys {
			key, err := middleware.DecodeKey(k)
			if err != nil {
				return nil, fmt.Errorf("session fallback key: %w", err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), nil
}
