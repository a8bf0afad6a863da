package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/amgator/databucket-app/internal/cache"
	"github.com/amgator/databucket-app/internal/config"
	"github.com/amgator/databucket-app/internal/data"
	"github.com/amgator/databucket-app/internal/logger"
	"github.com/amgator/databucket-app/internal/metrics"
	"github.com/amgator/databucket-app/internal/rulesql"
	"github.com/amgator/databucket-app/internal/store"
)

// runtime bundles the collaborators a command needs: the opened store, the
// record service over it, and the cache connection when one is configured.
type runtime struct {
	cfg   *config.Config
	log   *logger.Logger
	store *store.Store
	redis *cache.RedisCache
	svc   *data.Service
}

// openRuntime loads configuration, opens the database, and wires the record
// service. Callers must Close the returned runtime.
func (o *RootOptions) openRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Default()
	if o.Config != "" {
		loaded, err := config.Load(o.Config)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "loading config", err)
		}
		cfg = loaded
	}
	if o.DB != "" {
		cfg.Database.Path = o.DB
	}

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.Log.Pretty})

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening database", err)
	}

	rt := &runtime{cfg: cfg, log: log, store: st}

	var recordCache cache.Cache = &cache.NoOpCache{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Address, cfg.Redis.TTL)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "connecting to redis", err)
		}
		rt.redis = redisCache
		recordCache = redisCache
	}

	rt.svc = data.New(st, data.Options{
		Cache:   recordCache,
		Logger:  log,
		Metrics: metrics.New(prometheus.NewRegistry()),
	})
	return rt, nil
}

// Close releases the database and cache connections.
func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	_ = rt.store.Close()
}

// scope resolves the --bucket flag into a tenant scope. Commands operating
// on records require a bucket.
func (rt *runtime) scope(ctx context.Context, o *RootOptions) (rulesql.Scope, error) {
	if o.Bucket == "" {
		return rulesql.Scope{}, NewExitError(ExitCommandError, "a bucket is required: set --bucket")
	}
	b, err := rt.store.ResolveBucket(ctx, o.Project, o.Bucket)
	if err != nil {
		return rulesql.Scope{}, fmt.Errorf("resolving bucket %q: %w", o.Bucket, err)
	}
	return rulesql.Scope{ProjectID: o.Project, BucketID: b.ID}, nil
}

// caller builds the operation caller identity from the global flags.
func (o *RootOptions) caller() data.Caller {
	return data.Caller{Username: o.User, Admin: o.Admin}
}

// formatter builds the output formatter bound to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
