package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/wilhg/xmcp/internal/config"
	"github.com/wilhg/xmcp/pkg/article"
	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/httpserver"
	"github.com/wilhg/xmcp/pkg/mcpserver"
	"github.com/wilhg/xmcp/pkg/observability"
	xotel "github.com/wilhg/xmcp/pkg/otel"
	"github.com/wilhg/xmcp/pkg/permissions"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/schedule"
	"github.com/wilhg/xmcp/pkg/store"
	"github.com/wilhg/xmcp/pkg/store/entstore"
	"github.com/wilhg/xmcp/pkg/store/memstore"
	"github.com/wilhg/xmcp/pkg/tools"
	"github.com/wilhg/xmcp/pkg/xapi"
)

// budgetModel selects the tiktoken encoding of the article budget.
const budgetModel = "gpt-4o"

// app holds the wired server components.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	perms   *permissions.Manager
	limiter *ratelimit.Limiter
	store   store.Store
	metrics *observability.Metrics
	service *schedule.Service
	worker  *schedule.Worker
	reg     *gate.Registry
	mcp     *mcpserver.Server

	closers []func(context.Context) error
}

type buildOptions struct {
	// permissions overrides the process environment as permission source.
	permissions permissions.Source
	factory     *xapi.Factory
	traceWriter io.Writer
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts buildOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	shutdown, err := xotel.Init(ctx, xotel.Config{
		ServiceVersion: version,
		UseStdout:      cfg.TraceStdout,
		Writer:         opts.traceWriter,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	a.perms = permissions.NewManager(opts.permissions, permissions.WithLogger(logger))

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	factory := opts.factory
	if factory == nil {
		factory = xapi.NewFactory()
	}
	vault, err := newVault(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.service = schedule.NewService(a.store, schedule.APIPublisher{Clients: factory},
		schedule.WithLogger(logger), schedule.WithVault(vault))

	var scheduler schedule.Scheduler = a.service
	limiterOpts := []ratelimit.Option{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		limiterOpts = append(limiterOpts, ratelimit.WithStore(ratelimit.NewRedisStore(rdb, "xmcp:ratelimit:")))

		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		client := asynq.NewClient(redisOpt)
		inspector := asynq.NewInspector(redisOpt)
		a.closers = append(a.closers,
			func(context.Context) error { return client.Close() },
			func(context.Context) error { return inspector.Close() },
		)
		q := schedule.NewQueue(a.service, client, inspector)
		a.worker = schedule.NewWorker(redisOpt, q, logger)
		scheduler = q
	}
	a.limiter = ratelimit.New(limiterOpts...)

	fetcherOpts := []article.Option{article.WithTimeout(cfg.ArticleTimeout), article.WithLogger(logger)}
	if cfg.ArticleMaxTokens > 0 {
		budget, err := article.NewBudget(budgetModel, cfg.ArticleMaxTokens)
		if err != nil {
			logger.Warn("article token budget disabled", slog.Any("err", err))
		} else {
			fetcherOpts = append(fetcherOpts, article.WithBudget(budget))
		}
	}
	fetcher := article.NewFetcher(article.NewChrome(cfg.ChromeURL), fetcherOpts...)

	a.metrics = observability.NewMetrics()
	g := gate.New(a.perms, a.limiter,
		gate.WithLogger(logger),
		gate.WithObserver(a.metrics),
		gate.WithObserver(observability.NewAudit(a.store, logger)),
	)
	a.reg = gate.NewRegistry(g)
	if err := tools.New(factory, fetcher, scheduler).Register(a.reg); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	a.mcp, err = mcpserver.New(a.reg,
		mcpserver.WithLogger(logger),
		mcpserver.WithVersion(version),
		mcpserver.WithPermissions(a.perms),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.cfg.DatabaseURL == "" {
		a.store = memstore.New()
		return nil
	}
	st, err := entstore.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return st.Close() })
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	a.store = st
	return nil
}

// runScheduler publishes due posts until ctx ends, through asynq when redis
// is configured and by polling the store otherwise.
func (a *app) runScheduler(ctx context.Context) error {
	if a.worker != nil {
		return a.worker.Run(ctx)
	}
	return a.service.Run(ctx, a.cfg.ScheduleInterval)
}

func (a *app) status(transport string) httpserver.StatusFunc {
	return httpserver.StatusOf(version, transport, a.perms, a.limiter)
}

func (a *app) httpParams() httpserver.Params {
	return httpserver.Params{
		Logger:        a.logger,
		MCP:           a.mcp.Handler(),
		Status:        a.status(config.TransportHTTP),
		Metrics:       a.metrics,
		Origins:       a.cfg.Origins(),
		RatePerMinute: a.cfg.HTTPRateLimit,
	}
}

// Close releases everything in reverse acquisition order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func traceWriter(cfg *config.Config) io.Writer {
	if cfg.IsHTTP() {
		return os.Stdout
	}
	return os.Stderr
}

func newVault(cfg *config.Config, logger *slog.Logger) (*schedule.Vault, error) {
	if cfg.SecretKey == "" {
		logger.Warn("XMCP_SECRET_KEY is not set; scheduled posts carrying request credentials only publish from this process")
		return schedule.RandomVault(), nil
	}
	v, err := schedule.ParseVaultKey(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("secret key: %w", err)
	}
	return v, nil
}
