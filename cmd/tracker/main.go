// Package main runs the buy tracker: pool polling, notifications, the
// leaderboard and the admin HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ton-buy-tracker/internal/adminapi"
	"ton-buy-tracker/internal/config"
	"ton-buy-tracker/internal/dedup"
	"ton-buy-tracker/internal/dexscreener"
	"ton-buy-tracker/internal/leaderboard"
	"ton-buy-tracker/internal/logging"
	"ton-buy-tracker/internal/marketdata"
	"ton-buy-tracker/internal/notify"
	"ton-buy-tracker/internal/observability"
	"ton-buy-tracker/internal/poller"
	"ton-buy-tracker/internal/storage"
	chstore "ton-buy-tracker/internal/storage/clickhouse"
	"ton-buy-tracker/internal/storage/memory"
	"ton-buy-tracker/internal/storage/migrations"
	pgstore "ton-buy-tracker/internal/storage/postgres"
	"ton-buy-tracker/internal/supervisor"
	"ton-buy-tracker/internal/telegram"
	"ton-buy-tracker/internal/tonapi"
)

const (
	pollTimeout        = 30 * time.Second
	leaderboardTimeout = 20 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tracker:", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}
	if err := config.LoadEnvFile(flags.EnvFile); err != nil {
		return err
	}
	cfg, err := config.Load(os.Getenv, flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.close()

	if cfg.SeedPath != "" {
		if err := seedConfigs(ctx, cfg.SeedPath, stores.configs, logger); err != nil {
			return err
		}
	}

	gate, closeGate, err := openGate(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeGate()

	bot, err := telegram.New(cfg.BotToken, telegram.WithLogger(logger.Named("telegram")))
	if err != nil {
		return err
	}

	chain := tonapi.NewHTTPClient(cfg.TonAPIBase,
		tonapi.WithAPIKey(cfg.TonAPIKey),
		tonapi.WithLogger(logger.Named("tonapi")),
	)
	market := dexscreener.NewClient(cfg.DexScreenerBase, dexscreener.WithLogger(logger.Named("dexscreener")))
	cache := marketdata.NewCache(chain, market, marketdata.WithLogger(logger.Named("marketdata")))

	board := leaderboard.New(stores.events, bot, cfg.TrendingChannel, bot.Username(),
		leaderboard.WithWindow(cfg.LeaderboardWindow),
		leaderboard.WithInterval(cfg.LeaderboardInterval),
		leaderboard.WithMessageID(cfg.LeaderboardMessageID),
		leaderboard.WithLogger(logger.Named("leaderboard")),
	)

	dispatcher := notify.NewDispatcher(bot, board, cache, gate, notify.Settings{
		TrendingChannel: cfg.TrendingChannel,
		ChannelTitle:    cfg.ChannelTitle,
		BookTrendingURL: cfg.BookTrendingURL,
	}, notify.WithLogger(logger.Named("notify")))

	poll := poller.New(chain, stores.cursors, stores.events, poller.WithLogger(logger.Named("poller")))

	sup := supervisor.New(ctx, supervisor.WithLogger(logger.Named("supervisor")))
	if err := sup.Add("leaderboard", cfg.LeaderboardInterval, leaderboardTimeout, func(ctx context.Context) error {
		// an admin refresh may be running the same tick
		if err := board.Tick(ctx); err != nil && !errors.Is(err, leaderboard.ErrTickInProgress) {
			return err
		}
		return nil
	}); err != nil {
		return err
	}
	if err := sup.Add("poll", cfg.PollInterval, pollTimeout, func(tickCtx context.Context) error {
		return pollTick(tickCtx, ctx, stores.configs, poll, dispatcher)
	}); err != nil {
		return err
	}

	admin := &adminapi.Controller{
		Configs:     stores.configs,
		Metrics:     cache,
		Leaderboard: board,
		Logger:      logger.Named("admin"),
		Ready:       stores.ready,
	}
	srv := adminapi.NewServer(cfg.AdminAddr, admin.NewRouter())
	go func() {
		logger.Info("admin api listening", zap.String("addr", cfg.AdminAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin api stopped", zap.Error(err))
			stop()
		}
	}()

	// Ranks are available before the first notification.
	_ = sup.RunNow("leaderboard")
	sup.Start()
	logger.Info("tracker started",
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Duration("leaderboard_interval", cfg.LeaderboardInterval),
		zap.Bool("use_memory", cfg.UseMemory),
		zap.Stringer("trending_channel", cfg.TrendingChannel),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	// Stop scheduling polls before draining the admin API.
	if err := sup.Remove("poll"); err != nil {
		logger.Warn("remove poll task", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin api shutdown", zap.Error(err))
	}
	sup.Stop()
	logger.Info("shutdown complete")
	return nil
}

// pollTick polls all enabled configurations under the tick deadline and
// dispatches each batch as soon as it is polled. Cursors are committed by then,
// so dispatch runs under dispatchCtx, which only ends at shutdown.
func pollTick(ctx, dispatchCtx context.Context, configs storage.ConfigStore, p *poller.Poller, d *notify.Dispatcher) error {
	cfgs, err := configs.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list configs: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	p.PollEach(ctx, cfgs, func(batch poller.Batch) {
		if batch.Err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("group %d: %w", batch.Config.GroupID, batch.Err))
			mu.Unlock()
		}
		if len(batch.Events) > 0 {
			d.Dispatch(dispatchCtx, batch.Config, batch.Events)
		}
	})
	if len(errs) == 0 {
		observability.RecordPollTick()
	}
	return errors.Join(errs...)
}

type stores struct {
	configs storage.ConfigStore
	cursors storage.CursorStore
	events  storage.BuyEventStore
	ready   func(ctx context.Context) error
	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	s := &stores{}

	if cfg.UseMemory {
		logger.Info("using in-memory storage")
		s.configs = memory.NewConfigStore()
		s.cursors = memory.NewCursorStore()
		s.events = memory.NewBuyEventStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool, logger.Named("migrations")); err != nil {
			s.close()
			return nil, err
		}
		s.configs = pgstore.NewConfigStore(pool)
		s.cursors = pgstore.NewCursorStore(pool)
		s.events = pgstore.NewBuyEventStore(pool)
		s.ready = func(ctx context.Context) error { return pool.Ping(ctx) }
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger.Named("migrations"))
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.events = chstore.NewBuyEventStore(conn)
		logger.Info("event log on clickhouse")
	}
	return s, nil
}

func openGate(ctx context.Context, cfg *config.Config, logger *zap.Logger) (dedup.Gate, func(), error) {
	if cfg.RedisAddr == "" {
		return dedup.NewMemory(dedup.DefaultWindow), func() {}, nil
	}
	client, err := dedup.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("channel dedup on redis", zap.String("addr", cfg.RedisAddr))
	return dedup.NewRedis(client, dedup.DefaultWindow), func() { _ = client.Close() }, nil
}

func seedConfigs(ctx context.Context, path string, configs storage.ConfigStore, logger *zap.Logger) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	for _, c := range seed {
		if err := configs.Upsert(ctx, c); err != nil {
			return fmt.Errorf("seed group %d: %w", c.GroupID, err)
		}
	}
	logger.Info("seeded watched configurations", zap.Int("count", len(seed)), zap.String("path", path))
	return nil
}
