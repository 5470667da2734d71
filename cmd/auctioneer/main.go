package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jensholdgaard/player-auction/internal/api"
	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/bot"
	"github.com/jensholdgaard/player-auction/internal/bot/commands"
	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/config"
	"github.com/jensholdgaard/player-auction/internal/health"
	"github.com/jensholdgaard/player-auction/internal/leader"
	"github.com/jensholdgaard/player-auction/internal/notify"
	"github.com/jensholdgaard/player-auction/internal/roster"
	"github.com/jensholdgaard/player-auction/internal/store"
	"github.com/jensholdgaard/player-auction/internal/telemetry"

	// Register journal drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/player-auction/internal/store/memory"
	_ "github.com/jensholdgaard/player-auction/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	journal, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening journal (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer journal.Close()

	logger.InfoContext(ctx, "journal opened", slog.String("driver", cfg.Database.Driver))

	st := store.New(cfg.Auction.ActivityCapacity)
	hub := notify.NewHub(cfg.Notify.BufferSize, logger)
	publishers := notify.Multi{hub}

	var discordBot *bot.Bot
	if cfg.Discord.Enabled() {
		discordBot, err = bot.New(cfg.Discord, cfg.Notify.BufferSize, logger)
		if err != nil {
			return fmt.Errorf("creating bot: %w", err)
		}
		publishers = append(publishers, discordBot.Announcer())
	} else {
		logger.InfoContext(ctx, "discord disabled: no token or channel configured")
	}

	engine, err := auction.NewEngine(st, journal.Events, publishers, logger, tp.TracerProvider, tp.MeterProvider, clk)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	ctrl := auction.NewController(engine, cfg.Auction.DefaultTimer)
	rosterMgr := roster.NewManager(st, journal.Events, logger, tp.TracerProvider)

	healthHandler := health.NewHandler(clk,
		health.Ping("journal", journal.Ping),
		health.Freshness("countdown", clk, 10*cfg.Auction.TickInterval, ctrl.LastTick),
	)

	// The HTTP server runs on all replicas; only the leader reports ready,
	// and the REST routes follow readiness.
	router := api.NewRouter(
		api.NewHandler(engine, ctrl, rosterMgr, st, logger),
		healthHandler.Ready, tp.TracerProvider, logger,
		api.Extra{Path: "/ws", Handler: notify.NewWebSocketHandler(hub, st, clk, cfg.Server.AllowedOrigins, logger)},
		api.Extra{Path: "/healthz", Handler: healthHandler.LivenessHandler()},
		api.Extra{Path: "/readyz", Handler: healthHandler.ReadinessHandler()},
	)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
		}
	}()

	// lead is the work only the instance owning auction state runs.
	lead := func(ctx context.Context) {
		n, recoverErr := ctrl.Recover(ctx)
		if recoverErr != nil {
			logger.ErrorContext(ctx, "journal replay failed", slog.Any("error", recoverErr))
			cancel()
			return
		}
		logger.InfoContext(ctx, "state recovered from journal", slog.Int("events", n))
		if seedErr := seed(ctx, cfg.Roster, rosterMgr); seedErr != nil {
			logger.ErrorContext(ctx, "seeding roster failed", slog.Any("error", seedErr))
			cancel()
			return
		}

		var wg sync.WaitGroup
		if discordBot != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				discordBot.Announcer().Run(ctx)
			}()
			handlers := commands.NewHandlers(engine, ctrl, st, logger, tp.TracerProvider)
			if botErr := discordBot.Start(ctx, handlers); botErr != nil {
				logger.ErrorContext(ctx, "starting bot failed", slog.Any("error", botErr))
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.Run(ctx, cfg.Auction.TickInterval)
		}()

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctioneer is running", slog.String("version", version))

		<-ctx.Done()

		healthHandler.SetReady(false)
		if discordBot != nil {
			if stopErr := discordBot.Stop(); stopErr != nil {
				logger.Error("bot shutdown error", slog.Any("error", stopErr))
			}
		}
		wg.Wait()
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")
	}
	if leaderErr := leader.Lead(ctx, cfg.LeaderElection, logger, lead, func() {
		logger.Info("lost leadership, shutting down...")
		cancel()
	}); leaderErr != nil {
		return fmt.Errorf("leader election: %w", leaderErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

// seed registers the configured roster unless the journal already has teams.
func seed(ctx context.Context, cfg config.RosterConfig, m *roster.Manager) error {
	seeded, err := m.Seeded(ctx)
	if err != nil {
		return err
	}
	if seeded {
		return nil
	}
	s, err := roster.LoadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}
	if err := m.Apply(ctx, s); err != nil {
		return fmt.Errorf("applying seed: %w", err)
	}
	return nil
}
