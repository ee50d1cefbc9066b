// bsbot - Telegram-driven Big/Small betting automation
//
// Each Telegram user logs into their own platform account, configures a
// prediction strategy and a stake progression, then runs a session:
//
//  1. Decision loop: pick a side for the open round, gate it, place the bet
//  2. Reconciler: match settled rounds to pending entries, advance state
//  3. Stop on profit target, stop loss, balance exhaustion or /stop
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/bsbot/bot"
	"github.com/web3guy0/bsbot/core"
	"github.com/web3guy0/bsbot/exec"
	"github.com/web3guy0/bsbot/execution"
	"github.com/web3guy0/bsbot/internal/config"
	"github.com/web3guy0/bsbot/internal/logging"
	"github.com/web3guy0/bsbot/internal/metrics"
	"github.com/web3guy0/bsbot/storage"
	"github.com/web3guy0/bsbot/strategy"
	"github.com/web3guy0/bsbot/types"
)

const version = "1.0.0"

func main() {
	// ═══════════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════════

	envErr := godotenv.Load()

	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logFile := logging.Init(logCfg)
	defer logFile.Close()

	if envErr != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Str("version", version).Str("platform", cfg.Platform).Msg("              BSBOT - BIG/SMALL SESSION ENGINE")
	log.Info().Msg("═══════════════════════════════════════════════════════════════")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ═══════════════════════════════════════════════════════════════════════════════
	// INITIALIZE COMPONENTS
	// ═══════════════════════════════════════════════════════════════════════════════

	// 1. Pattern tables
	patterns, err := strategy.LoadPatterns(cfg.LyzoPatterns, cfg.DreamPatterns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load pattern tables")
	}

	// 2. Storage
	db, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// 3. Engine, feeding metrics and storage
	mtx := metrics.New()
	dbSink := execution.NewAsyncNotifier(db, cfg.NotifyBuffer)
	engine := core.NewEngine(core.Config{
		Session: core.SessionConfig{
			PollInterval:         cfg.PollInterval,
			MaxConsecutiveErrors: cfg.MaxConsecutiveErrors,
			SkipTimeout:          cfg.SkipTimeout,
			PendingTimeout:       cfg.PendingTimeout,
		},
		Executor: execution.ExecutorConfig{
			MaxAttempts: cfg.BetAttempts,
			RetryWait:   cfg.BetRetryWait,
		},
		BalanceAttempts:  cfg.BalanceAttempts,
		BalanceRetryWait: cfg.BalanceRetryWait,
		Patterns:         patterns,
	}, types.Notifiers{mtx, dbSink})
	mtx.TrackSessions(func() int { return len(engine.Sessions()) })

	// 4. Telegram, subscribed to engine events
	tg, err := bot.NewTelegramBot(cfg.TelegramToken, bot.Config{
		AdminID:       cfg.AdminID,
		SendRetries:   cfg.SendRetries,
		SendRetryWait: cfg.SendRetryWait,
	}, engine, db, connector(ctx, cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start Telegram bot")
	}
	tgSink := execution.NewAsyncNotifier(tg, cfg.NotifyBuffer)
	engine.Subscribe(tgSink)

	// 5. Reconciler (settlement events go through the engine's sinks)
	reconciler := execution.NewReconciler(engine, engine, execution.ReconcilerConfig{
		Interval:     cfg.ReconcileInterval,
		FetchTimeout: cfg.FetchTimeout,
	})
	reconciler.Start(ctx)

	// 6. Commands
	tg.Start(ctx)

	// 7. Admin HTTP
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, metrics.NewRouter(mtx, engine)); err != nil {
				log.Error().Err(err).Msg("❌ Metrics server failed")
			}
		}()
	}

	log.Info().Int64("admin", cfg.AdminID).Msg("✅ Ready")

	// ═══════════════════════════════════════════════════════════════════════════════
	// SHUTDOWN
	// ═══════════════════════════════════════════════════════════════════════════════

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down...")

	tg.Stop()
	reconciler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	engine.Shutdown(shutdownCtx)
	shutdownCancel()

	// drain pending notifications (halt summaries) before closing
	dbSink.Close()
	tgSink.Close()
	cancel()

	log.Info().Msg("👋 Goodbye")
}

// connector logs users into the live platform, or hands each user their own
// paper platform that settles on a fixed clock.
func connector(ctx context.Context, cfg *config.Config) bot.Connector {
	if cfg.Paper() {
		var (
			mu     sync.Mutex
			papers = make(map[int64]*exec.Paper)
		)
		log.Warn().Str("balance", cfg.PaperBalance.String()).Msg("📄 Paper platform: no real bets are placed")
		return func(_ context.Context, userID int64, phone, _ string) (types.Platform, string, error) {
			mu.Lock()
			defer mu.Unlock()
			p, ok := papers[userID]
			if !ok {
				p = exec.NewPaper(cfg.PaperBalance, nil)
				papers[userID] = p
				go p.Run(ctx, cfg.PaperRound)
			}
			return p, "paper:" + phone, nil
		}
	}

	return func(ctx context.Context, userID int64, phone, password string) (types.Platform, string, error) {
		client := exec.NewClient(exec.ClientConfig{
			BaseURL:     cfg.BaseURL,
			PhonePrefix: cfg.PhonePrefix,
			Timeout:     cfg.HTTPTimeout,
			Retries:     cfg.HTTPRetries,
			RetryWait:   cfg.HTTPRetryWait,
		})
		if err := client.Login(ctx, phone, password); err != nil {
			return nil, "", err
		}
		log.Info().Int64("user", userID).Msg("🔐 Platform login")
		return client, client.Account(), nil
	}
}
