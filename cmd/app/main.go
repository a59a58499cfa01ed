// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/enescakir/emoji"
	"golang.org/x/time/rate"

	"github.com/kmein/menstruation-telegram/internal/application"
	"github.com/kmein/menstruation-telegram/internal/config"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
	"github.com/kmein/menstruation-telegram/internal/infra/logging"
	"github.com/kmein/menstruation-telegram/internal/infra/mensa"
	"github.com/kmein/menstruation-telegram/internal/infra/metrics"
	red "github.com/kmein/menstruation-telegram/internal/infra/redis"
	"github.com/kmein/menstruation-telegram/internal/infra/sched"
	tele "github.com/kmein/menstruation-telegram/internal/infra/telegram"
	"github.com/kmein/menstruation-telegram/internal/infra/web"
	"github.com/kmein/menstruation-telegram/internal/infra/worker"
	"github.com/kmein/menstruation-telegram/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode (no bot token required, sends are logged)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	userRepo := red.NewUserRepo(redisClient)
	menuCache := red.NewMenuCache(redisClient, cfg.Mensa.MenuTTL)
	tableCache := red.NewMenuCache(redisClient, cfg.Mensa.TablesTTL)

	// ---- Menu backend ----
	limiter := rate.NewLimiter(rate.Limit(cfg.Mensa.RatePerSec), cfg.Mensa.RateBurst)
	menuClient := mensa.NewClient(cfg.Mensa.Endpoint, cfg.Mensa.Timeout, menuCache, tableCache, limiter, logger)

	// ---- Scheduler + workers ----
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.Scheduler.Timezone).Msg("timezone")
	}
	pool := worker.NewPool(cfg.Bot.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()
	scheduler := sched.NewSubscriptionScheduler(userRepo, pool, cfg.Scheduler.DefaultTime, loc, logger)

	// ---- Use cases ----
	menuUC := usecase.NewMenuUseCase(userRepo, menuClient, logger)
	subUC := usecase.NewSubscriptionUseCase(userRepo, scheduler, logger)
	settingsUC := usecase.NewSettingsUseCase(userRepo, menuClient, logger)

	// ---- Telegram ----
	var bot adapter.TelegramBotAdapter
	var realBot *tele.RealTelegramBotAdapter
	if cfg.Bot.Token != "" {
		realBot, err = tele.NewRealTelegramBotAdapter(cfg.Bot.Token, cfg.Bot.Workers, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		bot = realBot
	} else {
		bot = tele.NewNoopBotAdapter(logger)
	}

	// Telegram allows ~30 messages/s overall; stay well below.
	sendLimiter := rate.NewLimiter(rate.Limit(20), 5)
	bcastUC := usecase.NewBroadcastUseCase(userRepo, bot, sendLimiter, logger)
	deliveryUC := usecase.NewDeliveryUseCase(userRepo, menuClient, bot, scheduler, cfg.Mensa.Retries, logger)
	scheduler.SetDeliverer(deliveryUC)

	facade := application.NewBotFacade(menuUC, subUC, settingsUC, bcastUC, scheduler, cfg.Bot.ModeratorIDs, logger)

	if err := scheduler.Replay(ctx); err != nil {
		logger.Fatal().Err(err).Msg("replay subscriptions")
	}
	scheduler.Start()
	defer scheduler.Stop()

	if realBot != nil {
		go func() {
			if err := realBot.StartPolling(ctx, facade); err != nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- Admin server ----
	if cfg.Admin.Port > 0 {
		server := web.NewServer(settingsUC, scheduler, redisClient, logger)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Admin.Port)
			if err := server.ListenAndServe(ctx, addr); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("admin server")
			}
		}()
	}

	// ---- Startup message to moderators ----
	for _, id := range cfg.Bot.ModeratorIDs {
		if err := bot.SendMessage(ctx, id, "Server wurde gestartet "+emoji.ThumbsUp.String()); err != nil {
			logger.Warn().Err(err).Int64("chat_id", id).Msg("startup message failed")
		}
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}
