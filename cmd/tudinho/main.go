package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Motaplivia/tudinhoo/internal/api"
	"github.com/Motaplivia/tudinhoo/internal/auth"
	"github.com/Motaplivia/tudinhoo/internal/bot"
	"github.com/Motaplivia/tudinhoo/internal/config"
	"github.com/Motaplivia/tudinhoo/internal/logging"
	"github.com/Motaplivia/tudinhoo/internal/notify"
	"github.com/Motaplivia/tudinhoo/internal/repository"
	"github.com/Motaplivia/tudinhoo/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalw("tudinho stopped with error", "error", err)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) error {
	loc := cfg.Location()

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	pushRepo := repository.NewPushRepository(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	scheduler := notify.NewScheduler(loc, log, notify.NewMetrics(registry))
	if cfg.VAPID.Enabled() {
		scheduler.AddSink(notify.NewWebPushSink(pushRepo, cfg.VAPID.Subject, cfg.VAPID.PublicKey, cfg.VAPID.PrivateKey, log))
	} else {
		log.Info("web push disabled: VAPID keys not set")
	}

	reminders := service.NewReminderScheduler(scheduler, prefRepo, log, nil)
	taskSvc := service.NewTaskService(taskRepo, reminders, nil)
	profileSvc := service.NewProfileService(userRepo, taskRepo)
	prefSvc := service.NewPreferenceService(prefRepo, taskRepo, reminders, log)
	digestSvc := service.NewDigestService(taskRepo)

	var mailer auth.Mailer = auth.NewLogMailer(log)
	if cfg.SMTP.Enabled() {
		mailer = auth.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	}
	authSvc := auth.NewService(userRepo, sessionRepo, mailer, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL, nil), log)
	unsubscribe := authSvc.OnAuthStateChange(func(change auth.StateChange) {
		log.Debugw("auth state changed", "user_id", change.UserID, "signed_in", change.SignedIn)
	})
	defer unsubscribe()

	jobs := service.NewJobs(loc, log)
	if _, err := jobs.Every(time.Hour, "purge-password-resets", func(ctx context.Context) error {
		n, err := sessionRepo.PurgeResets(ctx, time.Now())
		if err == nil && n > 0 {
			log.Infow("purged password resets", "count", n)
		}
		return err
	}); err != nil {
		return fmt.Errorf("schedule purge: %w", err)
	}

	var telegramBot *bot.Bot
	if cfg.TelegramToken != "" {
		botAPI, err := bot.NewAPI(cfg.TelegramToken)
		if err != nil {
			return err
		}
		log.Infow("bot authorized", "account", botAPI.Self.UserName)
		telegramBot = bot.New(botAPI, bot.Deps{
			Auth:        authSvc,
			Tasks:       taskSvc,
			Profiles:    profileSvc,
			Preferences: prefSvc,
			Digest:      digestSvc,
			Sessions:    sessionRepo,
			Location:    loc,
			Log:         log,
		})
		scheduler.AddSink(telegramBot.Sink())

		if cfg.DigestTime != "" {
			if _, err := jobs.Daily(cfg.DigestTime, "morning-digest", telegramBot.SendDigests); err != nil {
				return fmt.Errorf("schedule digest: %w", err)
			}
		}
	} else {
		log.Info("telegram bot disabled: TELEGRAM_TOKEN not set")
	}

	restored, err := reminders.Restore(ctx, taskRepo)
	if err != nil {
		log.Warnw("restore reminders", "error", err)
	} else {
		log.Infow("reminders restored", "count", restored)
	}

	scheduler.Start()
	defer scheduler.Stop()
	jobs.Start()
	defer jobs.Stop()

	server := api.New(api.Deps{
		Auth:           authSvc,
		Tasks:          taskSvc,
		Profiles:       profileSvc,
		Preferences:    prefSvc,
		Push:           pushRepo,
		VAPIDPublicKey: cfg.VAPID.PublicKey,
		Gatherer:       registry,
		Log:            log,
	})

	errs := make(chan error, 2)
	go func() {
		errs <- server.Listen(cfg.HTTPAddr)
	}()
	if telegramBot != nil {
		go func() {
			errs <- telegramBot.Start(ctx)
		}()
	}

	log.Info("tudinho started")
	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warnw("http shutdown", "error", err)
	}
	return nil
}
