package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/auth"
	"github.com/xavierca1/ligue-crm/internal/config"
	"github.com/xavierca1/ligue-crm/internal/infra/cache"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/manychat"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/infra/notify"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/internal/infra/worker"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := newLogger(cfg)
	logger.SetGlobal(log)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuração inválida", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar no Postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.MigrateOnBoot {
		if err := database.ApplyMigrations(ctx, db); err != nil {
			log.Fatal("Falha ao aplicar migrations", zap.Error(err))
		}
	}

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		log.Fatal("Falha ao conectar no RabbitMQ", zap.Error(err))
	}
	defer rabbitMQ.Close()

	// 1. Repositórios
	leadRepo := database.NewLeadRepository(db)
	pipelineRepo := database.NewPipelineRepository(db)
	convRepo := database.NewConversationRepository(db)
	msgRepo := database.NewMessageRepository(db)
	userRepo := database.NewUserRepository(db)

	// 2. Integrações e adapters
	var platform usecase.MessagingPlatform = manychat.NewClient(cfg.ManyChatToken, cfg.ManyChatBaseURL, cfg.ManyChatTimeout, log)

	var (
		redisPing   func(context.Context) error
		subscribers usecase.SubscriberInvalidator
	)
	if cfg.CacheEnabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis indisponível, seguindo sem cache", zap.Error(err))
		} else {
			defer rdb.Close()
			cached := cache.NewCachedPlatform(platform, rdb, cfg.SubscriberTTL, log)
			platform, subscribers = cached, cached
			redisPing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	producer := queue.NewProducer(rabbitMQ.Ch)
	mailSender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)
	registry := notify.NewRegistry()

	// 3. UseCases
	reconciler := usecase.NewConversationReconciler(convRepo, msgRepo, log)
	syncer := usecase.NewLeadSyncer(leadRepo, pipelineRepo, reconciler, log)
	leadUC := usecase.NewLeadUseCase(leadRepo, pipelineRepo, platform, log)
	moveStageUC := usecase.NewMoveStageUseCase(leadRepo, pipelineRepo, platform, producer, registry, log)
	pipelineUC := usecase.NewPipelineQueryUseCase(leadRepo, pipelineRepo)
	inboxUC := usecase.NewInboxUseCase(convRepo, msgRepo, leadRepo, platform, registry, log)
	webhookUC := usecase.NewProcessWebhookUseCase(syncer, leadRepo, convRepo, msgRepo, platform, registry, log)
	webhookUC.Cache = subscribers
	syncUC := usecase.NewSyncSubscribersUseCase(leadRepo, platform, syncer, cfg.SyncDelay, log)
	signInUC := usecase.NewSignInUseCase(userRepo, tokens, mailSender, usecase.AccessPolicy{
		AdminEmails:    cfg.AdminEmails,
		AllowedEmails:  cfg.AllowedEmails,
		AllowedDomains: cfg.AllowedDomains,
	}, log)
	userUC := usecase.NewUserUseCase(userRepo)
	automationUC := usecase.NewStageAutomationUseCase(platform, convRepo, userRepo, mailSender, cfg.AdminEmails, log)

	// 4. Workers
	automationWorker := queue.NewWorker(rabbitMQ.Ch, automationUC, log)
	go func() {
		if err := automationWorker.Start(ctx, queue.QueueName); err != nil {
			log.Error("Worker de automações parou", zap.Error(err))
		}
	}()
	go worker.NewConversationSweeper(convRepo, reconciler, cfg.SweepInterval, log).Start(ctx)
	go worker.NewSSEPruner(registry, cfg.SSEIdleTimeout, log).Start(ctx)

	// 5. Handlers
	router := &handlers.Router{
		Config: handlers.RouterConfig{
			CORSOrigins:       cfg.CORSOrigins,
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
		},
		Tokens:       tokens,
		Log:          log,
		Health:       handlers.NewHealthHandler(db, rabbitMQ, redisPing, cfg.ManyChatToken != ""),
		Auth:         handlers.NewAuthHandler(signInUC, cfg.AuthBridgeToken, log),
		Leads:        handlers.NewLeadHandler(leadUC, log),
		Pipeline:     handlers.NewPipelineHandler(moveStageUC, pipelineUC, log),
		Inbox:        handlers.NewInboxHandler(inboxUC, log),
		Webhook:      handlers.NewWebhookHandler(webhookUC, cfg.WebhookToken, log),
		Notification: handlers.NewNotificationHandler(registry, cfg.SSEHeartbeatInterval, log),
		Users:        handlers.NewUserHandler(userUC, log),
		Sync:         handlers.NewSyncHandler(syncUC, log),
	}

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	go func() {
		log.Info("🔥 CRM API rodando", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Falha no servidor HTTP", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown forçado", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *logger.Logger {
	l, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
		Service:     "ligue-crm-api",
	})
	if err != nil {
		return logger.Global()
	}
	return l
}
