package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"milebot/internal/bot"
	"milebot/internal/config"
	"milebot/internal/consumer"
	"milebot/internal/database"
	"milebot/internal/handler"
	"milebot/internal/middleware"
	"milebot/internal/monitor"
	"milebot/internal/pix"
	"milebot/internal/redis"
	"milebot/internal/repository"
	"milebot/internal/service/ads"
	"milebot/internal/service/auth"
	"milebot/internal/service/conversation"
	"milebot/internal/service/payment"
	"milebot/internal/service/proposals"
	"milebot/internal/service/ratings"
	"milebot/internal/service/subscription"
	"milebot/internal/telegram"
	internalutils "milebot/internal/utils"
	"milebot/pkg/log"
	"milebot/pkg/queue"
	"milebot/pkg/snowflake"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load config")
	}
	config.GlobalConfig = cfg

	log.Init(log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})

	// database
	if err := database.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize database")
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.AutoMigrate(db); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to run migrations")
	}
	if err := database.CreateIndexes(db); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create indexes")
	}
	if err := database.SeedPlans(db); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to seed plans")
	}

	// redis
	if err := redis.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize redis")
	}
	defer redis.Close()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	idGenerator, err := snowflake.NewIDGenerator(1)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create ID generator")
	}

	messageQueue := queue.NewMemoryMessageQueue()

	// repositories
	userRepo := repository.NewUserRepository(db)
	siteUserRepo := repository.NewSiteUserRepository(db)
	stateRepo := repository.NewStateRepository(db)
	adRepo := repository.NewAdRepository(db)
	proposalRepo := repository.NewProposalRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// external clients
	tgClient := telegram.NewClient(cfg)
	pixGateway := pix.NewClient(cfg)

	jwtManager := internalutils.NewJWTManager(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.Issuer,
		cfg.Security.JWT.Expire,
	)

	// services
	convService := conversation.NewService(stateRepo, cfg.Market.StateTTL)
	adService := ads.NewService(adRepo, idGenerator)
	proposalService := proposals.NewService(db, proposalRepo, adRepo, idGenerator)
	ratingService := ratings.NewService(ratingRepo, historyRepo, proposalRepo, adRepo, idGenerator)
	authService := auth.NewService(userRepo, siteUserRepo, jwtManager, cfg.Market.SiteURL)
	subscriptionService := subscription.NewService(userRepo, subscriptionRepo, planRepo)

	notifier := telegramNotifier{client: tgClient}
	paymentService := payment.NewService(
		db,
		paymentRepo,
		planRepo,
		subscriptionService,
		authService,
		pixGateway,
		redis.GetClient(),
		notifier,
		cfg.Payment.PriceTolerance,
	)

	marketBot := bot.NewBot(
		tgClient,
		cfg,
		userRepo,
		convService,
		adService,
		proposalService,
		ratingService,
		authService,
		subscriptionService,
		paymentService,
		messageQueue,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// background workers
	publishConsumer := consumer.NewPublishConsumer(messageQueue, tgClient, adService, ratingService, userRepo, cfg)
	go publishConsumer.Run(ctx)
	go subscriptionService.RunSweeper(ctx, cfg.Market.SweepInterval, marketBot)

	poller := telegram.NewPoller(tgClient, cfg.Telegram.PollTimeout, marketBot.HandleUpdate)
	go poller.Run(ctx)

	router := setupRouter(cfg, paymentService)

	server := &http.Server{
		Addr:           cfg.Server.GetAddr(),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": server.Addr,
			"mode": cfg.Server.Mode,
		}).Info("Starting webhook server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	cancel()
	messageQueue.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Server forced to shutdown")
	}

	log.Info("Bot exited")
}

func setupRouter(cfg *config.Config, paymentService *payment.Service) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.Metrics())

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(monitor.Handler()))

	webhookHandler := handler.NewWebhookHandler(paymentService)
	router.POST("/webhook/payment", webhookHandler.HandlePayment)

	return router
}

// telegramNotifier adapts the raw client to the Notifier interfaces of
// the payment and subscription services. The bot has its own Notify,
// but the payment service is built before the bot exists.
type telegramNotifier struct {
	client *telegram.Client
}

func (n telegramNotifier) Notify(ctx context.Context, userID int64, text string) error {
	_, err := n.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID: userID,
		Text:   text,
	})
	return err
}
