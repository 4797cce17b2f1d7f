package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Techyana/RWP-Pilot/changefeed"
	"github.com/Techyana/RWP-Pilot/common/logger"
	"github.com/Techyana/RWP-Pilot/controllers"
	"github.com/Techyana/RWP-Pilot/database"
	"github.com/Techyana/RWP-Pilot/middleware"
	awspkg "github.com/Techyana/RWP-Pilot/pkg/aws"
	"github.com/Techyana/RWP-Pilot/repository"
	"github.com/Techyana/RWP-Pilot/routes"
	"github.com/Techyana/RWP-Pilot/services"
)

func main() {
	logger.Initialize(os.Getenv("APP_ENV"))
	defer logger.Log.Sync()
	log := logger.Log

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("Config load failed", zap.Error(err))
	}

	// --- CloudWatch: log shipping and custom metrics, both optional ---
	var metricsClient *awspkg.MetricsClient
	if cfg.CloudWatchLogGroup != "" || cfg.CloudWatchNamespace != "" {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			log.Fatal("AWS config load failed", zap.Error(err))
		}
		if cfg.CloudWatchLogGroup != "" {
			shipper, err := awspkg.NewLogWriter(context.Background(), awsCfg, cfg.CloudWatchLogGroup)
			if err != nil {
				log.Fatal("CloudWatch log writer setup failed", zap.Error(err))
			}
			logger.InitializeWithWriter(cfg.Env, shipper)
			log = logger.Log
		}
		if cfg.CloudWatchNamespace != "" {
			metricsClient = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace)
		}
	}

	// --- Store wiring ---
	var (
		items         repository.ItemRepository
		devices       repository.DeviceRepository
		ledger        repository.LedgerRepository
		notifications repository.NotificationRepository
	)

	switch cfg.StoreBackend {
	case "mongo":
		client, db, err := database.Connect(context.Background(), cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatal("Mongo connect failed", zap.Error(err))
		}
		defer client.Disconnect(context.Background())
		if err := database.EnsureIndexes(context.Background(), db); err != nil {
			log.Fatal("Mongo index setup failed", zap.Error(err))
		}
		items = repository.NewMongoItemRepository(db)
		devices = repository.NewMongoDeviceRepository(db)
		ledger = repository.NewMongoLedgerRepository(db)
		notifications = repository.NewMongoNotificationRepository(db)
	default:
		store := repository.NewMemoryStore()
		items = store
		devices = store.Devices()
		ledger = store
		notifications = store.Notifications()
	}

	// --- Projection cache ---
	var cache repository.ProjectionCache = repository.NoopCache{}
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		cache = repository.NewRedisCache(rdb, "portal", log)
	}

	// --- Notification sinks ---
	notificationService := services.NewNotificationService(notifications, log)
	var sink services.NotificationSink = notificationService
	if cfg.SNSTopicARN != "" {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			log.Fatal("AWS config load failed", zap.Error(err))
		}
		snsSink := services.NewSNSSink(awspkg.NewSNSClient(awsCfg), cfg.SNSTopicARN, log)
		sink = services.MultiSink{notificationService, snsSink}
	}

	inventoryService := services.NewInventoryService(items, devices, ledger, sink, log)
	projectionService := services.NewProjectionService(items, devices, ledger, cache, cfg.CacheTTL, log)

	// --- Change feed: invalidate projection cache on ledger activity ---
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var feed changefeed.Feed
	switch cfg.FeedBackend {
	case "sqs":
		awsCfg, err := awspkg.LoadAWSConfig(rootCtx)
		if err != nil {
			log.Fatal("AWS config load failed", zap.Error(err))
		}
		feed = changefeed.NewSQSFeed(awsCfg, cfg.SQSQueueURL, log)
	default:
		feed = changefeed.NewPoller(ledger, cfg.FeedInterval, log)
	}

	go feed.Run(rootCtx)
	go func() {
		for ev := range feed.Events() {
			cache.Invalidate(rootCtx, services.AvailableCacheKey(ev.Entry.ItemKind))
		}
	}()

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(middleware.RequestMetrics(metricsClient))
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	ctrl := routes.Controllers{
		Inventory:     controllers.NewInventoryController(inventoryService, projectionService),
		Devices:       controllers.NewDeviceController(inventoryService, projectionService),
		Transactions:  controllers.NewTransactionController(projectionService, cfg.LedgerWindowHours),
		Notifications: controllers.NewNotificationController(notificationService),
	}
	routes.RegisterRoutes(r, cfg.JWTSecret, ctrl)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("Workshop portal starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreBackend),
			zap.String("feed", cfg.FeedBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-rootCtx.Done()

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Stopped gracefully")
}
