package bootstrap

import (
	"context"
	"time"

	"chatproxy-be/internal/config"
	"chatproxy-be/internal/controller"
	"chatproxy-be/internal/handler"
	"chatproxy-be/internal/pkg/logger"
	"chatproxy-be/internal/repository/memory"
	"chatproxy-be/internal/repository/unitofwork"
	"chatproxy-be/internal/service"
	"chatproxy-be/internal/websocket"
	"chatproxy-be/pkg/flowise"
	"chatproxy-be/pkg/lock"
	pktNats "chatproxy-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const syncLockKey = "chatproxy:chatflow_sync"

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	ChatflowController controller.IChatflowController

	// WebSockets
	SyncHandler  *handler.SyncHandler
	WebSocketHub *websocket.Hub

	// Background services, started by Start
	ConsumerService service.IConsumerService
	SyncScheduler   *service.SyncScheduler

	SyncService service.IChatflowSyncService
	Logger      logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 2. In-process bus for upload processing
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Optional infrastructure. Each one degrades to a local fallback.
	var eventPublisher service.IEventPublisher = service.NewNopEventPublisher()
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS, domain events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis, running single instance", map[string]interface{}{"error": err.Error()})
			_ = rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	}

	// 4. Provider
	provider := flowise.NewClient(flowise.ClientOptions{
		BaseURL:       cfg.Provider.BaseURL,
		APIKey:        cfg.Provider.APIKey,
		Timeout:       cfg.Provider.Timeout,
		PageSize:      cfg.Provider.PageSize,
		MaxRetries:    uint(max(cfg.Provider.MaxRetries, 0)),
		RetryInterval: cfg.Provider.RetryInterval,
	})

	// 5. Websocket hub
	hubLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, hubLogger)
	c.SyncHandler = handler.NewSyncHandler(c.WebSocketHub, cfg.Auth.JwtSecret, hubLogger)

	// 6. Services
	syncOpts := service.ChatflowSyncOptions{GuardEmptyCatalog: cfg.Sync.GuardEmptyCatalog}
	if rdb != nil {
		syncOpts.Lock = lock.NewRedisLock(rdb, syncLockKey, cfg.Sync.LockTTL)
	}
	c.SyncService = service.NewChatflowSyncService(uowFactory, provider, eventPublisher, c.WebSocketHub, sysLogger, syncOpts)
	c.SyncScheduler = service.NewSyncScheduler(c.SyncService, cfg.Sync.Interval, cfg.Sync.OnStartup, sysLogger)

	history := service.NewChatHistoryService(uowFactory, sysLogger)
	dedup := service.NewFileDedupService(uowFactory, memory.NewFileHashCache(time.Hour), sysLogger)
	publisherService := service.NewPublisherService(pubSub, service.TopicFileUploadProcess)

	proxy := service.NewChatProxyService(
		service.NewMirrorEntitlementChecker(uowFactory),
		history,
		dedup,
		provider,
		publisherService,
		eventPublisher,
		sysLogger,
		service.ChatProxyOptions{
			MaxUploadBytes: cfg.Upload.MaxBytes,
			MaxEventBytes:  cfg.Provider.MaxEventBytes,
		},
	)

	c.ConsumerService = service.NewConsumerService(
		pubSub,
		service.TopicFileUploadProcess,
		uowFactory,
		service.UploadPolicy{MaxBytes: cfg.Upload.MaxBytes, AllowedMimes: cfg.Upload.AllowedMimes},
		sysLogger,
	)

	// 7. Controllers
	c.ChatController = controller.NewChatController(proxy, history, cfg.Auth.JwtSecret)
	c.ChatflowController = controller.NewChatflowController(c.SyncService, cfg.Auth.JwtSecret)

	return c
}

// Start launches the hub, the upload consumer and the sync scheduler. They
// stop when ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}

	go c.SyncScheduler.Run(ctx)
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
