package bootstrap

import (
	"context"
	"log"

	"sentinel-be/internal/cache"
	"sentinel-be/internal/config"
	"sentinel-be/internal/controller"
	"sentinel-be/internal/dataset"
	"sentinel-be/internal/dispatch"
	"sentinel-be/internal/entity"
	"sentinel-be/internal/handler"
	"sentinel-be/internal/pkg/logger"
	"sentinel-be/internal/pkg/mailer"
	"sentinel-be/internal/repository/unitofwork"
	"sentinel-be/internal/service"
	"sentinel-be/internal/websocket"
	pktNats "sentinel-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RunController       controller.IRunController
	DashboardController controller.IDashboardController
	ApprovalController  controller.IApprovalController
	HealthController    controller.IHealthController

	// Background Services (Exposed for main.go to run)
	RunService      service.IRunService
	ProgressService service.IProgressConsumer

	// WebSockets
	RunStreamHandler *handler.RunStreamHandler
	WebSocketHub     *websocket.Hub

	Logger logger.ILogger

	cancel  context.CancelFunc
	closers []func()
}

// NewContainer wires the whole service. A nil db runs on the in-memory
// store; NATS and Redis are optional and skipped when unset or unreachable.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Container{cancel: cancel}

	// 1. Core Facades
	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		log.Printf("[WARN] No database configured, using in-memory store")
		uowFactory = unitofwork.NewMemoryRepositoryFactory(nil)
	}
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c.Logger = sysLogger
	pipelineLogger := log.Default()

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Dataset
	corpus, err := dataset.LoadJSONL(cfg.Pipeline.DatasetPath)
	if err != nil {
		log.Printf("[WARN] Failed to load dataset %s: %v", cfg.Pipeline.DatasetPath, err)
		corpus = []entity.RawCase{}
	}
	log.Printf("[INFO] Loaded %d cases from %s", len(corpus), cfg.Pipeline.DatasetPath)

	// 4. Infrastructure
	// NATS
	sinks := service.ProgressSinks{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			sinks.Stream = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// Redis
	var rdb *redis.Client
	var statusCache service.StatusReader
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		runCache := cache.NewRunStatusCache(rdb)
		sinks.Cache = runCache
		statusCache = runCache
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/run_stream.log")
	wsHub := websocket.NewHub(rdb, uuid.NewString(), wsLogger)
	go wsHub.Run(ctx)
	sinks.Delivery = wsHub
	c.WebSocketHub = wsHub

	// 5. Services
	progressPublisher := service.NewProgressPublisher(service.RunProgressTopic, pubSub)
	c.ProgressService = service.NewProgressConsumer(pubSub, service.RunProgressTopic, sinks, sysLogger)

	scoring, err := NewPipeline(ctx, cfg, uowFactory, corpus, progressPublisher, pipelineLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize pipeline: %v", err)
	}
	auditService := scoring.Audit

	c.RunService = service.NewRunService(
		uowFactory,
		scoring.Orchestrator,
		scoring.Statuses,
		statusCache,
		auditService,
		progressPublisher,
		corpus,
		RunConfig(cfg),
		sysLogger,
	)

	dispatcher := dispatch.NewManager(
		cfg.Pipeline.DispatchDryRun,
		sysLogger,
		dispatch.NewVoiceStub(cfg.Pipeline.DispatchDryRun, sysLogger),
		dispatch.NewEmailChannel(cfg.Pipeline.DispatchDryRun, cfg.SMTP.AlertRecipients, emailService, sysLogger),
	)

	dashboardService := service.NewDashboardService(uowFactory)
	caseService := service.NewCaseService(uowFactory, auditService)
	approvalService := service.NewApprovalService(uowFactory, dispatcher, auditService, sysLogger)

	// 6. Controllers
	c.RunController = controller.NewRunController(c.RunService)
	c.DashboardController = controller.NewDashboardController(dashboardService, caseService)
	c.ApprovalController = controller.NewApprovalController(approvalService)
	c.HealthController = controller.NewHealthController()
	c.RunStreamHandler = handler.NewRunStreamHandler(c.RunService, wsHub, wsLogger)

	return c
}

// Shutdown stops unfinished runs, then the background loops and clients.
func (c *Container) Shutdown() {
	c.RunService.Shutdown()
	c.cancel()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
