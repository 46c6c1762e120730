package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"maildash/backend/internal/auth"
	jwtpkg "maildash/backend/internal/auth/jwt"
	"maildash/backend/internal/config"
	"maildash/backend/internal/dnsapi"
	"maildash/backend/internal/health"
	"maildash/backend/internal/logger"
	"maildash/backend/internal/mailin"
	"maildash/backend/internal/mailout"
	"maildash/backend/internal/monitoring"
	"maildash/backend/internal/service"
	"maildash/backend/internal/storage"
	"maildash/backend/internal/storage/hybrid"
	"maildash/backend/internal/storage/memory"
	rediscache "maildash/backend/internal/storage/redis"
	sqlstore "maildash/backend/internal/storage/sql"
	httptransport "maildash/backend/internal/transport/http"
	"maildash/backend/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting maildash server",
		zap.String("domain", cfg.Mail.ApexDomain),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	store := initializeStorage(cfg, log)

	// 监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(store, log)
	for name, status := range healthChecker.CheckHealth() {
		log.Info("startup health check", zap.String("check", name), zap.String("status", status))
	}

	// 外部服务客户端
	dnsClient := dnsapi.NewClient(cfg, log)
	if !dnsClient.Configured() {
		log.Warn("dns provider not configured, forwarding rules will not sync")
	}
	mailClient := mailout.NewClient(cfg)

	// 服务层
	authService := auth.NewService(store, cfg)
	messageService := service.NewMessageService(store)
	sendService := service.NewSendService(store, mailClient, log)
	ingestService := service.NewIngestService(store, log)
	forwardingService := service.NewForwardingService(store, dnsClient, cfg, log)
	adminService := service.NewAdminService(store, forwardingService, log)

	jwtManager := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpiry)

	// WebSocket Hub，新邮件落库后向在线客户端推送
	wsHub := websocket.NewHub(jwtManager, cfg.CORS.AllowedOrigins, log)
	ingestService.SetNotifier(wsHub)

	parser := mailin.NewParser(cfg.Mail.DefaultRecipient)

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:            cfg,
		AuthService:       authService,
		MessageService:    messageService,
		SendService:       sendService,
		IngestService:     ingestService,
		ForwardingService: forwardingService,
		AdminService:      adminService,
		Parser:            parser,
		JWTManager:        jwtManager,
		WebSocketHub:      wsHub,
		Metrics:           metrics,
		HealthChecker:     healthChecker,
		Logger:            log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关停
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		if err := store.Close(); err != nil {
			log.Error("storage close error", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}

// initializeStorage 按配置选择存储后端。
// 配置了数据库 DSN 时使用 PostgreSQL，并在配置了 Redis 时套一层别名查询缓存；
// 否则退回纯内存存储（开发模式）。
func initializeStorage(cfg *config.Config, log *zap.Logger) storage.Store {
	if cfg.Database.DSN == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore()
	}

	db, err := sqlstore.NewStore(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize database storage: %v", err))
	}
	log.Info("using postgresql storage")

	if cfg.Redis.Address == "" {
		return db
	}

	cache, err := rediscache.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("failed to connect redis, continuing without cache", zap.Error(err))
		return db
	}
	log.Info("alias lookup cache enabled", zap.String("redis", cfg.Redis.Address))

	return hybrid.NewStore(db, cache, log)
}
