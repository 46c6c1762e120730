package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"maildash/backend/internal/auth"
	jwtpkg "maildash/backend/internal/auth/jwt"
	"maildash/backend/internal/config"
	"maildash/backend/internal/health"
	"maildash/backend/internal/mailin"
	"maildash/backend/internal/middleware"
	"maildash/backend/internal/monitoring"
	"maildash/backend/internal/service"
	"maildash/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config            *config.Config
	AuthService       *auth.Service
	MessageService    *service.MessageService
	SendService       *service.SendService
	IngestService     *service.IngestService
	ForwardingService *service.ForwardingService
	AdminService      *service.AdminService
	Parser            *mailin.Parser
	JWTManager        *jwtpkg.Manager
	WebSocketHub      *websocket.Hub
	Metrics           *monitoring.Metrics
	HealthChecker     *health.HealthChecker
	Logger            *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
	router.Use(monitor.PanicRecovery())
	router.Use(monitor.HTTPMetrics())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.ForwardingService, deps.JWTManager, deps.Metrics, deps.Logger)
	emailHandler := NewEmailHandler(deps.MessageService, deps.SendService, deps.Metrics, deps.Logger)
	forwardingHandler := NewForwardingHandler(deps.ForwardingService, deps.Metrics, deps.Logger)
	webhookHandler := NewWebhookHandler(deps.Parser, deps.IngestService, deps.MessageService, deps.Metrics, deps.Logger)
	adminHandler := NewAdminHandler(deps.AdminService, deps.Metrics, deps.Logger)

	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)
	adminAuth := middleware.NewAdminAuth(deps.AuthService)
	ipRateLimit := middleware.NewIPRateLimiter(10, 30)
	webhookRateLimit := middleware.NewIPRateLimiter(50, 100)

	// 探针与指标
	router.GET("/healthz", gin.WrapF(deps.HealthChecker.LiveEndpoint))
	router.GET("/readyz", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	api := router.Group("/api")
	{
		// ========== Auth Routes ==========
		authRoutes := api.Group("/auth")
		authRoutes.Use(ipRateLimit.Limit())
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), adminAuth.RequireAccount(), authHandler.Me)
		}
		api.POST("/verify-passphrase", ipRateLimit.Limit(), authHandler.VerifyPassphrase)

		// ========== Mailbox Routes ==========
		emails := api.Group("", jwtAuth.RequireAuth(), adminAuth.RequireAccount())
		{
			emails.GET("/emails", emailHandler.ListEmails)
			emails.PATCH("/emails", emailHandler.MarkRead)
			emails.POST("/send", emailHandler.SendEmail)
			emails.GET("/forwarding", forwardingHandler.GetForwarding)
			emails.POST("/forwarding", forwardingHandler.SetForwarding)
		}

		// ========== Webhook Routes ==========
		// 入站邮件可能携带大附件元数据，放宽该路由的请求体限制
		webhooks := api.Group("/webhooks")
		webhooks.Use(webhookRateLimit.Limit())
		webhooks.Use(middleware.BodySizeLimit(middleware.WebhookBodyLimit))
		{
			webhooks.POST("/incomingMail", webhookHandler.HandleIncomingMail)
			webhooks.GET("/incomingMail", webhookHandler.WebhookStatus)
		}

		// ========== Admin Routes ==========
		users := api.Group("/users", jwtAuth.RequireAuth(), adminAuth.RequireAccount())
		{
			users.GET("", adminHandler.ListUsers)
			users.DELETE("", adminHandler.DeleteUser)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			api.GET("/ws", deps.WebSocketHub.HandleConnection)
		}
	}

	return router
}
