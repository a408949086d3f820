package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cleanclip/config"
	"cleanclip/handler"
	"cleanclip/middleware"
	"cleanclip/scheduler"
	"cleanclip/service"
	"cleanclip/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	// 设置时区为 UTC（服务端统一使用 UTC，用户本地日期由 profile 时区计算）
	time.Local = time.UTC
}

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		utils.Log.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogger(cfg.LogLevel, cfg.IsProduction())

	// 初始化数据库
	if err := utils.InitDB(cfg.DatabaseURL); err != nil {
		utils.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer utils.CloseDB()

	// 初始化 Redis（可选，用于模板池缓存）
	if err := utils.InitRedis(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB); err != nil {
		utils.Log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer utils.CloseRedis()

	// 初始化认证中间件
	middleware.InitAuth(cfg.JWTSecret)

	db := utils.GetDB()

	// 存储层
	deliveryStore := service.NewGormDeliveryStore(db)
	userStore := service.NewGormUserStore(db)

	// 创建服务
	contentSvc := service.NewContentService(deliveryStore, userStore)
	if rdb := utils.GetRedis(); rdb != nil {
		contentSvc.SetPoolCache(service.NewRedisPoolCache(rdb))
	}
	userSvc := service.NewUserService(userStore)
	templateSvc := service.NewTemplateService(db)
	templateSvc.SetPoolInvalidator(contentSvc)
	adminSvc := service.NewAdminService(db)

	var gateway service.BillingGateway
	if cfg.Stripe.SecretKey != "" {
		gateway = service.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	} else {
		utils.Log.Warn("STRIPE_SECRET_KEY not set, billing endpoints disabled")
	}
	subscriptionSvc := service.NewSubscriptionService(userStore, gateway, service.PriceConfig{
		Monthly: cfg.Stripe.PriceMonthly,
		Yearly:  cfg.Stripe.PriceYearly,
	}, cfg.Stripe.RefundWindowDays)

	// 创建处理器
	contentHandler := handler.NewContentHandler(contentSvc)
	userHandler := handler.NewUserHandler(userSvc)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionSvc, cfg.PublicBaseURL)
	webhookHandler := handler.NewWebhookHandler(subscriptionSvc)
	adminHandler := handler.NewAdminHandler(templateSvc, adminSvc)

	// 定时预热模板池缓存
	prewarm := scheduler.NewPrewarmScheduler(contentSvc, cfg.PrewarmCron)
	if err := prewarm.Start(); err != nil {
		utils.Log.Fatalf("Failed to start prewarm scheduler: %v", err)
	}

	// 创建 Gin 路由
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// 注册统一错误处理和访问日志中间件
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(middleware.RequestLogger())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Stripe webhook（签名校验，不需要 JWT）
	r.POST("/webhooks/stripe", webhookHandler.Stripe)
	r.GET("/subscription/prices", subscriptionHandler.GetPrices)

	authed := []gin.HandlerFunc{middleware.AuthMiddleware(), middleware.LoadUser(userSvc)}

	// 内容（需要认证 + 有效订阅）
	content := r.Group("/content", authed...)
	content.Use(middleware.RequireSubscription())
	{
		content.GET("/today", contentHandler.GetToday)
		content.GET("/stats", contentHandler.GetStats)
		content.GET("/history", contentHandler.GetHistory)
	}

	// 订阅管理
	subscription := r.Group("/subscription", authed...)
	{
		subscription.GET("/status", subscriptionHandler.GetStatus)
		subscription.POST("/checkout", subscriptionHandler.Checkout)
		subscription.POST("/cancel", subscriptionHandler.Cancel)
		subscription.POST("/refund", subscriptionHandler.Refund)
		subscription.GET("/portal", subscriptionHandler.Portal)
	}

	// 用户偏好
	user := r.Group("/user", authed...)
	{
		user.GET("/profile", userHandler.GetProfile)
		user.POST("/onboard", userHandler.Onboard)
		user.PUT("/service-type", userHandler.UpdateServiceType)
		user.PUT("/timezone", userHandler.UpdateTimezone)
	}

	// 管理员 API 路由组（需要认证 + 管理员白名单）
	admin := r.Group("/api/admin", middleware.AuthMiddleware(), middleware.RequireAdmin(cfg.AdminUserIDs))
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/templates", adminHandler.TemplateCounts)
		admin.GET("/templates/list", adminHandler.ListTemplates)
		admin.POST("/templates/:id/activate", adminHandler.ActivateTemplate)
		admin.POST("/templates/:id/deactivate", adminHandler.DeactivateTemplate)
		admin.POST("/templates/load", adminHandler.LoadTemplates)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Log.Infof("cleanclip service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Log.Info("shutting down")

	prewarm.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Log.WithError(err).Error("server forced to shutdown")
	}
}
