package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/texcore/internal/config"
	"github.com/bitfantasy/texcore/internal/middleware"
	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/handler"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/bitfantasy/texcore/internal/textile/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting texcore service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, cfg)
	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())

	// 注册路由
	registerRoutes(router, handlers, cfg, rdb)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config, rdb *redis.Client) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		v1.POST("/auth/login", h.Auth.Login)

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret, rdb))
		{
			// 当前用户
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 用户管理（仅管理员）
			users := authorized.Group("/users")
			users.Use(middleware.RequireRoles(entity.RoleAdmin))
			{
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
				users.POST("", h.User.Create)
				users.PUT("/:id", h.User.Update)
				users.DELETE("/:id", h.User.Deactivate)
			}

			// 原料批次
			materials := authorized.Group("/materials")
			{
				materials.GET("", h.Material.List)
				materials.GET("/available", h.Material.ListAvailable)
				materials.GET("/:id", h.Material.Get)
				materials.POST("", middleware.RequireRoles(entity.RoleOperator), h.Material.Create)
				materials.PUT("/:id", middleware.RequireRoles(entity.RoleOperator), h.Material.Update)
				materials.DELETE("/:id", middleware.RequireRoles(entity.RoleAdmin), h.Material.Delete)
			}

			// 准备工序
			preparations := authorized.Group("/preparations")
			{
				preparations.GET("", h.Preparation.List)
				preparations.GET("/mine", middleware.RequireRoles(entity.RolePreparer), h.Preparation.ListMine)
				preparations.GET("/completed", h.Preparation.ListCompleted)
				preparations.GET("/:id", h.Preparation.Get)
				preparations.POST("", middleware.RequireRoles(entity.RolePreparer), h.Preparation.Create)
				preparations.PUT("/:id", middleware.RequireRoles(entity.RolePreparer), h.Preparation.Update)
				preparations.POST("/:id/start", middleware.RequireRoles(entity.RolePreparer), h.Preparation.Start)
				preparations.POST("/:id/complete", middleware.RequireRoles(entity.RolePreparer), h.Preparation.Complete)
				preparations.POST("/:id/reject", middleware.RequireRoles(entity.RolePreparer), h.Preparation.Reject)
				preparations.POST("/:id/details", middleware.RequireRoles(entity.RolePreparer), h.Preparation.AddDetail)
				preparations.DELETE("/:id", middleware.RequireRoles(entity.RoleAdmin), h.Preparation.Delete)
			}

			// 纺纱工序
			spinning := authorized.Group("/spinning")
			{
				spinning.GET("", h.Spinning.List)
				spinning.GET("/mine", middleware.RequireRoles(entity.RoleOperator), h.Spinning.ListMine)
				spinning.GET("/stats", h.Spinning.Stats)
				spinning.GET("/:id", h.Spinning.Get)
				spinning.POST("", middleware.RequireRoles(entity.RoleOperator), h.Spinning.Create)
				spinning.PUT("/:id", middleware.RequireRoles(entity.RoleOperator), h.Spinning.Update)
				spinning.POST("/:id/start", middleware.RequireRoles(entity.RoleOperator), h.Spinning.Start)
				spinning.POST("/:id/complete", middleware.RequireRoles(entity.RoleOperator), h.Spinning.Complete)
				spinning.POST("/:id/reject", middleware.RequireRoles(entity.RoleOperator), h.Spinning.Reject)
				spinning.POST("/:id/details", middleware.RequireRoles(entity.RoleOperator), h.Spinning.AddDetail)
				spinning.DELETE("/:id", middleware.RequireRoles(entity.RoleAdmin), h.Spinning.Delete)
			}

			// 看板
			dashboard := authorized.Group("/dashboard")
			{
				dashboard.GET("/admin", middleware.RequireRoles(entity.RoleAdmin), h.Dashboard.AdminStats)
				dashboard.GET("/operator", middleware.RequireRoles(entity.RoleOperator), h.Dashboard.OperatorStats)
				dashboard.GET("/preparer", middleware.RequireRoles(entity.RolePreparer), h.Dashboard.PreparerStats)
			}

			// 报表（仅管理员）
			reports := authorized.Group("/reports")
			reports.Use(middleware.RequireRoles(entity.RoleAdmin))
			{
				reports.GET("/preparations", h.Dashboard.PreparationReport)
				reports.GET("/preparations/export", h.Dashboard.ExportPreparations)
			}
		}
	}
}
