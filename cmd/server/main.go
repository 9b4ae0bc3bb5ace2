package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mattfreire/moviedb/internal/config"
	"github.com/mattfreire/moviedb/internal/handler"
	"github.com/mattfreire/moviedb/internal/logging"
	"github.com/mattfreire/moviedb/internal/middleware"
	"github.com/mattfreire/moviedb/internal/repository"
	"github.com/mattfreire/moviedb/internal/router"
	"github.com/mattfreire/moviedb/internal/service"
	"github.com/mattfreire/moviedb/internal/utils"
	"go.uber.org/zap"
)

func main() {
	// 加载环境变量
	envErr := godotenv.Load()

	// 加载配置
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()
	if envErr != nil {
		logger.Info("未找到 .env 文件，使用系统环境变量")
	}

	// 初始化数据库
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if err := repository.Migrate(db); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 初始化仓库与缓存
	repos := repository.NewRepositories(db)
	cache := utils.NewResponseCache(cfg.CacheTTL)

	// 初始化服务
	source := service.NewMoviesDBClient(cfg.Source, logger)
	movies := service.NewMovieService(repos.Movie, cache, cfg.CacheSharedKey, logger)
	loader := service.NewLoader(source, repos.Catalog, cache, service.LoaderOptions{
		Workers:     cfg.IngestWorkers,
		LoadOnStart: cfg.LoadOnStart,
	}, logger)

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 中间件
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	h := handler.NewHandler(movies, loader, logger)

	// 注册路由
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 启动导入在后台执行，不阻塞对外服务
	loadCtx, cancelLoad := context.WithCancel(context.Background())
	defer cancelLoad()
	go func() {
		report, err := loader.LoadOnStart(loadCtx)
		if err != nil {
			logger.Error("启动导入失败", zap.Error(err))
			return
		}
		if report != nil {
			logger.Info("启动导入完成",
				zap.Int64("actors", report.Actors),
				zap.Int64("movies", report.Movies),
				zap.Int("links", report.Links),
			)
		}
	}()

	// 定时重新导入
	scheduled := service.NewRefreshScheduler(loader, cfg.IngestInterval, logger).Start(loadCtx)

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		logger.Info("服务器启动", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("正在关闭服务器...")
	cancelLoad()
	loader.Close()
	<-scheduled

	// 5 秒超时上下文用于关闭过程
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器强制关闭", zap.Error(err))
	}

	logger.Info("服务器已退出")
}
