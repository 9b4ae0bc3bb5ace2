package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattfreire/moviedb/internal/config"
	"github.com/mattfreire/moviedb/internal/logging"
	"github.com/mattfreire/moviedb/internal/repository"
	"github.com/mattfreire/moviedb/internal/service"
	"go.uber.org/zap"
)

// 一次性执行导入、重新关联或清空，结果以 JSON 打印到标准输出
func main() {
	relink := flag.Bool("relink", false, "按 metadata 重新建立演员与电影的关联，不访问数据源")
	clearOnly := flag.Bool("clear", false, "只清空演员、电影与关联")
	workers := flag.Int("workers", 0, "拉取电影详情的并发数，0 表示使用 INGEST_WORKERS")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if *workers > 0 {
		cfg.IngestWorkers = *workers
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if err := repository.Migrate(db); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	repos := repository.NewRepositories(db)
	loader := service.NewLoader(
		service.NewMoviesDBClient(cfg.Source, logger),
		repos.Catalog,
		nil,
		service.LoaderOptions{Workers: cfg.IngestWorkers},
		logger,
	)

	defer loader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var report *service.RunReport
	switch {
	case *clearOnly:
		err = loader.Clear(ctx)
	case *relink:
		report, err = loader.Relink(ctx)
	default:
		report, err = loader.Run(ctx)
	}
	if err != nil {
		logger.Error("执行失败", zap.Error(err))
		os.Exit(1)
	}

	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
}
