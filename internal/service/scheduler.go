package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CatalogRunner 一次完整导入
type CatalogRunner interface {
	Run(ctx context.Context) (*RunReport, error)
}

// RefreshScheduler 定时重新导入
// 每次都是完整的清空重建，失败只记录日志，等下一个周期
type RefreshScheduler struct {
	runner   CatalogRunner
	interval time.Duration
	log      *zap.Logger
}

// NewRefreshScheduler 创建定时任务，interval<=0 时 Start 不做任何事
func NewRefreshScheduler(runner CatalogRunner, interval time.Duration, log *zap.Logger) *RefreshScheduler {
	return &RefreshScheduler{
		runner:   runner,
		interval: interval,
		log:      log.Named("scheduler"),
	}
}

// Start 在后台启动定时任务，ctx 取消后退出；返回的 channel 在退出时关闭
func (s *RefreshScheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if s.interval <= 0 {
		close(done)
		return done
	}

	ticker := time.NewTicker(s.interval)
	s.log.Info("定时导入已开启", zap.Duration("interval", s.interval))
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.refresh(ctx)
			}
		}
	}()
	return done
}

func (s *RefreshScheduler) refresh(ctx context.Context) {
	s.log.Info("开始定时导入")
	report, err := s.runner.Run(ctx)
	if err != nil {
		s.log.Error("定时导入失败", zap.Error(err))
		return
	}
	s.log.Info("定时导入完成", zap.Int64("movies", report.Movies), zap.Int("links", report.Links))
}
