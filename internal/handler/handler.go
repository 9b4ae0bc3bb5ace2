package handler

import (
	"context"

	"github.com/mattfreire/moviedb/internal/model"
	"github.com/mattfreire/moviedb/internal/service"
	"go.uber.org/zap"
)

// MovieLister 电影查询
type MovieLister interface {
	ListMoviesCached(ctx context.Context, filter model.MovieFilter) ([]model.MovieView, bool, error)
}

// CatalogLoader 导入、重新关联与清空
type CatalogLoader interface {
	Run(ctx context.Context) (*service.RunReport, error)
	Relink(ctx context.Context) (*service.RunReport, error)
	Clear(ctx context.Context) error
}

// Handler HTTP 处理器
type Handler struct {
	Movies MovieLister
	Loader CatalogLoader
	log    *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(movies MovieLister, loader CatalogLoader, log *zap.Logger) *Handler {
	registerValidators()
	return &Handler{
		Movies: movies,
		Loader: loader,
		log:    log.Named("http"),
	}
}
