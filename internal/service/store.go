package service

import (
	"context"

	"github.com/mattfreire/moviedb/internal/model"
)

// MovieStore 电影表的读写
type MovieStore interface {
	// InsertMovies 批量插入，返回插入条数，并回填每条记录的 ID
	InsertMovies(ctx context.Context, movies []*model.Movie) (int64, error)
	MoviesBySourceIDs(ctx context.Context, titleIDs []string) ([]model.Movie, error)
}

// ActorStore 演员表及关联表的读写
type ActorStore interface {
	// InsertActors 批量插入，返回插入条数，并回填每条记录的 ID
	InsertActors(ctx context.Context, actors []*model.Actor) (int64, error)
	AllActors(ctx context.Context) ([]model.Actor, error)
	ReplaceMovies(ctx context.Context, actorID uint, movieIDs []uint) error
}

// CatalogStore 导入流程需要的全部存储操作
type CatalogStore interface {
	MovieStore
	ActorStore
	ClearCatalog(ctx context.Context) error
}

// MovieSearcher 电影查询
type MovieSearcher interface {
	Search(ctx context.Context, filter model.MovieFilter) ([]model.Movie, error)
}

// CacheFlusher 数据变更后清空响应缓存
type CacheFlusher interface {
	Flush()
}

// CacheResetter 数据源侧缓存，清空数据时一并丢弃
type CacheResetter interface {
	ResetCache()
}
