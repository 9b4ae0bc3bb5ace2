package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattfreire/moviedb/internal/model"
	"github.com/mattfreire/moviedb/internal/utils"
	"go.uber.org/zap"
)

// ErrInvalidFilter 筛选条件不合法，属于调用方错误
var ErrInvalidFilter = errors.New("invalid movie filter")

const moviesCacheKey = "movies"

// MovieService 电影查询服务
type MovieService struct {
	movies    MovieSearcher
	cache     *utils.ResponseCache
	sharedKey bool
	log       *zap.Logger
}

// NewMovieService 创建查询服务，cache 为 nil 时不缓存
// sharedKey 为 true 时所有筛选条件共用同一个缓存键
func NewMovieService(movies MovieSearcher, cache *utils.ResponseCache, sharedKey bool, log *zap.Logger) *MovieService {
	return &MovieService{
		movies:    movies,
		cache:     cache,
		sharedKey: sharedKey,
		log:       log.Named("movies"),
	}
}

// CacheKey 计算筛选条件对应的缓存键
func (s *MovieService) CacheKey(filter model.MovieFilter) string {
	if s.sharedKey {
		return moviesCacheKey
	}
	return moviesCacheKey + ":" + filter.Normalize()
}

// ListMovies 按条件查询电影并投影为接口结构
func (s *MovieService) ListMovies(ctx context.Context, filter model.MovieFilter) ([]model.MovieView, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	s.log.Debug("查询电影", zap.String("filter", filter.Normalize()))

	rows, err := s.movies.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]model.MovieView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].ToView())
	}
	return views, nil
}

// ListMoviesCached 先查缓存，未命中再查库并写入缓存；第二个返回值表示是否命中
func (s *MovieService) ListMoviesCached(ctx context.Context, filter model.MovieFilter) ([]model.MovieView, bool, error) {
	if err := filter.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if s.cache == nil {
		views, err := s.ListMovies(ctx, filter)
		return views, false, err
	}

	key := s.CacheKey(filter)
	if v, ok := s.cache.Get(key); ok {
		if views, ok := v.([]model.MovieView); ok {
			return views, true, nil
		}
	}

	views, err := s.ListMovies(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(key, views)
	return views, false, nil
}
