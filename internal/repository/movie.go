package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattfreire/moviedb/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// InsertMovies 批量插入电影，插入后每条记录的 ID 会被回填
func (r *MovieRepository) InsertMovies(ctx context.Context, movies []*model.Movie) (int64, error) {
	if len(movies) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		CreateInBatches(movies, insertBatchSize)
	return result.RowsAffected, result.Error
}

// MoviesBySourceIDs 按 metadata 中的数据源 title id 查找电影
func (r *MovieRepository) MoviesBySourceIDs(ctx context.Context, titleIDs []string) ([]model.Movie, error) {
	if len(titleIDs) == 0 {
		return nil, nil
	}
	var movies []model.Movie
	err := r.db.WithContext(ctx).
		Where("metadata->>'id' = ANY(?)", pq.Array(titleIDs)).
		Order("id").
		Find(&movies).Error
	return movies, err
}

// Search 按筛选条件查询电影，并带出演员的姓名和生日
func (r *MovieRepository) Search(ctx context.Context, filter model.MovieFilter) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).
		Scopes(MovieFilterScope(filter)).
		Preload("Actors", func(db *gorm.DB) *gorm.DB {
			return db.Select("actors.id", "actors.name", "actors.birthdate").Order("actors.id")
		}).
		Order("movies.id").
		Find(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("search movies: %w", err)
	}
	return movies, nil
}

// MovieFilterScope 把筛选条件翻译成 WHERE 子句
// 比较符来自固定映射表，调用方需先通过 Validate
func MovieFilterScope(filter model.MovieFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.TitleContains != "" {
			db = db.Where("movies.title LIKE ?", "%"+escapeLike(filter.TitleContains)+"%")
		}
		for _, c := range filter.ReleaseDate {
			op, ok := c.Op.SQL()
			if !ok {
				continue
			}
			db = db.Where("movies.release_date "+op+" ?", c.Value.UTC().Format(model.DateLayout))
		}
		return db
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike 转义 LIKE 通配符，让用户输入按字面匹配
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
