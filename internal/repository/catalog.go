package repository

import (
	"context"
	"fmt"

	"github.com/mattfreire/moviedb/internal/model"
	"gorm.io/gorm"
)

// CatalogRepository 组合电影和演员仓库，供导入流程整体使用
type CatalogRepository struct {
	*MovieRepository
	*ActorRepository
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB, movies *MovieRepository, actors *ActorRepository) *CatalogRepository {
	return &CatalogRepository{MovieRepository: movies, ActorRepository: actors, db: db}
}

// ClearCatalog 在一个事务里清空关联、演员和电影
func (r *CatalogRepository) ClearCatalog(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, m := range []any{&model.ActorMovie{}, &model.Actor{}, &model.Movie{}} {
			if err := all.Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		return nil
	})
}
