package repository

import (
	"context"

	"github.com/mattfreire/moviedb/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActorRepository struct {
	db *gorm.DB
}

func NewActorRepository(db *gorm.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

// InsertActors 批量插入演员，插入后每条记录的 ID 会被回填
func (r *ActorRepository) InsertActors(ctx context.Context, actors []*model.Actor) (int64, error) {
	if len(actors) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		CreateInBatches(actors, insertBatchSize)
	return result.RowsAffected, result.Error
}

// AllActors 读取全部演员
func (r *ActorRepository) AllActors(ctx context.Context) ([]model.Actor, error) {
	var actors []model.Actor
	err := r.db.WithContext(ctx).Order("id").Find(&actors).Error
	return actors, err
}

// ReplaceMovies 用给定的电影列表替换演员现有的关联
func (r *ActorRepository) ReplaceMovies(ctx context.Context, actorID uint, movieIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("actor_id = ?", actorID).Delete(&model.ActorMovie{}).Error; err != nil {
			return err
		}
		if len(movieIDs) == 0 {
			return nil
		}
		rows := make([]model.ActorMovie, 0, len(movieIDs))
		for _, id := range movieIDs {
			rows = append(rows, model.ActorMovie{ActorID: actorID, MovieID: id})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}
