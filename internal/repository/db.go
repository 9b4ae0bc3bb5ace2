package repository

import (
	"fmt"
	"time"

	"github.com/mattfreire/moviedb/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 批量插入每批条数
const insertBatchSize = 200

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// Migrate 建表：movies、actors 以及关联表 actor_movies
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Actor{}, "Movies", &model.ActorMovie{}); err != nil {
		return fmt.Errorf("setup join table: %w", err)
	}
	if err := db.SetupJoinTable(&model.Movie{}, "Actors", &model.ActorMovie{}); err != nil {
		return fmt.Errorf("setup join table: %w", err)
	}
	if err := db.AutoMigrate(&model.Movie{}, &model.Actor{}, &model.ActorMovie{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB      *gorm.DB
	Movie   *MovieRepository
	Actor   *ActorRepository
	Catalog *CatalogRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	movies := NewMovieRepository(db)
	actors := NewActorRepository(db)
	return &Repositories{
		DB:      db,
		Movie:   movies,
		Actor:   actors,
		Catalog: NewCatalogRepository(db, movies, actors),
	}
}
