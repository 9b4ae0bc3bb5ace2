package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// SentinelReleaseDate 数据源没有上映日期时使用的占位日期
var SentinelReleaseDate = time.Date(1970, time.February, 1, 0, 0, 0, 0, time.UTC)

// DateLayout 对外输出日期的格式
const DateLayout = "2006-01-02"

// Movie 电影
// Metadata 保存数据源返回的原始记录，其中 "id" 为数据源的 title id
type Movie struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"not null"`
	ReleaseDate time.Time      `json:"release_date" gorm:"type:date;not null;index"`
	Image       string         `json:"image" gorm:"not null;default:''"`
	Metadata    datatypes.JSON `json:"-" gorm:"type:jsonb"`
	Actors      []Actor        `json:"actors,omitempty" gorm:"many2many:actor_movies;"`
}

// Actor 演员
// Metadata 保存数据源返回的原始记录，包含 knownForTitles，用于重新关联电影
type Actor struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"not null"`
	Birthdate *time.Time     `json:"birthdate" gorm:"type:date"`
	Metadata  datatypes.JSON `json:"-" gorm:"type:jsonb"`
	Movies    []Movie        `json:"movies,omitempty" gorm:"many2many:actor_movies;"`
}

// ActorMovie 演员与电影的多对多关联表
type ActorMovie struct {
	ActorID uint `gorm:"primaryKey"`
	MovieID uint `gorm:"primaryKey;index"`
}

func (ActorMovie) TableName() string {
	return "actor_movies"
}

// SourceTitleID 从 metadata 中取出数据源的 title id
func (m *Movie) SourceTitleID() string {
	var meta struct {
		ID string `json:"id"`
	}
	if len(m.Metadata) == 0 || json.Unmarshal(m.Metadata, &meta) != nil {
		return ""
	}
	return meta.ID
}

// KnownForTitles 从 metadata 中解析演员的代表作 title id 列表
func (a *Actor) KnownForTitles() []string {
	var meta struct {
		KnownForTitles *string `json:"knownForTitles"`
	}
	if len(a.Metadata) == 0 || json.Unmarshal(a.Metadata, &meta) != nil || meta.KnownForTitles == nil {
		return nil
	}
	return SplitTitles(*meta.KnownForTitles)
}

// SplitTitles 拆分逗号分隔的 title id，去掉空白和空项
func SplitTitles(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MovieView /movies 接口返回的电影结构（不含 metadata）
type MovieView struct {
	ID          uint        `json:"id"`
	Title       string      `json:"title"`
	ReleaseDate string      `json:"release_date"`
	Image       string      `json:"image"`
	Actors      []ActorView `json:"actors"`
}

// ActorView 电影下挂的演员信息
type ActorView struct {
	Name      string  `json:"name"`
	Birthdate *string `json:"birthdate"`
}

// ToView 投影为接口输出结构
func (m *Movie) ToView() MovieView {
	v := MovieView{
		ID:          m.ID,
		Title:       m.Title,
		ReleaseDate: m.ReleaseDate.UTC().Format(DateLayout),
		Image:       m.Image,
		Actors:      make([]ActorView, 0, len(m.Actors)),
	}
	for _, a := range m.Actors {
		av := ActorView{Name: a.Name}
		if a.Birthdate != nil {
			s := a.Birthdate.UTC().Format(DateLayout)
			av.Birthdate = &s
		}
		v.Actors = append(v.Actors, av)
	}
	return v
}
