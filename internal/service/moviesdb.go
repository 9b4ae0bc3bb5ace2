package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/mattfreire/moviedb/internal/config"
	"github.com/mattfreire/moviedb/internal/model"
	"github.com/mattfreire/moviedb/internal/utils"
	"go.uber.org/zap"
)

// MovieSource 外部影视数据源
// 不做重试；响应异常时记录日志并降级为空，网络层错误原样返回
type MovieSource interface {
	// FetchActors 获取一页演员
	FetchActors(ctx context.Context) ([]SourceActor, error)

	// FetchTitle 获取单部电影详情，数据源没有该 id 时返回 nil
	FetchTitle(ctx context.Context, titleID string) (*SourceTitle, error)
}

// SourceActor 归一化后的演员记录
type SourceActor struct {
	ID             string
	Name           string
	BirthYear      int
	KnownForTitles []string
	Raw            json.RawMessage
}

// SourceTitle 归一化后的电影记录，月份从 1 开始，0 表示未知
// ID 是响应中的 id，可能与请求时使用的 id 不同
type SourceTitle struct {
	ID           string
	Title        string
	Image        string
	ReleaseYear  int
	ReleaseMonth int
	ReleaseDay   int
	Raw          json.RawMessage
}

// ActorRow 转换为待入库的演员，生日按出生年份的 1 月 1 日记
func (a SourceActor) ActorRow() *model.Actor {
	row := &model.Actor{
		Name:     a.Name,
		Metadata: []byte(a.Raw),
	}
	if a.BirthYear > 0 {
		d := time.Date(a.BirthYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		row.Birthdate = &d
	}
	return row
}

// MovieRow 转换为待入库的电影
func (t SourceTitle) MovieRow() *model.Movie {
	return &model.Movie{
		Title:       t.Title,
		ReleaseDate: t.ReleaseDateOrSentinel(),
		Image:       t.Image,
		Metadata:    []byte(t.Raw),
	}
}

// ReleaseDateOrSentinel 没有年份或月份时返回占位日期，缺日或日期不存在时按 1 号
func (t SourceTitle) ReleaseDateOrSentinel() time.Time {
	if t.ReleaseYear <= 0 || t.ReleaseMonth < 1 || t.ReleaseMonth > 12 {
		return model.SentinelReleaseDate
	}
	month := time.Month(t.ReleaseMonth)
	day := t.ReleaseDay
	if day < 1 || day > daysIn(t.ReleaseYear, month) {
		day = 1
	}
	return time.Date(t.ReleaseYear, month, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// actorsResponse /actors 接口响应
type actorsResponse struct {
	Page    int               `json:"page"`
	Next    string            `json:"next"`
	Entries int               `json:"entries"`
	Results []json.RawMessage `json:"results"`
}

type actorResult struct {
	ID             string  `json:"_id"`
	Nconst         string  `json:"nconst"`
	PrimaryName    string  `json:"primaryName"`
	BirthYear      *int    `json:"birthYear"`
	KnownForTitles *string `json:"knownForTitles"`
}

// titleResponse /titles/{id} 接口响应，results 可能为 null
type titleResponse struct {
	Results json.RawMessage `json:"results"`
}

type titleResult struct {
	ID           string `json:"id"`
	PrimaryImage *struct {
		URL string `json:"url"`
	} `json:"primaryImage"`
	TitleText *struct {
		Text string `json:"text"`
	} `json:"titleText"`
	ReleaseDate *struct {
		Year  int  `json:"year"`
		Month int  `json:"month"`
		Day   *int `json:"day"`
	} `json:"releaseDate"`
}

// MoviesDBClient RapidAPI moviesdatabase 客户端
type MoviesDBClient struct {
	http    *utils.HTTPClient
	baseURL string
	titles  *utils.SearchCache[*SourceTitle]
	log     *zap.Logger
}

// NewMoviesDBClient 创建数据源客户端
func NewMoviesDBClient(cfg config.SourceConfig, log *zap.Logger) *MoviesDBClient {
	headers := map[string]string{
		"x-rapidapi-key":  cfg.APIKey,
		"x-rapidapi-host": cfg.Host,
	}
	c := &MoviesDBClient{
		http:    utils.NewHTTPClient(cfg.Timeout, headers, cfg.RateLimit),
		baseURL: cfg.BaseURL,
		log:     log.Named("moviesdb"),
	}
	if cfg.TitleCacheSize > 0 {
		c.titles = utils.NewSearchCache[*SourceTitle](cfg.TitleCacheSize, time.Hour)
	}
	return c
}

// ResetCache 清空电影详情缓存
func (c *MoviesDBClient) ResetCache() {
	if c.titles != nil {
		c.titles.Clear()
	}
}

// FetchActors 获取一页演员
func (c *MoviesDBClient) FetchActors(ctx context.Context) ([]SourceActor, error) {
	var resp actorsResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/actors", &resp); err != nil {
		if utils.IsResponseError(err) {
			c.log.Error("获取演员失败", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("fetch actors: %w", err)
	}

	actors := make([]SourceActor, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var r actorResult
		if err := json.Unmarshal(raw, &r); err != nil {
			c.log.Warn("跳过无法解析的演员记录", zap.Error(err))
			continue
		}
		a := SourceActor{
			ID:   r.Nconst,
			Name: r.PrimaryName,
			Raw:  raw,
		}
		if a.ID == "" {
			a.ID = r.ID
		}
		if r.BirthYear != nil {
			a.BirthYear = *r.BirthYear
		}
		if r.KnownForTitles != nil {
			a.KnownForTitles = model.SplitTitles(*r.KnownForTitles)
		}
		actors = append(actors, a)
	}
	c.log.Info("获取演员完成", zap.Int("page", resp.Page), zap.Int("count", len(actors)))
	return actors, nil
}

// FetchTitle 获取单部电影详情
func (c *MoviesDBClient) FetchTitle(ctx context.Context, titleID string) (*SourceTitle, error) {
	if c.titles != nil {
		if t, ok := c.titles.Get(titleID); ok {
			return t, nil
		}
	}

	var resp titleResponse
	endpoint := c.baseURL + "/titles/" + url.PathEscape(titleID)
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		if utils.IsResponseError(err) {
			c.log.Error("获取电影详情失败", zap.String("title_id", titleID), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("fetch title %s: %w", titleID, err)
	}
	if len(resp.Results) == 0 || string(resp.Results) == "null" {
		c.log.Debug("数据源没有该电影", zap.String("title_id", titleID))
		return nil, nil
	}

	var r titleResult
	if err := json.Unmarshal(resp.Results, &r); err != nil {
		c.log.Error("解析电影详情失败", zap.String("title_id", titleID), zap.Error(err))
		return nil, nil
	}

	// ID 只取响应里的 id，与 metadata 保持一致
	t := &SourceTitle{
		ID:  r.ID,
		Raw: resp.Results,
	}
	if r.TitleText != nil {
		t.Title = r.TitleText.Text
	}
	if r.PrimaryImage != nil {
		t.Image = r.PrimaryImage.URL
	}
	if r.ReleaseDate != nil {
		t.ReleaseYear = r.ReleaseDate.Year
		t.ReleaseMonth = r.ReleaseDate.Month
		if r.ReleaseDate.Day != nil {
			t.ReleaseDay = *r.ReleaseDate.Day
		}
	}

	if c.titles != nil {
		c.titles.Set(titleID, t)
	}
	return t, nil
}
