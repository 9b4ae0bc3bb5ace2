package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattfreire/moviedb/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// 导入流程的各阶段
const (
	StageClear       = "clear"
	StageFetchActors = "fetch_actors"
	StageFetchMovies = "fetch_movies"
	StageInsert      = "insert"
	StageLink        = "link"
)

var (
	// ErrNoActors 数据源没有返回任何演员（请求失败或响应无法解析）
	ErrNoActors = errors.New("source returned no actors")
	// ErrMissingIdentity 批量插入后没有拿到库内 ID
	ErrMissingIdentity = errors.New("insert did not return row identity")
)

// StageError 标记出错的阶段；清空阶段不会回滚
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// RunReport 一次导入的结果
type RunReport struct {
	Actors        int64     `json:"actors"`
	Movies        int64     `json:"movies"`
	Links         int       `json:"links"`
	SkippedTitles int       `json:"skipped_titles"`
	Started       time.Time `json:"started"`
	Finished      time.Time `json:"finished"`
}

// Loader 演员与电影导入流程
// 阶段顺序固定：清空 -> 拉取演员 -> 拉取电影 -> 批量插入 -> 建立关联
type Loader struct {
	source      MovieSource
	store       CatalogStore
	cache       CacheFlusher
	workers     int
	loadOnStart bool
	log         *zap.Logger
	group       singleflight.Group
	now         func() time.Time

	// 导入在 Loader 自己的 context 上执行，调用方取消不会中断进行中的导入
	ctx    context.Context
	cancel context.CancelFunc
}

// LoaderOptions 导入流程配置
type LoaderOptions struct {
	Workers     int  // 并发拉取电影详情的数量，<=1 为串行
	LoadOnStart bool // 是否在启动时执行
}

// NewLoader 创建导入流程，cache 可以为 nil
func NewLoader(source MovieSource, store CatalogStore, cache CacheFlusher, opts LoaderOptions, log *zap.Logger) *Loader {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		source:      source,
		store:       store,
		cache:       cache,
		workers:     workers,
		loadOnStart: opts.LoadOnStart,
		log:         log.Named("ingest"),
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Close 取消进行中的导入，进程退出前调用
func (l *Loader) Close() {
	l.cancel()
}

// LoadOnStart 启动钩子：开启 LOAD_ON_START 时执行一次完整导入
// 未开启时返回 nil, nil
func (l *Loader) LoadOnStart(ctx context.Context) (*RunReport, error) {
	if !l.loadOnStart {
		l.log.Info("LOAD_ON_START 未开启，跳过启动导入")
		return nil, nil
	}
	return l.Run(ctx)
}

// Run 执行一次完整导入；并发调用共享同一次执行
// ctx 只决定调用方等待多久，导入本身只会被 Close 取消
func (l *Loader) Run(ctx context.Context) (*RunReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := l.group.DoChan("load", func() (interface{}, error) {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(l.ctx, cancel)
		defer stop()
		return l.run(runCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			l.log.Info("复用进行中的导入")
		}
		report, _ := res.Val.(*RunReport)
		return report, res.Err
	case <-ctx.Done():
		l.log.Warn("调用方已取消，导入继续在后台执行", zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

// Clear 只清空数据，同时丢弃数据源的详情缓存
func (l *Loader) Clear(ctx context.Context) error {
	if err := l.clear(ctx); err != nil {
		return &StageError{Stage: StageClear, Err: err}
	}
	if r, ok := l.source.(CacheResetter); ok {
		r.ResetCache()
	}
	return nil
}

func (l *Loader) run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{Started: l.now()}

	if err := l.clear(ctx); err != nil {
		return report, &StageError{Stage: StageClear, Err: err}
	}

	l.log.Info("开始拉取演员")
	actors, err := l.source.FetchActors(ctx)
	if err != nil {
		return report, &StageError{Stage: StageFetchActors, Err: err}
	}
	if len(actors) == 0 {
		return report, &StageError{Stage: StageFetchActors, Err: ErrNoActors}
	}
	l.log.Info("拉取演员完成", zap.Int("actors", len(actors)))

	l.log.Info("开始拉取电影详情", zap.Int("workers", l.workers))
	movies, titleIDs, skipped, err := l.fetchMovies(ctx, actors)
	if err != nil {
		return report, &StageError{Stage: StageFetchMovies, Err: err}
	}
	report.SkippedTitles = skipped
	l.log.Info("拉取电影详情完成", zap.Int("movies", len(movies)), zap.Int("skipped", skipped))

	l.log.Info("开始批量插入")
	actorRows := make([]*model.Actor, 0, len(actors))
	known := make([][]string, 0, len(actors))
	for _, a := range actors {
		actorRows = append(actorRows, a.ActorRow())
		known = append(known, a.KnownForTitles)
	}
	if report.Actors, err = l.store.InsertActors(ctx, actorRows); err != nil {
		return report, &StageError{Stage: StageInsert, Err: fmt.Errorf("actors: %w", err)}
	}
	if report.Movies, err = l.store.InsertMovies(ctx, movies); err != nil {
		return report, &StageError{Stage: StageInsert, Err: fmt.Errorf("movies: %w", err)}
	}
	l.log.Info("批量插入完成", zap.Int64("actors", report.Actors), zap.Int64("movies", report.Movies))

	l.log.Info("开始建立关联")
	idx := make(titleIndex, len(movies))
	for i, m := range movies {
		if m.ID == 0 {
			return report, &StageError{Stage: StageLink, Err: ErrMissingIdentity}
		}
		idx.add(titleIDs[i], m.ID)
	}
	for _, a := range actorRows {
		if a.ID == 0 {
			return report, &StageError{Stage: StageLink, Err: ErrMissingIdentity}
		}
	}
	if report.Links, err = linkInserted(ctx, l.store, actorRows, known, idx); err != nil {
		return report, &StageError{Stage: StageLink, Err: err}
	}

	l.flushCache()
	report.Finished = l.now()
	l.log.Info("演员与电影导入并关联完成",
		zap.Int64("actors", report.Actors),
		zap.Int64("movies", report.Movies),
		zap.Int("links", report.Links),
		zap.Duration("elapsed", report.Finished.Sub(report.Started)),
	)
	return report, nil
}

func (l *Loader) clear(ctx context.Context) error {
	l.log.Info("开始清空数据")
	if err := l.store.ClearCatalog(ctx); err != nil {
		return err
	}
	l.flushCache()
	l.log.Info("清空数据完成")
	return nil
}

type titleTask struct {
	actor   int
	titleID string
}

// fetchMovies 按演员、代表作的顺序拉取详情；不去重，同一 title 被几位演员引用就生成几行
// 结果按任务下标回收，保证并发时的顺序与串行一致
// 返回的 title id 取自响应本身（即写入 metadata 的 id），与 Relink 的匹配键一致
func (l *Loader) fetchMovies(ctx context.Context, actors []SourceActor) ([]*model.Movie, []string, int, error) {
	var tasks []titleTask
	for i, a := range actors {
		for _, t := range a.KnownForTitles {
			tasks = append(tasks, titleTask{actor: i, titleID: t})
		}
	}

	results := make([]*SourceTitle, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := l.source.FetchTitle(gctx, task.titleID)
			if err != nil {
				return fmt.Errorf("actor %s title %s: %w", actors[task.actor].ID, task.titleID, err)
			}
			results[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}

	movies := make([]*model.Movie, 0, len(tasks))
	titleIDs := make([]string, 0, len(tasks))
	skipped := 0
	for _, t := range results {
		if t == nil {
			skipped++
			continue
		}
		movies = append(movies, t.MovieRow())
		titleIDs = append(titleIDs, t.ID)
	}
	return movies, titleIDs, skipped, nil
}

func (l *Loader) flushCache() {
	if l.cache != nil {
		l.cache.Flush()
	}
}
