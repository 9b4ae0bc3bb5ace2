package service

import (
	"context"
	"fmt"

	"github.com/mattfreire/moviedb/internal/model"
	"go.uber.org/zap"
)

// titleIndex 数据源 title id -> 库内电影 id
// 同一个 title 可能被多位演员引用，因此会对应多行电影
type titleIndex map[string][]uint

func (idx titleIndex) add(titleID string, movieID uint) {
	idx[titleID] = append(idx[titleID], movieID)
}

// resolve 按 titles 的顺序展开电影 id，去重
func (idx titleIndex) resolve(titles []string) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, t := range titles {
		for _, id := range idx[t] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// linkInserted 用插入时回填的 ID 建立关联，每位演员一次写入
func linkInserted(ctx context.Context, store ActorStore, actors []*model.Actor, known [][]string, idx titleIndex) (int, error) {
	links := 0
	for i, a := range actors {
		ids := idx.resolve(known[i])
		if len(ids) == 0 {
			continue
		}
		if err := store.ReplaceMovies(ctx, a.ID, ids); err != nil {
			return links, fmt.Errorf("link actor %d: %w", a.ID, err)
		}
		links += len(ids)
	}
	return links, nil
}

// Relink 依据 metadata 重新计算全部演员与电影的关联
// 用于数据修复：读取所有演员，按 knownForTitles 查找电影并覆盖已有关联
func (l *Loader) Relink(ctx context.Context) (*RunReport, error) {
	report := &RunReport{Started: l.now()}
	l.log.Info("开始重新关联演员与电影")

	actors, err := l.store.AllActors(ctx)
	if err != nil {
		return report, &StageError{Stage: StageLink, Err: err}
	}
	report.Actors = int64(len(actors))

	for _, a := range actors {
		movies, err := l.store.MoviesBySourceIDs(ctx, a.KnownForTitles())
		if err != nil {
			return report, &StageError{Stage: StageLink, Err: fmt.Errorf("actor %d: %w", a.ID, err)}
		}
		ids := make([]uint, 0, len(movies))
		for _, m := range movies {
			ids = append(ids, m.ID)
		}
		if err := l.store.ReplaceMovies(ctx, a.ID, ids); err != nil {
			return report, &StageError{Stage: StageLink, Err: fmt.Errorf("actor %d: %w", a.ID, err)}
		}
		report.Links += len(ids)
	}

	l.flushCache()
	report.Finished = l.now()
	l.log.Info("重新关联完成", zap.Int64("actors", report.Actors), zap.Int("links", report.Links))
	return report, nil
}
