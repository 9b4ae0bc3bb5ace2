package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattfreire/moviedb/internal/model"
)

// memStore 内存版存储，行为与 repository 包保持一致：插入时回填自增 ID
type memStore struct {
	mu        sync.Mutex
	nextActor uint
	nextMovie uint
	actors    []model.Actor
	movies    []model.Movie
	links     map[uint][]uint

	failInsertMovies error
	insertActorCalls int
	replaceCalls     int
}

func newMemStore() *memStore {
	return &memStore{links: map[uint][]uint{}}
}

func (s *memStore) ClearCatalog(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actors, s.movies = nil, nil
	s.links = map[uint][]uint{}
	return nil
}

func (s *memStore) InsertActors(ctx context.Context, actors []*model.Actor) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertActorCalls++
	for _, a := range actors {
		s.nextActor++
		a.ID = s.nextActor
		s.actors = append(s.actors, *a)
	}
	return int64(len(actors)), nil
}

func (s *memStore) InsertMovies(ctx context.Context, movies []*model.Movie) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsertMovies != nil {
		return 0, s.failInsertMovies
	}
	for _, m := range movies {
		s.nextMovie++
		m.ID = s.nextMovie
		s.movies = append(s.movies, *m)
	}
	return int64(len(movies)), nil
}

func (s *memStore) AllActors(ctx context.Context) ([]model.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Actor(nil), s.actors...), nil
}

func (s *memStore) MoviesBySourceIDs(ctx context.Context, titleIDs []string) ([]model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]bool{}
	for _, id := range titleIDs {
		want[id] = true
	}
	var out []model.Movie
	for _, m := range s.movies {
		if want[m.SourceTitleID()] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ReplaceMovies(ctx context.Context, actorID uint, movieIDs []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	ids := append([]uint(nil), movieIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	s.links[actorID] = ids
	return nil
}

func (s *memStore) Search(ctx context.Context, f model.MovieFilter) ([]model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Movie
	for _, m := range s.movies {
		if f.TitleContains != "" && !strings.Contains(m.Title, f.TitleContains) {
			continue
		}
		if !matchDates(m.ReleaseDate, f.ReleaseDate) {
			continue
		}
		m.Actors = nil
		for _, a := range s.actors {
			for _, id := range s.links[a.ID] {
				if id == m.ID {
					m.Actors = append(m.Actors, a)
				}
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func matchDates(d time.Time, conds []model.DateCondition) bool {
	for _, c := range conds {
		var ok bool
		switch c.Op {
		case model.DateBefore:
			ok = d.Before(c.Value)
		case model.DateOnOrBefore:
			ok = !d.After(c.Value)
		case model.DateOn:
			ok = d.Equal(c.Value)
		case model.DateOnOrAfter:
			ok = !d.Before(c.Value)
		case model.DateAfter:
			ok = d.After(c.Value)
		}
		if !ok {
			return false
		}
	}
	return true
}

// movieTitles 按 ID 顺序列出电影标题
func (s *memStore) movieTitles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.movies {
		out = append(out, m.Title)
	}
	return out
}

// linkedTitles 某位演员关联的电影标题（排序后）
func (s *memStore) linkedTitles(actorID uint) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, id := range s.links[actorID] {
		for _, m := range s.movies {
			if m.ID == id {
				out = append(out, m.Title)
			}
		}
	}
	sort.Strings(out)
	return out
}

var errTransport = errors.New("connection reset by peer")

// fakeSource 可编排的数据源
type fakeSource struct {
	mu        sync.Mutex
	actors    []SourceActor
	actorsErr error
	titles    map[string]*SourceTitle
	titleErr  map[string]error
	delay     func(titleID string) time.Duration
	gate      chan struct{} // 非 nil 时 FetchTitle 阻塞到 gate 关闭或 ctx 取消
	calls     []string
	resets    int
}

func (f *fakeSource) ResetCache() {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
}

func (f *fakeSource) FetchActors(ctx context.Context) ([]SourceActor, error) {
	return f.actors, f.actorsErr
}

func (f *fakeSource) FetchTitle(ctx context.Context, titleID string) (*SourceTitle, error) {
	f.mu.Lock()
	f.calls = append(f.calls, titleID)
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay != nil {
		time.Sleep(f.delay(titleID))
	}
	if err := f.titleErr[titleID]; err != nil {
		return nil, err
	}
	t, ok := f.titles[titleID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeSource) titleCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// sourceTitle 构造带原始 JSON 的电影，month=0 表示没有上映日期
func sourceTitle(id, title string, year, month, day int) *SourceTitle {
	return &SourceTitle{
		ID:           id,
		Title:        title,
		ReleaseYear:  year,
		ReleaseMonth: month,
		ReleaseDay:   day,
		Raw:          []byte(`{"id":"` + id + `","titleText":{"text":"` + title + `"}}`),
	}
}

func sourceActor(id, name string, birthYear int, titles ...string) SourceActor {
	return SourceActor{
		ID:             id,
		Name:           name,
		BirthYear:      birthYear,
		KnownForTitles: titles,
		Raw:            []byte(`{"nconst":"` + id + `","primaryName":"` + name + `","knownForTitles":"` + strings.Join(titles, ",") + `"}`),
	}
}

type countingFlusher struct {
	mu    sync.Mutex
	count int
}

func (c *countingFlusher) Flush() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}
