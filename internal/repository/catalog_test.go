package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/mattfreire/moviedb/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errNoDatabase = errors.New("dry run: no database")

// noopConn 满足 gorm.ConnPool，DryRun 下不会被真正调用
type noopConn struct{}

func (noopConn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, errNoDatabase
}

func (noopConn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNoDatabase
}

func (noopConn) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errNoDatabase
}

func (noopConn) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

// txPool 让 Transaction 在 DryRun 下也能开启和提交
type txPool struct {
	noopConn
	committed int
}

func (p *txPool) BeginTx(ctx context.Context, opts *sql.TxOptions) (gorm.ConnPool, error) {
	return &txConn{pool: p}, nil
}

type txConn struct {
	noopConn
	pool *txPool
}

func (t *txConn) Commit() error {
	t.pool.committed++
	return nil
}

func (t *txConn) Rollback() error { return nil }

type capturedSQL struct {
	SQL  string
	Vars []interface{}
}

// recordingDB 返回 DryRun 的 DB，并记录每条生成的 INSERT / DELETE / SELECT
func recordingDB(t *testing.T) (*gorm.DB, *txPool, *[]capturedSQL) {
	t.Helper()
	pool := &txPool{}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: pool}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	var out []capturedSQL
	record := func(tx *gorm.DB) {
		out = append(out, capturedSQL{
			SQL:  tx.Statement.SQL.String(),
			Vars: append([]interface{}(nil), tx.Statement.Vars...),
		})
	}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:record_create", record))
	require.NoError(t, db.Callback().Delete().After("gorm:delete").Register("test:record_delete", record))
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:record_query", record))
	return db, pool, &out
}

func TestInsertMoviesReturnsID(t *testing.T) {
	db, _, stmts := recordingDB(t)
	movies := []*model.Movie{
		{Title: "M1", ReleaseDate: time.Date(2001, 5, 4, 0, 0, 0, 0, time.UTC), Image: "a.jpg", Metadata: []byte(`{"id":"t1"}`)},
		{Title: "M2", ReleaseDate: model.SentinelReleaseDate, Image: "b.jpg", Metadata: []byte(`{"id":"t2"}`)},
	}

	_, err := NewMovieRepository(db).InsertMovies(context.Background(), movies)
	require.NoError(t, err)

	require.Len(t, *stmts, 1)
	got := (*stmts)[0]
	assert.Contains(t, got.SQL, `INSERT INTO "movies"`)
	assert.Contains(t, got.SQL, `RETURNING "id"`)
	assert.NotContains(t, got.SQL, "actor_movies")
	assert.Len(t, got.Vars, 8)
}

func TestInsertActorsReturnsID(t *testing.T) {
	db, _, stmts := recordingDB(t)
	born := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	actors := []*model.Actor{
		{Name: "A", Birthdate: &born, Metadata: []byte(`{"knownForTitles":"t1"}`)},
		{Name: "B", Metadata: []byte(`{}`)},
	}

	_, err := NewActorRepository(db).InsertActors(context.Background(), actors)
	require.NoError(t, err)

	require.Len(t, *stmts, 1)
	assert.Contains(t, (*stmts)[0].SQL, `INSERT INTO "actors"`)
	assert.Contains(t, (*stmts)[0].SQL, `RETURNING "id"`)
}

func TestInsertEmptyIsNoop(t *testing.T) {
	db, _, stmts := recordingDB(t)

	n, err := NewMovieRepository(db).InsertMovies(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = NewActorRepository(db).InsertActors(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, *stmts)
}

func TestClearCatalogDeletesAllTables(t *testing.T) {
	db, pool, stmts := recordingDB(t)
	repos := NewRepositories(db)

	require.NoError(t, repos.Catalog.ClearCatalog(context.Background()))

	require.Len(t, *stmts, 3)
	assert.Equal(t, `DELETE FROM "actor_movies"`, (*stmts)[0].SQL)
	assert.Equal(t, `DELETE FROM "actors"`, (*stmts)[1].SQL)
	assert.Equal(t, `DELETE FROM "movies"`, (*stmts)[2].SQL)
	assert.Equal(t, 1, pool.committed)
}

func TestReplaceMovies(t *testing.T) {
	db, pool, stmts := recordingDB(t)

	require.NoError(t, NewActorRepository(db).ReplaceMovies(context.Background(), 7, []uint{3, 5}))

	require.Len(t, *stmts, 2)
	del := (*stmts)[0]
	assert.Contains(t, del.SQL, `DELETE FROM "actor_movies" WHERE actor_id = $1`)
	assert.Equal(t, []interface{}{uint(7)}, del.Vars)

	ins := (*stmts)[1]
	assert.Contains(t, ins.SQL, `INSERT INTO "actor_movies"`)
	assert.Contains(t, ins.SQL, "ON CONFLICT DO NOTHING")
	assert.Equal(t, []interface{}{uint(7), uint(3), uint(7), uint(5)}, ins.Vars)
	assert.Equal(t, 1, pool.committed)
}

func TestReplaceMoviesWithNoMoviesOnlyDeletes(t *testing.T) {
	db, _, stmts := recordingDB(t)

	require.NoError(t, NewActorRepository(db).ReplaceMovies(context.Background(), 7, nil))

	require.Len(t, *stmts, 1)
	assert.Contains(t, (*stmts)[0].SQL, `DELETE FROM "actor_movies"`)
}

func TestMoviesBySourceIDs(t *testing.T) {
	db, _, stmts := recordingDB(t)

	_, err := NewMovieRepository(db).MoviesBySourceIDs(context.Background(), []string{"t1", "t2"})
	require.NoError(t, err)

	require.Len(t, *stmts, 1)
	got := (*stmts)[0]
	assert.Contains(t, got.SQL, `FROM "movies" WHERE metadata->>'id' = ANY($1)`)
	assert.Contains(t, got.SQL, "ORDER BY id")
	require.Len(t, got.Vars, 1)
	arr, ok := got.Vars[0].(*pq.StringArray)
	require.True(t, ok, "expected *pq.StringArray, got %T", got.Vars[0])
	assert.Equal(t, pq.StringArray{"t1", "t2"}, *arr)
}

func TestMoviesBySourceIDsEmpty(t *testing.T) {
	db, _, stmts := recordingDB(t)

	movies, err := NewMovieRepository(db).MoviesBySourceIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, movies)
	assert.Empty(t, *stmts)
}
