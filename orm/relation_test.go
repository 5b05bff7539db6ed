package orm

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeignKeyInference(t *testing.T) {
	user, _, post, _ := defineBlog(t)

	assert.Equal(t, "user_id", user.relations["posts"].foreignKeyName())
	assert.Equal(t, "user_id", user.relations["profile"].foreignKeyName())
	assert.Equal(t, "user_id", post.relations["author"].foreignKeyName())
	assert.Equal(t, "tag_id", post.relations["tags"].relatedKeyName())

	pivot, err := post.relations["tags"].pivotTableName()
	require.NoError(t, err)
	assert.Equal(t, "posts_tags", pivot)
}

func TestRelationKeyOverrides(t *testing.T) {
	resetRegistry()
	Define("Author", Columns(Column{Name: "name"}))
	book := Define("Book",
		Columns(Column{Name: "title"}, Column{Name: "writer_id"}),
		BelongsTo("writer", "Author", ForeignKey("writer_id")),
		BelongsToMany("readers", "Reader", PivotTable("reads"), RelatedKey("reader_uuid")),
	)

	assert.Equal(t, "writer_id", book.relations["writer"].foreignKeyName())
	assert.Equal(t, "reader_uuid", book.relations["readers"].relatedKeyName())
	pivot, err := book.relations["readers"].pivotTableName()
	require.NoError(t, err)
	assert.Equal(t, "reads", pivot)
}

func TestUnresolvedRelationTarget(t *testing.T) {
	resetRegistry()
	m := Define("Orphan",
		Columns(Column{Name: "name"}),
		BelongsTo("ghost", "Ghost"),
	)

	rec := newRecord(m, map[string]any{"id": 1, "ghost_id": 2})
	proxy, err := rec.Relation("ghost")
	require.NoError(t, err)

	_, err = proxy.Load(context.Background())
	assert.ErrorIs(t, err, ErrUnresolvedRelationTarget)
}

func TestUnknownRelationName(t *testing.T) {
	u := defineUser(t)

	rec := newRecord(u, map[string]any{"id": 1})
	_, err := rec.Relation("nope")
	assert.ErrorIs(t, err, ErrUnresolvedRelationTarget)
}

func TestHasManyLoadAndCache(t *testing.T) {
	user, _, _, _ := defineBlog(t)
	mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, title, user_id FROM posts WHERE user_id = $1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id"}).
			AddRow(10, "First", 1).
			AddRow(11, "Second", 1))

	parent := newRecord(user, map[string]any{"id": 1, "name": "Ada"})
	proxy, err := parent.Relation("posts")
	require.NoError(t, err)

	posts, err := proxy.LoadMany(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "First", posts[0].GetString("title"))

	// Cached: no second query.
	again, err := proxy.LoadMany(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.True(t, proxy.Loaded())
}

func TestClearCacheForcesReload(t *testing.T) {
	user, _, _, _ := defineBlog(t)
	mock := newMock(t)
	ctx := context.Background()

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "title", "user_id"}).AddRow(10, "First", 1)
	}
	mock.ExpectQuery("SELECT id, title, user_id FROM posts WHERE user_id = $1").
		WithArgs(1).WillReturnRows(rows())
	mock.ExpectQuery("SELECT id, title, user_id FROM posts WHERE user_id = $1").
		WithArgs(1).WillReturnRows(rows())

	parent := newRecord(user, map[string]any{"id": 1})
	proxy, err := parent.Relation("posts")
	require.NoError(t, err)

	_, err = proxy.LoadMany(ctx)
	require.NoError(t, err)

	proxy.ClearCache()
	assert.False(t, proxy.Loaded())

	_, err = proxy.LoadMany(ctx)
	require.NoError(t, err)
}

func TestHasOneLoad(t *testing.T) {
	user, _, _, _ := defineBlog(t)
	mock := newMock(t)

	mock.ExpectQuery("SELECT id, bio, user_id FROM profiles WHERE user_id = $1 LIMIT 1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bio", "user_id"}).
			AddRow(5, "hello", 1))

	parent := newRecord(user, map[string]any{"id": 1})
	proxy, err := parent.Relation("profile")
	require.NoError(t, err)

	profile, err := proxy.LoadOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "hello", profile.GetString("bio"))
}

func TestHasOneEmptyResultIsCached(t *testing.T) {
	user, _, _, _ := defineBlog(t)
	mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, bio, user_id FROM profiles WHERE user_id = $1 LIMIT 1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bio", "user_id"}))

	parent := newRecord(user, map[string]any{"id": 1})
	proxy, err := parent.Relation("profile")
	require.NoError(t, err)

	profile, err := proxy.LoadOne(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile)
	assert.True(t, proxy.Loaded())

	// The empty result is cached too: no second query.
	profile, err = proxy.LoadOne(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestBelongsToLoad(t *testing.T) {
	_, _, post, _ := defineBlog(t)
	mock := newMock(t)

	mock.ExpectQuery("SELECT id, name FROM users WHERE id = $1 LIMIT 1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Ada"))

	rec := newRecord(post, map[string]any{"id": 10, "title": "First", "user_id": 1})
	proxy, err := rec.Relation("author")
	require.NoError(t, err)

	author, err := proxy.LoadOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, "Ada", author.GetString("name"))
}

func TestBelongsToNilForeignKeySkipsTheQuery(t *testing.T) {
	_, _, post, _ := defineBlog(t)

	rec := newRecord(post, map[string]any{"id": 10, "title": "First", "user_id": nil})
	proxy, err := rec.Relation("author")
	require.NoError(t, err)

	author, err := proxy.LoadOne(context.Background())
	require.NoError(t, err)
	assert.Nil(t, author)
}

func TestBelongsToManyLoadJoinsThroughThePivot(t *testing.T) {
	_, _, post, _ := defineBlog(t)
	mock := newMock(t)

	mock.ExpectQuery("SELECT t.id, t.name, p.post_id AS __parent_key FROM tags AS t JOIN posts_tags AS p ON p.tag_id = t.id WHERE p.post_id IN ($1)").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "__parent_key"}).
			AddRow(1, "go", 10).
			AddRow(2, "sql", 10))

	rec := newRecord(post, map[string]any{"id": 10, "title": "First"})
	proxy, err := rec.Relation("tags")
	require.NoError(t, err)

	tags, err := proxy.LoadMany(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].GetString("name"))
	// The pivot grouping column never leaks into the record.
	assert.Nil(t, tags[0].Get("__parent_key"))
}

func TestMutationsRequireTheMatchingKind(t *testing.T) {
	user, _, post, _ := defineBlog(t)
	ctx := context.Background()

	rec := newRecord(post, map[string]any{"id": 10, "user_id": 1})
	author, err := rec.Relation("author")
	require.NoError(t, err)

	_, err = author.Create(ctx, map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrRelationMutationUnsupported)

	parent := newRecord(user, map[string]any{"id": 1})
	posts, err := parent.Relation("posts")
	require.NoError(t, err)

	assert.ErrorIs(t, posts.Attach(ctx, []any{1}, nil), ErrRelationMutationUnsupported)
	_, err = posts.Toggle(ctx, []any{1}, nil)
	assert.ErrorIs(t, err, ErrRelationMutationUnsupported)
}

func TestHasManyCreateStampsTheForeignKey(t *testing.T) {
	user, _, _, _ := defineBlog(t)
	mock := newMock(t)

	mock.ExpectQuery("INSERT INTO posts (title, user_id) VALUES ($1, $2) RETURNING id").
		WithArgs("Fresh", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	parent := newRecord(user, map[string]any{"id": 1})
	proxy, err := parent.Relation("posts")
	require.NoError(t, err)

	child, err := proxy.Create(context.Background(), map[string]any{"title": "Fresh"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), child.GetInt64("id"))
	assert.Equal(t, int64(1), child.GetInt64("user_id"))
	assert.False(t, proxy.Loaded())
}

func TestHasManyDeleteAllAndCount(t *testing.T) {
	user, _, _, _ := defineBlog(t)
	mock := newMock(t)
	ctx := context.Background()

	parent := newRecord(user, map[string]any{"id": 1})
	proxy, err := parent.Relation("posts")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT(*) AS count FROM posts WHERE user_id = $1").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := proxy.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	mock.ExpectExec("DELETE FROM posts WHERE user_id = $1").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := proxy.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
