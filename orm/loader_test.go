package orm

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEagerLoadHasManyBatchesIntoOneQuery(t *testing.T) {
	user, _, _, _ := defineBlog(t)
	mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Ada").
			AddRow(2, "Grace").
			AddRow(3, "Edsger"))
	// One IN query covers every parent, regardless of how many there are.
	mock.ExpectQuery("SELECT id, title, user_id FROM posts WHERE user_id IN ($1, $2, $3)").
		WithArgs(1, 2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id"}).
			AddRow(10, "First", 1).
			AddRow(11, "Second", 1).
			AddRow(12, "Third", 2))

	records, err := user.Query().With("posts").Get(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Every proxy is populated; loads below issue zero further queries.
	for _, rec := range records {
		proxy, err := rec.Relation("posts")
		require.NoError(t, err)
		assert.True(t, proxy.Loaded())
	}

	p0, _ := records[0].Relation("posts")
	posts, err := p0.LoadMany(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	p2, _ := records[2].Relation("posts")
	posts, err = p2.LoadMany(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestEagerLoadBelongsToDeduplicatesParentKeys(t *testing.T) {
	_, _, post, _ := defineBlog(t)
	mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, title, user_id FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id"}).
			AddRow(10, "First", 1).
			AddRow(11, "Second", 1).
			AddRow(12, "Third", 2))
	// Two distinct user ids across three posts.
	mock.ExpectQuery("SELECT id, name FROM users WHERE id IN ($1, $2)").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Ada").
			AddRow(2, "Grace"))

	records, err := post.Query().With("author").Get(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	a0, _ := records[0].Relation("author")
	author, err := a0.LoadOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", author.GetString("name"))

	a2, _ := records[2].Relation("author")
	author, err = a2.LoadOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Grace", author.GetString("name"))
}

func TestEagerLoadHasOneCachesEmptyResults(t *testing.T) {
	user, _, _, _ := defineBlog(t)
	mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "Ada").
			AddRow(2, "Grace"))
	mock.ExpectQuery("SELECT id, bio, user_id FROM profiles WHERE user_id IN ($1, $2)").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bio", "user_id"}).
			AddRow(5, "hello", 1))

	records, err := user.Query().With("profile").Get(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	p0, _ := records[0].Relation("profile")
	profile, err := p0.LoadOne(ctx)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "hello", profile.GetString("bio"))

	// The parent without a profile is cached as absent, not refetched.
	p1, _ := records[1].Relation("profile")
	assert.True(t, p1.Loaded())
	profile, err = p1.LoadOne(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestEagerLoadBelongsToManyGroupsThroughThePivot(t *testing.T) {
	_, _, post, _ := defineBlog(t)
	mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, title, user_id FROM posts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id"}).
			AddRow(10, "First", 1).
			AddRow(11, "Second", 1))
	mock.ExpectQuery("SELECT t.id, t.name, p.post_id AS __parent_key FROM tags AS t JOIN posts_tags AS p ON p.tag_id = t.id WHERE p.post_id IN ($1, $2)").
		WithArgs(10, 11).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "__parent_key"}).
			AddRow(1, "go", 10).
			AddRow(2, "sql", 10).
			AddRow(1, "go", 11))

	records, err := post.Query().With("tags").Get(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	t0, _ := records[0].Relation("tags")
	tags, err := t0.LoadMany(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	t1, _ := records[1].Relation("tags")
	tags, err = t1.LoadMany(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "go", tags[0].GetString("name"))
}

func TestEagerLoadUnknownRelation(t *testing.T) {
	user, _, _, _ := defineBlog(t)

	rec := newRecord(user, map[string]any{"id": 1})
	err := EagerLoad(context.Background(), []*Record{rec}, "nope")
	assert.ErrorIs(t, err, ErrUnresolvedRelationTarget)
}

func TestEagerLoadNoRecordsIsANoop(t *testing.T) {
	require.NoError(t, EagerLoad(context.Background(), nil, "posts"))
}
