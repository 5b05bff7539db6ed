package orm

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shaurya/grail/db"
	"github.com/stretchr/testify/require"
)

// newMock installs a sqlmock-backed primary pool matching SQL by exact
// string equality. Expectations are verified on cleanup.
func newMock(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	db.SetPools(&db.Pools{Primary: conn})
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = conn.Close()
		db.SetPools(nil)
	})
	return mock
}

func defineUser(t *testing.T) *Model {
	t.Helper()
	resetRegistry()
	return Define("User",
		Columns(
			Column{Name: "name"},
			Column{Name: "email"},
			Column{Name: "age"},
			Column{Name: "status"},
		),
	)
}

// defineBlog registers the User / Profile / Post / Tag graph used by the
// relation tests.
func defineBlog(t *testing.T) (user, profile, post, tag *Model) {
	t.Helper()
	resetRegistry()
	user = Define("User",
		Columns(Column{Name: "name"}),
		HasOne("profile", "Profile"),
		HasMany("posts", "Post"),
	)
	profile = Define("Profile",
		Columns(Column{Name: "bio"}, Column{Name: "user_id"}),
	)
	post = Define("Post",
		Columns(Column{Name: "title"}, Column{Name: "user_id"}),
		BelongsTo("author", "User"),
		BelongsToMany("tags", "Tag"),
	)
	tag = Define("Tag",
		Columns(Column{Name: "name"}),
	)
	return user, profile, post, tag
}
