// Package grailtest provides test harness helpers: a sqlmock-backed pool
// setup and a factory for model records.
package grailtest

import (
	"database/sql"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shaurya/grail/db"
	"github.com/stretchr/testify/require"
)

// Suite wires a mocked primary pool (and optionally a mocked replica)
// into the global connection slot for the duration of a test.
type Suite struct {
	Conn        *sql.DB
	Mock        sqlmock.Sqlmock
	ReplicaConn *sql.DB
	ReplicaMock sqlmock.Sqlmock
	Factory     *Factory
	t           *testing.T
}

// NewSuite creates a suite with a mocked primary pool installed. The
// mock matches SQL by exact string equality, so expectations read like
// the statements the engine renders.
func NewSuite(t *testing.T) *Suite {
	t.Helper()
	os.Setenv("APP_ENV", "test")

	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	db.SetPools(&db.Pools{Primary: conn})

	return &Suite{
		Conn:    conn,
		Mock:    mock,
		Factory: NewFactory(),
		t:       t,
	}
}

// WithReplica adds a mocked read replica, so tests can assert routing.
func (s *Suite) WithReplica() sqlmock.Sqlmock {
	s.t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(s.t, err)

	s.ReplicaConn = conn
	s.ReplicaMock = mock
	db.SetPools(&db.Pools{Primary: s.Conn, Replica: conn})
	return mock
}

// Close verifies every expectation was met and releases the pools.
func (s *Suite) Close() {
	s.t.Helper()
	require.NoError(s.t, s.Mock.ExpectationsWereMet())
	if s.ReplicaMock != nil {
		require.NoError(s.t, s.ReplicaMock.ExpectationsWereMet())
	}

	_ = s.Conn.Close()
	if s.ReplicaConn != nil {
		_ = s.ReplicaConn.Close()
	}
	db.SetPools(nil)
}
