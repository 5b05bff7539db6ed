package orm

import (
	"strings"
	"time"

	"github.com/shaurya/grail/cache"
)

// Column describes one attribute of a model: its column name, whether it
// is the primary key, and an optional validator/v10 rule tag applied on
// create and save.
type Column struct {
	Name       string
	PrimaryKey bool
	Rules      string
}

// Model is the per-type handle produced by Define. It carries the
// metadata (table, columns, primary key), the scope registries, the
// relation definitions and the lifecycle hooks for one registered model
// type, and exposes the query surface (Query, Find, Create, ...).
//
// A Model is written only inside Define, before traffic begins, and is
// read-only afterwards.
type Model struct {
	name    string
	table   string
	columns []Column
	colSet  map[string]Column
	pk      string

	timestamps      bool
	softDelete      bool
	deletedAtColumn string

	scopes       map[string]ScopeFunc
	globalScopes []namedGlobalScope

	relations map[string]*Relation

	hooks hooks

	cache    cache.Cache
	cacheTTL time.Duration
}

// Option configures a model at definition time.
type Option func(*Model)

// Table overrides the default table name (lowercased model name + "s").
func Table(name string) Option {
	return func(m *Model) { m.table = name }
}

// Columns declares the model's column set. The column marked PrimaryKey
// becomes the primary key; without one, "id" is assumed.
func Columns(cols ...Column) Option {
	return func(m *Model) {
		for _, c := range cols {
			m.addColumn(c)
			if c.PrimaryKey {
				m.pk = c.Name
			}
		}
	}
}

// Timestamps stamps created_at/updated_at automatically on create and
// update. The columns are added when not declared.
func Timestamps() Option {
	return func(m *Model) {
		m.timestamps = true
		m.addColumn(Column{Name: "created_at"})
		m.addColumn(Column{Name: "updated_at"})
	}
}

// SoftDeletes opts the model into soft deletion on the default
// deleted_at column.
func SoftDeletes() Option {
	return SoftDeletesColumn("deleted_at")
}

// SoftDeletesColumn opts the model into soft deletion on a custom
// column, and registers the soft-delete filter as a global scope.
func SoftDeletesColumn(column string) Option {
	return func(m *Model) {
		m.softDelete = true
		m.deletedAtColumn = column
		m.addColumn(Column{Name: column})
		col := column
		m.globalScopes = append(m.globalScopes, namedGlobalScope{
			name: SoftDeleteScope,
			fn:   func(q *Query) *Query { return q.WhereNull(col) },
		})
	}
}

// Scope registers a named local scope, dispatched by name through
// ScopedQuery.Scope.
func Scope(name string, fn ScopeFunc) Option {
	return func(m *Model) { m.scopes[name] = fn }
}

// GlobalScope registers a global scope auto-applied, in registration
// order, to every fresh ScopedQuery for this model.
func GlobalScope(name string, fn GlobalScopeFunc) Option {
	return func(m *Model) {
		m.globalScopes = append(m.globalScopes, namedGlobalScope{name: name, fn: fn})
	}
}

// CacheRecords caches records fetched by Find in the given store.
// Mutations invalidate the cached entry.
func CacheRecords(c cache.Cache, ttl time.Duration) Option {
	return func(m *Model) {
		m.cache = c
		m.cacheTTL = ttl
	}
}

func (m *Model) addColumn(c Column) {
	if _, ok := m.colSet[c.Name]; ok {
		return
	}
	m.columns = append(m.columns, c)
	m.colSet[c.Name] = c
}

// Name returns the registered model name.
func (m *Model) Name() string { return m.name }

// TableName returns the backing table.
func (m *Model) TableName() string { return m.table }

// PrimaryKeyName returns the primary key column, "id" by default.
func (m *Model) PrimaryKeyName() string { return m.pk }

// ColumnNames returns the declared columns in definition order.
func (m *Model) ColumnNames() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the column is declared on the model.
func (m *Model) HasColumn(name string) bool {
	_, ok := m.colSet[name]
	return ok
}

// SoftDeleteEnabled reports whether the model opted into soft deletion.
func (m *Model) SoftDeleteEnabled() bool { return m.softDelete }

// DeletedAtColumn returns the soft-delete column, or "" when disabled.
func (m *Model) DeletedAtColumn() string { return m.deletedAtColumn }

func (m *Model) columnList() string {
	return strings.Join(m.ColumnNames(), ", ")
}
