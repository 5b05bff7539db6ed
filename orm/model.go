package orm

import (
	"context"
	"fmt"
)

// Public query surface per model type.

// Query returns a fresh ScopedQuery with every registered global scope
// applied in registration order.
func (m *Model) Query() *ScopedQuery {
	return newScopedQuery(m, nil)
}

// Where starts a scoped query with one condition.
func (m *Model) Where(column string, args ...any) *ScopedQuery {
	return m.Query().Where(column, args...)
}

// Find fetches one record by primary key, or nil when absent. When a
// record cache is configured it is consulted first; mutations keep it
// coherent by invalidation.
func (m *Model) Find(ctx context.Context, pk any) (*Record, error) {
	if rec := m.cachedRecord(ctx, pk); rec != nil {
		return rec, nil
	}
	rec, err := m.Query().Where(m.pk, pk).First(ctx)
	if err != nil || rec == nil {
		return nil, err
	}
	rec.storeInCache(ctx)
	return rec, nil
}

// FindOrFail is the fail-loud Find.
func (m *Model) FindOrFail(ctx context.Context, pk any) (*Record, error) {
	rec, err := m.Find(ctx, pk)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, m.name, pk)
	}
	return rec, nil
}

// All returns every record visible under the global scopes.
func (m *Model) All(ctx context.Context) ([]*Record, error) {
	return m.Query().Get(ctx)
}

// Count counts records visible under the global scopes.
func (m *Model) Count(ctx context.Context) (int64, error) {
	return m.Query().Count(ctx)
}

// New builds an unsaved record from attributes. Unknown columns are
// rejected at Save time through validation in Set; New itself is
// forgiving so hooks can fill attributes first.
func (m *Model) New(attrs map[string]any) *Record {
	copied := make(map[string]any, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return &Record{model: m, attrs: copied}
}

// Create inserts a record and returns it with the primary key set.
func (m *Model) Create(ctx context.Context, attrs map[string]any) (*Record, error) {
	for k := range attrs {
		if !m.HasColumn(k) {
			return nil, unknownField(k)
		}
	}
	rec := m.New(attrs)
	if err := rec.Save(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}
