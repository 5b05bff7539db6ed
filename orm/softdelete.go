package orm

import "fmt"

// Soft-delete query entry points. Models opt in through SoftDeletes /
// SoftDeletesColumn, which registers the soft-delete filter as a global
// scope; these helpers rebuild the scope set around it.

// WithTrashed queries without the soft-delete filter, so trashed rows
// appear alongside live ones.
func (m *Model) WithTrashed() *ScopedQuery {
	if !m.softDelete {
		s := m.Query()
		s.setErr(fmt.Errorf("%w: %s", ErrSoftDeleteNotEnabled, m.name))
		return s
	}
	return m.Query().WithoutGlobalScope(SoftDeleteScope)
}

// OnlyTrashed queries exclusively trashed rows. The condition derives
// from the model's configured soft-delete column, independent of the
// scope name.
func (m *Model) OnlyTrashed() *ScopedQuery {
	s := m.WithTrashed()
	if s.Err() != nil {
		return s
	}
	return s.WhereNotNull(m.deletedAtColumn)
}

// WithoutTrashed is the default behavior, spelled out: the soft-delete
// filter stays applied.
func (m *Model) WithoutTrashed() *ScopedQuery {
	if !m.softDelete {
		s := m.Query()
		s.setErr(fmt.Errorf("%w: %s", ErrSoftDeleteNotEnabled, m.name))
		return s
	}
	return m.Query()
}
