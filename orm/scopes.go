package orm

// ScopeFunc is a named local scope: a reusable query transformation
// dispatched by name through ScopedQuery.Scope.
type ScopeFunc func(q *Query, args ...any) *Query

// GlobalScopeFunc is a scope auto-applied to every fresh ScopedQuery of
// its model, in registration order, unless explicitly removed.
type GlobalScopeFunc func(q *Query) *Query

type namedGlobalScope struct {
	name string
	fn   GlobalScopeFunc
}

// SoftDeleteScope is the registered name of the soft-delete global
// scope; remove it with WithoutGlobalScope to include trashed rows.
const SoftDeleteScope = "soft_delete"

// ScopedQuery wraps a Query with the model's global scopes applied. A
// fresh ScopedQuery reflects exactly the global scopes registered at
// construction time; removal rebuilds the query rather than mutating the
// registry, so concurrently built queries never interfere.
type ScopedQuery struct {
	*Query
	applied []string
}

func newScopedQuery(m *Model, skip map[string]bool) *ScopedQuery {
	s := &ScopedQuery{Query: NewQuery(m)}
	for _, gs := range m.globalScopes {
		if skip[gs.name] {
			continue
		}
		s.Query = gs.fn(s.Query)
		s.applied = append(s.applied, gs.name)
	}
	return s
}

// AppliedGlobalScopes lists the global scopes applied to this query, in
// application order.
func (s *ScopedQuery) AppliedGlobalScopes() []string {
	return append([]string(nil), s.applied...)
}

// Scope applies a registered local scope by name. An unregistered name
// is recorded as an UnknownScope error and surfaced before execution.
func (s *ScopedQuery) Scope(name string, args ...any) *ScopedQuery {
	fn, ok := s.Query.model.scopes[name]
	if !ok {
		s.Query.setErr(unknownScope(s.Query.model.name, name))
		return s
	}
	s.Query = fn(s.Query, args...)
	return s
}

// WithoutGlobalScope builds a new ScopedQuery re-applying every global
// scope except the named one. Conditions added to the receiver are not
// carried over; remove scopes before building the rest of the query.
func (s *ScopedQuery) WithoutGlobalScope(name string) *ScopedQuery {
	return s.WithoutGlobalScopes(name)
}

// WithoutGlobalScopes builds a new ScopedQuery excluding the named
// global scopes — all of them when none are named.
func (s *ScopedQuery) WithoutGlobalScopes(names ...string) *ScopedQuery {
	skip := make(map[string]bool, len(names))
	if len(names) == 0 {
		for _, gs := range s.Query.model.globalScopes {
			skip[gs.name] = true
		}
	}
	for _, n := range names {
		skip[n] = true
	}
	return newScopedQuery(s.Query.model, skip)
}

// Chainable builder methods, shadowed to keep the scoped type.

func (s *ScopedQuery) Where(column string, args ...any) *ScopedQuery {
	s.Query.Where(column, args...)
	return s
}

func (s *ScopedQuery) WhereIn(column string, values []any) *ScopedQuery {
	s.Query.WhereIn(column, values)
	return s
}

func (s *ScopedQuery) WhereNotIn(column string, values []any) *ScopedQuery {
	s.Query.WhereNotIn(column, values)
	return s
}

func (s *ScopedQuery) WhereNull(column string) *ScopedQuery {
	s.Query.WhereNull(column)
	return s
}

func (s *ScopedQuery) WhereNotNull(column string) *ScopedQuery {
	s.Query.WhereNotNull(column)
	return s
}

func (s *ScopedQuery) OrderBy(column string, direction ...string) *ScopedQuery {
	s.Query.OrderBy(column, direction...)
	return s
}

func (s *ScopedQuery) Limit(n int) *ScopedQuery {
	s.Query.Limit(n)
	return s
}

func (s *ScopedQuery) Offset(n int) *ScopedQuery {
	s.Query.Offset(n)
	return s
}

func (s *ScopedQuery) Distinct() *ScopedQuery {
	s.Query.Distinct()
	return s
}

func (s *ScopedQuery) With(relations ...string) *ScopedQuery {
	s.Query.With(relations...)
	return s
}
