package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaurya/grail/db"
)

// Query accumulates conditions, ordering and limits for one model type
// and executes against the ambient session. Mutators return the same
// builder; Clone produces an independent copy.
//
// Validation failures (unknown field, invalid operator) are recorded on
// the builder and surfaced by the execution methods before any I/O.
type Query struct {
	model    *Model
	conds    []Condition
	orders   []OrderClause
	limit    int
	offset   int
	distinct bool
	with     []string
	err      error
}

// NewQuery creates a bare builder without global scopes applied. Use
// Model.Query for the scoped entry point.
func NewQuery(m *Model) *Query {
	return &Query{model: m, limit: -1, offset: -1}
}

// Err returns the deferred validation error, if any.
func (q *Query) Err() error { return q.err }

func (q *Query) setErr(err error) *Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Model returns the model the builder targets.
func (q *Query) Model() *Model { return q.model }

// Conditions returns the accumulated conditions in insertion order.
func (q *Query) Conditions() []Condition { return q.conds }

// Where appends an AND condition. The two-argument form implies
// equality: Where("status", "active"). The three-argument form names the
// operator: Where("age", ">", 18).
func (q *Query) Where(column string, args ...any) *Query {
	if !q.model.HasColumn(column) {
		return q.setErr(unknownField(column))
	}

	var op string
	var value any
	switch len(args) {
	case 1:
		op, value = opEq, args[0]
	case 2:
		s, ok := args[0].(string)
		if !ok {
			return q.setErr(invalidOperator(fmt.Sprint(args[0])))
		}
		op, value = s, args[1]
	default:
		return q.setErr(fmt.Errorf("%w: Where expects (column, value) or (column, operator, value)", ErrInvalidOperator))
	}

	normalized, err := normalizeOperator(op)
	if err != nil {
		return q.setErr(err)
	}

	cond := Condition{Column: column, Operator: normalized}
	switch normalized {
	case opIn, opNotIn:
		vals, ok := toSlice(value)
		if !ok {
			return q.setErr(fmt.Errorf("%w: %q requires a slice of values", ErrInvalidOperator, normalized))
		}
		cond.Values = vals
	case opIsNull, opIsNotNull:
		// No operand.
	default:
		cond.Value = value
	}
	q.conds = append(q.conds, cond)
	return q
}

// WhereIn appends column IN (values...).
func (q *Query) WhereIn(column string, values []any) *Query {
	return q.Where(column, opIn, values)
}

// WhereNotIn appends column NOT IN (values...).
func (q *Query) WhereNotIn(column string, values []any) *Query {
	return q.Where(column, opNotIn, values)
}

// WhereNull appends column IS NULL.
func (q *Query) WhereNull(column string) *Query {
	return q.Where(column, opIsNull, nil)
}

// WhereNotNull appends column IS NOT NULL.
func (q *Query) WhereNotNull(column string) *Query {
	return q.Where(column, opIsNotNull, nil)
}

// OrderBy appends an ORDER BY clause, ascending by default.
func (q *Query) OrderBy(column string, direction ...string) *Query {
	if !q.model.HasColumn(column) {
		return q.setErr(unknownField(column))
	}
	dir := "ASC"
	if len(direction) > 0 {
		switch strings.ToLower(direction[0]) {
		case "asc", "":
			dir = "ASC"
		case "desc":
			dir = "DESC"
		default:
			return q.setErr(fmt.Errorf("%w: order direction %q", ErrInvalidOperator, direction[0]))
		}
	}
	q.orders = append(q.orders, OrderClause{Column: column, Direction: dir})
	return q
}

// Limit caps the result set. A later call overwrites an earlier one.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset skips rows. A later call overwrites an earlier one.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// Distinct deduplicates the selected rows.
func (q *Query) Distinct() *Query {
	q.distinct = true
	return q
}

// With marks relations for batched eager loading when Get runs.
func (q *Query) With(relations ...string) *Query {
	q.with = append(q.with, relations...)
	return q
}

// Clone returns an independent copy of the builder.
func (q *Query) Clone() *Query {
	dup := *q
	dup.conds = append([]Condition(nil), q.conds...)
	dup.orders = append([]OrderClause(nil), q.orders...)
	dup.with = append([]string(nil), q.with...)
	return &dup
}

// ── SQL generation ──────────────────────────────────────────────────────

func (q *Query) buildSelect() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(q.model.columnList())
	sb.WriteString(" FROM ")
	sb.WriteString(q.model.table)

	var args []any
	n := 0
	sb.WriteString(renderConditions(q.conds, &n, &args))

	if len(q.orders) > 0 {
		parts := make([]string, len(q.orders))
		for i, o := range q.orders {
			parts[i] = o.Column + " " + o.Direction
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.limit >= 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.limit)
	}
	if q.offset >= 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.offset)
	}
	return sb.String(), args
}

// buildCount keeps conditions only — order, limit and offset do not
// affect a count.
func (q *Query) buildCount() (string, []any) {
	var args []any
	n := 0
	where := renderConditions(q.conds, &n, &args)
	return fmt.Sprintf("SELECT COUNT(*) AS count FROM %s%s", q.model.table, where), args
}

func (q *Query) buildDelete() (string, []any) {
	var args []any
	n := 0
	where := renderConditions(q.conds, &n, &args)
	return fmt.Sprintf("DELETE FROM %s%s", q.model.table, where), args
}

func (q *Query) buildUpdate(values map[string]any) (string, []any, error) {
	var sets []string
	var args []any
	n := 0
	for _, col := range q.model.columns {
		v, ok := values[col.Name]
		if !ok {
			continue
		}
		n++
		sets = append(sets, fmt.Sprintf("%s = $%d", col.Name, n))
		args = append(args, v)
	}
	for name := range values {
		if !q.model.HasColumn(name) {
			return "", nil, unknownField(name)
		}
	}
	where := renderConditions(q.conds, &n, &args)
	sql := fmt.Sprintf("UPDATE %s SET %s%s", q.model.table, strings.Join(sets, ", "), where)
	return sql, args, nil
}

// ── Execution (session resolved from ambient context) ───────────────────

// Get runs the query and returns all matching records, eager-loading any
// relations marked with With.
func (q *Query) Get(ctx context.Context) ([]*Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	sqlStr, args := q.buildSelect()

	var records []*Record
	err := db.With(ctx, db.OpRead, func(ctx context.Context, s *db.Session) error {
		res, err := s.Query(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		records = make([]*Record, 0, len(res.Rows))
		for _, row := range res.Rows {
			records = append(records, newRecord(q.model, row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(q.with) > 0 && len(records) > 0 {
		if err := EagerLoad(ctx, records, q.with...); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// First returns the first matching record, or nil when none match.
func (q *Query) First(ctx context.Context) (*Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	records, err := q.Clone().Limit(1).Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// FirstOrFail is the fail-loud First: no match yields ErrNotFound.
func (q *Query) FirstOrFail(ctx context.Context) (*Record, error) {
	rec, err := q.First(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, q.model.name)
	}
	return rec, nil
}

// Count returns the number of matching rows.
func (q *Query) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	sqlStr, args := q.buildCount()

	var count int64
	err := db.With(ctx, db.OpRead, func(ctx context.Context, s *db.Session) error {
		res, err := s.Query(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		if len(res.Rows) > 0 {
			count = toInt64(res.Rows[0]["count"])
		}
		return nil
	})
	return count, err
}

// Exists reports whether any row matches.
func (q *Query) Exists(ctx context.Context) (bool, error) {
	count, err := q.Count(ctx)
	return count > 0, err
}

// Delete removes matching rows and returns the affected count. This is a
// physical delete; soft deletion lives on Record.Delete.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	sqlStr, args := q.buildDelete()
	return q.exec(ctx, sqlStr, args)
}

// Update applies values to matching rows and returns the affected count.
func (q *Query) Update(ctx context.Context, values map[string]any) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	sqlStr, args, err := q.buildUpdate(values)
	if err != nil {
		return 0, err
	}
	return q.exec(ctx, sqlStr, args)
}

// Pluck returns the values of one column across all matching rows.
func (q *Query) Pluck(ctx context.Context, column string) ([]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	if !q.model.HasColumn(column) {
		return nil, unknownField(column)
	}
	records, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(records))
	for i, r := range records {
		values[i] = r.Get(column)
	}
	return values, nil
}

func (q *Query) exec(ctx context.Context, sqlStr string, args []any) (int64, error) {
	var affected int64
	err := db.With(ctx, db.OpWrite, func(ctx context.Context, s *db.Session) error {
		res, err := s.Exec(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		affected = res.RowCount
		return nil
	})
	return affected, err
}

// Page is one page of results with pagination bookkeeping.
type Page struct {
	Items      []*Record
	Total      int64
	PageNum    int
	PerPage    int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// Paginate returns page (1-indexed) with perPage items plus totals.
func (q *Query) Paginate(ctx context.Context, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	items, err := q.Clone().Offset((page - 1) * perPage).Limit(perPage).Get(ctx)
	if err != nil {
		return nil, err
	}
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &Page{
		Items:      items,
		Total:      total,
		PageNum:    page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}, nil
}
