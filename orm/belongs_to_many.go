package orm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shaurya/grail/db"
)

// ToggleResult reports which ids Toggle attached and which it detached.
type ToggleResult struct {
	Attached []any
	Detached []any
}

// pivotExtraColumns returns the extra pivot columns in a stable order.
func pivotExtraColumns(extra map[string]any) []string {
	cols := make([]string, 0, len(extra))
	for c := range extra {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// attach inserts pivot rows for the given related ids. The insert is
// idempotent: existing (parent, related) pairs are left untouched.
func (r *Relation) attach(ctx context.Context, parent *Record, ids []any, extra map[string]any) error {
	if len(ids) == 0 {
		return nil
	}
	pivot, err := r.pivotTableName()
	if err != nil {
		return err
	}
	fk := r.foreignKeyName()
	rk := r.relatedKeyName()
	parentKey := parent.Get(r.localKey)

	extraCols := pivotExtraColumns(extra)
	cols := append([]string{fk, rk}, extraCols...)

	var rows []string
	var args []any
	n := 0
	for _, id := range ids {
		holders := make([]string, len(cols))
		values := []any{parentKey, id}
		for _, c := range extraCols {
			values = append(values, extra[c])
		}
		for i := range values {
			n++
			holders[i] = fmt.Sprintf("$%d", n)
		}
		rows = append(rows, "("+strings.Join(holders, ", ")+")")
		args = append(args, values...)
	}

	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT DO NOTHING",
		pivot, strings.Join(cols, ", "), strings.Join(rows, ", "))

	return db.With(ctx, db.OpWrite, func(ctx context.Context, s *db.Session) error {
		_, err := s.Exec(ctx, sqlStr, args...)
		return err
	})
}

// detach removes pivot rows: the given related ids, or every row for the
// parent when none are given.
func (r *Relation) detach(ctx context.Context, parent *Record, ids []any) (int64, error) {
	pivot, err := r.pivotTableName()
	if err != nil {
		return 0, err
	}
	fk := r.foreignKeyName()
	rk := r.relatedKeyName()
	parentKey := parent.Get(r.localKey)

	var sqlStr string
	args := []any{parentKey}
	if len(ids) == 0 {
		sqlStr = fmt.Sprintf("DELETE FROM %s WHERE %s = $1", pivot, fk)
	} else {
		holders := make([]string, len(ids))
		for i, id := range ids {
			holders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		sqlStr = fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s IN (%s)",
			pivot, fk, rk, strings.Join(holders, ", "))
	}

	var affected int64
	err = db.With(ctx, db.OpWrite, func(ctx context.Context, s *db.Session) error {
		res, err := s.Exec(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		affected = res.RowCount
		return nil
	})
	return affected, err
}

// currentRelatedIDs reads the related-key values currently in the pivot
// for the parent, optionally narrowed to a candidate id set.
func (r *Relation) currentRelatedIDs(ctx context.Context, parent *Record, among []any) ([]any, error) {
	pivot, err := r.pivotTableName()
	if err != nil {
		return nil, err
	}
	fk := r.foreignKeyName()
	rk := r.relatedKeyName()

	args := []any{parent.Get(r.localKey)}
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", rk, pivot, fk)
	if len(among) > 0 {
		holders := make([]string, len(among))
		for i, id := range among {
			holders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		sqlStr += fmt.Sprintf(" AND %s IN (%s)", rk, strings.Join(holders, ", "))
	}

	var out []any
	err = db.With(ctx, db.OpRead, func(ctx context.Context, s *db.Session) error {
		res, err := s.Query(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		for _, row := range res.Rows {
			out = append(out, row[rk])
		}
		return nil
	})
	return out, err
}

// sync makes the pivot set exactly ids: detach everything, attach the
// list, atomically.
func (r *Relation) sync(ctx context.Context, parent *Record, ids []any, extra map[string]any) error {
	return db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := r.detach(ctx, parent, nil); err != nil {
			return err
		}
		return r.attach(ctx, parent, ids, extra)
	})
}

// syncWithoutDetaching attaches only the ids not already present.
func (r *Relation) syncWithoutDetaching(ctx context.Context, parent *Record, ids []any, extra map[string]any) error {
	current, err := r.currentRelatedIDs(ctx, parent, nil)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(current))
	for _, id := range current {
		present[normKey(id)] = true
	}
	var missing []any
	for _, id := range ids {
		if !present[normKey(id)] {
			missing = append(missing, id)
		}
	}
	return r.attach(ctx, parent, missing, extra)
}

// toggle detaches the ids already present and attaches the rest.
func (r *Relation) toggle(ctx context.Context, parent *Record, ids []any, extra map[string]any) (*ToggleResult, error) {
	result := &ToggleResult{}
	err := db.Transaction(ctx, func(ctx context.Context) error {
		current, err := r.currentRelatedIDs(ctx, parent, ids)
		if err != nil {
			return err
		}
		present := make(map[string]bool, len(current))
		for _, id := range current {
			present[normKey(id)] = true
		}
		for _, id := range ids {
			if present[normKey(id)] {
				result.Detached = append(result.Detached, id)
			} else {
				result.Attached = append(result.Attached, id)
			}
		}
		if len(result.Detached) > 0 {
			if _, err := r.detach(ctx, parent, result.Detached); err != nil {
				return err
			}
		}
		return r.attach(ctx, parent, result.Attached, extra)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
