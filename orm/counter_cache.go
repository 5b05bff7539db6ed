package orm

import (
	"context"
	"fmt"

	"github.com/shaurya/grail/db"
)

// CounterCache keeps a count column on the parent of a belongs-to
// relation in step with its children: +1 after create, -1 after delete.
// Declared on the child model.
func CounterCache(relationName, counterColumn string) Option {
	return func(m *Model) {
		m.hooks.afterCreate = append(m.hooks.afterCreate, counterHook(relationName, counterColumn, "+"))
		m.hooks.afterDelete = append(m.hooks.afterDelete, counterHook(relationName, counterColumn, "-"))
	}
}

func counterHook(relationName, counterColumn, sign string) Hook {
	return func(ctx context.Context, r *Record) error {
		rel, ok := r.model.relations[relationName]
		if !ok || rel.kind != KindBelongsTo {
			return fmt.Errorf("%w: counter cache needs a belongs-to relation %q",
				ErrRelationMutationUnsupported, relationName)
		}
		parent, err := rel.resolve()
		if err != nil {
			return err
		}
		fkValue := r.Get(rel.foreignKeyName())
		if fkValue == nil {
			return nil
		}
		sqlStr := fmt.Sprintf("UPDATE %s SET %s = %s %s 1 WHERE %s = $1",
			parent.table, counterColumn, counterColumn, sign, rel.localKey)
		return db.With(ctx, db.OpWrite, func(ctx context.Context, s *db.Session) error {
			_, err := s.Exec(ctx, sqlStr, fkValue)
			return err
		})
	}
}

// RecountAll recomputes a counter column from scratch, to fix drift.
func RecountAll(ctx context.Context, parent *Model, counterColumn, childTable, foreignKey string) error {
	query := fmt.Sprintf(`
		UPDATE %s p
		SET %s = (
			SELECT COUNT(*)
			FROM %s c
			WHERE c.%s = p.%s
		)
	`, parent.table, counterColumn, childTable, foreignKey, parent.pk)

	return db.With(ctx, db.OpWrite, func(ctx context.Context, s *db.Session) error {
		_, err := s.Exec(ctx, query)
		return err
	})
}
