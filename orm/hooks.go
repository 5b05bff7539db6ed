package orm

import "context"

// Hook runs at a lifecycle point of a record. Before* hooks may veto the
// operation by returning an error; nothing is written in that case.
type Hook func(ctx context.Context, r *Record) error

type hooks struct {
	beforeCreate []Hook
	afterCreate  []Hook
	beforeUpdate []Hook
	afterUpdate  []Hook
	beforeDelete []Hook
	afterDelete  []Hook
}

func (h hooks) run(ctx context.Context, list []Hook, r *Record) error {
	for _, fn := range list {
		if err := fn(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// BeforeCreate registers a hook run before a record is inserted.
func BeforeCreate(fn Hook) Option {
	return func(m *Model) { m.hooks.beforeCreate = append(m.hooks.beforeCreate, fn) }
}

// AfterCreate registers a hook run after a record is inserted.
func AfterCreate(fn Hook) Option {
	return func(m *Model) { m.hooks.afterCreate = append(m.hooks.afterCreate, fn) }
}

// BeforeUpdate registers a hook run before a record is updated.
func BeforeUpdate(fn Hook) Option {
	return func(m *Model) { m.hooks.beforeUpdate = append(m.hooks.beforeUpdate, fn) }
}

// AfterUpdate registers a hook run after a record is updated.
func AfterUpdate(fn Hook) Option {
	return func(m *Model) { m.hooks.afterUpdate = append(m.hooks.afterUpdate, fn) }
}

// BeforeDelete registers a hook run before a record is deleted (soft or
// physical).
func BeforeDelete(fn Hook) Option {
	return func(m *Model) { m.hooks.beforeDelete = append(m.hooks.beforeDelete, fn) }
}

// AfterDelete registers a hook run after a record is deleted.
func AfterDelete(fn Hook) Option {
	return func(m *Model) { m.hooks.afterDelete = append(m.hooks.afterDelete, fn) }
}
