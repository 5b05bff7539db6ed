package orm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shaurya/grail/db"
)

// Record is one row of a model: an attribute map plus the per-instance
// relation cache. Records produced by queries are marked persisted;
// Model.New produces unsaved ones.
type Record struct {
	model     *Model
	attrs     map[string]any
	dirty     map[string]bool
	exists    bool
	relations map[string]*RelationProxy
}

func newRecord(m *Model, attrs map[string]any) *Record {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Record{model: m, attrs: attrs, exists: true}
}

func (r *Record) markDirty(column string) {
	if r.dirty == nil {
		r.dirty = make(map[string]bool)
	}
	r.dirty[column] = true
}

// DirtyColumns lists the attributes changed since the last save.
func (r *Record) DirtyColumns() []string {
	out := make([]string, 0, len(r.dirty))
	for _, c := range r.model.columns {
		if r.dirty[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

// Model returns the record's model handle.
func (r *Record) Model() *Model { return r.model }

// Persisted reports whether the record is backed by a database row.
func (r *Record) Persisted() bool { return r.exists }

// Get returns an attribute value, nil when unset.
func (r *Record) Get(column string) any { return r.attrs[column] }

// GetString returns the attribute as a string.
func (r *Record) GetString(column string) string {
	v := r.attrs[column]
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetInt64 returns the attribute as an int64.
func (r *Record) GetInt64(column string) int64 { return toInt64(r.attrs[column]) }

// GetBool returns the attribute as a bool.
func (r *Record) GetBool(column string) bool {
	b, _ := r.attrs[column].(bool)
	return b
}

// GetTime returns the attribute as a time, accepting driver-native
// timestamps and common string encodings.
func (r *Record) GetTime(column string) (time.Time, bool) {
	return toTime(r.attrs[column])
}

// Attr reads an attribute with a concrete type.
func Attr[T any](r *Record, column string) (T, bool) {
	v, ok := r.attrs[column].(T)
	return v, ok
}

// Set assigns an attribute, rejecting columns the metadata doesn't know.
func (r *Record) Set(column string, value any) error {
	if !r.model.HasColumn(column) {
		return unknownField(column)
	}
	r.attrs[column] = value
	r.markDirty(column)
	return nil
}

// PrimaryKey returns the primary key value.
func (r *Record) PrimaryKey() any { return r.attrs[r.model.pk] }

// Attributes returns a copy of the attribute map.
func (r *Record) Attributes() map[string]any {
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// IsDeleted reports whether a soft-delete-enabled record is trashed.
func (r *Record) IsDeleted() bool {
	if !r.model.softDelete {
		return false
	}
	return r.attrs[r.model.deletedAtColumn] != nil
}

// ── Relations ───────────────────────────────────────────────────────────

// Relation returns the proxy for a named relation. Proxies are created
// on first access and live with the record.
func (r *Record) Relation(name string) (*RelationProxy, error) {
	if p, ok := r.relations[name]; ok {
		return p, nil
	}
	rel, ok := r.model.relations[name]
	if !ok {
		return nil, fmt.Errorf("%w: relation %q on model %s", ErrUnresolvedRelationTarget, name, r.model.name)
	}
	if r.relations == nil {
		r.relations = make(map[string]*RelationProxy)
	}
	p := &RelationProxy{rel: rel, parent: r}
	r.relations[name] = p
	return p, nil
}

// ClearRelationCache drops cached relation data: the named relations, or
// every relation when none are given.
func (r *Record) ClearRelationCache(names ...string) {
	if len(names) == 0 {
		for _, p := range r.relations {
			p.ClearCache()
		}
		return
	}
	for _, name := range names {
		if p, ok := r.relations[name]; ok {
			p.ClearCache()
		}
	}
}

// ── Persistence ─────────────────────────────────────────────────────────

// Save inserts the record when new, updates it otherwise.
func (r *Record) Save(ctx context.Context) error {
	if r.exists {
		return r.update(ctx)
	}
	return r.insert(ctx)
}

// Update assigns the attributes and saves.
func (r *Record) Update(ctx context.Context, attrs map[string]any) error {
	for k, v := range attrs {
		if err := r.Set(k, v); err != nil {
			return err
		}
	}
	return r.Save(ctx)
}

func (r *Record) insert(ctx context.Context) error {
	if err := r.model.hooks.run(ctx, r.model.hooks.beforeCreate, r); err != nil {
		return err
	}
	if err := r.model.validateRecord(r); err != nil {
		return err
	}
	if r.model.timestamps {
		now := time.Now().UTC()
		if r.attrs["created_at"] == nil {
			r.attrs["created_at"] = now
		}
		r.attrs["updated_at"] = now
	}

	var cols []string
	var args []any
	for _, c := range r.model.columns {
		v, ok := r.attrs[c.Name]
		if !ok || (c.Name == r.model.pk && v == nil) {
			continue
		}
		cols = append(cols, c.Name)
		args = append(args, v)
	}
	holders := make([]string, len(cols))
	for i := range cols {
		holders[i] = fmt.Sprintf("$%d", i+1)
	}
	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		r.model.table, strings.Join(cols, ", "), strings.Join(holders, ", "), r.model.pk)

	err := db.With(ctx, db.OpWrite, func(ctx context.Context, s *db.Session) error {
		res, err := s.Query(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		if len(res.Rows) > 0 {
			r.attrs[r.model.pk] = res.Rows[0][r.model.pk]
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.exists = true
	r.dirty = nil
	r.invalidateCache(ctx)
	return r.model.hooks.run(ctx, r.model.hooks.afterCreate, r)
}

// update writes only the dirty columns. A clean record is a no-op.
func (r *Record) update(ctx context.Context) error {
	if len(r.dirty) == 0 {
		return nil
	}
	if err := r.model.hooks.run(ctx, r.model.hooks.beforeUpdate, r); err != nil {
		return err
	}
	if err := r.model.validateRecord(r); err != nil {
		return err
	}
	if r.model.timestamps {
		r.attrs["updated_at"] = time.Now().UTC()
		r.markDirty("updated_at")
	}

	var sets []string
	var args []any
	n := 0
	for _, c := range r.model.columns {
		if c.Name == r.model.pk || !r.dirty[c.Name] {
			continue
		}
		n++
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Name, n))
		args = append(args, r.attrs[c.Name])
	}
	n++
	args = append(args, r.PrimaryKey())
	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		r.model.table, strings.Join(sets, ", "), r.model.pk, n)

	if err := r.execWrite(ctx, sqlStr, args); err != nil {
		return err
	}
	r.dirty = nil
	r.invalidateCache(ctx)
	return r.model.hooks.run(ctx, r.model.hooks.afterUpdate, r)
}

// Delete soft-deletes when the model opted in, otherwise removes the row.
func (r *Record) Delete(ctx context.Context) error {
	if !r.model.softDelete {
		return r.ForceDelete(ctx)
	}
	if err := r.model.hooks.run(ctx, r.model.hooks.beforeDelete, r); err != nil {
		return err
	}

	now := time.Now().UTC()
	sqlStr := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s = $2",
		r.model.table, r.model.deletedAtColumn, r.model.pk)
	if err := r.execWrite(ctx, sqlStr, []any{now, r.PrimaryKey()}); err != nil {
		return err
	}
	r.attrs[r.model.deletedAtColumn] = now
	r.invalidateCache(ctx)
	return r.model.hooks.run(ctx, r.model.hooks.afterDelete, r)
}

// Restore clears the soft-delete column on a trashed record.
func (r *Record) Restore(ctx context.Context) error {
	if !r.model.softDelete {
		return fmt.Errorf("%w: %s", ErrSoftDeleteNotEnabled, r.model.name)
	}
	if !r.IsDeleted() {
		return fmt.Errorf("%w: %s %v", ErrNotDeleted, r.model.name, r.PrimaryKey())
	}

	sqlStr := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = $1",
		r.model.table, r.model.deletedAtColumn, r.model.pk)
	if err := r.execWrite(ctx, sqlStr, []any{r.PrimaryKey()}); err != nil {
		return err
	}
	r.attrs[r.model.deletedAtColumn] = nil
	r.invalidateCache(ctx)
	return nil
}

// ForceDelete removes the row physically regardless of soft-delete
// configuration.
func (r *Record) ForceDelete(ctx context.Context) error {
	if err := r.model.hooks.run(ctx, r.model.hooks.beforeDelete, r); err != nil {
		return err
	}
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.model.table, r.model.pk)
	if err := r.execWrite(ctx, sqlStr, []any{r.PrimaryKey()}); err != nil {
		return err
	}
	r.exists = false
	r.invalidateCache(ctx)
	return r.model.hooks.run(ctx, r.model.hooks.afterDelete, r)
}

// Fresh reloads the record from the database, bypassing global scopes so
// trashed rows stay reachable.
func (r *Record) Fresh(ctx context.Context) (*Record, error) {
	return NewQuery(r.model).Where(r.model.pk, r.PrimaryKey()).First(db.ForceWrite(ctx))
}

func (r *Record) execWrite(ctx context.Context, sqlStr string, args []any) error {
	return db.With(ctx, db.OpWrite, func(ctx context.Context, s *db.Session) error {
		_, err := s.Exec(ctx, sqlStr, args...)
		return err
	})
}

// ── Record cache ────────────────────────────────────────────────────────

func (m *Model) cacheKey(pk any) string {
	return fmt.Sprintf("grail:%s:%s", strings.ToLower(m.name), normKey(pk))
}

func (r *Record) invalidateCache(ctx context.Context) {
	if r.model.cache == nil || r.PrimaryKey() == nil {
		return
	}
	_ = r.model.cache.Delete(ctx, r.model.cacheKey(r.PrimaryKey()))
}

func (r *Record) storeInCache(ctx context.Context) {
	if r.model.cache == nil || r.PrimaryKey() == nil {
		return
	}
	data, err := json.Marshal(r.attrs)
	if err != nil {
		return
	}
	_ = r.model.cache.Set(ctx, r.model.cacheKey(r.PrimaryKey()), string(data), r.model.cacheTTL)
}

func (m *Model) cachedRecord(ctx context.Context, pk any) *Record {
	if m.cache == nil {
		return nil
	}
	data, err := m.cache.Get(ctx, m.cacheKey(pk))
	if err != nil || data == "" {
		return nil
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return nil
	}
	return newRecord(m, attrs)
}
