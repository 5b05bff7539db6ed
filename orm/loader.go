package orm

import (
	"context"
	"fmt"
)

// RelationProxy is the per-instance access point for one relation. It
// holds a single cache slot: once loaded, repeat loads return the cached
// value — an empty result included — without touching the database,
// until the cache is cleared.
type RelationProxy struct {
	rel    *Relation
	parent *Record
	loaded bool
	value  any
}

// Relation returns the underlying relation definition.
func (p *RelationProxy) Relation() *Relation { return p.rel }

// Loaded reports whether the cache slot is populated.
func (p *RelationProxy) Loaded() bool { return p.loaded }

// ClearCache empties the cache slot so the next load hits the database.
func (p *RelationProxy) ClearCache() {
	p.loaded = false
	p.value = nil
}

func (p *RelationProxy) setCached(v any) {
	p.value = v
	p.loaded = true
}

// Load returns the relation's data, from cache when present. The result
// is *Record (possibly nil) for has-one/belongs-to and []*Record for
// has-many/belongs-to-many.
func (p *RelationProxy) Load(ctx context.Context) (any, error) {
	if p.loaded {
		return p.value, nil
	}
	value, err := p.rel.load(ctx, p.parent)
	if err != nil {
		return nil, err
	}
	p.setCached(value)
	return value, nil
}

// LoadOne loads a single-valued relation.
func (p *RelationProxy) LoadOne(ctx context.Context) (*Record, error) {
	v, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	rec, _ := v.(*Record)
	return rec, nil
}

// LoadMany loads a multi-valued relation.
func (p *RelationProxy) LoadMany(ctx context.Context) ([]*Record, error) {
	v, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	recs, _ := v.([]*Record)
	return recs, nil
}

func (p *RelationProxy) requireKind(kind RelationKind, op string) error {
	if p.rel.kind != kind {
		return fmt.Errorf("%w: %s on %s relation %q",
			ErrRelationMutationUnsupported, op, p.rel.kind, p.rel.name)
	}
	return nil
}

// Create inserts a child row with the foreign key stamped (has-many).
func (p *RelationProxy) Create(ctx context.Context, attrs map[string]any) (*Record, error) {
	if err := p.requireKind(KindHasMany, "Create"); err != nil {
		return nil, err
	}
	rec, err := p.rel.createChild(ctx, p.parent, attrs)
	if err != nil {
		return nil, err
	}
	p.ClearCache()
	return rec, nil
}

// Save stamps the foreign key on an existing record and saves it
// (has-many).
func (p *RelationProxy) Save(ctx context.Context, child *Record) error {
	if err := p.requireKind(KindHasMany, "Save"); err != nil {
		return err
	}
	if err := p.rel.saveChild(ctx, p.parent, child); err != nil {
		return err
	}
	p.ClearCache()
	return nil
}

// SaveMany saves several children under the parent (has-many).
func (p *RelationProxy) SaveMany(ctx context.Context, children []*Record) error {
	if err := p.requireKind(KindHasMany, "SaveMany"); err != nil {
		return err
	}
	if err := p.rel.saveChildren(ctx, p.parent, children); err != nil {
		return err
	}
	p.ClearCache()
	return nil
}

// CreateMany inserts several child rows (has-many).
func (p *RelationProxy) CreateMany(ctx context.Context, records []map[string]any) ([]*Record, error) {
	if err := p.requireKind(KindHasMany, "CreateMany"); err != nil {
		return nil, err
	}
	recs, err := p.rel.createChildren(ctx, p.parent, records)
	if err != nil {
		return nil, err
	}
	p.ClearCache()
	return recs, nil
}

// DeleteAll removes every child row (has-many).
func (p *RelationProxy) DeleteAll(ctx context.Context) (int64, error) {
	if err := p.requireKind(KindHasMany, "DeleteAll"); err != nil {
		return 0, err
	}
	n, err := p.rel.deleteChildren(ctx, p.parent)
	if err != nil {
		return 0, err
	}
	p.ClearCache()
	return n, nil
}

// Count counts child rows without loading them (has-many).
func (p *RelationProxy) Count(ctx context.Context) (int64, error) {
	if err := p.requireKind(KindHasMany, "Count"); err != nil {
		return 0, err
	}
	return p.rel.countChildren(ctx, p.parent)
}

// Attach idempotently inserts pivot rows (belongs-to-many).
func (p *RelationProxy) Attach(ctx context.Context, ids []any, extra map[string]any) error {
	if err := p.requireKind(KindBelongsToMany, "Attach"); err != nil {
		return err
	}
	if err := p.rel.attach(ctx, p.parent, ids, extra); err != nil {
		return err
	}
	p.ClearCache()
	return nil
}

// Detach removes pivot rows — the named ids, or all when none given
// (belongs-to-many).
func (p *RelationProxy) Detach(ctx context.Context, ids ...any) (int64, error) {
	if err := p.requireKind(KindBelongsToMany, "Detach"); err != nil {
		return 0, err
	}
	n, err := p.rel.detach(ctx, p.parent, ids)
	if err != nil {
		return 0, err
	}
	p.ClearCache()
	return n, nil
}

// Sync replaces the pivot set with exactly ids (belongs-to-many).
func (p *RelationProxy) Sync(ctx context.Context, ids []any, extra map[string]any) error {
	if err := p.requireKind(KindBelongsToMany, "Sync"); err != nil {
		return err
	}
	if err := p.rel.sync(ctx, p.parent, ids, extra); err != nil {
		return err
	}
	p.ClearCache()
	return nil
}

// SyncWithoutDetaching attaches only the missing ids (belongs-to-many).
func (p *RelationProxy) SyncWithoutDetaching(ctx context.Context, ids []any, extra map[string]any) error {
	if err := p.requireKind(KindBelongsToMany, "SyncWithoutDetaching"); err != nil {
		return err
	}
	if err := p.rel.syncWithoutDetaching(ctx, p.parent, ids, extra); err != nil {
		return err
	}
	p.ClearCache()
	return nil
}

// Toggle attaches absent ids and detaches present ones
// (belongs-to-many).
func (p *RelationProxy) Toggle(ctx context.Context, ids []any, extra map[string]any) (*ToggleResult, error) {
	if err := p.requireKind(KindBelongsToMany, "Toggle"); err != nil {
		return nil, err
	}
	result, err := p.rel.toggle(ctx, p.parent, ids, extra)
	if err != nil {
		return nil, err
	}
	p.ClearCache()
	return result, nil
}

// ── Eager loading ───────────────────────────────────────────────────────

// EagerLoad populates the relation caches of every record for each named
// relation. One relation costs one IN-clause query over the distinct
// parent keys (two for belongs-to-many: the joined select covers pivot
// and targets) instead of one query per record — after EagerLoad, a
// Load per record issues zero further queries.
func EagerLoad(ctx context.Context, records []*Record, names ...string) error {
	if len(records) == 0 {
		return nil
	}
	model := records[0].model

	for _, name := range names {
		rel, ok := model.relations[name]
		if !ok {
			return fmt.Errorf("%w: relation %q on model %s", ErrUnresolvedRelationTarget, name, model.name)
		}
		if err := eagerLoadRelation(ctx, rel, records); err != nil {
			return err
		}
	}
	return nil
}

func eagerLoadRelation(ctx context.Context, rel *Relation, records []*Record) error {
	target, err := rel.resolve()
	if err != nil {
		return err
	}

	// Distinct parent keys, nils skipped.
	var keys []any
	seen := make(map[string]bool)
	for _, rec := range records {
		key := rel.parentKeyValue(rec)
		if key == nil {
			continue
		}
		if k := normKey(key); !seen[k] {
			seen[k] = true
			keys = append(keys, key)
		}
	}

	grouped := make(map[string][]*Record)
	if len(keys) > 0 {
		switch rel.kind {
		case KindHasOne, KindHasMany:
			fk := rel.foreignKeyName()
			loaded, err := NewQuery(target).WhereIn(fk, keys).Get(ctx)
			if err != nil {
				return err
			}
			for _, child := range loaded {
				k := normKey(child.Get(fk))
				grouped[k] = append(grouped[k], child)
			}
		case KindBelongsTo:
			loaded, err := NewQuery(target).WhereIn(rel.localKey, keys).Get(ctx)
			if err != nil {
				return err
			}
			for _, owner := range loaded {
				k := normKey(owner.Get(rel.localKey))
				grouped[k] = append(grouped[k], owner)
			}
		case KindBelongsToMany:
			if _, err := rel.loadThroughPivot(ctx, keys, grouped); err != nil {
				return err
			}
		}
	}

	for _, rec := range records {
		proxy, err := rec.Relation(rel.name)
		if err != nil {
			return err
		}
		bucket := grouped[normKey(rel.parentKeyValue(rec))]
		switch rel.kind {
		case KindHasOne, KindBelongsTo:
			if len(bucket) > 0 {
				proxy.setCached(bucket[0])
			} else {
				proxy.setCached((*Record)(nil))
			}
		default:
			if bucket == nil {
				bucket = []*Record{}
			}
			proxy.setCached(bucket)
		}
	}
	return nil
}
