package orm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shaurya/grail/db"
)

// RelationKind identifies how two models relate.
type RelationKind int

const (
	KindHasOne RelationKind = iota
	KindHasMany
	KindBelongsTo
	KindBelongsToMany
)

func (k RelationKind) String() string {
	switch k {
	case KindHasOne:
		return "has_one"
	case KindHasMany:
		return "has_many"
	case KindBelongsTo:
		return "belongs_to"
	case KindBelongsToMany:
		return "belongs_to_many"
	default:
		return "unknown"
	}
}

// Relation declares how one model's rows relate to another's. The target
// is stored by name and resolved lazily through the type registry, so
// mutually referencing models can be defined in either order.
type Relation struct {
	kind       RelationKind
	name       string
	owner      *Model
	targetName string

	foreignKey string
	localKey   string

	// belongs-to-many only
	pivotTable      string
	relatedKey      string
	relatedLocalKey string

	resolveOnce sync.Once
	target      *Model
	resolveErr  error
}

// Kind returns the relation's kind.
func (r *Relation) Kind() RelationKind { return r.kind }

// Name returns the relation's name on the owning model.
func (r *Relation) Name() string { return r.name }

// RelOption tunes the keys of a relation declaration.
type RelOption func(*Relation)

// ForeignKey overrides the inferred foreign key.
func ForeignKey(name string) RelOption {
	return func(r *Relation) { r.foreignKey = name }
}

// LocalKey overrides the local key (default "id").
func LocalKey(name string) RelOption {
	return func(r *Relation) { r.localKey = name }
}

// PivotTable overrides the inferred pivot table of a belongs-to-many.
func PivotTable(name string) RelOption {
	return func(r *Relation) { r.pivotTable = name }
}

// RelatedKey overrides the related model's pivot column.
func RelatedKey(name string) RelOption {
	return func(r *Relation) { r.relatedKey = name }
}

// RelatedLocalKey overrides the related model's key joined through the
// pivot (default "id").
func RelatedLocalKey(name string) RelOption {
	return func(r *Relation) { r.relatedLocalKey = name }
}

func newRelation(kind RelationKind, name, target string, opts ...RelOption) *Relation {
	r := &Relation{
		kind:            kind,
		name:            name,
		targetName:      target,
		localKey:        "id",
		relatedLocalKey: "id",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasOne declares a one-to-one relation whose foreign key lives on the
// target: User has one Profile via profiles.user_id.
func HasOne(name, target string, opts ...RelOption) Option {
	return func(m *Model) { m.relations[name] = newRelation(KindHasOne, name, target, opts...) }
}

// HasMany declares a one-to-many relation whose foreign key lives on the
// target: User has many Posts via posts.user_id.
func HasMany(name, target string, opts ...RelOption) Option {
	return func(m *Model) { m.relations[name] = newRelation(KindHasMany, name, target, opts...) }
}

// BelongsTo declares the inverse one-to-one: the foreign key lives on
// the owner: Post belongs to User via posts.user_id.
func BelongsTo(name, target string, opts ...RelOption) Option {
	return func(m *Model) { m.relations[name] = newRelation(KindBelongsTo, name, target, opts...) }
}

// BelongsToMany declares a many-to-many relation through a pivot table.
func BelongsToMany(name, target string, opts ...RelOption) Option {
	return func(m *Model) { m.relations[name] = newRelation(KindBelongsToMany, name, target, opts...) }
}

// resolve binds the target model by name, once, caching the handle.
func (r *Relation) resolve() (*Model, error) {
	r.resolveOnce.Do(func() {
		r.target, r.resolveErr = Lookup(r.targetName)
	})
	return r.target, r.resolveErr
}

// foreignKeyName applies the inference rules: relations whose key lives
// on the target derive it from the owner's name, belongs-to derives it
// from the target's name.
func (r *Relation) foreignKeyName() string {
	if r.foreignKey != "" {
		return r.foreignKey
	}
	if r.kind == KindBelongsTo {
		return strings.ToLower(r.targetName) + "_id"
	}
	return strings.ToLower(r.owner.name) + "_id"
}

func (r *Relation) relatedKeyName() string {
	if r.relatedKey != "" {
		return r.relatedKey
	}
	return strings.ToLower(r.targetName) + "_id"
}

// pivotTableName defaults to the two table names sorted and joined.
func (r *Relation) pivotTableName() (string, error) {
	if r.pivotTable != "" {
		return r.pivotTable, nil
	}
	target, err := r.resolve()
	if err != nil {
		return "", err
	}
	tables := []string{r.owner.table, target.table}
	sort.Strings(tables)
	return tables[0] + "_" + tables[1], nil
}

func (r *Relation) parentKeyValue(parent *Record) any {
	if r.kind == KindBelongsTo {
		return parent.Get(r.foreignKeyName())
	}
	return parent.Get(r.localKey)
}

// load resolves the relation for one parent. Returns *Record (possibly
// nil) for single-valued kinds and []*Record for multi-valued ones.
func (r *Relation) load(ctx context.Context, parent *Record) (any, error) {
	target, err := r.resolve()
	if err != nil {
		return nil, err
	}

	switch r.kind {
	case KindHasOne, KindHasMany:
		key := parent.Get(r.localKey)
		if key == nil {
			return r.emptyResult(), nil
		}
		q := NewQuery(target).Where(r.foreignKeyName(), key)
		if r.kind == KindHasOne {
			return q.First(ctx)
		}
		recs, err := q.Get(ctx)
		if err != nil {
			return nil, err
		}
		return recs, nil

	case KindBelongsTo:
		fkValue := parent.Get(r.foreignKeyName())
		if fkValue == nil {
			return nil, nil
		}
		return NewQuery(target).Where(r.localKey, fkValue).First(ctx)

	case KindBelongsToMany:
		key := parent.Get(r.localKey)
		if key == nil {
			return r.emptyResult(), nil
		}
		return r.loadThroughPivot(ctx, []any{key}, nil)

	default:
		return nil, fmt.Errorf("orm: unknown relation kind %d", r.kind)
	}
}

func (r *Relation) emptyResult() any {
	if r.kind == KindHasOne || r.kind == KindBelongsTo {
		return (*Record)(nil)
	}
	return []*Record{}
}

// loadThroughPivot selects target rows joined through the pivot for the
// given parent keys. With a grouping map supplied, rows are bucketed per
// parent key (used by eager loading); otherwise the flat list returns.
func (r *Relation) loadThroughPivot(ctx context.Context, parentKeys []any, grouped map[string][]*Record) ([]*Record, error) {
	target, err := r.resolve()
	if err != nil {
		return nil, err
	}
	pivot, err := r.pivotTableName()
	if err != nil {
		return nil, err
	}
	fk := r.foreignKeyName()
	rk := r.relatedKeyName()

	cols := make([]string, 0, len(target.columns)+1)
	for _, c := range target.columns {
		cols = append(cols, "t."+c.Name)
	}
	cols = append(cols, "p."+fk+" AS __parent_key")

	holders := make([]string, len(parentKeys))
	for i := range parentKeys {
		holders[i] = fmt.Sprintf("$%d", i+1)
	}
	sqlStr := fmt.Sprintf(
		"SELECT %s FROM %s AS t JOIN %s AS p ON p.%s = t.%s WHERE p.%s IN (%s)",
		strings.Join(cols, ", "), target.table, pivot, rk, r.relatedLocalKey, fk, strings.Join(holders, ", "))

	var out []*Record
	err = db.With(ctx, db.OpRead, func(ctx context.Context, s *db.Session) error {
		res, err := s.Query(ctx, sqlStr, parentKeys...)
		if err != nil {
			return err
		}
		for _, row := range res.Rows {
			parentKey := row["__parent_key"]
			delete(row, "__parent_key")
			rec := newRecord(target, row)
			out = append(out, rec)
			if grouped != nil {
				k := normKey(parentKey)
				grouped[k] = append(grouped[k], rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Record{}
	}
	return out, nil
}
