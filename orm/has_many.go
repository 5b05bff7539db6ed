package orm

import (
	"context"
)

// Write-side helpers of has-many relations. Each stamps the foreign key
// the same way load matches it, and the proxy clears the parent's cache
// afterwards.

func (r *Relation) createChild(ctx context.Context, parent *Record, attrs map[string]any) (*Record, error) {
	target, err := r.resolve()
	if err != nil {
		return nil, err
	}
	stamped := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		stamped[k] = v
	}
	stamped[r.foreignKeyName()] = parent.Get(r.localKey)
	return target.Create(ctx, stamped)
}

func (r *Relation) saveChild(ctx context.Context, parent *Record, child *Record) error {
	if err := child.Set(r.foreignKeyName(), parent.Get(r.localKey)); err != nil {
		return err
	}
	return child.Save(ctx)
}

func (r *Relation) saveChildren(ctx context.Context, parent *Record, children []*Record) error {
	for _, child := range children {
		if err := r.saveChild(ctx, parent, child); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relation) createChildren(ctx context.Context, parent *Record, records []map[string]any) ([]*Record, error) {
	out := make([]*Record, 0, len(records))
	for _, attrs := range records {
		rec, err := r.createChild(ctx, parent, attrs)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Relation) deleteChildren(ctx context.Context, parent *Record) (int64, error) {
	target, err := r.resolve()
	if err != nil {
		return 0, err
	}
	return NewQuery(target).Where(r.foreignKeyName(), parent.Get(r.localKey)).Delete(ctx)
}

func (r *Relation) countChildren(ctx context.Context, parent *Record) (int64, error) {
	target, err := r.resolve()
	if err != nil {
		return 0, err
	}
	return NewQuery(target).Where(r.foreignKeyName(), parent.Get(r.localKey)).Count(ctx)
}
