package grailtest

import (
	"context"

	"github.com/shaurya/grail/orm"
)

// Factory provides test data creation helpers. Defaults registered per
// model merge under per-call overrides.
type Factory struct {
	defaults map[string]map[string]any
}

// NewFactory creates a new Factory.
func NewFactory() *Factory {
	return &Factory{defaults: make(map[string]map[string]any)}
}

// Define registers default attributes for a model.
func (f *Factory) Define(model *orm.Model, defaults map[string]any) {
	f.defaults[model.Name()] = defaults
}

// Attrs returns the registered defaults merged with overrides.
func (f *Factory) Attrs(model *orm.Model, overrides map[string]any) map[string]any {
	merged := make(map[string]any)
	for k, v := range f.defaults[model.Name()] {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Build creates an unsaved record from defaults plus overrides.
func (f *Factory) Build(model *orm.Model, overrides map[string]any) *orm.Record {
	return model.New(f.Attrs(model, overrides))
}

// Create builds a record and persists it.
func (f *Factory) Create(ctx context.Context, model *orm.Model, overrides map[string]any) (*orm.Record, error) {
	return model.Create(ctx, f.Attrs(model, overrides))
}
