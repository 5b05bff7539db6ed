package orm

import (
	"fmt"
	"strings"
	"sync"
)

// The type registry maps model names to their handles so relations can
// hold a target's name and resolve it lazily — the mechanism that breaks
// circular references between models. It is populated by Define during
// startup and read-only once traffic begins.
var (
	regMu    sync.RWMutex
	registry = make(map[string]*Model)
)

// Define registers a model type. It must be called exactly once per
// name, during startup; redefining a name panics.
func Define(name string, opts ...Option) *Model {
	m := &Model{
		name:      name,
		table:     strings.ToLower(name) + "s",
		pk:        "id",
		colSet:    make(map[string]Column),
		scopes:    make(map[string]ScopeFunc),
		relations: make(map[string]*Relation),
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.HasColumn(m.pk) {
		// Put the primary key first so generated column lists lead with it.
		m.columns = append([]Column{{Name: m.pk, PrimaryKey: true}}, m.columns...)
		m.colSet[m.pk] = Column{Name: m.pk, PrimaryKey: true}
	}
	for _, r := range m.relations {
		r.owner = m
	}

	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("orm: model %q defined twice", name))
	}
	registry[name] = m
	return m
}

// Lookup resolves a model by its registered name.
func Lookup(name string) (*Model, error) {
	regMu.RLock()
	defer regMu.RUnlock()
	m, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedRelationTarget, name)
	}
	return m, nil
}

// resetRegistry clears all registered models. Test use only.
func resetRegistry() {
	regMu.Lock()
	defer regMu.Unlock()
	registry = make(map[string]*Model)
}
