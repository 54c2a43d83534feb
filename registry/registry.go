// Package registry binds legal modules to identifiers and validates their
// rule nodes once, at registration.
package registry

import (
	"sort"
	"sync"

	"legalcosts-backend/models"
)

// Module is one area of law: a fixed node set plus its calculator.
type Module interface {
	ID() string
	Nodes() []models.RuleNode
	FieldRequirements() []models.FieldSpec
	Calculate(matches []models.MatchResult, facts models.FactMap) (*models.CalculationResult, error)
}

type registration struct {
	module Module
	nodes  []models.RuleNode
	fields []models.FieldSpec
}

// Registry holds every registered module for the life of the process.
// Re-registering an id is rejected so a tree cannot be swapped mid-session.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*registration

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]*registration),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (r *Registry) moduleLock(id string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// Register validates a module and makes its nodes visible to Lookup.
func (r *Registry) Register(m Module) error {
	id := m.ID()
	lock := r.moduleLock(id)
	lock.Lock()
	defer lock.Unlock()

	if r.registered(id) {
		return &models.AlreadyRegisteredError{ModuleID: id}
	}

	fields := append([]models.FieldSpec(nil), m.FieldRequirements()...)
	source := m.Nodes()
	if violations := ValidateNodes(id, source, fields); len(violations) > 0 {
		return &models.StructureError{ModuleID: id, Violations: violations}
	}

	nodes := make([]models.RuleNode, len(source))
	for i, n := range source {
		nodes[i] = n.Clone()
		if nodes[i].ModuleID == "" {
			nodes[i].ModuleID = id
		}
	}

	r.mu.Lock()
	r.modules[id] = &registration{module: m, nodes: nodes, fields: fields}
	r.mu.Unlock()
	return nil
}

func (r *Registry) registered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[id]
	return ok
}

func (r *Registry) get(id string) (*registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.modules[id]
	if !ok {
		return nil, &models.NotFoundError{ModuleID: id}
	}
	return reg, nil
}

// Lookup returns a copy of a module's nodes.
func (r *Registry) Lookup(id string) ([]models.RuleNode, error) {
	reg, err := r.get(id)
	if err != nil {
		return nil, err
	}
	out := make([]models.RuleNode, len(reg.nodes))
	for i, n := range reg.nodes {
		out[i] = n.Clone()
	}
	return out, nil
}

// Module returns the registered module value.
func (r *Registry) Module(id string) (Module, error) {
	reg, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return reg.module, nil
}

// Fields returns a module's declared fact fields.
func (r *Registry) Fields(id string) ([]models.FieldSpec, error) {
	reg, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return append([]models.FieldSpec(nil), reg.fields...), nil
}

// Modules lists registered module ids in ascending order.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
