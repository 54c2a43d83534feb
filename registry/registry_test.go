package registry

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"legalcosts-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModule struct {
	id     string
	nodes  []models.RuleNode
	fields []models.FieldSpec
}

func (m *stubModule) ID() string                            { return m.id }
func (m *stubModule) Nodes() []models.RuleNode              { return m.nodes }
func (m *stubModule) FieldRequirements() []models.FieldSpec { return m.fields }
func (m *stubModule) Calculate([]models.MatchResult, models.FactMap) (*models.CalculationResult, error) {
	return &models.CalculationResult{ModuleID: m.id}, nil
}

func node(id string) models.RuleNode {
	return models.RuleNode{
		NodeID:     id,
		Citation:   "CPR 45.1",
		Confidence: 1,
		What: []models.DimensionEntry{{
			Proposition: "fixed costs apply",
			Weight:      1,
			Conditions:  []models.Condition{{Field: "court_level", Op: models.OpEq, Value: "High Court"}},
		}},
	}
}

func validModule(id string) *stubModule {
	return &stubModule{
		id:     id,
		nodes:  []models.RuleNode{node("a"), node("b")},
		fields: []models.FieldSpec{{Name: "court_level", Type: models.FieldString}},
	}
}

func TestRegister_DuplicateNodeID(t *testing.T) {
	r := NewRegistry()
	m := validModule("civil")
	m.nodes = append(m.nodes, node("a"))

	err := r.Register(m)
	var structErr *models.StructureError
	require.True(t, errors.As(err, &structErr))
	assert.Equal(t, "civil", structErr.ModuleID)
	require.Len(t, structErr.Violations, 1)
	assert.Contains(t, structErr.Violations[0], `duplicate node_id "a"`)

	_, err = r.Lookup("civil")
	assert.ErrorIs(t, err, models.ErrModuleNotFound)
}

func TestRegister_ListsEveryViolation(t *testing.T) {
	r := NewRegistry()
	bad := node("bad")
	bad.Confidence = 1.5
	bad.What[0].Conditions = append(bad.What[0].Conditions,
		models.Condition{Field: "court_level", Op: "approx", Value: "x"},
		models.Condition{Field: "colour", Op: models.OpPresent},
	)
	bad.RelatedNodes = []string{"ghost"}

	empty := models.RuleNode{NodeID: "empty", Citation: "CPR 45.2"}

	m := validModule("civil")
	m.nodes = []models.RuleNode{node("a"), bad, empty, {Citation: "no id", What: node("x").What}}

	err := r.Register(m)
	var structErr *models.StructureError
	require.True(t, errors.As(err, &structErr))

	joined := fmt.Sprint(structErr.Violations)
	assert.Contains(t, joined, "confidence 1.5")
	assert.Contains(t, joined, `unrecognized comparator "approx"`)
	assert.Contains(t, joined, `undeclared field "colour"`)
	assert.Contains(t, joined, `unknown node "ghost"`)
	assert.Contains(t, joined, "node empty has no populated dimensions")
	assert.Contains(t, joined, "empty node_id")
	assert.Len(t, structErr.Violations, 6)
}

func TestRegister_RejectsNaN(t *testing.T) {
	r := NewRegistry()
	m := validModule("civil")
	m.nodes[0].Confidence = math.NaN()
	m.nodes[1].What[0].Weight = math.NaN()

	err := r.Register(m)
	var structErr *models.StructureError
	require.True(t, errors.As(err, &structErr))
	assert.Len(t, structErr.Violations, 2)
	assert.Contains(t, structErr.Violations[0], "confidence NaN outside [0,1]")
	assert.Contains(t, structErr.Violations[1], "weight NaN outside [0,1]")
}

func TestRegister_NoNodes(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&stubModule{id: "empty"})
	var structErr *models.StructureError
	require.True(t, errors.As(err, &structErr))
	assert.Equal(t, []string{"module declares no nodes"}, structErr.Violations)
}

func TestRegister_RejectsReRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validModule("civil")))

	err := r.Register(validModule("civil"))
	assert.ErrorIs(t, err, models.ErrAlreadyRegistered)
	var dup *models.AlreadyRegisteredError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "civil", dup.ModuleID)
}

func TestLookup_NotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nope")
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "nope", nf.ModuleID)

	_, err = r.Module("nope")
	assert.ErrorIs(t, err, models.ErrModuleNotFound)
	_, err = r.Fields("nope")
	assert.ErrorIs(t, err, models.ErrModuleNotFound)
}

func TestLookup_ReturnsIsolatedCopies(t *testing.T) {
	r := NewRegistry()
	m := validModule("civil")
	require.NoError(t, r.Register(m))

	// mutating the author's slice after registration has no effect
	m.nodes[0].Citation = "changed"

	nodes, err := r.Lookup("civil")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "CPR 45.1", nodes[0].Citation)
	assert.Equal(t, "civil", nodes[0].ModuleID)

	nodes[0].What[0].Proposition = "mutated"
	again, err := r.Lookup("civil")
	require.NoError(t, err)
	assert.Equal(t, "fixed costs apply", again[0].What[0].Proposition)
}

func TestModules_Sorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"family", "civil", "tribunal"} {
		require.NoError(t, r.Register(validModule(id)))
	}
	assert.Equal(t, []string{"civil", "family", "tribunal"}, r.Modules())
}

func TestRegister_ConcurrentSameID(t *testing.T) {
	r := NewRegistry()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Register(validModule("civil")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestLookup_ConcurrentWithRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(validModule("civil")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(validModule(fmt.Sprintf("m%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			nodes, err := r.Lookup("civil")
			assert.NoError(t, err)
			assert.Len(t, nodes, 2)
		}()
	}
	wg.Wait()
	assert.Len(t, r.Modules(), 9)
}
