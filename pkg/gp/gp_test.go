package gp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

func newTestSet(t *testing.T) *PrimitiveSet {
	t.Helper()
	ps, err := NewPrimitiveSet([]string{"cat", "dog", "person"}, 0, 40)
	require.NoError(t, err)
	return ps
}

func TestNewPrimitiveSet(t *testing.T) {
	ps := newTestSet(t)

	assert.Equal(t, 3, ps.Arity())
	assert.Equal(t, []string{"cat", "dog", "person"}, ps.Variables())

	idx, ok := ps.VariableIndex("dog")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	names := ps.OperatorNames()
	assert.Contains(t, names, "and_")
	assert.Contains(t, names, "gt")
}

func TestNewPrimitiveSetRejectsEmptyLabels(t *testing.T) {
	_, err := NewPrimitiveSet(nil, 0, 40)
	require.Error(t, err)
	assert.Equal(t, errors.ConfigInvalid, errors.CodeOf(err))
}

func TestNewPrimitiveSetRejectsDuplicates(t *testing.T) {
	_, err := NewPrimitiveSet([]string{"cat", "Cat"}, 0, 40)
	require.Error(t, err)
	assert.Equal(t, errors.ConfigInvalid, errors.CodeOf(err))
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "traffic_light", NormalizeLabel(" Traffic Light "))
	assert.Equal(t, "e_scooter", NormalizeLabel("E-Scooter"))
	assert.Equal(t, "cat", NormalizeLabel("cat"))
}

func TestOperatorTruthSemantics(t *testing.T) {
	testCases := []struct {
		name     string
		op       string
		args     []float64
		expected float64
	}{
		{"and both present", "and_", []float64{1, 3}, 1},
		{"and one missing", "and_", []float64{1, 0}, 0},
		{"and three args", "and_", []float64{2, 1, 5}, 1},
		{"or none present", "or_", []float64{0, 0}, 0},
		{"or one present", "or_", []float64{0, 2}, 1},
		{"not present", "not_", []float64{3}, 0},
		{"not absent", "not_", []float64{0}, 1},
		{"gt true", "gt", []float64{4, 2}, 1},
		{"gt false", "gt", []float64{2, 4}, 0},
		{"lt true", "lt", []float64{1, 2}, 1},
		{"eq true", "eq", []float64{2, 2}, 1},
		{"eq false", "eq", []float64{2, 3}, 0},
	}

	ps := newTestSet(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			op, ok := ps.Operator(tc.op)
			require.True(t, ok)
			assert.Equal(t, tc.expected, op.Fn(tc.args))
		})
	}
}

func TestIndividualString(t *testing.T) {
	ps := newTestSet(t)
	and, _ := ps.Operator("and_")
	gt, _ := ps.Operator("gt")

	ind := NewIndividual([]Node{
		OperatorNode(and, 2),
		VariableNode(0, "cat"),
		OperatorNode(gt, 2),
		VariableNode(1, "dog"),
		ConstantNode(3),
	})

	assert.Equal(t, "and_(cat, gt(dog, 3.0))", ind.String())
	assert.Equal(t, 5, ind.Size())
	assert.Equal(t, 2, ind.Height())
}

func TestIndividualHeight(t *testing.T) {
	ps := newTestSet(t)
	and, _ := ps.Operator("and_")
	or, _ := ps.Operator("or_")
	gt, _ := ps.Operator("gt")
	not, _ := ps.Operator("not_")

	// Unary chains and last-child subtrees must count every level.
	cases := []struct {
		name   string
		nodes  []Node
		height int
	}{
		{"terminal", []Node{VariableNode(0, "cat")}, 0},
		{"single not", []Node{OperatorNode(not, 1), VariableNode(0, "cat")}, 1},
		{"double not", []Node{
			OperatorNode(not, 1),
			OperatorNode(not, 1),
			VariableNode(0, "cat"),
		}, 2},
		{"triple not", []Node{
			OperatorNode(not, 1),
			OperatorNode(not, 1),
			OperatorNode(not, 1),
			VariableNode(0, "cat"),
		}, 3},
		{"deep last child", []Node{
			OperatorNode(and, 2),
			VariableNode(0, "cat"),
			OperatorNode(gt, 2),
			VariableNode(1, "dog"),
			ConstantNode(3),
		}, 2},
		{"deep first child", []Node{
			OperatorNode(and, 2),
			OperatorNode(gt, 2),
			VariableNode(1, "dog"),
			ConstantNode(3),
			VariableNode(0, "cat"),
		}, 2},
		{"nested under last child", []Node{
			OperatorNode(or, 2),
			VariableNode(0, "cat"),
			OperatorNode(and, 2),
			VariableNode(1, "dog"),
			OperatorNode(not, 1),
			VariableNode(2, "person"),
		}, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.height, NewIndividual(tc.nodes).Height())
		})
	}
}

func TestFormatConstantAvoidsExponentNotation(t *testing.T) {
	assert.Equal(t, "3.0", formatConstant(3))
	assert.Equal(t, "0.00000012", formatConstant(1.2e-07))
	assert.Equal(t, "2.5", formatConstant(2.5))
}

func TestIndividualCloneIsIndependent(t *testing.T) {
	ps := newTestSet(t)
	not, _ := ps.Operator("not_")

	ind := NewIndividual([]Node{OperatorNode(not, 1), VariableNode(0, "cat")})
	ind.SetFitness(0.5)

	clone := ind.Clone()
	assert.Equal(t, ind.String(), clone.String())
	assert.NotEqual(t, ind.ID, clone.ID)

	clone.Nodes[1] = VariableNode(1, "dog")
	assert.Equal(t, "not_(cat)", ind.String())
	assert.Equal(t, "not_(dog)", clone.String())
}

func TestValidateRejectsBadArity(t *testing.T) {
	ps := newTestSet(t)
	gt, _ := ps.Operator("gt")
	and, _ := ps.Operator("and_")

	bad := NewIndividual([]Node{
		OperatorNode(gt, 3),
		VariableNode(0, "cat"),
		VariableNode(1, "dog"),
		ConstantNode(1),
	})
	assert.Error(t, bad.Validate(ps))

	// Variadic operators accept any arity at or above the minimum.
	wide := NewIndividual([]Node{
		OperatorNode(and, 3),
		VariableNode(0, "cat"),
		VariableNode(1, "dog"),
		VariableNode(2, "person"),
	})
	assert.NoError(t, wide.Validate(ps))
}

func TestCompileEvaluates(t *testing.T) {
	ps := newTestSet(t)
	or, _ := ps.Operator("or_")

	ind := NewIndividual([]Node{
		OperatorNode(or, 2),
		VariableNode(0, "cat"),
		VariableNode(1, "dog"),
	})

	fn, err := Compile(ind, ps)
	require.NoError(t, err)

	assert.Equal(t, 1.0, fn([]float64{1, 0, 0}))
	assert.Equal(t, 1.0, fn([]float64{0, 2, 0}))
	assert.Equal(t, 0.0, fn([]float64{0, 0, 5}))
}

func TestGeneratorProducesValidIndividuals(t *testing.T) {
	ps := newTestSet(t)
	gen := NewGenerator(ps, rand.New(rand.NewSource(7)))

	for i := 0; i < 200; i++ {
		ind := gen.NewIndividual(5)
		require.NoError(t, ind.Validate(ps))
		assert.LessOrEqual(t, ind.Height(), 5)
		assert.GreaterOrEqual(t, ind.Height(), 0)
	}
}

func TestFullRespectsDepthRange(t *testing.T) {
	ps := newTestSet(t)
	gen := NewGenerator(ps, rand.New(rand.NewSource(11)))

	for i := 0; i < 100; i++ {
		ind := NewIndividual(gen.Full(2, 4))
		h := ind.Height()
		assert.GreaterOrEqual(t, h, 2)
		assert.LessOrEqual(t, h, 4)
	}
}

func TestVariationRespectsHeightLimit(t *testing.T) {
	const maxHeight = 5

	ps := newTestSet(t)
	gen := NewGenerator(ps, rand.New(rand.NewSource(42)))

	pop := make([]*Individual, 40)
	for i := range pop {
		pop[i] = gen.NewIndividual(maxHeight)
	}

	rng := rand.New(rand.NewSource(43))
	for i := 0; i < 500; i++ {
		a := pop[rng.Intn(len(pop))]
		b := pop[rng.Intn(len(pop))]

		c1, c2 := gen.MateWithLimit(a, b, maxHeight)
		require.NoError(t, c1.Validate(ps))
		require.NoError(t, c2.Validate(ps))
		assert.LessOrEqual(t, c1.Height(), maxHeight)
		assert.LessOrEqual(t, c2.Height(), maxHeight)

		m := gen.MutateWithLimit(a, maxHeight)
		require.NoError(t, m.Validate(ps))
		assert.LessOrEqual(t, m.Height(), maxHeight)
	}
}

func TestVariationDoesNotMutateParents(t *testing.T) {
	ps := newTestSet(t)
	gen := NewGenerator(ps, rand.New(rand.NewSource(3)))

	a := gen.NewIndividual(4)
	b := gen.NewIndividual(4)
	aText, bText := a.String(), b.String()

	for i := 0; i < 50; i++ {
		gen.MateWithLimit(a, b, 4)
		gen.MutateWithLimit(a, 4)
	}

	assert.Equal(t, aText, a.String())
	assert.Equal(t, bText, b.String())
}

func TestRandomConstantWithinRange(t *testing.T) {
	ps := newTestSet(t)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		c := ps.RandomConstant(rng)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.Less(t, c, 40.0)
	}
}
