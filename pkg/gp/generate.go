package gp

import (
	"math/rand"
)

// Generator produces fresh genotypes and applies the variation operators.
// It owns the rng so runs are reproducible from a single seed.
type Generator struct {
	ps  *PrimitiveSet
	rng *rand.Rand
}

// NewGenerator creates a generator over the given primitive set.
func NewGenerator(ps *PrimitiveSet, rng *rand.Rand) *Generator {
	return &Generator{ps: ps, rng: rng}
}

// terminal samples a random terminal: a declared variable or a fresh
// ephemeral constant, all with equal probability.
func (g *Generator) terminal() Node {
	n := g.ps.Arity()
	pick := g.rng.Intn(n + 1)
	if pick == n {
		return ConstantNode(g.ps.RandomConstant(g.rng))
	}
	return VariableNode(pick, g.ps.VariableName(pick))
}

func (g *Generator) operator() *Operator {
	names := g.ps.opOrder
	op, _ := g.ps.Operator(names[g.rng.Intn(len(names))])
	return op
}

// ratio of terminals among all primitives, used by the grow strategy to
// decide how often branches terminate early.
func (g *Generator) terminalRatio() float64 {
	terms := float64(g.ps.Arity() + 1)
	return terms / (terms + float64(len(g.ps.opOrder)))
}

// generate builds a pre-order sequence. condition reports whether the
// current branch must terminate at the given depth.
func (g *Generator) generate(height int, condition func(depth int) bool) []Node {
	var nodes []Node
	var build func(depth int)
	build = func(depth int) {
		if depth >= height || condition(depth) {
			nodes = append(nodes, g.terminal())
			return
		}
		op := g.operator()
		nodes = append(nodes, OperatorNode(op, op.Arity))
		for i := 0; i < op.Arity; i++ {
			build(depth + 1)
		}
	}
	build(0)
	return nodes
}

// Full grows every branch to the same depth, chosen uniformly in
// [minDepth, maxDepth].
func (g *Generator) Full(minDepth, maxDepth int) []Node {
	height := minDepth + g.rng.Intn(maxDepth-minDepth+1)
	return g.generate(height, func(int) bool { return false })
}

// Grow lets branches terminate early with probability proportional to
// the terminal share of the primitive set, above the minimum depth.
func (g *Generator) Grow(minDepth, maxDepth int) []Node {
	height := minDepth + g.rng.Intn(maxDepth-minDepth+1)
	ratio := g.terminalRatio()
	return g.generate(height, func(depth int) bool {
		return depth >= minDepth && g.rng.Float64() < ratio
	})
}

// HalfAndHalf is the ramped method used for initial populations: each
// individual independently uses either the full or the grow strategy.
func (g *Generator) HalfAndHalf(minDepth, maxDepth int) []Node {
	if g.rng.Float64() < 0.5 {
		return g.Full(minDepth, maxDepth)
	}
	return g.Grow(minDepth, maxDepth)
}

// NewIndividual creates a fresh ramped individual with heights in
// [1, maxHeight].
func (g *Generator) NewIndividual(maxHeight int) *Individual {
	return NewIndividual(g.HalfAndHalf(1, maxHeight))
}

// CxOnePoint performs one-point subtree crossover in place: a random
// crossover point is chosen in each parent independently and the rooted
// subtrees are swapped. Parents with a single node are left unchanged.
func (g *Generator) CxOnePoint(a, b *Individual) {
	if a.Size() < 2 || b.Size() < 2 {
		return
	}

	// Skip the root so crossover always exchanges proper
	// subtrees.
	ia := 1 + g.rng.Intn(a.Size()-1)
	ib := 1 + g.rng.Intn(b.Size()-1)
	endA := a.SubtreeEnd(ia)
	endB := b.SubtreeEnd(ib)

	subA := make([]Node, endA-ia)
	copy(subA, a.Nodes[ia:endA])
	subB := make([]Node, endB-ib)
	copy(subB, b.Nodes[ib:endB])

	a.Nodes = spliceNodes(a.Nodes, ia, endA, subB)
	b.Nodes = spliceNodes(b.Nodes, ib, endB, subA)
	a.ClearFitness()
	b.ClearFitness()
}

// MutUniform replaces a uniformly chosen subtree with a freshly grown one.
func (g *Generator) MutUniform(ind *Individual, maxHeight int) {
	pos := g.rng.Intn(ind.Size())
	end := ind.SubtreeEnd(pos)
	sub := g.Full(0, maxHeight)
	ind.Nodes = spliceNodes(ind.Nodes, pos, end, sub)
	ind.ClearFitness()
}

func spliceNodes(nodes []Node, start, end int, replacement []Node) []Node {
	out := make([]Node, 0, len(nodes)-(end-start)+len(replacement))
	out = append(out, nodes[:start]...)
	out = append(out, replacement...)
	out = append(out, nodes[end:]...)
	return out
}

// MateWithLimit applies crossover to clones of the parents and enforces
// the height bound: any child taller than maxHeight is discarded and the
// corresponding unmodified parent is returned instead. Trees are never
// truncated.
func (g *Generator) MateWithLimit(a, b *Individual, maxHeight int) (*Individual, *Individual) {
	childA, childB := a.Clone(), b.Clone()
	g.CxOnePoint(childA, childB)
	if childA.Height() > maxHeight {
		childA = a.Clone()
	}
	if childB.Height() > maxHeight {
		childB = b.Clone()
	}
	return childA, childB
}

// MutateWithLimit applies uniform mutation to a clone of the parent,
// rolling back to the unmodified parent when the height bound is broken.
func (g *Generator) MutateWithLimit(parent *Individual, maxHeight int) *Individual {
	child := parent.Clone()
	g.MutUniform(child, maxHeight)
	if child.Height() > maxHeight {
		return parent.Clone()
	}
	return child
}
