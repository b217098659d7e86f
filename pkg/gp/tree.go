package gp

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

// NodeKind distinguishes the node variants of a genotype tree.
type NodeKind int

const (
	NodeOperator NodeKind = iota
	NodeVariable
	NodeConstant
)

// Node is one element of a flattened pre-order genotype sequence.
// Operator nodes carry their call arity, which may exceed the registered
// arity for n-ary and_/or_ calls produced by the parser.
type Node struct {
	Kind     NodeKind
	Op       *Operator
	Arity    int
	VarIndex int
	VarName  string
	Value    float64
}

// OperatorNode builds an operator node with an explicit call arity.
func OperatorNode(op *Operator, arity int) Node {
	return Node{Kind: NodeOperator, Op: op, Arity: arity}
}

// VariableNode builds a terminal referencing a declared variable.
func VariableNode(index int, name string) Node {
	return Node{Kind: NodeVariable, VarIndex: index, VarName: name}
}

// ConstantNode builds a fixed numeric terminal.
func ConstantNode(value float64) Node {
	return Node{Kind: NodeConstant, Value: value}
}

// Individual is a genotype: a tree serialized as a pre-order node
// sequence, plus its fitness once evaluated.
type Individual struct {
	ID    string
	Nodes []Node

	fitness    float64
	hasFitness bool
}

// NewIndividual wraps a node sequence into a fresh individual.
func NewIndividual(nodes []Node) *Individual {
	return &Individual{
		ID:      uuid.New().String(),
		Nodes:   nodes,
		fitness: math.NaN(),
	}
}

// Clone returns a deep copy with a new ID and the same fitness state.
func (ind *Individual) Clone() *Individual {
	nodes := make([]Node, len(ind.Nodes))
	copy(nodes, ind.Nodes)
	c := NewIndividual(nodes)
	c.fitness = ind.fitness
	c.hasFitness = ind.hasFitness
	return c
}

// Fitness returns the evaluated fitness, NaN when unset.
func (ind *Individual) Fitness() float64 {
	return ind.fitness
}

// HasFitness reports whether the individual has been evaluated.
func (ind *Individual) HasFitness() bool {
	return ind.hasFitness
}

// SetFitness records an evaluated fitness value.
func (ind *Individual) SetFitness(f float64) {
	ind.fitness = f
	ind.hasFitness = true
}

// ClearFitness marks the individual as not yet evaluated.
func (ind *Individual) ClearFitness() {
	ind.fitness = math.NaN()
	ind.hasFitness = false
}

// Size returns the node count.
func (ind *Individual) Size() int {
	return len(ind.Nodes)
}

// Height returns the maximum root-to-leaf edge count.
func (ind *Individual) Height() int {
	// Pre-order depth stack: pop this node's depth, push one depth+1
	// frame per child.
	max := 0
	stack := []int{0}
	for _, node := range ind.Nodes {
		depth := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if depth > max {
			max = depth
		}
		for i := 0; i < node.Arity; i++ {
			stack = append(stack, depth+1)
		}
	}
	return max
}

// SubtreeEnd returns the exclusive end index of the subtree rooted at start.
func (ind *Individual) SubtreeEnd(start int) int {
	end := start + 1
	pending := ind.Nodes[start].Arity
	for pending > 0 {
		pending += ind.Nodes[end].Arity - 1
		end++
	}
	return end
}

func formatConstant(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	// Plain decimal notation only; exponent forms do not survive a
	// re-parse of the canonical text.
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// String renders the canonical textual form, e.g. and_(cat, gt(dog, 3.0)).
// Individuals with identical canonical strings are considered duplicates.
func (ind *Individual) String() string {
	var b strings.Builder
	ind.writeNode(&b, 0)
	return b.String()
}

func (ind *Individual) writeNode(b *strings.Builder, pos int) int {
	node := ind.Nodes[pos]
	switch node.Kind {
	case NodeVariable:
		b.WriteString(node.VarName)
		return pos + 1
	case NodeConstant:
		b.WriteString(formatConstant(node.Value))
		return pos + 1
	default:
		b.WriteString(node.Op.Name)
		b.WriteByte('(')
		next := pos + 1
		for i := 0; i < node.Arity; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			next = ind.writeNode(b, next)
		}
		b.WriteByte(')')
		return next
	}
}

// Validate checks the structural invariants of the node sequence: a single
// complete pre-order tree, positive operator arities, variable indexes
// within the primitive set.
func (ind *Individual) Validate(ps *PrimitiveSet) error {
	if len(ind.Nodes) == 0 {
		return errors.New(errors.Evaluation, "empty genotype")
	}
	pending := 1
	for i, node := range ind.Nodes {
		if pending == 0 {
			return errors.Newf(errors.Evaluation, "trailing nodes after complete tree at index %d", i)
		}
		pending--
		switch node.Kind {
		case NodeOperator:
			if node.Op == nil {
				return errors.Newf(errors.Evaluation, "nil operator at index %d", i)
			}
			if node.Arity < 1 {
				return errors.Newf(errors.Evaluation, "operator %s with arity %d", node.Op.Name, node.Arity)
			}
			if node.Arity != node.Op.Arity && !(node.Op.Variadic && node.Arity > node.Op.Arity) {
				return errors.Newf(errors.Evaluation, "operator %s does not support arity %d", node.Op.Name, node.Arity)
			}
			pending += node.Arity
		case NodeVariable:
			if node.VarIndex < 0 || node.VarIndex >= ps.Arity() {
				return errors.Newf(errors.Evaluation, "variable index %d out of range", node.VarIndex)
			}
		}
	}
	if pending != 0 {
		return errors.New(errors.Evaluation, "truncated genotype")
	}
	return nil
}

// Compile turns the genotype into an executable function of the
// label-count vector. The sequence is validated up front; the returned
// function itself cannot fail.
func Compile(ind *Individual, ps *PrimitiveSet) (func(x []float64) float64, error) {
	if err := ind.Validate(ps); err != nil {
		return nil, err
	}

	nodes := make([]Node, len(ind.Nodes))
	copy(nodes, ind.Nodes)

	var eval func(x []float64, pos int) (float64, int)
	eval = func(x []float64, pos int) (float64, int) {
		node := nodes[pos]
		switch node.Kind {
		case NodeVariable:
			return x[node.VarIndex], pos + 1
		case NodeConstant:
			return node.Value, pos + 1
		default:
			args := make([]float64, node.Arity)
			next := pos + 1
			for i := 0; i < node.Arity; i++ {
				args[i], next = eval(x, next)
			}
			return node.Op.Fn(args), next
		}
	}

	return func(x []float64) float64 {
		v, _ := eval(x, 0)
		return v
	}, nil
}
