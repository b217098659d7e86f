package gp

import (
	"math/rand"
	"strings"

	"github.com/ishanwen-byte/symrule-go/internal/constants"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

// Operator is a registered primitive with boolean count semantics.
// A numeric value is treated as true iff it is >= 1.
type Operator struct {
	Name  string
	Arity int
	// Variadic operators accept more than Arity operands; the parser
	// collapses chained boolean connectives into one n-ary call.
	Variadic bool
	Fn       func(args []float64) float64
}

func truthy(v float64) bool { return v >= 1 }

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func opAnd(args []float64) float64 {
	for _, a := range args {
		if !truthy(a) {
			return 0
		}
	}
	return 1
}

func opOr(args []float64) float64 {
	for _, a := range args {
		if truthy(a) {
			return 1
		}
	}
	return 0
}

func opNot(args []float64) float64 {
	return boolVal(!truthy(args[0]))
}

func opGt(args []float64) float64 { return boolVal(args[0] > args[1]) }
func opLt(args []float64) float64 { return boolVal(args[0] < args[1]) }
func opEq(args []float64) float64 { return boolVal(args[0] == args[1]) }

// PrimitiveSet holds the vocabulary available to genotypes: the ordered
// label variables, the registered operators and the ephemeral constant
// range. It is immutable once built.
type PrimitiveSet struct {
	variables []string
	varIndex  map[string]int
	operators map[string]*Operator
	opOrder   []string

	ephemeralMin float64
	ephemeralMax float64
}

// NormalizeLabel maps a raw label to its variable name: trimmed,
// spaces and hyphens replaced with underscores, lowercased.
func NormalizeLabel(label string) string {
	s := strings.TrimSpace(label)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ToLower(s)
}

// NewPrimitiveSet builds a primitive set over the given labels.
// Labels must be non-empty and unique after normalization.
func NewPrimitiveSet(labels []string, ephemeralMin, ephemeralMax float64) (*PrimitiveSet, error) {
	if len(labels) == 0 {
		return nil, errors.New(errors.ConfigInvalid, "empty labels list")
	}

	ps := &PrimitiveSet{
		variables:    make([]string, 0, len(labels)),
		varIndex:     make(map[string]int, len(labels)),
		operators:    make(map[string]*Operator),
		ephemeralMin: ephemeralMin,
		ephemeralMax: ephemeralMax,
	}

	for i, label := range labels {
		name := NormalizeLabel(label)
		if name == "" {
			return nil, errors.Newf(errors.ConfigInvalid, "blank label at index %d", i)
		}
		if _, dup := ps.varIndex[name]; dup {
			return nil, errors.Newf(errors.ConfigInvalid, "duplicate label %q", name)
		}
		ps.varIndex[name] = i
		ps.variables = append(ps.variables, name)
	}

	for _, op := range []*Operator{
		{Name: constants.OpAnd, Arity: 2, Variadic: true, Fn: opAnd},
		{Name: constants.OpOr, Arity: 2, Variadic: true, Fn: opOr},
		{Name: constants.OpNot, Arity: 1, Fn: opNot},
		{Name: constants.OpGt, Arity: 2, Fn: opGt},
		{Name: constants.OpLt, Arity: 2, Fn: opLt},
		{Name: constants.OpEq, Arity: 2, Fn: opEq},
	} {
		ps.operators[op.Name] = op
		ps.opOrder = append(ps.opOrder, op.Name)
	}

	return ps, nil
}

// Arity returns the number of declared variables.
func (ps *PrimitiveSet) Arity() int {
	return len(ps.variables)
}

// Variables returns the ordered variable names.
func (ps *PrimitiveSet) Variables() []string {
	out := make([]string, len(ps.variables))
	copy(out, ps.variables)
	return out
}

// VariableIndex resolves a normalized variable name to its argument index.
func (ps *PrimitiveSet) VariableIndex(name string) (int, bool) {
	idx, ok := ps.varIndex[name]
	return idx, ok
}

// VariableName returns the name of the variable at the given index.
func (ps *PrimitiveSet) VariableName(index int) string {
	return ps.variables[index]
}

// Operator resolves a registered operator by name.
func (ps *PrimitiveSet) Operator(name string) (*Operator, bool) {
	op, ok := ps.operators[name]
	return op, ok
}

// OperatorNames returns the registered operator names in registration order.
func (ps *PrimitiveSet) OperatorNames() []string {
	out := make([]string, len(ps.opOrder))
	copy(out, ps.opOrder)
	return out
}

// RandomConstant samples an ephemeral constant from the configured range.
// The value is fixed at the terminal for the rest of its life.
func (ps *PrimitiveSet) RandomConstant(rng *rand.Rand) float64 {
	return ps.ephemeralMin + rng.Float64()*(ps.ephemeralMax-ps.ephemeralMin)
}
