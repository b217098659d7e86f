// Package parser converts advisor-supplied expression text into validated
// genetic material compatible with an active primitive set.
//
// The surface syntax covers boolean connectives (and, or, not), single
// non-chained comparisons (>, <, ==), calls naming registered operators,
// declared variable identifiers and numeric constants. Boolean connectives
// with more than two operands collapse into one n-ary call.
package parser

import (
	"strings"

	"github.com/ishanwen-byte/symrule-go/pkg/errors"
	"github.com/ishanwen-byte/symrule-go/pkg/gp"
)

// Parser converts expression text into genotypes over a primitive set.
type Parser struct {
	ps *gp.PrimitiveSet
}

// New creates a parser bound to the given primitive set. The set must
// carry every operator the surface syntax can name.
func New(ps *gp.PrimitiveSet) (*Parser, error) {
	for _, name := range []string{"and_", "or_", "not_", "gt", "lt", "eq"} {
		if _, ok := ps.Operator(name); !ok {
			return nil, errors.Newf(errors.ConfigInvalid, "missing required primitive %q", name)
		}
	}
	return &Parser{ps: ps}, nil
}

// Parse converts expression text into a genotype. All failures are
// reported as ExpressionParse errors with a distinct reason.
func (p *Parser) Parse(text string) (*gp.Individual, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ExpressionParse, "empty expression provided")
	}

	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}

	tp := &tokenParser{tokens: tokens}
	root, err := tp.parseExpr()
	if err != nil {
		return nil, err
	}
	if !tp.atEnd() {
		return nil, errors.Newf(errors.ExpressionParse, "unexpected trailing input at %q", tp.peek().text)
	}

	nodes, err := p.convert(root)
	if err != nil {
		return nil, err
	}
	return gp.NewIndividual(nodes), nil
}

// CheckHeight guards a structurally valid tree against the configured
// maximum. It is invoked separately, after parsing, before integration.
func CheckHeight(ind *gp.Individual, maxHeight int) error {
	if h := ind.Height(); h > maxHeight {
		return errors.Newf(errors.ExpressionTooTall,
			"expression tree height %d exceeds maximum allowed height %d", h, maxHeight)
	}
	return nil
}

// convert walks the AST and emits the pre-order node sequence, applying
// each variant's validation rule.
func (p *Parser) convert(e expr) ([]gp.Node, error) {
	switch n := e.(type) {
	case *boolExpr:
		op, ok := p.ps.Operator(n.op)
		if !ok {
			return nil, errors.Newf(errors.ExpressionParse, "primitive operator not found: %s", n.op)
		}
		out := []gp.Node{gp.OperatorNode(op, len(n.values))}
		for _, v := range n.values {
			sub, err := p.convert(v)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil

	case *notExpr:
		op, ok := p.ps.Operator("not_")
		if !ok {
			return nil, errors.New(errors.ExpressionParse, "primitive operator not found: not_")
		}
		sub, err := p.convert(n.operand)
		if err != nil {
			return nil, err
		}
		return append([]gp.Node{gp.OperatorNode(op, 1)}, sub...), nil

	case *compareExpr:
		op, ok := p.ps.Operator(n.op)
		if !ok {
			return nil, errors.Newf(errors.ExpressionParse, "primitive operator not found: %s", n.op)
		}
		left, err := p.convert(n.left)
		if err != nil {
			return nil, err
		}
		right, err := p.convert(n.right)
		if err != nil {
			return nil, err
		}
		out := []gp.Node{gp.OperatorNode(op, 2)}
		out = append(out, left...)
		return append(out, right...), nil

	case *callExpr:
		op, ok := p.ps.Operator(n.name)
		if !ok {
			return nil, errors.Newf(errors.ExpressionParse, "primitive operator not found: %s", n.name)
		}
		if len(n.args) != op.Arity && !(op.Variadic && len(n.args) > op.Arity) {
			return nil, errors.Newf(errors.ExpressionParse,
				"operator %s expects %d arguments, got %d", n.name, op.Arity, len(n.args))
		}
		out := []gp.Node{gp.OperatorNode(op, len(n.args))}
		for _, a := range n.args {
			sub, err := p.convert(a)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil

	case *nameExpr:
		name := gp.NormalizeLabel(n.name)
		idx, ok := p.ps.VariableIndex(name)
		if !ok {
			return nil, errors.Newf(errors.ExpressionParse, "unknown variable: %s", name)
		}
		return []gp.Node{gp.VariableNode(idx, name)}, nil

	case *numberExpr:
		return []gp.Node{gp.ConstantNode(n.value)}, nil

	default:
		return nil, errors.Newf(errors.ExpressionParse, "unsupported node type: %T", e)
	}
}
