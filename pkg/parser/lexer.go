package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokAnd
	tokOr
	tokNot
	tokGt
	tokLt
	tokEq
	tokLParen
	tokRParen
	tokComma
	tokArith // arithmetic operators, recognized only to be rejected
	tokEOF
)

type token struct {
	kind  tokenKind
	text  string
	value float64
}

func lex(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case r == ',':
			tokens = append(tokens, token{kind: tokComma, text: ","})
			i++
		case r == '>':
			tokens = append(tokens, token{kind: tokGt, text: ">"})
			i++
		case r == '<':
			tokens = append(tokens, token{kind: tokLt, text: "<"})
			i++
		case r == '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{kind: tokEq, text: "=="})
				i += 2
			} else {
				return nil, errors.New(errors.ExpressionParse, "unsupported operator: =")
			}

		case r == '+' || r == '-' || r == '*' || r == '/' || r == '%':
			tokens = append(tokens, token{kind: tokArith, text: string(r)})
			i++

		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, errors.Newf(errors.ExpressionParse, "invalid numeric constant: %s", text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, value: v})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			text := string(runes[start:i])
			switch strings.ToLower(text) {
			case "and":
				tokens = append(tokens, token{kind: tokAnd, text: text})
			case "or":
				tokens = append(tokens, token{kind: tokOr, text: text})
			case "not":
				tokens = append(tokens, token{kind: tokNot, text: text})
			default:
				tokens = append(tokens, token{kind: tokIdent, text: text})
			}

		case r == '\'' || r == '"':
			return nil, errors.New(errors.ExpressionParse, "unsupported constant type: string")

		default:
			return nil, errors.Newf(errors.ExpressionParse, "unexpected character %q in expression", string(r))
		}
	}

	tokens = append(tokens, token{kind: tokEOF, text: ""})
	return tokens, nil
}

// tokenParser is a recursive-descent parser with python-style precedence:
// or < and < not < comparison < primary.
type tokenParser struct {
	tokens []token
	pos    int
}

func (p *tokenParser) peek() token { return p.tokens[p.pos] }

func (p *tokenParser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *tokenParser) atEnd() bool { return p.peek().kind == tokEOF }

func (p *tokenParser) parseExpr() (expr, error) {
	return p.parseOr()
}

func (p *tokenParser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokOr {
		return left, nil
	}
	values := []expr{left}
	for p.peek().kind == tokOr {
		p.next()
		operand, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		values = append(values, operand)
	}
	return &boolExpr{op: "or_", values: values}, nil
}

func (p *tokenParser) parseAnd() (expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokAnd {
		return left, nil
	}
	values := []expr{left}
	for p.peek().kind == tokAnd {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		values = append(values, operand)
	}
	return &boolExpr{op: "and_", values: values}, nil
}

func (p *tokenParser) parseNot() (expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notExpr{operand: operand}, nil
	}
	return p.parseCompare()
}

var compareOps = map[tokenKind]string{
	tokGt: "gt",
	tokLt: "lt",
	tokEq: "eq",
}

func (p *tokenParser) parseCompare() (expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.peek().kind == tokArith {
		return nil, errors.Newf(errors.ExpressionParse, "unsupported binary operator: %s", p.peek().text)
	}

	op, ok := compareOps[p.peek().kind]
	if !ok {
		return left, nil
	}
	p.next()

	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.peek().kind == tokArith {
		return nil, errors.Newf(errors.ExpressionParse, "unsupported binary operator: %s", p.peek().text)
	}
	if _, chained := compareOps[p.peek().kind]; chained {
		return nil, errors.New(errors.ExpressionParse, "unsupported complex comparison operation")
	}

	return &compareExpr{op: op, left: left, right: right}, nil
}

func (p *tokenParser) parsePrimary() (expr, error) {
	switch t := p.peek(); t.kind {
	case tokNumber:
		p.next()
		return &numberExpr{value: t.value}, nil

	case tokIdent:
		p.next()
		if p.peek().kind != tokLParen {
			return &nameExpr{name: t.text}, nil
		}
		p.next() // consume '('
		var args []expr
		if p.peek().kind != tokRParen {
			for {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().kind != tokComma {
					break
				}
				p.next()
			}
		}
		if p.peek().kind != tokRParen {
			return nil, errors.Newf(errors.ExpressionParse, "unclosed call to %s", t.text)
		}
		p.next()
		return &callExpr{name: strings.ToLower(t.text), args: args}, nil

	case tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, errors.New(errors.ExpressionParse, "missing closing parenthesis")
		}
		p.next()
		return inner, nil

	case tokArith:
		return nil, errors.Newf(errors.ExpressionParse, "unsupported binary operator: %s", t.text)

	case tokEOF:
		return nil, errors.New(errors.ExpressionParse, "unexpected end of expression")

	default:
		return nil, errors.Newf(errors.ExpressionParse, "syntax error near %q", t.text)
	}
}
