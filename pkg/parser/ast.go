package parser

// Tagged expression variants produced by the token parser. Validation
// against the primitive set happens in the converter, so structure and
// vocabulary failures stay distinct.
type expr interface{ isExpr() }

// boolExpr is an n-ary boolean connective (and_/or_).
type boolExpr struct {
	op     string
	values []expr
}

// notExpr is the unary negation.
type notExpr struct {
	operand expr
}

// compareExpr is a single non-chained comparison (gt/lt/eq).
type compareExpr struct {
	op    string
	left  expr
	right expr
}

// callExpr names a registered operator in function-call syntax.
type callExpr struct {
	name string
	args []expr
}

// nameExpr is a bare identifier that must map to a declared variable.
type nameExpr struct {
	name string
}

// numberExpr is a numeric literal constant.
type numberExpr struct {
	value float64
}

func (*boolExpr) isExpr()    {}
func (*notExpr) isExpr()     {}
func (*compareExpr) isExpr() {}
func (*callExpr) isExpr()    {}
func (*nameExpr) isExpr()    {}
func (*numberExpr) isExpr()  {}
