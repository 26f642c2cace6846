package expr

// Simplify simplifies both operands, then folds the identities:
//
//	c1 and c2      -> c1 if c1 is falsy, else c2
//	true and x     -> x
//	false and x    -> false
//	c1 or c2       -> c1 if c1 is truthy, else c2
//	false or x     -> x
//	true or x      -> true
//
// Only exact boolean constants take part in the single-sided rules.
// Other operators only recurse.
func (b *BinOp) Simplify() Expr {
	l, r := b.left.Simplify(), b.right.Simplify()

	switch b.op {
	case "and":
		if e := foldAnd(l, r); e != nil {
			return e
		}
	case "or":
		if e := foldOr(l, r); e != nil {
			return e
		}
	}

	if l == b.left && r == b.right {
		return b
	}
	return &BinOp{op: b.op, left: l, right: r, prec: b.prec}
}

func foldAnd(l, r Expr) Expr {
	lc, lok := l.(Constant)
	rc, rok := r.(Constant)

	switch {
	case lok && rok:
		if !lc.truthy() {
			return lc
		}
		return rc
	case lok:
		if b, ok := lc.v.(bool); ok {
			if b {
				return r
			}
			return Constant{v: false}
		}
	case rok:
		if b, ok := rc.v.(bool); ok {
			if b {
				return l
			}
			return Constant{v: false}
		}
	}
	return nil
}

func foldOr(l, r Expr) Expr {
	lc, lok := l.(Constant)
	rc, rok := r.(Constant)

	switch {
	case lok && rok:
		if lc.truthy() {
			return lc
		}
		return rc
	case lok:
		if b, ok := lc.v.(bool); ok {
			if b {
				return Constant{v: true}
			}
			return r
		}
	case rok:
		if b, ok := rc.v.(bool); ok {
			if b {
				return Constant{v: true}
			}
			return l
		}
	}
	return nil
}
