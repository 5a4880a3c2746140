package vm

import (
	"math"
	"strings"
)

// binopFunc evaluates one binary operator over two concrete values. It
// returns Uncomputable instead of failing; no operator ever panics outward.
type binopFunc func(a, b Value) Value

// binopTable maps operator spellings to evaluators. It spans spellings from
// several source-language families: both "%" and "mod", both "!=" and "<>",
// both "and"/"or" and "&&"/"||", and the null-coalescing "??".
var binopTable = map[string]binopFunc{
	"+":   opAdd,
	"-":   opSub,
	"*":   opMul,
	"/":   opDiv,
	"//":  opFloorDiv,
	"%":   opMod,
	"mod": opMod,
	"**":  opPow,

	"==": func(a, b Value) Value { return Concrete(a.Equal(b)) },
	"!=": func(a, b Value) Value { return Concrete(!a.Equal(b)) },
	"<>": func(a, b Value) Value { return Concrete(!a.Equal(b)) },
	"<":  opLess,
	">":  func(a, b Value) Value { return opLess(b, a) },
	"<=": opLessEq,
	">=": func(a, b Value) Value { return opLessEq(b, a) },

	"and": opAnd,
	"&&":  opAnd,
	"or":  opOr,
	"||":  opOr,

	"in": opIn,
	"??": opCoalesce,

	"&":  intOp(func(a, b int64) Value { return Concrete(a & b) }),
	"|":  intOp(func(a, b int64) Value { return Concrete(a | b) }),
	"^":  intOp(func(a, b int64) Value { return Concrete(a ^ b) }),
	"<<": opShiftLeft,
	">>": opShiftRight,
}

// EvalBinop evaluates op over two operands. Evaluation is pure and total:
// unknown operators, non-concrete operands, type mismatches and zero
// divisors all collapse to the Uncomputable sentinel, signaling "defer to
// the next resolution tier".
func EvalBinop(op string, lhs, rhs Value) Value {
	fn, ok := binopTable[op]
	if !ok {
		return Uncomputable
	}
	if !locallyComparable(op, lhs) || !locallyComparable(op, rhs) {
		return Uncomputable
	}
	return fn(lhs, rhs)
}

// locallyComparable reports whether an operand can participate in local
// evaluation. Heap references only support identity-flavored operators.
func locallyComparable(op string, v Value) bool {
	switch v.Kind {
	case KindConcrete:
		return true
	case KindHeapRef:
		return op == "==" || op == "!=" || op == "<>" || op == "??"
	}
	return false
}

// EvalUnop evaluates a unary operator: negation, numeric identity,
// logical-not (two spellings), bitwise-not, length-of and pass-through.
func EvalUnop(op string, operand Value) Value {
	switch op {
	case "-":
		if i, ok := operand.Int(); ok {
			return Concrete(-i)
		}
		if f, ok := operand.Float(); ok {
			return Concrete(-f)
		}
	case "+":
		if _, ok := operand.Int(); ok {
			return operand
		}
		if _, ok := operand.Float(); ok {
			return operand
		}
	case "not", "!":
		if t, ok := operand.Truthy(); ok {
			return Concrete(!t)
		}
	case "~":
		if i, ok := operand.Int(); ok {
			return Concrete(^i)
		}
	case "len":
		return concreteLen(operand)
	case "id":
		if operand.Kind == KindConcrete || operand.Kind == KindHeapRef {
			return operand
		}
	}
	return Uncomputable
}

func concreteLen(v Value) Value {
	if s, ok := v.Str(); ok {
		return Concrete(int64(len(s)))
	}
	if l, ok := v.List(); ok {
		return Concrete(int64(len(l)))
	}
	if m, ok := v.Map(); ok {
		return Concrete(int64(len(m)))
	}
	return Uncomputable
}

func bothInts(a, b Value) (int64, int64, bool) {
	ai, aok := a.Int()
	bi, bok := b.Int()
	return ai, bi, aok && bok
}

func bothFloats(a, b Value) (float64, float64, bool) {
	af, aok := a.Float()
	bf, bok := b.Float()
	return af, bf, aok && bok
}

func intOp(fn func(a, b int64) Value) binopFunc {
	return func(a, b Value) Value {
		if ai, bi, ok := bothInts(a, b); ok {
			return fn(ai, bi)
		}
		return Uncomputable
	}
}

func opAdd(a, b Value) Value {
	if ai, bi, ok := bothInts(a, b); ok {
		return Concrete(ai + bi)
	}
	if af, bf, ok := bothFloats(a, b); ok {
		return Concrete(af + bf)
	}
	if as, ok := a.Str(); ok {
		if bs, ok := b.Str(); ok {
			return Concrete(as + bs)
		}
	}
	if al, ok := a.List(); ok {
		if bl, ok := b.List(); ok {
			out := make([]Value, 0, len(al)+len(bl))
			out = append(out, al...)
			out = append(out, bl...)
			return Concrete(out)
		}
	}
	return Uncomputable
}

func opSub(a, b Value) Value {
	if ai, bi, ok := bothInts(a, b); ok {
		return Concrete(ai - bi)
	}
	if af, bf, ok := bothFloats(a, b); ok {
		return Concrete(af - bf)
	}
	return Uncomputable
}

func opMul(a, b Value) Value {
	if ai, bi, ok := bothInts(a, b); ok {
		return Concrete(ai * bi)
	}
	if af, bf, ok := bothFloats(a, b); ok {
		return Concrete(af * bf)
	}
	if as, ok := a.Str(); ok {
		if bi, ok := b.Int(); ok && bi >= 0 {
			return Concrete(strings.Repeat(as, int(bi)))
		}
	}
	return Uncomputable
}

// opDiv is true division; an integer result stays exact as a float, the
// way dynamically typed sources expect. A zero divisor is Uncomputable
// before the operation is attempted.
func opDiv(a, b Value) Value {
	if bf, ok := b.Float(); ok && bf == 0 {
		return Uncomputable
	}
	if af, bf, ok := bothFloats(a, b); ok {
		return Concrete(af / bf)
	}
	return Uncomputable
}

// opFloorDiv floors toward negative infinity, matching the source
// languages that spell it "//".
func opFloorDiv(a, b Value) Value {
	if bf, ok := b.Float(); ok && bf == 0 {
		return Uncomputable
	}
	if ai, bi, ok := bothInts(a, b); ok {
		q := ai / bi
		if (ai%bi != 0) && ((ai < 0) != (bi < 0)) {
			q--
		}
		return Concrete(q)
	}
	if af, bf, ok := bothFloats(a, b); ok {
		return Concrete(math.Floor(af / bf))
	}
	return Uncomputable
}

// opMod follows floored-modulo semantics: the result takes the divisor's
// sign. A zero divisor is Uncomputable before the operation is attempted.
func opMod(a, b Value) Value {
	if bf, ok := b.Float(); ok && bf == 0 {
		return Uncomputable
	}
	if ai, bi, ok := bothInts(a, b); ok {
		r := ai % bi
		if r != 0 && ((r < 0) != (bi < 0)) {
			r += bi
		}
		return Concrete(r)
	}
	if af, bf, ok := bothFloats(a, b); ok {
		r := math.Mod(af, bf)
		if r != 0 && ((r < 0) != (bf < 0)) {
			r += bf
		}
		return Concrete(r)
	}
	return Uncomputable
}

func opPow(a, b Value) Value {
	if ai, bi, ok := bothInts(a, b); ok && bi >= 0 {
		result := int64(1)
		for i := int64(0); i < bi; i++ {
			result *= ai
		}
		return Concrete(result)
	}
	if af, bf, ok := bothFloats(a, b); ok {
		r := math.Pow(af, bf)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return Uncomputable
		}
		return Concrete(r)
	}
	return Uncomputable
}

func opLess(a, b Value) Value {
	if af, bf, ok := bothFloats(a, b); ok {
		return Concrete(af < bf)
	}
	if as, ok := a.Str(); ok {
		if bs, ok := b.Str(); ok {
			return Concrete(as < bs)
		}
	}
	return Uncomputable
}

func opLessEq(a, b Value) Value {
	if af, bf, ok := bothFloats(a, b); ok {
		return Concrete(af <= bf)
	}
	if as, ok := a.Str(); ok {
		if bs, ok := b.Str(); ok {
			return Concrete(as <= bs)
		}
	}
	return Uncomputable
}

// opAnd and opOr short-circuit on truthiness and return the deciding
// operand, matching the dynamically typed sources this IR comes from.
func opAnd(a, b Value) Value {
	t, ok := a.Truthy()
	if !ok {
		return Uncomputable
	}
	if !t {
		return a
	}
	return b
}

func opOr(a, b Value) Value {
	t, ok := a.Truthy()
	if !ok {
		return Uncomputable
	}
	if t {
		return a
	}
	return b
}

func opIn(a, b Value) Value {
	if bl, ok := b.List(); ok {
		for _, e := range bl {
			if a.Equal(e) {
				return Concrete(true)
			}
		}
		return Concrete(false)
	}
	if bm, ok := b.Map(); ok {
		if as, ok := a.Str(); ok {
			_, found := bm[as]
			return Concrete(found)
		}
		return Uncomputable
	}
	if bs, ok := b.Str(); ok {
		if as, ok := a.Str(); ok {
			return Concrete(strings.Contains(bs, as))
		}
	}
	return Uncomputable
}

func opCoalesce(a, b Value) Value {
	if a.IsNull() {
		return b
	}
	return a
}

func opShiftLeft(a, b Value) Value {
	ai, bi, ok := bothInts(a, b)
	if !ok || bi < 0 || bi >= 64 {
		return Uncomputable
	}
	return Concrete(ai << uint(bi))
}

func opShiftRight(a, b Value) Value {
	ai, bi, ok := bothInts(a, b)
	if !ok || bi < 0 || bi >= 64 {
		return Uncomputable
	}
	return Concrete(ai >> uint(bi))
}
