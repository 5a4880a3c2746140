package vm

import (
	"fmt"
	"strconv"
)

// BuiltinFunc is a pure, pre-modeled function behavior. It returns
// Uncomputable whenever an argument is symbolic or otherwise not locally
// computable; the caller then falls through to the next resolution tier.
type BuiltinFunc func(args []Value, s *State) Value

var builtinTable = map[string]BuiltinFunc{
	"len":   builtinLen,
	"range": builtinRange,
	"print": builtinPrint,
	"int":   builtinInt,
	"float": builtinFloat,
	"str":   builtinStr,
	"bool":  builtinBool,
	"abs":   builtinAbs,
	"max":   builtinMax,
	"min":   builtinMin,

	// Array constructors from several source-language families.
	"arrayOf":    builtinArrayOf,
	"intArrayOf": builtinArrayOf,
	"Array":      builtinArrayOf,
}

// LookupBuiltin returns the pre-modeled behavior for a function name.
func LookupBuiltin(name string) (BuiltinFunc, bool) {
	fn, ok := builtinTable[name]
	return fn, ok
}

// builtinLen first checks whether the argument references a heap object, in
// which case it returns the field count; otherwise it falls back to native
// length for sequence- and string-like concrete values.
func builtinLen(args []Value, s *State) Value {
	if len(args) == 0 {
		return Uncomputable
	}
	if addr := HeapAddr(args[0]); addr != "" {
		if obj, ok := s.Heap[addr]; ok {
			return Concrete(int64(len(obj.Fields)))
		}
	}
	return concreteLen(args[0])
}

func builtinRange(args []Value, s *State) Value {
	bounds := make([]int64, 0, 3)
	for _, a := range args {
		i, ok := a.Int()
		if !ok {
			return Uncomputable
		}
		bounds = append(bounds, i)
	}
	var start, stop, step int64
	switch len(bounds) {
	case 1:
		start, stop, step = 0, bounds[0], 1
	case 2:
		start, stop, step = bounds[0], bounds[1], 1
	case 3:
		start, stop, step = bounds[0], bounds[1], bounds[2]
	default:
		return Uncomputable
	}
	if step == 0 {
		return Uncomputable
	}
	var out []Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, Concrete(i))
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, Concrete(i))
		}
	}
	return Concrete(out)
}

// builtinPrint is modeled as a no-op; it returns the null value, which is
// what the call actually evaluates to.
func builtinPrint(args []Value, s *State) Value {
	return Null
}

func builtinInt(args []Value, s *State) Value {
	if len(args) == 0 || args[0].IsSymbolic() {
		return Uncomputable
	}
	v := args[0]
	if i, ok := v.Int(); ok {
		return Concrete(i)
	}
	if f, ok := v.Float(); ok {
		return Concrete(int64(f))
	}
	if b, ok := v.Bool(); ok {
		if b {
			return Concrete(int64(1))
		}
		return Concrete(int64(0))
	}
	if str, ok := v.Str(); ok {
		if i, err := strconv.ParseInt(str, 10, 64); err == nil {
			return Concrete(i)
		}
	}
	return Uncomputable
}

func builtinFloat(args []Value, s *State) Value {
	if len(args) == 0 || args[0].IsSymbolic() {
		return Uncomputable
	}
	v := args[0]
	if f, ok := v.Float(); ok {
		return Concrete(f)
	}
	if str, ok := v.Str(); ok {
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return Concrete(f)
		}
	}
	return Uncomputable
}

func builtinStr(args []Value, s *State) Value {
	if len(args) == 0 || args[0].IsSymbolic() {
		return Uncomputable
	}
	v := args[0]
	switch n := v.Payload.(type) {
	case nil:
		if v.Kind == KindHeapRef {
			return Concrete(v.Addr)
		}
		return Concrete("None")
	case bool:
		if n {
			return Concrete("True")
		}
		return Concrete("False")
	case string:
		return Concrete(n)
	case int64:
		return Concrete(strconv.FormatInt(n, 10))
	case float64:
		return Concrete(strconv.FormatFloat(n, 'g', -1, 64))
	}
	return Concrete(fmt.Sprintf("%v", v.Payload))
}

func builtinBool(args []Value, s *State) Value {
	if len(args) == 0 {
		return Uncomputable
	}
	if t, ok := args[0].Truthy(); ok {
		return Concrete(t)
	}
	return Uncomputable
}

func builtinAbs(args []Value, s *State) Value {
	if len(args) == 0 {
		return Uncomputable
	}
	if i, ok := args[0].Int(); ok {
		if i < 0 {
			return Concrete(-i)
		}
		return Concrete(i)
	}
	if f, ok := args[0].Float(); ok {
		if f < 0 {
			return Concrete(-f)
		}
		return Concrete(f)
	}
	return Uncomputable
}

func builtinMax(args []Value, s *State) Value {
	return extremum(args, ">")
}

func builtinMin(args []Value, s *State) Value {
	return extremum(args, "<")
}

func extremum(args []Value, op string) Value {
	if len(args) == 1 {
		if l, ok := args[0].List(); ok {
			args = l
		}
	}
	if len(args) == 0 {
		return Uncomputable
	}
	best := args[0]
	for _, a := range args[1:] {
		cmp := EvalBinop(op, a, best)
		better, ok := cmp.Bool()
		if !ok {
			return Uncomputable
		}
		if better {
			best = a
		}
	}
	return best
}

// builtinArrayOf allocates a heap array from its arguments and returns a
// reference to it. Elements are stored under their index as field names
// plus a "length" field, so heap-field access covers indexing.
func builtinArrayOf(args []Value, s *State) Value {
	addr := s.NextAddr(ArrAddrPrefix, "")
	obj := NewHeapObject("array")
	for i, a := range args {
		obj.Fields[strconv.Itoa(i)] = a
	}
	obj.Fields["length"] = Concrete(int64(len(args)))
	s.Heap[addr] = obj
	return HeapRef(addr)
}
