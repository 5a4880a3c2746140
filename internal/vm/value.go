// Package vm implements the machine model of the interpreter core: the
// concrete/symbolic value union, heap objects, closure environments, stack
// frames, the aggregate machine state, and the single routine that applies
// declarative state updates to it.
package vm

import (
	"fmt"
	"strings"
)

// Kind discriminates the value union. Every consumer switches exhaustively
// on Kind instead of inspecting payload types.
type Kind int

const (
	// KindConcrete is a native scalar, string, or collection. A nil
	// payload is the null value.
	KindConcrete Kind = iota
	// KindSymbolic is a named placeholder for a value that was not
	// computed concretely, annotated with free-text constraints.
	KindSymbolic
	// KindHeapRef is an address naming a heap object.
	KindHeapRef
	// KindUncomputable is the sentinel outcome of a deterministic
	// evaluator that could not produce a value. It is never an error;
	// it means "defer to the next resolution tier".
	KindUncomputable
)

func (k Kind) String() string {
	switch k {
	case KindConcrete:
		return "concrete"
	case KindSymbolic:
		return "symbolic"
	case KindHeapRef:
		return "heapref"
	case KindUncomputable:
		return "uncomputable"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is the tagged union flowing through registers, locals, heap fields
// and closure environments.
//
// Concrete payloads are restricted to nil, bool, int64, float64, string,
// []Value and map[string]Value; constructors normalize everything else.
type Value struct {
	Kind Kind

	// Concrete payload (KindConcrete only).
	Payload any

	// Symbolic payload (KindSymbolic only).
	Name        string
	TypeHint    string
	Constraints []string

	// Heap reference payload (KindHeapRef only).
	Addr string
}

// Uncomputable is the shared sentinel value. Compare with IsUncomputable,
// not pointer identity.
var Uncomputable = Value{Kind: KindUncomputable}

// Null is the concrete null value.
var Null = Value{Kind: KindConcrete}

// Concrete wraps a native Go value, normalizing integer widths to int64
// and float32 to float64.
func Concrete(v any) Value {
	switch n := v.(type) {
	case nil:
		return Null
	case Value:
		return n
	case int:
		return Value{Kind: KindConcrete, Payload: int64(n)}
	case int32:
		return Value{Kind: KindConcrete, Payload: int64(n)}
	case int64:
		return Value{Kind: KindConcrete, Payload: n}
	case float32:
		return Value{Kind: KindConcrete, Payload: float64(n)}
	default:
		return Value{Kind: KindConcrete, Payload: v}
	}
}

// Symbolic builds a symbolic value.
func Symbolic(name, typeHint string, constraints ...string) Value {
	return Value{Kind: KindSymbolic, Name: name, TypeHint: typeHint, Constraints: constraints}
}

// HeapRef builds a heap reference.
func HeapRef(addr string) Value {
	return Value{Kind: KindHeapRef, Addr: addr}
}

// IsUncomputable reports whether v is the "no local rule applies" sentinel.
func (v Value) IsUncomputable() bool { return v.Kind == KindUncomputable }

// IsSymbolic reports whether v is a symbolic placeholder.
func (v Value) IsSymbolic() bool { return v.Kind == KindSymbolic }

// IsNull reports whether v is the concrete null value.
func (v Value) IsNull() bool { return v.Kind == KindConcrete && v.Payload == nil }

// Bool returns the concrete bool payload, if any.
func (v Value) Bool() (bool, bool) {
	b, ok := v.Payload.(bool)
	return b, v.Kind == KindConcrete && ok
}

// Int returns the concrete int64 payload, if any.
func (v Value) Int() (int64, bool) {
	n, ok := v.Payload.(int64)
	return n, v.Kind == KindConcrete && ok
}

// Float returns the concrete payload as float64, accepting both int64 and
// float64 payloads.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindConcrete {
		return 0, false
	}
	switch n := v.Payload.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Str returns the concrete string payload, if any.
func (v Value) Str() (string, bool) {
	s, ok := v.Payload.(string)
	return s, v.Kind == KindConcrete && ok
}

// List returns the concrete list payload, if any.
func (v Value) List() ([]Value, bool) {
	l, ok := v.Payload.([]Value)
	return l, v.Kind == KindConcrete && ok
}

// Map returns the concrete keyed-collection payload, if any.
func (v Value) Map() (map[string]Value, bool) {
	m, ok := v.Payload.(map[string]Value)
	return m, v.Kind == KindConcrete && ok
}

// Truthy reports the truthiness of a concrete value: false, zero, empty
// string/collection and null are falsy. The second return is false when
// truthiness is not locally decidable (symbolic or uncomputable values).
func (v Value) Truthy() (bool, bool) {
	switch v.Kind {
	case KindHeapRef:
		return true, true
	case KindConcrete:
		switch n := v.Payload.(type) {
		case nil:
			return false, true
		case bool:
			return n, true
		case int64:
			return n != 0, true
		case float64:
			return n != 0, true
		case string:
			return n != "", true
		case []Value:
			return len(n) > 0, true
		case map[string]Value:
			return len(n) > 0, true
		}
	}
	return false, false
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindUncomputable:
		return true
	case KindHeapRef:
		return v.Addr == o.Addr
	case KindSymbolic:
		if v.Name != o.Name || v.TypeHint != o.TypeHint || len(v.Constraints) != len(o.Constraints) {
			return false
		}
		for i := range v.Constraints {
			if v.Constraints[i] != o.Constraints[i] {
				return false
			}
		}
		return true
	}
	return concreteEqual(v, o)
}

func concreteEqual(a, b Value) bool {
	if al, ok := a.List(); ok {
		bl, ok := b.List()
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !al[i].Equal(bl[i]) {
				return false
			}
		}
		return true
	}
	if am, ok := a.Map(); ok {
		bm, ok := b.Map()
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	}
	// Numeric cross-type equality: 3 == 3.0.
	if af, aok := a.Float(); aok {
		if bf, bok := b.Float(); bok {
			return af == bf
		}
		return false
	}
	return a.Payload == b.Payload
}

// Describe renders a value the way call descriptors and traces show it:
// symbolic values by name, concrete values by their literal text.
func Describe(v Value) string {
	switch v.Kind {
	case KindUncomputable:
		return "<uncomputable>"
	case KindSymbolic:
		return v.Name
	case KindHeapRef:
		return v.Addr
	}
	switch n := v.Payload.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", n)
	case []Value:
		parts := make([]string, len(n))
		for i, e := range n {
			parts[i] = Describe(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]Value:
		parts := make([]string, 0, len(n))
		for k, e := range n {
			parts = append(parts, fmt.Sprintf("%q: %s", k, Describe(e)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", n)
	}
}

// Format renders a value for verbose trace display. Symbolic values show
// their constraints or type hint alongside the name.
func Format(v Value) string {
	if v.Kind == KindSymbolic {
		if len(v.Constraints) > 0 {
			return fmt.Sprintf("%s [%s]", v.Name, strings.Join(v.Constraints, ", "))
		}
		if v.TypeHint != "" {
			return fmt.Sprintf("%s (%s)", v.Name, v.TypeHint)
		}
		return v.Name
	}
	return Describe(v)
}
