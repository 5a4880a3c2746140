package vm

import (
	"encoding/json"
)

// symbolicKey is the boolean discriminator tagging a symbolic-value
// descriptor on the wire.
const symbolicKey = "__symbolic__"

// EncodeValue converts a Value to its wire shape: symbolic values become
// tagged descriptors, heap references become bare address strings, and
// concrete collections are encoded element-wise. Uncomputable has no wire
// form and encodes to null; it must never cross the boundary.
func EncodeValue(v Value) any {
	switch v.Kind {
	case KindSymbolic:
		d := map[string]any{symbolicKey: true, "name": v.Name}
		if v.TypeHint != "" {
			d["type_hint"] = v.TypeHint
		}
		if len(v.Constraints) > 0 {
			d["constraints"] = v.Constraints
		}
		return d
	case KindHeapRef:
		return v.Addr
	case KindUncomputable:
		return nil
	}
	switch n := v.Payload.(type) {
	case []Value:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = EncodeValue(e)
		}
		return out
	case map[string]Value:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[k] = EncodeValue(e)
		}
		return out
	default:
		return n
	}
}

// DecodeValue converts a wire value to a Value. A map tagged with the
// symbolic discriminator becomes a Symbolic value; every other shape passes
// through as a concrete value. JSON numbers are narrowed to int64 when they
// are integral.
func DecodeValue(raw any) Value {
	switch n := raw.(type) {
	case nil:
		return Null
	case Value:
		return n
	case bool, string, int64, float64:
		return Concrete(n)
	case int, int32, float32:
		return Concrete(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return Concrete(i)
		}
		if f, err := n.Float64(); err == nil {
			return Concrete(f)
		}
		return Concrete(n.String())
	case []any:
		out := make([]Value, len(n))
		for i, e := range n {
			out[i] = DecodeValue(e)
		}
		return Concrete(out)
	case map[string]any:
		if tagged, _ := n[symbolicKey].(bool); tagged {
			return decodeSymbolic(n)
		}
		out := make(map[string]Value, len(n))
		for k, e := range n {
			out[k] = DecodeValue(e)
		}
		return Concrete(out)
	default:
		return Concrete(raw)
	}
}

func decodeSymbolic(d map[string]any) Value {
	name, _ := d["name"].(string)
	hint, _ := d["type_hint"].(string)
	var constraints []string
	switch cs := d["constraints"].(type) {
	case []any:
		for _, c := range cs {
			if s, ok := c.(string); ok {
				constraints = append(constraints, s)
			}
		}
	case []string:
		constraints = append(constraints, cs...)
	}
	return Symbolic(name, hint, constraints...)
}

// HeapAddr extracts a heap address from a value: a bare string is used
// as-is, a symbolic value's name doubles as its address, and a structured
// descriptor may carry an explicit "addr" field. Any other shape yields "".
func HeapAddr(v Value) string {
	switch v.Kind {
	case KindHeapRef:
		return v.Addr
	case KindSymbolic:
		return v.Name
	case KindConcrete:
		if s, ok := v.Str(); ok {
			return s
		}
		if m, ok := v.Map(); ok {
			if addr, ok := m["addr"]; ok {
				if s, ok := addr.Str(); ok {
					return s
				}
			}
		}
	}
	return ""
}

// EncodeHeapObject renders a heap object as its wire snapshot shape.
func EncodeHeapObject(obj *HeapObject) map[string]any {
	fields := make(map[string]any, len(obj.Fields))
	for k, v := range obj.Fields {
		fields[k] = EncodeValue(v)
	}
	return map[string]any{"type_hint": obj.TypeHint, "fields": fields}
}

// EncodeBindings renders a register/local/closure binding map as its wire
// snapshot shape.
func EncodeBindings(bindings map[string]Value) map[string]any {
	out := make(map[string]any, len(bindings))
	for k, v := range bindings {
		out[k] = EncodeValue(v)
	}
	return out
}
