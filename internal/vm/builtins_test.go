package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLen(t *testing.T) {
	t.Run("heap object field count", func(t *testing.T) {
		s := NewState()
		obj := NewHeapObject("Point")
		obj.Fields["x"] = Concrete(1)
		obj.Fields["y"] = Concrete(2)
		obj.Fields["z"] = Concrete(3)
		s.Heap["obj_1"] = obj

		fn, ok := LookupBuiltin("len")
		require.True(t, ok)
		got := fn([]Value{HeapRef("obj_1")}, s)
		assert.True(t, got.Equal(Concrete(3)))
	})

	t.Run("empty argument list", func(t *testing.T) {
		fn, _ := LookupBuiltin("len")
		assert.True(t, fn(nil, NewState()).IsUncomputable())
	})

	t.Run("concrete fallbacks", func(t *testing.T) {
		fn, _ := LookupBuiltin("len")
		s := NewState()
		assert.True(t, fn([]Value{Concrete("abcd")}, s).Equal(Concrete(4)))
		assert.True(t, fn([]Value{Concrete([]Value{Concrete(1)})}, s).Equal(Concrete(1)))
		assert.True(t, fn([]Value{Concrete(12)}, s).IsUncomputable())
	})
}

func TestBuiltinRange(t *testing.T) {
	fn, ok := LookupBuiltin("range")
	require.True(t, ok)
	s := NewState()

	t.Run("stop only", func(t *testing.T) {
		got, ok := fn([]Value{Concrete(3)}, s).List()
		require.True(t, ok)
		require.Len(t, got, 3)
		assert.True(t, got[0].Equal(Concrete(0)))
		assert.True(t, got[2].Equal(Concrete(2)))
	})

	t.Run("start stop step", func(t *testing.T) {
		got, ok := fn([]Value{Concrete(10), Concrete(0), Concrete(-3)}, s).List()
		require.True(t, ok)
		require.Len(t, got, 4)
		assert.True(t, got[0].Equal(Concrete(10)))
		assert.True(t, got[3].Equal(Concrete(1)))
	})

	t.Run("symbolic argument", func(t *testing.T) {
		assert.True(t, fn([]Value{Symbolic("sym_0", "")}, s).IsUncomputable())
	})

	t.Run("zero step", func(t *testing.T) {
		assert.True(t, fn([]Value{Concrete(0), Concrete(5), Concrete(0)}, s).IsUncomputable())
	})
}

func TestBuiltinCoercions(t *testing.T) {
	s := NewState()
	call := func(name string, args ...Value) Value {
		fn, ok := LookupBuiltin(name)
		require.True(t, ok, name)
		return fn(args, s)
	}

	assert.True(t, call("int", Concrete("42")).Equal(Concrete(42)))
	assert.True(t, call("int", Concrete(3.9)).Equal(Concrete(3)))
	assert.True(t, call("int", Concrete(true)).Equal(Concrete(1)))
	assert.True(t, call("int", Concrete("nope")).IsUncomputable())
	assert.True(t, call("int", Symbolic("sym_0", "")).IsUncomputable())

	assert.True(t, call("float", Concrete("2.5")).Equal(Concrete(2.5)))
	assert.True(t, call("float", Concrete(2)).Equal(Concrete(2.0)))

	assert.True(t, call("str", Concrete(42)).Equal(Concrete("42")))
	assert.True(t, call("str", Null).Equal(Concrete("None")))
	assert.True(t, call("str", Concrete(true)).Equal(Concrete("True")))

	assert.True(t, call("bool", Concrete("")).Equal(Concrete(false)))
	assert.True(t, call("bool", Concrete(1)).Equal(Concrete(true)))
}

func TestBuiltinMinMaxAbs(t *testing.T) {
	s := NewState()
	call := func(name string, args ...Value) Value {
		fn, _ := LookupBuiltin(name)
		return fn(args, s)
	}

	assert.True(t, call("abs", Concrete(-5)).Equal(Concrete(5)))
	assert.True(t, call("abs", Concrete(-2.5)).Equal(Concrete(2.5)))
	assert.True(t, call("max", Concrete(1), Concrete(9), Concrete(4)).Equal(Concrete(9)))
	assert.True(t, call("min", Concrete(1), Concrete(9), Concrete(4)).Equal(Concrete(1)))

	// Single-list form.
	list := Concrete([]Value{Concrete(3), Concrete(7), Concrete(5)})
	assert.True(t, call("max", list).Equal(Concrete(7)))

	// Symbolic element spoils the comparison.
	assert.True(t, call("max", Concrete(1), Symbolic("sym_0", "")).IsUncomputable())
}

func TestBuiltinPrint(t *testing.T) {
	fn, ok := LookupBuiltin("print")
	require.True(t, ok)
	assert.True(t, fn([]Value{Concrete("hello")}, NewState()).IsNull())
}

func TestBuiltinArrayOf(t *testing.T) {
	s := NewState()
	fn, ok := LookupBuiltin("arrayOf")
	require.True(t, ok)

	ref := fn([]Value{Concrete(10), Concrete(20)}, s)
	require.Equal(t, KindHeapRef, ref.Kind)

	obj, ok := s.Heap[ref.Addr]
	require.True(t, ok)
	assert.True(t, obj.Fields["0"].Equal(Concrete(10)))
	assert.True(t, obj.Fields["1"].Equal(Concrete(20)))
	assert.True(t, obj.Fields["length"].Equal(Concrete(2)))

	// Alternate spellings share the allocation behavior.
	_, ok = LookupBuiltin("intArrayOf")
	assert.True(t, ok)
	_, ok = LookupBuiltin("Array")
	assert.True(t, ok)
}
