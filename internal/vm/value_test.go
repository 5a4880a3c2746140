package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcreteNormalization(t *testing.T) {
	v := Concrete(int32(7))
	n, ok := v.Int()
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	f, ok := Concrete(float32(1.5)).Float()
	require.True(t, ok)
	assert.Equal(t, 1.5, f)

	assert.True(t, Concrete(nil).IsNull())
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		truthy bool
		ok     bool
	}{
		{"null", Null, false, true},
		{"false", Concrete(false), false, true},
		{"zero int", Concrete(0), false, true},
		{"nonzero int", Concrete(3), true, true},
		{"zero float", Concrete(0.0), false, true},
		{"empty string", Concrete(""), false, true},
		{"string", Concrete("x"), true, true},
		{"empty list", Concrete([]Value{}), false, true},
		{"list", Concrete([]Value{Concrete(1)}), true, true},
		{"heap ref", HeapRef("obj_1"), true, true},
		{"symbolic", Symbolic("sym_0", ""), false, false},
		{"uncomputable", Uncomputable, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Truthy()
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.truthy, got)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	t.Run("numeric cross-type", func(t *testing.T) {
		assert.True(t, Concrete(3).Equal(Concrete(3.0)))
		assert.False(t, Concrete(3).Equal(Concrete(4.0)))
	})

	t.Run("strings and bools", func(t *testing.T) {
		assert.True(t, Concrete("a").Equal(Concrete("a")))
		assert.False(t, Concrete("a").Equal(Concrete("b")))
		assert.True(t, Concrete(true).Equal(Concrete(true)))
	})

	t.Run("deep list", func(t *testing.T) {
		a := Concrete([]Value{Concrete(1), Concrete("x")})
		b := Concrete([]Value{Concrete(1), Concrete("x")})
		c := Concrete([]Value{Concrete(1)})
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
	})

	t.Run("symbolic identity", func(t *testing.T) {
		a := Symbolic("sym_0", "int", "x > 0")
		b := Symbolic("sym_0", "int", "x > 0")
		c := Symbolic("sym_1", "int", "x > 0")
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
	})

	t.Run("kind mismatch", func(t *testing.T) {
		assert.False(t, Concrete("obj_1").Equal(HeapRef("obj_1")))
		assert.False(t, Null.Equal(Uncomputable))
	})
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "null", Describe(Null))
	assert.Equal(t, `"hi"`, Describe(Concrete("hi")))
	assert.Equal(t, "42", Describe(Concrete(42)))
	assert.Equal(t, "sym_3", Describe(Symbolic("sym_3", "int")))
	assert.Equal(t, "obj_1", Describe(HeapRef("obj_1")))
	assert.Equal(t, `[1, "a"]`, Describe(Concrete([]Value{Concrete(1), Concrete("a")})))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "sym_0 [n > 0]", Format(Symbolic("sym_0", "", "n > 0")))
	assert.Equal(t, "sym_1 (int)", Format(Symbolic("sym_1", "int")))
	assert.Equal(t, "sym_2", Format(Symbolic("sym_2", "")))
	assert.Equal(t, "7", Format(Concrete(7)))
}
