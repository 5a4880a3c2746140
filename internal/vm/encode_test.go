package vm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolicWireRoundTrip(t *testing.T) {
	orig := Symbolic("sym_4", "float", "sqrt(16)", "sym_4 >= 0")

	wire := EncodeValue(orig)
	back := DecodeValue(wire)

	assert.True(t, orig.Equal(back))
	assert.Equal(t, orig.Name, back.Name)
	assert.Equal(t, orig.TypeHint, back.TypeHint)
	assert.Equal(t, orig.Constraints, back.Constraints)
}

func TestSymbolicRoundTripThroughJSON(t *testing.T) {
	orig := Symbolic("sym_0", "int", "n > 1")

	data, err := json.Marshal(EncodeValue(orig))
	require.NoError(t, err)

	var wire any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.True(t, orig.Equal(DecodeValue(wire)))
}

func TestEncodeValueShapes(t *testing.T) {
	assert.Equal(t, "obj_3", EncodeValue(HeapRef("obj_3")))
	assert.Nil(t, EncodeValue(Uncomputable))
	assert.Nil(t, EncodeValue(Null))
	assert.Equal(t, int64(5), EncodeValue(Concrete(5)))

	enc, ok := EncodeValue(Concrete([]Value{Concrete(1), Symbolic("sym_0", "")})).([]any)
	require.True(t, ok)
	require.Len(t, enc, 2)
	_, tagged := enc[1].(map[string]any)["__symbolic__"]
	assert.True(t, tagged)
}

func TestDecodeValueNumbers(t *testing.T) {
	assert.True(t, DecodeValue(json.Number("7")).Equal(Concrete(7)))
	got := DecodeValue(json.Number("7.5"))
	f, ok := got.Float()
	require.True(t, ok)
	assert.Equal(t, 7.5, f)
	_, isInt := got.Int()
	assert.False(t, isInt)
}

func TestDecodeValuePassesValuesThrough(t *testing.T) {
	ref := HeapRef("arr_1")
	assert.Equal(t, ref, DecodeValue(ref))
}

func TestHeapAddr(t *testing.T) {
	assert.Equal(t, "obj_1", HeapAddr(HeapRef("obj_1")))
	assert.Equal(t, "obj_2", HeapAddr(Concrete("obj_2")))
	assert.Equal(t, "sym_5", HeapAddr(Symbolic("sym_5", "")))
	assert.Equal(t, "obj_3", HeapAddr(Concrete(map[string]Value{"addr": Concrete("obj_3")})))
	assert.Equal(t, "", HeapAddr(Concrete(42)))
	assert.Equal(t, "", HeapAddr(Null))
}
