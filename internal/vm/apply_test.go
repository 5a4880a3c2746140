package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunningState() *State {
	s := NewState()
	s.PushFrame(NewFrame(MainFrameName))
	return s
}

func TestApplyRegisterWritesLandInCaller(t *testing.T) {
	s := newRunningState()

	// One update both returns a value to the caller and pushes a frame:
	// the register write must land in the frame current before the push.
	s.Apply(&StateUpdate{
		RegisterWrites: map[string]any{"%1": int64(42)},
		CallPush:       &FramePush{FunctionName: "helper"},
	})

	require.Len(t, s.CallStack, 2)
	caller := s.CallStack[0]
	callee := s.CallStack[1]
	assert.True(t, caller.Registers["%1"].Equal(Concrete(42)))
	assert.Empty(t, callee.Registers)
}

func TestApplyVarWritesLandInPushedFrame(t *testing.T) {
	s := newRunningState()

	s.Apply(&StateUpdate{
		CallPush:  &FramePush{FunctionName: "add"},
		VarWrites: map[string]any{"a": int64(1), "b": int64(2)},
	})

	require.Len(t, s.CallStack, 2)
	callee := s.CurrentFrame()
	assert.True(t, callee.Locals["a"].Equal(Concrete(1)))
	assert.True(t, callee.Locals["b"].Equal(Concrete(2)))
	assert.Empty(t, s.CallStack[0].Locals)
}

func TestApplyNewObjectThenHeapWriteSameUpdate(t *testing.T) {
	s := newRunningState()

	s.Apply(&StateUpdate{
		NewObjects: []NewObject{{Addr: "obj_1", TypeHint: "Point"}},
		HeapWrites: []HeapWrite{{ObjAddr: "obj_1", Field: "x", Value: int64(5)}},
	})

	obj, ok := s.Heap["obj_1"]
	require.True(t, ok)
	assert.Equal(t, "Point", obj.TypeHint)
	assert.True(t, obj.Fields["x"].Equal(Concrete(5)))
}

func TestApplyHeapWriteAutoVivifies(t *testing.T) {
	s := newRunningState()

	s.Apply(&StateUpdate{
		HeapWrites: []HeapWrite{{ObjAddr: "obj_9", Field: "v", Value: "hello"}},
	})

	obj, ok := s.Heap["obj_9"]
	require.True(t, ok)
	assert.True(t, obj.Fields["v"].Equal(Concrete("hello")))
}

func TestApplyClosureMirroring(t *testing.T) {
	s := newRunningState()

	s.Apply(&StateUpdate{
		CallPush: &FramePush{
			FunctionName:  "counter",
			ClosureEnvID:  "env_abc",
			CapturedNames: []string{"count"},
		},
		VarWrites: map[string]any{"count": int64(1), "scratch": int64(9)},
	})

	frame := s.CurrentFrame()
	env := s.Closure("env_abc")

	assert.True(t, frame.Locals["count"].Equal(Concrete(1)))
	assert.True(t, env.Bindings["count"].Equal(Concrete(1)))
	assert.True(t, frame.Locals["count"].Equal(env.Bindings["count"]))

	// Non-captured names stay out of the shared environment.
	_, mirrored := env.Bindings["scratch"]
	assert.False(t, mirrored)
}

func TestApplyCallPopGuardsRootFrame(t *testing.T) {
	s := newRunningState()

	s.Apply(&StateUpdate{CallPop: true})
	assert.Len(t, s.CallStack, 1)

	s.Apply(&StateUpdate{CallPush: &FramePush{FunctionName: "f"}})
	s.Apply(&StateUpdate{CallPop: true})
	assert.Len(t, s.CallStack, 1)

	s.Apply(&StateUpdate{CallPop: true})
	assert.Len(t, s.CallStack, 1)
}

func TestApplyPathCondition(t *testing.T) {
	s := newRunningState()

	s.Apply(&StateUpdate{PathCondition: "sym_0 > 10"})
	s.Apply(&StateUpdate{PathCondition: "sym_1 == null"})

	assert.Equal(t, []string{"sym_0 > 10", "sym_1 == null"}, s.PathConditions)
}

func TestApplyDecodesSymbolicDescriptors(t *testing.T) {
	s := newRunningState()

	s.Apply(&StateUpdate{
		VarWrites: map[string]any{
			"x": map[string]any{
				"__symbolic__": true,
				"name":         "sym_7",
				"type_hint":    "int",
				"constraints":  []any{"x > 0"},
			},
		},
	})

	v := s.CurrentFrame().Locals["x"]
	require.Equal(t, KindSymbolic, v.Kind)
	assert.Equal(t, "sym_7", v.Name)
	assert.Equal(t, "int", v.TypeHint)
	assert.Equal(t, []string{"x > 0"}, v.Constraints)
}

func TestFreshSymbolicNames(t *testing.T) {
	s := NewState()
	a := s.FreshSymbolic("int")
	b := s.FreshSymbolic("")
	assert.Equal(t, "sym_0", a.Name)
	assert.Equal(t, "sym_1", b.Name)
	assert.Equal(t, 2, s.SymbolicCounter)
}
