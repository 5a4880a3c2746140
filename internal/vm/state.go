package vm

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Naming conventions shared with frontends and the oracle.
const (
	// MainFrameName is the function name of the root frame.
	MainFrameName = "<main>"
	// RegisterPrefix marks register-shaped operands.
	RegisterPrefix = "%"
	// ObjAddrPrefix prefixes declared heap object addresses.
	ObjAddrPrefix = "obj_"
	// ArrAddrPrefix prefixes heap-allocated array addresses.
	ArrAddrPrefix = "arr_"
)

// HeapObject is a keyed field map with an optional type hint. Heap objects
// are created explicitly or auto-vivified on first write and never deleted.
type HeapObject struct {
	TypeHint string
	Fields   map[string]Value
}

// NewHeapObject creates an empty heap object.
func NewHeapObject(typeHint string) *HeapObject {
	return &HeapObject{TypeHint: typeHint, Fields: make(map[string]Value)}
}

// ClosureEnv is a mutable binding set shared by reference among every frame
// that captures it. It is owned by the machine state's closure table, not
// by any one frame.
type ClosureEnv struct {
	Bindings map[string]Value
}

// NewClosureEnv creates an empty closure environment.
func NewClosureEnv() *ClosureEnv {
	return &ClosureEnv{Bindings: make(map[string]Value)}
}

// Frame is one call-stack entry. Registers hold instruction-scoped
// temporaries; Locals hold named variables. ReturnLabel/ReturnIP/ResultReg
// record where and how to resume the caller. CapturedNames is the subset of
// local names mirrored into the shared closure environment.
type Frame struct {
	FunctionName string
	Registers    map[string]Value
	Locals       map[string]Value

	ReturnLabel string
	ReturnIP    int
	ResultReg   string

	ClosureEnvID  string
	CapturedNames map[string]struct{}
}

// NewFrame creates an empty frame for the named function.
func NewFrame(functionName string) *Frame {
	return &Frame{
		FunctionName:  functionName,
		Registers:     make(map[string]Value),
		Locals:        make(map[string]Value),
		ReturnIP:      -1,
		CapturedNames: make(map[string]struct{}),
	}
}

// Captures reports whether the frame mirrors the named variable into its
// closure environment.
func (f *Frame) Captures(name string) bool {
	if f.ClosureEnvID == "" {
		return false
	}
	_, ok := f.CapturedNames[name]
	return ok
}

// State is the aggregate machine state for one program run. It has exactly
// one writer, the instruction-dispatch loop; resolvers and the oracle only
// describe effects as StateUpdates for the owner to apply.
type State struct {
	Heap            map[string]*HeapObject
	CallStack       []*Frame
	PathConditions  []string
	SymbolicCounter int
	Closures        map[string]*ClosureEnv

	log *zap.Logger
}

// NewState creates an empty machine state. The caller pushes the root frame
// before executing; the call stack must stay non-empty from then on.
func NewState() *State {
	return &State{
		Heap:     make(map[string]*HeapObject),
		Closures: make(map[string]*ClosureEnv),
		log:      zap.NewNop(),
	}
}

// SetLogger attaches a logger used for diagnostics during update
// application (for example the unbalanced call-pop warning).
func (s *State) SetLogger(log *zap.Logger) {
	if log != nil {
		s.log = log
	}
}

// PushFrame appends a frame, making it current.
func (s *State) PushFrame(f *Frame) {
	s.CallStack = append(s.CallStack, f)
}

// CurrentFrame returns the top of the call stack.
func (s *State) CurrentFrame() *Frame {
	return s.CallStack[len(s.CallStack)-1]
}

// FreshSymbolic mints a new symbolic value named sym_<N> from the monotonic
// per-machine counter. Names are unique for the lifetime of the state.
func (s *State) FreshSymbolic(hint string) Value {
	name := fmt.Sprintf("sym_%d", s.SymbolicCounter)
	s.SymbolicCounter++
	return Symbolic(name, hint)
}

// NextAddr mints a heap address with the given prefix and advances the
// shared counter so addresses and symbolic names never collide.
func (s *State) NextAddr(prefix, typeHint string) string {
	n := s.SymbolicCounter
	s.SymbolicCounter++
	if typeHint != "" {
		return fmt.Sprintf("%s%s_%d", prefix, typeHint, n)
	}
	return fmt.Sprintf("%s%d", prefix, n)
}

// Closure returns the environment for id, creating it if unseen.
func (s *State) Closure(id string) *ClosureEnv {
	env, ok := s.Closures[id]
	if !ok {
		env = NewClosureEnv()
		s.Closures[id] = env
	}
	return env
}

// NewClosureEnvID mints an opaque closure environment identifier for
// environments not named by the frontend.
func NewClosureEnvID() string {
	return "env_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
