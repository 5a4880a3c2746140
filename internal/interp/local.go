package interp

import (
	"context"
	"strconv"
	"strings"

	"symvm/internal/ir"
	"symvm/internal/vm"
)

// executeLocally is the deterministic execution tier. It handles the
// instruction when a local rule fully determines its effects and returns
// NotHandled otherwise, deferring to the oracle. Call instructions are a
// special case: after the builtin table, they route to the configured
// resolver, which is total, so calls never reach the oracle.
func (i *Interpreter) executeLocally(ctx context.Context, inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	switch inst.Opcode {
	case ir.OpConst:
		return i.execConst(inst, state)
	case ir.OpLoadVar:
		return i.execLoadVar(inst, state)
	case ir.OpStoreVar:
		return i.execStoreVar(inst, state)
	case ir.OpLoadField:
		return i.execLoadField(inst, state)
	case ir.OpStoreField:
		return i.execStoreField(inst, state)
	case ir.OpLoadIndex:
		return i.execLoadIndex(inst, state)
	case ir.OpStoreIndex:
		return i.execStoreIndex(inst, state)
	case ir.OpNewObject:
		return i.execNewObject(inst, state)
	case ir.OpNewArray:
		return i.execNewArray(inst, state)
	case ir.OpBinop:
		return i.execBinop(inst, state)
	case ir.OpUnop:
		return i.execUnop(inst, state)
	case ir.OpBranch:
		return i.execBranch(inst)
	case ir.OpBranchIf:
		return i.execBranchIf(inst, state)
	case ir.OpReturn:
		return i.execReturn(inst, state)
	case ir.OpSymbolic:
		return i.execSymbolic(inst, state)
	case ir.OpCallFunction:
		return i.execCallFunction(ctx, inst, state)
	case ir.OpCallMethod:
		return i.execCallMethod(ctx, inst, state)
	case ir.OpCallUnknown:
		return i.execCallUnknown(ctx, inst, state)
	case ir.OpLabel:
		return vm.Handled(&vm.StateUpdate{})
	}
	// THROW and anything unrecognized go to the oracle.
	return vm.NotHandled()
}

func operandString(op any) (string, bool) {
	s, ok := op.(string)
	return s, ok
}

func regWrite(inst *ir.Instruction, v any) *vm.StateUpdate {
	u := &vm.StateUpdate{}
	if inst.ResultReg != "" {
		u.RegisterWrites = map[string]any{inst.ResultReg: v}
	}
	return u
}

func (i *Interpreter) execConst(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) == 0 {
		return vm.NotHandled()
	}
	var v vm.Value
	if raw, ok := operandString(inst.Operands[0]); ok {
		v = vm.ParseConst(raw)
	} else {
		v = vm.DecodeValue(inst.Operands[0])
	}
	return vm.Handled(regWrite(inst, v))
}

// execLoadVar reads locals first, then the frame's closure environment.
// An unbound name is left to the oracle, which may know it from context.
func (i *Interpreter) execLoadVar(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) == 0 {
		return vm.NotHandled()
	}
	name, ok := operandString(inst.Operands[0])
	if !ok {
		return vm.NotHandled()
	}
	frame := state.CurrentFrame()
	if v, ok := frame.Locals[name]; ok {
		return vm.Handled(regWrite(inst, v))
	}
	if frame.ClosureEnvID != "" {
		if v, ok := state.Closure(frame.ClosureEnvID).Bindings[name]; ok {
			return vm.Handled(regWrite(inst, v))
		}
	}
	return vm.NotHandled()
}

func (i *Interpreter) execStoreVar(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) < 2 {
		return vm.NotHandled()
	}
	name, ok := operandString(inst.Operands[0])
	if !ok {
		return vm.NotHandled()
	}
	v := vm.ResolveOperand(state, inst.Operands[1])
	return vm.Handled(&vm.StateUpdate{VarWrites: map[string]any{name: v}})
}

func (i *Interpreter) execLoadField(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) < 2 {
		return vm.NotHandled()
	}
	field, ok := operandString(inst.Operands[1])
	if !ok {
		return vm.NotHandled()
	}
	addr := vm.HeapAddr(vm.ResolveOperand(state, inst.Operands[0]))
	if addr == "" {
		return vm.NotHandled()
	}
	obj, ok := state.Heap[addr]
	if !ok {
		return vm.NotHandled()
	}
	v, ok := obj.Fields[field]
	if !ok {
		return vm.NotHandled()
	}
	return vm.Handled(regWrite(inst, v))
}

func (i *Interpreter) execStoreField(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) < 3 {
		return vm.NotHandled()
	}
	field, ok := operandString(inst.Operands[1])
	if !ok {
		return vm.NotHandled()
	}
	addr := vm.HeapAddr(vm.ResolveOperand(state, inst.Operands[0]))
	if addr == "" {
		return vm.NotHandled()
	}
	v := vm.ResolveOperand(state, inst.Operands[2])
	return vm.Handled(&vm.StateUpdate{
		HeapWrites: []vm.HeapWrite{{ObjAddr: addr, Field: field, Value: v}},
	})
}

// indexField renders a concrete index as a heap field name, covering the
// array-as-heap-object layout where element i lives under field "i".
func indexField(idx vm.Value) (string, bool) {
	if n, ok := idx.Int(); ok {
		return strconv.FormatInt(n, 10), true
	}
	if s, ok := idx.Str(); ok {
		return s, true
	}
	return "", false
}

func (i *Interpreter) execLoadIndex(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) < 2 {
		return vm.NotHandled()
	}
	obj := vm.ResolveOperand(state, inst.Operands[0])
	idx := vm.ResolveOperand(state, inst.Operands[1])

	if l, ok := obj.List(); ok {
		n, ok := idx.Int()
		if !ok || n < 0 || n >= int64(len(l)) {
			return vm.NotHandled()
		}
		return vm.Handled(regWrite(inst, l[n]))
	}
	if s, ok := obj.Str(); ok {
		n, ok := idx.Int()
		if !ok || n < 0 || n >= int64(len(s)) {
			return vm.NotHandled()
		}
		return vm.Handled(regWrite(inst, vm.Concrete(string(s[n]))))
	}

	if addr := vm.HeapAddr(obj); addr != "" {
		heapObj, ok := state.Heap[addr]
		if !ok {
			return vm.NotHandled()
		}
		field, ok := indexField(idx)
		if !ok {
			return vm.NotHandled()
		}
		if v, ok := heapObj.Fields[field]; ok {
			return vm.Handled(regWrite(inst, v))
		}
	}
	return vm.NotHandled()
}

func (i *Interpreter) execStoreIndex(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) < 3 {
		return vm.NotHandled()
	}
	addr := vm.HeapAddr(vm.ResolveOperand(state, inst.Operands[0]))
	if addr == "" {
		return vm.NotHandled()
	}
	field, ok := indexField(vm.ResolveOperand(state, inst.Operands[1]))
	if !ok {
		return vm.NotHandled()
	}
	v := vm.ResolveOperand(state, inst.Operands[2])
	return vm.Handled(&vm.StateUpdate{
		HeapWrites: []vm.HeapWrite{{ObjAddr: addr, Field: field, Value: v}},
	})
}

// execNewObject declares the object and writes its reference in one
// update, so the declaration and first use cannot be torn apart.
func (i *Interpreter) execNewObject(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	typeHint := ""
	if len(inst.Operands) > 0 {
		typeHint, _ = operandString(inst.Operands[0])
	}
	addr := state.NextAddr(vm.ObjAddrPrefix, typeHint)
	u := regWrite(inst, vm.HeapRef(addr))
	u.NewObjects = []vm.NewObject{{Addr: addr, TypeHint: typeHint}}
	return vm.Handled(u)
}

func (i *Interpreter) execNewArray(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	addr := state.NextAddr(vm.ArrAddrPrefix, "")
	u := regWrite(inst, vm.HeapRef(addr))
	u.NewObjects = []vm.NewObject{{Addr: addr, TypeHint: "array"}}
	for n, op := range inst.Operands {
		u.HeapWrites = append(u.HeapWrites, vm.HeapWrite{
			ObjAddr: addr,
			Field:   strconv.Itoa(n),
			Value:   vm.ResolveOperand(state, op),
		})
	}
	u.HeapWrites = append(u.HeapWrites, vm.HeapWrite{
		ObjAddr: addr,
		Field:   "length",
		Value:   vm.Concrete(int64(len(inst.Operands))),
	})
	return vm.Handled(u)
}

func (i *Interpreter) execBinop(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) < 3 {
		return vm.NotHandled()
	}
	op, ok := operandString(inst.Operands[0])
	if !ok {
		return vm.NotHandled()
	}
	lhs := vm.ResolveOperand(state, inst.Operands[1])
	rhs := vm.ResolveOperand(state, inst.Operands[2])
	if lhs.IsSymbolic() || rhs.IsSymbolic() {
		return vm.NotHandled()
	}
	v := vm.EvalBinop(op, lhs, rhs)
	if v.IsUncomputable() {
		return vm.NotHandled()
	}
	return vm.Handled(regWrite(inst, v))
}

func (i *Interpreter) execUnop(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) < 2 {
		return vm.NotHandled()
	}
	op, ok := operandString(inst.Operands[0])
	if !ok {
		return vm.NotHandled()
	}
	operand := vm.ResolveOperand(state, inst.Operands[1])
	if operand.IsSymbolic() {
		return vm.NotHandled()
	}
	v := vm.EvalUnop(op, operand)
	if v.IsUncomputable() {
		return vm.NotHandled()
	}
	return vm.Handled(regWrite(inst, v))
}

func (i *Interpreter) execBranch(inst *ir.Instruction) vm.ExecutionResult {
	target := inst.Label
	if target == "" && len(inst.Operands) > 0 {
		target, _ = operandString(inst.Operands[0])
	}
	if target == "" {
		return vm.NotHandled()
	}
	return vm.Handled(&vm.StateUpdate{NextLabel: target})
}

// execBranchIf decides a two-way branch when the condition is concrete.
// Targets live in the label field as "true_label,false_label". A symbolic
// condition is the oracle's call: it picks an arm and records the
// assumption as a path condition.
func (i *Interpreter) execBranchIf(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) == 0 {
		return vm.NotHandled()
	}
	targets := strings.SplitN(inst.Label, ",", 2)
	trueLabel := strings.TrimSpace(targets[0])
	falseLabel := ""
	if len(targets) == 2 {
		falseLabel = strings.TrimSpace(targets[1])
	}
	if trueLabel == "" {
		return vm.NotHandled()
	}

	cond := vm.ResolveOperand(state, inst.Operands[0])
	t, ok := cond.Truthy()
	if !ok {
		return vm.NotHandled()
	}
	if t {
		return vm.Handled(&vm.StateUpdate{NextLabel: trueLabel})
	}
	// A missing false arm means fall through.
	return vm.Handled(&vm.StateUpdate{NextLabel: falseLabel})
}

func (i *Interpreter) execReturn(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	u := &vm.StateUpdate{CallPop: true}
	if len(inst.Operands) > 0 {
		v := vm.ResolveOperand(state, inst.Operands[0])
		u.ReturnValue = vm.EncodeValue(v)
	}
	return vm.Handled(u)
}

func (i *Interpreter) execSymbolic(inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	hint := ""
	if len(inst.Operands) > 0 {
		hint, _ = operandString(inst.Operands[0])
	}
	sym := state.FreshSymbolic(hint)
	return vm.Handled(regWrite(inst, sym))
}

// execCallFunction tries the builtin table, then hands the call to the
// resolver. The resolver is total, so a call instruction is always
// handled at this tier.
func (i *Interpreter) execCallFunction(ctx context.Context, inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) == 0 {
		return vm.NotHandled()
	}
	funcName, ok := operandString(inst.Operands[0])
	if !ok {
		return vm.NotHandled()
	}
	args := i.resolveArgs(state, inst.Operands[1:])

	if fn, ok := vm.LookupBuiltin(funcName); ok {
		if v := fn(args, state); !v.IsUncomputable() {
			return vm.Handled(regWrite(inst, v))
		}
	}
	return i.resolver.ResolveCall(ctx, funcName, args, inst, state)
}

func (i *Interpreter) execCallMethod(ctx context.Context, inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) < 2 {
		return vm.NotHandled()
	}
	methodName, ok := operandString(inst.Operands[1])
	if !ok {
		return vm.NotHandled()
	}
	obj := vm.ResolveOperand(state, inst.Operands[0])
	args := i.resolveArgs(state, inst.Operands[2:])
	return i.resolver.ResolveMethod(ctx, vm.Describe(obj), methodName, args, inst, state)
}

func (i *Interpreter) execCallUnknown(ctx context.Context, inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	if len(inst.Operands) == 0 {
		return vm.NotHandled()
	}
	funcName, ok := operandString(inst.Operands[0])
	if !ok {
		return vm.NotHandled()
	}
	args := i.resolveArgs(state, inst.Operands[1:])
	return i.resolver.ResolveCall(ctx, funcName, args, inst, state)
}

func (i *Interpreter) resolveArgs(state *vm.State, operands []any) []vm.Value {
	args := make([]vm.Value, len(operands))
	for n, op := range operands {
		args[n] = vm.ResolveOperand(state, op)
	}
	return args
}
