// Package resolve handles calls to functions with no modeled body. Two
// strategies exist: a total symbolic strategy that always answers with a
// fresh placeholder, and an LLM-backed strategy that invents a plausible
// concrete result and degrades to the symbolic strategy on any failure.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"symvm/internal/ir"
	"symvm/internal/vm"
)

// Resolver produces a state update for a call the interpreter cannot
// execute locally. Implementations must always handle the call; "I don't
// know" is expressed as a symbolic result, never as Handled=false.
type Resolver interface {
	ResolveCall(ctx context.Context, funcName string, args []vm.Value, inst *ir.Instruction, state *vm.State) vm.ExecutionResult
	ResolveMethod(ctx context.Context, objDesc, methodName string, args []vm.Value, inst *ir.Instruction, state *vm.State) vm.ExecutionResult
}

// SymbolicResolver answers every unresolved call with a fresh symbolic
// value whose call descriptor doubles as its constraint and type hint. It
// is total: it never fails and never consults anything outside the state.
type SymbolicResolver struct {
	log *zap.Logger
}

// NewSymbolicResolver creates a symbolic resolver.
func NewSymbolicResolver(log *zap.Logger) *SymbolicResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &SymbolicResolver{log: log}
}

// CallDescriptor renders a call as "name(arg, arg)" with each argument
// shown the way traces show values.
func CallDescriptor(funcName string, args []vm.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = vm.Describe(a)
	}
	return funcName + "(" + strings.Join(parts, ", ") + ")"
}

// ResolveCall binds the instruction's result register to a fresh symbolic
// value constrained by the call descriptor.
func (r *SymbolicResolver) ResolveCall(_ context.Context, funcName string, args []vm.Value, inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	return r.resolve(CallDescriptor(funcName, args), inst, state)
}

// ResolveMethod is ResolveCall with a receiver-qualified descriptor.
func (r *SymbolicResolver) ResolveMethod(_ context.Context, objDesc, methodName string, args []vm.Value, inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	return r.resolve(objDesc+"."+CallDescriptor(methodName, args), inst, state)
}

func (r *SymbolicResolver) resolve(desc string, inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	sym := state.FreshSymbolic(desc)
	sym.Constraints = []string{desc}

	r.log.Debug("unresolved call handled symbolically",
		zap.String("call", desc),
		zap.String("symbol", sym.Name))

	update := &vm.StateUpdate{
		Reasoning: fmt.Sprintf("unknown function %s resolved to symbolic %s", desc, sym.Name),
	}
	if inst.ResultReg != "" {
		update.RegisterWrites = map[string]any{inst.ResultReg: vm.EncodeValue(sym)}
	}
	return vm.Handled(update)
}
