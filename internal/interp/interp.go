package interp

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"symvm/internal/ir"
	"symvm/internal/oracle"
	"symvm/internal/resolve"
	"symvm/internal/vm"
)

// Config controls one execution run.
type Config struct {
	// MaxSteps caps executed instructions; zero means the default of 100.
	MaxSteps int
	// EntryPoint is the label (or label fragment) execution starts from.
	// Empty means the program's first block.
	EntryPoint string
}

const defaultMaxSteps = 100

// Stats summarizes a finished run.
type Stats struct {
	Steps         int
	OracleCalls   int
	HeapObjects   int
	SymbolicCount int
	Closures      int
}

// StepEvent describes one executed instruction for trace consumers.
type StepEvent struct {
	Step        int
	Label       string
	IP          int
	Instruction *ir.Instruction
	Update      *vm.StateUpdate
	UsedOracle  bool
}

// Interpreter owns the step loop. It is the machine state's only writer:
// local rules, the resolver and the oracle all answer with declarative
// updates which the loop applies in order.
type Interpreter struct {
	backend  oracle.Backend
	resolver resolve.Resolver
	cfg      Config
	log      *zap.Logger

	// OnStep, when set, observes every executed instruction.
	OnStep func(StepEvent)
}

// New creates an interpreter.
func New(backend oracle.Backend, resolver resolve.Resolver, cfg Config, log *zap.Logger) *Interpreter {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	return &Interpreter{backend: backend, resolver: resolver, cfg: cfg, log: log}
}

// Run executes the program until a top-level return, the end of the
// control flow, or the step cap. The final state is returned even on
// error, so callers can inspect how far execution got.
func (i *Interpreter) Run(ctx context.Context, program *Program) (*vm.State, *Stats, error) {
	state := vm.NewState()
	state.SetLogger(i.log)
	state.PushFrame(vm.NewFrame(vm.MainFrameName))
	stats := &Stats{}

	entry, err := program.ResolveEntry(i.cfg.EntryPoint)
	if err != nil {
		return state, stats, err
	}

	currentLabel := entry
	ip := 0

	for stats.Steps < i.cfg.MaxSteps {
		if err := ctx.Err(); err != nil {
			i.finish(state, stats)
			return state, stats, err
		}

		block, ok := program.Block(currentLabel)
		if !ok {
			i.finish(state, stats)
			return state, stats, fmt.Errorf("jumped to unknown label %q", currentLabel)
		}
		if ip >= len(block.Instructions) {
			if len(block.Successors) > 0 {
				currentLabel = block.Successors[0]
				ip = 0
				continue
			}
			i.log.Debug("end of control flow",
				zap.String("label", currentLabel),
				zap.Int("step", stats.Steps))
			break
		}

		inst := block.Instructions[ip]
		if inst.Opcode == ir.OpLabel {
			ip++
			continue
		}
		stats.Steps++

		result := i.executeLocally(ctx, inst, state)
		var update *vm.StateUpdate
		usedOracle := false
		if result.Handled {
			update = result.Update
		} else {
			update, err = i.backend.InterpretInstruction(ctx, inst, state)
			if err != nil {
				i.finish(state, stats)
				return state, stats, fmt.Errorf("step %d (%s): %w", stats.Steps, inst.String(), err)
			}
			usedOracle = true
			stats.OracleCalls++
		}

		if i.OnStep != nil {
			i.OnStep(StepEvent{
				Step:        stats.Steps,
				Label:       currentLabel,
				IP:          ip,
				Instruction: inst,
				Update:      update,
				UsedOracle:  usedOracle,
			})
		}

		isReturn := inst.Opcode == ir.OpReturn || inst.Opcode == ir.OpThrow
		var returnFrame *vm.Frame
		if isReturn {
			returnFrame = state.CurrentFrame()
		}

		// A call_push paired with a next_label is a call dispatch: the
		// new frame needs its return coordinates fixed up after the push.
		if update.CallPush != nil && update.NextLabel != "" {
			if _, ok := program.Block(update.NextLabel); !ok {
				i.finish(state, stats)
				return state, stats, fmt.Errorf("call dispatch to unknown label %q", update.NextLabel)
			}
			i.dispatchCall(state, inst, update, currentLabel, ip)
			currentLabel = update.NextLabel
			ip = 0
			continue
		}

		state.Apply(update)

		if isReturn {
			label, nip, done := returnFlow(state, program, returnFrame, update)
			if done {
				i.log.Debug("top-level return, stopping", zap.Int("step", stats.Steps))
				break
			}
			currentLabel, ip = label, nip
			continue
		}

		if update.NextLabel != "" {
			if _, ok := program.Block(update.NextLabel); ok {
				currentLabel = update.NextLabel
				ip = 0
				continue
			}
		}
		ip++
	}

	i.finish(state, stats)
	return state, stats, nil
}

func (i *Interpreter) finish(state *vm.State, stats *Stats) {
	stats.HeapObjects = len(state.Heap)
	stats.SymbolicCount = state.SymbolicCounter
	stats.Closures = len(state.Closures)
}

// dispatchCall applies the update (which pushes the callee frame and binds
// its parameters) and then records where the callee returns to: the call
// site's block, the following instruction, and the call's result register.
func (i *Interpreter) dispatchCall(state *vm.State, inst *ir.Instruction, update *vm.StateUpdate, currentLabel string, ip int) {
	state.Apply(update)

	callee := state.CurrentFrame()
	callee.ReturnLabel = currentLabel
	callee.ReturnIP = ip + 1
	callee.ResultReg = inst.ResultReg
}

// returnFlow resumes the caller after a return or throw: the return value
// lands in the caller's result register and control moves to the recorded
// return coordinates. A return from the root frame, or from a frame with
// no usable return label, stops execution.
func returnFlow(state *vm.State, program *Program, returnFrame *vm.Frame, update *vm.StateUpdate) (string, int, bool) {
	if returnFrame.FunctionName == vm.MainFrameName {
		return "", 0, true
	}

	caller := state.CurrentFrame()
	if returnFrame.ResultReg != "" && update.ReturnValue != nil {
		caller.Registers[returnFrame.ResultReg] = vm.DecodeValue(update.ReturnValue)
	}

	if returnFrame.ReturnLabel != "" {
		if _, ok := program.Block(returnFrame.ReturnLabel); ok {
			nip := returnFrame.ReturnIP
			if nip < 0 {
				nip = 0
			}
			return returnFrame.ReturnLabel, nip, false
		}
	}
	return "", 0, true
}
