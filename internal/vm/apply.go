package vm

import "go.uber.org/zap"

// Apply mechanically applies a declarative update to the machine state.
// It is the only mutation funnel: deterministic evaluators, call resolvers
// and the oracle all describe effects through StateUpdate and this routine
// applies them. It never fails.
//
// The order below is load-bearing:
//
//  1. materialize declared heap objects
//  2. register writes, to the frame that was current on entry
//  3. heap field writes (auto-vivifying unseen addresses)
//  4. path-condition append
//  5. call push
//  6. variable writes, to the now-current frame (the pushed frame if step
//     5 fired), mirroring captured names into the closure environment
//  7. call pop (a silent no-op at minimum stack depth)
//
// A call result therefore always lands in the caller's registers while
// parameter bindings land in the callee's locals, even when one update
// carries both.
func (s *State) Apply(u *StateUpdate) {
	caller := s.CurrentFrame()

	for _, obj := range u.NewObjects {
		s.Heap[obj.Addr] = NewHeapObject(obj.TypeHint)
	}

	for reg, raw := range u.RegisterWrites {
		caller.Registers[reg] = DecodeValue(raw)
	}

	for _, hw := range u.HeapWrites {
		obj, ok := s.Heap[hw.ObjAddr]
		if !ok {
			obj = NewHeapObject("")
			s.Heap[hw.ObjAddr] = obj
		}
		obj.Fields[hw.Field] = DecodeValue(hw.Value)
	}

	if u.PathCondition != "" {
		s.PathConditions = append(s.PathConditions, u.PathCondition)
	}

	if u.CallPush != nil {
		f := NewFrame(u.CallPush.FunctionName)
		f.ReturnLabel = u.CallPush.ReturnLabel
		if u.CallPush.ClosureEnvID != "" {
			f.ClosureEnvID = u.CallPush.ClosureEnvID
			for _, name := range u.CallPush.CapturedNames {
				f.CapturedNames[name] = struct{}{}
			}
			s.Closure(f.ClosureEnvID) // ensure the shared env exists
		}
		s.PushFrame(f)
	}

	target := s.CurrentFrame()
	for name, raw := range u.VarWrites {
		v := DecodeValue(raw)
		target.Locals[name] = v
		// Mirror into the shared environment within this same step so
		// local copy and closure binding are never observed half-applied.
		if target.Captures(name) {
			s.Closure(target.ClosureEnvID).Bindings[name] = v
		}
	}

	if u.CallPop {
		if len(s.CallStack) > 1 {
			s.CallStack = s.CallStack[:len(s.CallStack)-1]
		} else {
			s.log.Warn("call_pop at minimum stack depth ignored",
				zap.String("frame", s.CurrentFrame().FunctionName))
		}
	}
}
