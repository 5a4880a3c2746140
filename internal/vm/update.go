package vm

// HeapWrite sets one field of one heap object. The target object is
// auto-vivified if its address has not been seen.
type HeapWrite struct {
	ObjAddr string `json:"obj_addr"`
	Field   string `json:"field"`
	Value   any    `json:"value"`
}

// NewObject declares a heap object to materialize with an empty field set.
type NewObject struct {
	Addr     string `json:"addr"`
	TypeHint string `json:"type_hint,omitempty"`
}

// FramePush directs a call-frame push. CapturedNames lists the callee's
// locals mirrored into the shared closure environment ClosureEnvID.
type FramePush struct {
	FunctionName  string   `json:"function_name"`
	ReturnLabel   string   `json:"return_label,omitempty"`
	ClosureEnvID  string   `json:"closure_env_id,omitempty"`
	CapturedNames []string `json:"captured_var_names,omitempty"`
}

// StateUpdate is the declarative description of one instruction's side
// effects, regardless of whether a local rule or the oracle produced it.
// Write values are wire-shaped (see DecodeValue); Apply deserializes them.
type StateUpdate struct {
	RegisterWrites map[string]any `json:"register_writes,omitempty"`
	VarWrites      map[string]any `json:"var_writes,omitempty"`
	HeapWrites     []HeapWrite    `json:"heap_writes,omitempty"`
	NewObjects     []NewObject    `json:"new_objects,omitempty"`
	NextLabel      string         `json:"next_label,omitempty"`
	CallPush       *FramePush     `json:"call_push,omitempty"`
	CallPop        bool           `json:"call_pop,omitempty"`
	ReturnValue    any            `json:"return_value,omitempty"`
	PathCondition  string         `json:"path_condition,omitempty"`
	Reasoning      string         `json:"reasoning,omitempty"`
}

// ExecutionResult reports whether a resolution tier handled an instruction
// and, if so, the update describing its effects.
type ExecutionResult struct {
	Handled bool
	Update  *StateUpdate
}

// NotHandled signals "no local rule applies; try the next tier".
func NotHandled() ExecutionResult {
	return ExecutionResult{}
}

// Handled wraps an update produced by a resolution tier.
func Handled(update *StateUpdate) ExecutionResult {
	return ExecutionResult{Handled: true, Update: update}
}
