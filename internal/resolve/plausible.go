package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"symvm/internal/ir"
	"symvm/internal/llm"
	"symvm/internal/vm"
)

const plausibleSystemPrompt = `You are simulating the result of a function call inside a program interpreter.
You will receive a JSON description of a call to a function whose body is not available, together with the visible interpreter state.

Invent the most PLAUSIBLE return value for the call. Examples:
- sqrt(16) plausibly returns 4.0
- getUserName(42) plausibly returns a short realistic name string
- list.pop() plausibly returns the last element visible in the state

Respond with ONLY a JSON object, no prose, no markdown fences:
{
  "value": <the plausible return value>,
  "heap_writes": [{"obj_addr": "...", "field": "...", "value": ...}],
  "var_writes": {"name": value},
  "reasoning": "one short sentence"
}

"heap_writes" and "var_writes" are optional; include them only when the call visibly mutates state. Use native JSON types for values. If the result is genuinely unknowable, still pick a representative plausible value of the right type.`

// plausibleReply is the wire shape the model must answer with.
type plausibleReply struct {
	Value      any            `json:"value"`
	HeapWrites []vm.HeapWrite `json:"heap_writes,omitempty"`
	VarWrites  map[string]any `json:"var_writes,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// PlausibleResolver asks an LLM to invent a realistic concrete result for
// an unresolved call. Any failure along the way (transport, malformed
// reply, missing fields) falls back to the symbolic strategy, so the
// resolver as a whole stays total.
type PlausibleResolver struct {
	client         llm.Client
	sourceLanguage string
	fallback       *SymbolicResolver
	log            *zap.Logger
}

// NewPlausibleResolver creates an LLM-backed resolver. sourceLanguage may
// be empty when the program's origin is unknown.
func NewPlausibleResolver(client llm.Client, sourceLanguage string, log *zap.Logger) *PlausibleResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlausibleResolver{
		client:         client,
		sourceLanguage: sourceLanguage,
		fallback:       NewSymbolicResolver(log),
		log:            log,
	}
}

// ResolveCall asks the model for a plausible result, degrading to a
// symbolic value on any failure.
func (r *PlausibleResolver) ResolveCall(ctx context.Context, funcName string, args []vm.Value, inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	desc := CallDescriptor(funcName, args)
	update, err := r.ask(ctx, desc, args, inst, state)
	if err != nil {
		r.log.Warn("plausible-value resolution failed, falling back to symbolic",
			zap.String("call", desc),
			zap.Error(err))
		return r.fallback.ResolveCall(ctx, funcName, args, inst, state)
	}
	return vm.Handled(update)
}

// ResolveMethod asks the model for a plausible result of a method call,
// degrading to a symbolic value on any failure.
func (r *PlausibleResolver) ResolveMethod(ctx context.Context, objDesc, methodName string, args []vm.Value, inst *ir.Instruction, state *vm.State) vm.ExecutionResult {
	desc := objDesc + "." + CallDescriptor(methodName, args)
	update, err := r.ask(ctx, desc, args, inst, state)
	if err != nil {
		r.log.Warn("plausible-value resolution failed, falling back to symbolic",
			zap.String("call", desc),
			zap.Error(err))
		return r.fallback.ResolveMethod(ctx, objDesc, methodName, args, inst, state)
	}
	return vm.Handled(update)
}

func (r *PlausibleResolver) ask(ctx context.Context, desc string, args []vm.Value, inst *ir.Instruction, state *vm.State) (*vm.StateUpdate, error) {
	prompt, err := r.buildPrompt(desc, args, inst, state)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.CompleteWithSystem(ctx, plausibleSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	reply, err := parsePlausibleReply(raw)
	if err != nil {
		return nil, err
	}

	update := &vm.StateUpdate{
		HeapWrites: reply.HeapWrites,
		VarWrites:  reply.VarWrites,
		Reasoning:  reply.Reasoning,
	}
	if inst.ResultReg != "" {
		update.RegisterWrites = map[string]any{inst.ResultReg: reply.Value}
	}

	r.log.Debug("plausible value accepted",
		zap.String("call", desc),
		zap.Any("value", reply.Value),
		zap.String("reasoning", reply.Reasoning))
	return update, nil
}

func (r *PlausibleResolver) buildPrompt(desc string, args []vm.Value, inst *ir.Instruction, state *vm.State) (string, error) {
	encArgs := make([]any, len(args))
	for i, a := range args {
		encArgs[i] = vm.EncodeValue(a)
	}

	req := map[string]any{
		"call":       desc,
		"args":       encArgs,
		"result_reg": inst.ResultReg,
	}
	if r.sourceLanguage != "" {
		req["language"] = r.sourceLanguage
	}

	stateView := map[string]any{
		"local_vars": vm.EncodeBindings(state.CurrentFrame().Locals),
	}
	if len(state.Heap) > 0 {
		heap := make(map[string]any, len(state.Heap))
		for addr, obj := range state.Heap {
			heap[addr] = vm.EncodeHeapObject(obj)
		}
		stateView["heap"] = heap
	}
	req["state"] = stateView

	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}
	return string(data), nil
}

// parsePlausibleReply decodes the model's JSON reply, tolerating a
// markdown code fence around it. A reply without a usable "value" key is
// an error so the caller falls back.
func parsePlausibleReply(raw string) (*plausibleReply, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, fmt.Errorf("empty reply")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}
	if _, ok := probe["value"]; !ok {
		return nil, fmt.Errorf("reply missing \"value\"")
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var reply plausibleReply
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("malformed reply: %w", err)
	}
	for i, hw := range reply.HeapWrites {
		if hw.ObjAddr == "" || hw.Field == "" {
			return nil, fmt.Errorf("heap write %d missing obj_addr or field", i)
		}
	}
	return &reply, nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
