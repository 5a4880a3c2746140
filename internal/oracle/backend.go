// Package oracle sends instructions the interpreter has no local rule for
// to an LLM and parses the declarative state update it answers with. The
// contract is fail-closed: a reply that is not exactly a well-formed
// update is a hard error, never a guess.
package oracle

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

// Backend interprets one instruction against the current machine state.
type Backend interface {
	InterpretInstruction(ctx context.Context, inst *ir.Instruction, state *vm.State) (*vm.StateUpdate, error)
}

const systemPrompt = `You are the semantic backend of a program interpreter. You receive one instruction of a flat register-based program form together with a snapshot of the machine state, and you respond with the instruction's effects as a declarative state update.

Respond with ONLY a JSON object, no prose, no markdown fences, using exactly these keys (all optional, include only what the instruction does):
{
  "register_writes": {"%reg": value},
  "var_writes": {"name": value},
  "heap_writes": [{"obj_addr": "obj_1", "field": "x", "value": ...}],
  "new_objects": [{"addr": "obj_1", "type_hint": "Point"}],
  "next_label": "label to jump to",
  "call_push": {"function_name": "f", "return_label": "...", "closure_env_id": "...", "captured_var_names": ["..."]},
  "call_pop": true,
  "return_value": value,
  "path_condition": "constraint recorded for a symbolic branch",
  "reasoning": "one short sentence"
}

Rules:
- Values are native JSON. A symbolic value is {"__symbolic__": true, "name": "sym_3", "type_hint": "...", "constraints": ["..."]}. A heap reference is its bare address string.
- Never invent registers or variables the state does not show unless the instruction writes them.
- For a branch on a symbolic condition, pick the more plausible arm via "next_label" and record the assumption in "path_condition".
- Do not add keys beyond the schema above.`

// LLMBackend implements Backend on top of a provider client.
type LLMBackend struct {
	client llm.Client
	log    *zap.Logger
}

// NewLLMBackend creates an LLM-backed oracle.
func NewLLMBackend(client llm.Client, log *zap.Logger) *LLMBackend {
	if log == nil {
		log = zap.NewNop()
	}
	return &LLMBackend{client: client, log: log}
}

// InterpretInstruction asks the model for the instruction's state update.
// Transport errors and malformed replies are returned as errors; the
// caller decides whether the run survives.
func (b *LLMBackend) InterpretInstruction(ctx context.Context, inst *ir.Instruction, state *vm.State) (*vm.StateUpdate, error) {
	prompt, err := buildPrompt(inst, state)
	if err != nil {
		return nil, err
	}

	b.log.Debug("consulting oracle", zap.String("instruction", inst.String()))

	raw, err := b.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("oracle completion failed for %q: %w", inst.String(), err)
	}

	update, err := ParseUpdate(raw)
	if err != nil {
		return nil, fmt.Errorf("oracle reply rejected for %q: %w", inst.String(), err)
	}

	b.log.Debug("oracle update accepted",
		zap.String("instruction", inst.String()),
		zap.String("reasoning", update.Reasoning))
	return update, nil
}

// buildPrompt renders the instruction and the relevant state slice as the
// user message. Register operands are pre-resolved so the model sees the
// values, not just the register names.
func buildPrompt(inst *ir.Instruction, state *vm.State) (string, error) {
	req := map[string]any{
		"instruction": inst.String(),
		"opcode":      string(inst.Opcode),
		"operands":    inst.Operands,
	}
	if inst.ResultReg != "" {
		req["result_reg"] = inst.ResultReg
	}

	resolved := make(map[string]any)
	for _, op := range inst.Operands {
		name, ok := op.(string)
		if !ok || !strings.HasPrefix(name, vm.RegisterPrefix) {
			continue
		}
		resolved[name] = vm.EncodeValue(vm.ResolveOperand(state, op))
	}
	if len(resolved) > 0 {
		req["resolved_operand_values"] = resolved
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
	if len(state.PathConditions) > 0 {
		stateView["path_conditions"] = state.PathConditions
	}
	req["state"] = stateView

	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to build oracle prompt: %w", err)
	}
	return string(data), nil
}

// ParseUpdate decodes a model reply into a state update. The reply may be
// wrapped in a markdown code fence; everything else is strict: unknown
// keys, trailing garbage, or structurally incomplete writes all fail.
func ParseUpdate(raw string) (*vm.StateUpdate, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, fmt.Errorf("empty reply")
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var update vm.StateUpdate
	if err := dec.Decode(&update); err != nil {
		return nil, fmt.Errorf("malformed update: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after update object")
	}

	for i, hw := range update.HeapWrites {
		if hw.ObjAddr == "" || hw.Field == "" {
			return nil, fmt.Errorf("heap write %d missing obj_addr or field", i)
		}
	}
	for i, obj := range update.NewObjects {
		if obj.Addr == "" {
			return nil, fmt.Errorf("new object %d missing addr", i)
		}
	}
	if update.CallPush != nil && update.CallPush.FunctionName == "" {
		return nil, fmt.Errorf("call_push missing function_name")
	}
	return &update, nil
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
