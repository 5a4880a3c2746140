// Package ir defines the flat, register-based instruction form consumed by
// the interpreter core. Producing IR from source code (frontends, CFG
// construction, registries) happens upstream; this package is only the
// boundary type.
package ir

import (
	"fmt"
	"strings"
)

// Opcode identifies one instruction form.
type Opcode string

const (
	// Value producers
	OpConst        Opcode = "CONST"
	OpLoadVar      Opcode = "LOAD_VAR"
	OpLoadField    Opcode = "LOAD_FIELD"
	OpLoadIndex    Opcode = "LOAD_INDEX"
	OpNewObject    Opcode = "NEW_OBJECT"
	OpNewArray     Opcode = "NEW_ARRAY"
	OpBinop        Opcode = "BINOP"
	OpUnop         Opcode = "UNOP"
	OpCallFunction Opcode = "CALL_FUNCTION"
	OpCallMethod   Opcode = "CALL_METHOD"
	OpCallUnknown  Opcode = "CALL_UNKNOWN"

	// Value consumers / control flow
	OpStoreVar   Opcode = "STORE_VAR"
	OpStoreField Opcode = "STORE_FIELD"
	OpStoreIndex Opcode = "STORE_INDEX"
	OpBranchIf   Opcode = "BRANCH_IF"
	OpBranch     Opcode = "BRANCH"
	OpReturn     Opcode = "RETURN"
	OpThrow      Opcode = "THROW"

	// Special
	OpSymbolic Opcode = "SYMBOLIC"

	// Labels (pseudo-instruction)
	OpLabel Opcode = "LABEL"
)

// SourceLocation is a source span carried through from the frontend.
// The zero value means "unknown".
type SourceLocation struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// IsUnknown reports whether the location carries no information.
func (l SourceLocation) IsUnknown() bool {
	return l.StartLine == 0 && l.StartCol == 0 && l.EndLine == 0 && l.EndCol == 0
}

func (l SourceLocation) String() string {
	if l.IsUnknown() {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d-%d:%d", l.StartLine, l.StartCol, l.EndLine, l.EndCol)
}

// Instruction is one unit of the flat three-address program form.
// Operands are raw wire values: strings that may name registers
// (distinguished by the "%" prefix), literal constants, or structured
// descriptors produced by the frontend.
type Instruction struct {
	Opcode    Opcode         `json:"opcode"`
	ResultReg string         `json:"result_reg,omitempty"`
	Operands  []any          `json:"operands,omitempty"`
	Label     string         `json:"label,omitempty"`
	Loc       SourceLocation `json:"source_location,omitempty"`
}

// String renders the instruction in the canonical textual form, e.g.
// "%3 = binop + %1 %2" or "my_label:".
func (i *Instruction) String() string {
	var base string
	if i.Label != "" && i.Opcode == OpLabel {
		base = i.Label + ":"
	} else {
		parts := make([]string, 0, len(i.Operands)+3)
		if i.ResultReg != "" {
			parts = append(parts, i.ResultReg+" =")
		}
		parts = append(parts, strings.ToLower(string(i.Opcode)))
		for _, op := range i.Operands {
			parts = append(parts, fmt.Sprintf("%v", op))
		}
		if i.Label != "" {
			parts = append(parts, i.Label)
		}
		base = strings.Join(parts, " ")
	}
	if !i.Loc.IsUnknown() {
		return fmt.Sprintf("%s  # %s", base, i.Loc)
	}
	return base
}
