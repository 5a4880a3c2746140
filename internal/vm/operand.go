package vm

import (
	"strconv"
	"strings"
)

// ResolveOperand resolves an instruction operand against the current frame.
// A register-shaped operand (the "%" prefix) is looked up in the frame's
// registers; a miss returns the operand unchanged as a literal. Any other
// string goes through the literal-constant parse; non-string operands
// decode from their wire shape.
func ResolveOperand(s *State, operand any) Value {
	if name, ok := operand.(string); ok {
		if strings.HasPrefix(name, RegisterPrefix) {
			if v, ok := s.CurrentFrame().Registers[name]; ok {
				return v
			}
			return Concrete(name)
		}
		return ParseConst(name)
	}
	return DecodeValue(operand)
}

// ParseConst parses a literal-constant string with a fixed precedence:
// the keywords None/True/False, then integer, then float, then a
// quote-delimited string (quotes stripped), else the raw text.
func ParseConst(raw string) Value {
	switch raw {
	case "None":
		return Null
	case "True":
		return Concrete(true)
	case "False":
		return Concrete(false)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Concrete(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Concrete(f)
	}
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') && raw[len(raw)-1] == raw[0] {
		return Concrete(raw[1 : len(raw)-1])
	}
	return Concrete(raw)
}
