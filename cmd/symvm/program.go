package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"symvm/internal/ir"
)

// LoadProgram reads a JSON-encoded instruction list. Numbers are kept as
// json.Number so integer operands survive the trip without widening to
// floats.
func LoadProgram(path string) ([]*ir.Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var insts []*ir.Instruction
	if err := dec.Decode(&insts); err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	if len(insts) == 0 {
		return nil, fmt.Errorf("program is empty")
	}
	return insts, nil
}
