package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symvm/internal/ir"
)

func label(name string) *ir.Instruction {
	return &ir.Instruction{Opcode: ir.OpLabel, Label: name}
}

func TestBuildProgramPartitioning(t *testing.T) {
	insts := []*ir.Instruction{
		{Opcode: ir.OpConst, ResultReg: "%1", Operands: []any{"1"}},
		{Opcode: ir.OpBranch, Label: "loop"},
		label("loop"),
		{Opcode: ir.OpConst, ResultReg: "%2", Operands: []any{"2"}},
		{Opcode: ir.OpReturn},
		label("after"),
		{Opcode: ir.OpConst, ResultReg: "%3", Operands: []any{"3"}},
	}

	p := BuildProgram(insts)

	require.Equal(t, []string{EntryLabel, "loop", "after"}, p.Order)
	assert.Equal(t, EntryLabel, p.Entry)

	entry := p.Blocks[EntryLabel]
	require.Len(t, entry.Instructions, 2)
	assert.Equal(t, []string{"loop"}, entry.Successors)

	// The label pseudo-instruction is stripped from the block body.
	loop := p.Blocks["loop"]
	require.Len(t, loop.Instructions, 2)
	assert.Equal(t, ir.OpConst, loop.Instructions[0].Opcode)
	assert.Empty(t, loop.Successors, "return block has no successors")

	after := p.Blocks["after"]
	assert.Empty(t, after.Successors, "last block has no fallthrough")
}

func TestBuildProgramBranchIfSuccessors(t *testing.T) {
	insts := []*ir.Instruction{
		{Opcode: ir.OpConst, ResultReg: "%1", Operands: []any{"True"}},
		{Opcode: ir.OpBranchIf, Operands: []any{"%1"}, Label: "then,else"},
		label("then"),
		{Opcode: ir.OpReturn},
		label("else"),
		{Opcode: ir.OpReturn},
	}

	p := BuildProgram(insts)
	assert.ElementsMatch(t, []string{"then", "else"}, p.Blocks[EntryLabel].Successors)
}

func TestBuildProgramFallthrough(t *testing.T) {
	insts := []*ir.Instruction{
		{Opcode: ir.OpConst, ResultReg: "%1", Operands: []any{"1"}},
		label("next"),
		{Opcode: ir.OpConst, ResultReg: "%2", Operands: []any{"2"}},
	}

	p := BuildProgram(insts)
	assert.Equal(t, []string{"next"}, p.Blocks[EntryLabel].Successors)
}

func TestBuildProgramLeadingLabel(t *testing.T) {
	insts := []*ir.Instruction{
		label("main"),
		{Opcode: ir.OpConst, ResultReg: "%1", Operands: []any{"1"}},
	}

	p := BuildProgram(insts)
	assert.Equal(t, "main", p.Entry)
	require.Contains(t, p.Blocks, "main")
	assert.Len(t, p.Blocks["main"].Instructions, 1)
}

func TestResolveEntry(t *testing.T) {
	insts := []*ir.Instruction{
		label("func_main"),
		{Opcode: ir.OpReturn},
		label("func_helper"),
		{Opcode: ir.OpReturn},
	}
	p := BuildProgram(insts)

	t.Run("default is first block", func(t *testing.T) {
		got, err := p.ResolveEntry("")
		require.NoError(t, err)
		assert.Equal(t, "func_main", got)
	})

	t.Run("exact match", func(t *testing.T) {
		got, err := p.ResolveEntry("func_helper")
		require.NoError(t, err)
		assert.Equal(t, "func_helper", got)
	})

	t.Run("substring match", func(t *testing.T) {
		got, err := p.ResolveEntry("helper")
		require.NoError(t, err)
		assert.Equal(t, "func_helper", got)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := p.ResolveEntry("missing_entirely")
		assert.Error(t, err)
	})
}
