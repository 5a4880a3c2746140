// Package interp drives program execution: it partitions a flat
// instruction slice into labeled basic blocks, runs the step loop with a
// local deterministic tier, the unresolved-call resolver, and the oracle
// as the last resort, and applies every resulting update to the machine
// state.
package interp

import (
	"fmt"
	"strings"

	"symvm/internal/ir"
)

// EntryLabel names the implicit block holding instructions that precede
// the first label.
const EntryLabel = "entry"

// Block is a labeled run of instructions. Successors carry the static
// control-flow edges: branch targets for blocks ending in a branch,
// nothing after a return or throw, otherwise the fallthrough block.
type Block struct {
	Label        string
	Instructions []*ir.Instruction
	Successors   []string
}

// Program is the block-indexed form of an instruction slice.
type Program struct {
	Blocks map[string]*Block
	Order  []string
	Entry  string
}

// Block returns the named block, if present.
func (p *Program) Block(label string) (*Block, bool) {
	b, ok := p.Blocks[label]
	return b, ok
}

// ResolveEntry maps a requested entry point to a block label: exact match
// first, then substring match against block labels, mirroring how named
// functions carry prefixed labels.
func (p *Program) ResolveEntry(requested string) (string, error) {
	entry := requested
	if entry == "" {
		entry = p.Entry
	}
	if _, ok := p.Blocks[entry]; ok {
		return entry, nil
	}
	for _, label := range p.Order {
		if strings.Contains(label, entry) {
			return label, nil
		}
	}
	return "", fmt.Errorf("entry point %q not found (have %v)", entry, p.Order)
}

// BuildProgram partitions instructions into basic blocks. A block starts
// at every label and after every branch, return or throw; label
// pseudo-instructions are stripped from block bodies. Unnamed blocks get
// synthetic "__block_<index>" labels.
func BuildProgram(insts []*ir.Instruction) *Program {
	p := &Program{Blocks: make(map[string]*Block), Entry: EntryLabel}
	if len(insts) == 0 {
		p.Blocks[EntryLabel] = &Block{Label: EntryLabel}
		p.Order = []string{EntryLabel}
		return p
	}

	starts := map[int]bool{0: true}
	for i, inst := range insts {
		switch inst.Opcode {
		case ir.OpLabel:
			starts[i] = true
		case ir.OpBranch, ir.OpBranchIf, ir.OpReturn, ir.OpThrow:
			if i+1 < len(insts) {
				starts[i+1] = true
			}
		}
	}
	sorted := make([]int, 0, len(starts))
	for i := range insts {
		if starts[i] {
			sorted = append(sorted, i)
		}
	}

	for si, start := range sorted {
		end := len(insts)
		if si+1 < len(sorted) {
			end = sorted[si+1]
		}
		body := insts[start:end]

		label := fmt.Sprintf("__block_%d", start)
		if start == 0 {
			label = EntryLabel
		}
		if len(body) > 0 && body[0].Opcode == ir.OpLabel && body[0].Label != "" {
			label = body[0].Label
			body = body[1:]
		}

		if _, dup := p.Blocks[label]; !dup {
			p.Blocks[label] = &Block{Label: label, Instructions: body}
			p.Order = append(p.Order, label)
		}
	}

	wireSuccessors(p)
	if len(p.Order) > 0 {
		p.Entry = p.Order[0]
	}
	return p
}

func wireSuccessors(p *Program) {
	for i, label := range p.Order {
		b := p.Blocks[label]
		if len(b.Instructions) == 0 {
			if i+1 < len(p.Order) {
				b.Successors = append(b.Successors, p.Order[i+1])
			}
			continue
		}
		last := b.Instructions[len(b.Instructions)-1]
		switch last.Opcode {
		case ir.OpBranch:
			if _, ok := p.Blocks[last.Label]; ok {
				b.Successors = append(b.Successors, last.Label)
			}
		case ir.OpBranchIf:
			for _, t := range strings.Split(last.Label, ",") {
				t = strings.TrimSpace(t)
				if _, ok := p.Blocks[t]; ok {
					b.Successors = append(b.Successors, t)
				}
			}
		case ir.OpReturn, ir.OpThrow:
			// no static successors
		default:
			if i+1 < len(p.Order) {
				b.Successors = append(b.Successors, p.Order[i+1])
			}
		}
	}
}
