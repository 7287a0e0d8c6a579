package tape

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// MaxRunLength is the largest run length Validate accepts for a data or
// I/O instruction.
const MaxRunLength = math.MaxInt32

// Position identifies a line and column in the program source. Both are
// 1-based; the zero value means the position is unknown.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position refers to a source location.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Instruction pairs an operation with its operand. For data and I/O
// operations Arg is the run length; for brackets it is the index of the
// partner bracket within the same Program.
type Instruction struct {
	Op  Op
	Arg int
	Pos Position
}

// Count returns the run length of a data or I/O instruction.
func (in Instruction) Count() int {
	return in.Arg
}

// Target returns the partner index of a bracket instruction.
func (in Instruction) Target() int {
	return in.Arg
}

func (in Instruction) String() string {
	return fmt.Sprintf("%c %d", in.Op.Symbol(), in.Arg)
}

// Program is an immutable, resolved instruction sequence.
type Program struct {
	insts  []Instruction
	source string
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.insts)
}

// At returns the instruction at index i.
func (p *Program) At(i int) Instruction {
	return p.insts[i]
}

// Instructions returns a copy of the instruction sequence.
func (p *Program) Instructions() []Instruction {
	return append([]Instruction(nil), p.insts...)
}

// Source returns the text the program was encoded from. Programs loaded
// from an image have no source.
func (p *Program) Source() string {
	return p.source
}

// Validate checks the structural invariants of the instruction sequence:
// valid operations, run lengths between 1 and MaxRunLength, and bracket
// targets that pair each LoopStart with a later, correctly nested LoopEnd
// and point back.
func (p *Program) Validate() error {
	var open []int
	for i, in := range p.insts {
		if !in.Op.Valid() {
			return p.invalid(i, fmt.Sprintf("unknown operation %d", uint8(in.Op)))
		}
		switch in.Op {
		case OpLoopStart:
			open = append(open, i)
			continue
		case OpLoopEnd:
			if len(open) == 0 {
				return p.invalid(i, "unmatched ']'")
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			if in.Target() != start || p.insts[start].Target() != i {
				return p.invalid(i, fmt.Sprintf("bracket targets %d and %d are not paired", start, i))
			}
			continue
		}
		if in.Count() < 1 || in.Count() > MaxRunLength {
			return p.invalid(i, fmt.Sprintf("%s has run length %d", in.Op, in.Count()))
		}
	}
	if len(open) > 0 {
		return p.invalid(open[0], "unmatched '['")
	}
	return nil
}

func (p *Program) invalid(index int, msg string) error {
	in := p.insts[index]
	return &SyntaxError{Pos: in.Pos, Index: index, Op: in.Op, Message: msg, source: p.source}
}

// Dump writes one line per instruction: its index, an indent of four
// spaces per loop level, the operation symbol, and the operand.
func (p *Program) Dump(w io.Writer) error {
	var b strings.Builder
	indent := 0
	for i, in := range p.insts {
		if in.Op == OpLoopEnd && indent >= 4 {
			indent -= 4
		}
		fmt.Fprintf(&b, "%d: %s%c %d\n", i, strings.Repeat(" ", indent), in.Op.Symbol(), in.Arg)
		if in.Op == OpLoopStart {
			indent += 4
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Reproduce writes canonical source for the program: every instruction
// expanded back to its symbols with all other characters dropped, followed
// by a newline. Encoding the result yields the same operations and operands.
func (p *Program) Reproduce(w io.Writer) error {
	_, err := io.WriteString(w, p.Canonical())
	return err
}

// Canonical returns the text written by Reproduce.
func (p *Program) Canonical() string {
	var b strings.Builder
	for _, in := range p.insts {
		n := in.Count()
		if in.Op.IsBracket() {
			n = 1
		}
		for range n {
			b.WriteRune(in.Op.Symbol())
		}
	}
	b.WriteByte('\n')
	return b.String()
}
