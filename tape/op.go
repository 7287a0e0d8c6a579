package tape

import "fmt"

// Op identifies one of the eight tape operations.
type Op uint8

const (
	OpMoveLeft Op = iota
	OpMoveRight
	OpIncrement
	OpDecrement
	OpOutput
	OpInput
	OpLoopStart
	OpLoopEnd

	opCount
)

var opSymbols = [opCount]rune{
	OpMoveLeft:  '<',
	OpMoveRight: '>',
	OpIncrement: '+',
	OpDecrement: '-',
	OpOutput:    '.',
	OpInput:     ',',
	OpLoopStart: '[',
	OpLoopEnd:   ']',
}

var opNames = [opCount]string{
	OpMoveLeft:  "MoveLeft",
	OpMoveRight: "MoveRight",
	OpIncrement: "Increment",
	OpDecrement: "Decrement",
	OpOutput:    "Output",
	OpInput:     "Input",
	OpLoopStart: "LoopStart",
	OpLoopEnd:   "LoopEnd",
}

// Symbol returns the source character for the operation.
func (op Op) Symbol() rune {
	if !op.Valid() {
		return '?'
	}
	return opSymbols[op]
}

func (op Op) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
	return opNames[op]
}

// Valid reports whether op is one of the eight defined operations.
func (op Op) Valid() bool {
	return op < opCount
}

// IsBracket reports whether op is a loop delimiter. Bracket instructions
// carry a jump target instead of a repeat count.
func (op Op) IsBracket() bool {
	return op == OpLoopStart || op == OpLoopEnd
}

func opForRune(r rune) (Op, bool) {
	switch r {
	case '<':
		return OpMoveLeft, true
	case '>':
		return OpMoveRight, true
	case '+':
		return OpIncrement, true
	case '-':
		return OpDecrement, true
	case '.':
		return OpOutput, true
	case ',':
		return OpInput, true
	case '[':
		return OpLoopStart, true
	case ']':
		return OpLoopEnd, true
	default:
		return 0, false
	}
}
