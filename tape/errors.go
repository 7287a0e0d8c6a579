package tape

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedProgram reports unmatched brackets or an instruction
	// stream whose bracket targets are inconsistent.
	ErrMalformedProgram = errors.New("malformed program")
	// ErrOutOfBounds reports a pointer that left the tape.
	ErrOutOfBounds = errors.New("pointer out of bounds")
	// ErrStepQuotaExceeded reports a run that executed more instructions
	// than Config.StepQuota allows.
	ErrStepQuotaExceeded = errors.New("step quota exceeded")
)

// SyntaxError describes a malformed program. It unwraps to
// ErrMalformedProgram.
type SyntaxError struct {
	Pos     Position
	Index   int
	Op      Op
	Message string

	source string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "parse error at %s: %s", e.Pos, e.Message)
	} else {
		fmt.Fprintf(&b, "parse error at instruction %d: %s", e.Index, e.Message)
	}
	if frame := formatCodeFrame(e.source, e.Pos); frame != "" {
		b.WriteString("\n")
		b.WriteString(frame)
	}
	return b.String()
}

func (e *SyntaxError) Unwrap() error {
	return ErrMalformedProgram
}

// BoundsError describes a pointer that moved outside [0, TapeSize). It
// unwraps to ErrOutOfBounds.
type BoundsError struct {
	Pointer  int
	TapeSize int
	PC       int
	Op       Op
	Pos      Position

	source string
}

func (e *BoundsError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: cell %d outside tape of %d cells (instruction %d %q", ErrOutOfBounds, e.Pointer, e.TapeSize, e.PC, e.Op.Symbol())
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, " at %s", e.Pos)
	}
	b.WriteString(")")
	if frame := formatCodeFrame(e.source, e.Pos); frame != "" {
		b.WriteString("\n")
		b.WriteString(frame)
	}
	return b.String()
}

func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}

func formatCodeFrame(source string, pos Position) string {
	if source == "" || pos.Line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if pos.Line > len(lines) {
		return ""
	}

	lineText := strings.TrimRight(lines[pos.Line-1], "\r")
	lineRunes := []rune(lineText)

	column := pos.Column
	if column <= 0 {
		column = 1
	}
	if column > len(lineRunes)+1 {
		column = len(lineRunes) + 1
	}

	lineLabel := strconv.Itoa(pos.Line)
	gutterPad := strings.Repeat(" ", len(lineLabel))
	caretPad := strings.Repeat(" ", column-1)

	return fmt.Sprintf(
		"  --> line %d, column %d\n %s | %s\n %s | %s^",
		pos.Line,
		column,
		lineLabel,
		lineText,
		gutterPad,
		caretPad,
	)
}
