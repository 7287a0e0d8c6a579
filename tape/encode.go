package tape

// Encode compiles source into a resolved Program. Runs of identical data
// and I/O operations fold into one counted instruction; each bracket
// becomes its own instruction whose operand is the index of its partner.
// Characters outside the eight operation symbols end the current run and
// are otherwise ignored. Unmatched brackets are reported as a *SyntaxError.
func Encode(source string) (*Program, error) {
	insts := encodeRuns(source)
	if err := resolveBrackets(insts, source); err != nil {
		return nil, err
	}
	return &Program{insts: insts, source: source}, nil
}

// MustEncode is like Encode but panics on malformed source.
func MustEncode(source string) *Program {
	prog, err := Encode(source)
	if err != nil {
		panic(err)
	}
	return prog
}

type runEncoder struct {
	insts []Instruction

	op    Op
	count int
	start Position
}

func (e *runEncoder) extend(op Op, pos Position) {
	if e.count > 0 && op == e.op {
		e.count++
		return
	}
	e.flush()
	e.op = op
	e.count = 1
	e.start = pos
}

func (e *runEncoder) flush() {
	if e.count == 0 {
		return
	}
	if e.op.IsBracket() {
		pos := e.start
		for range e.count {
			e.insts = append(e.insts, Instruction{Op: e.op, Pos: pos})
			pos.Column++
		}
	} else {
		e.insts = append(e.insts, Instruction{Op: e.op, Arg: e.count, Pos: e.start})
	}
	e.count = 0
}

func encodeRuns(source string) []Instruction {
	enc := &runEncoder{}
	line, column := 1, 0
	for _, r := range source {
		if r == '\n' {
			line++
			column = 0
		} else {
			column++
		}
		op, ok := opForRune(r)
		if !ok {
			enc.flush()
			continue
		}
		enc.extend(op, Position{Line: line, Column: column})
	}
	enc.flush()
	return enc.insts
}

// resolveBrackets writes mutual jump targets into every bracket pair. The
// run encoder treats brackets as flat tokens; nesting is only resolved here.
func resolveBrackets(insts []Instruction, source string) error {
	var open []int
	for i := range insts {
		switch insts[i].Op {
		case OpLoopStart:
			open = append(open, i)
		case OpLoopEnd:
			if len(open) == 0 {
				return unmatched(insts, i, source)
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			insts[start].Arg = i
			insts[i].Arg = start
		}
	}
	if len(open) > 0 {
		return unmatched(insts, open[0], source)
	}
	return nil
}

func unmatched(insts []Instruction, index int, source string) error {
	in := insts[index]
	return &SyntaxError{
		Pos:     in.Pos,
		Index:   index,
		Op:      in.Op,
		Message: "unmatched '" + string(in.Op.Symbol()) + "'",
		source:  source,
	}
}
