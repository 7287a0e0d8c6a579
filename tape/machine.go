package tape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// DefaultTapeSize is the tape length used when Config.TapeSize is zero.
	DefaultTapeSize = 30000
	// ClassicTapeSize is the tape length of the original interpreter.
	ClassicTapeSize = 3000

	cancelCheckInterval = 1024
	outputChunkSize     = 4096
)

// Config controls the tape size and execution bounds of a Machine.
type Config struct {
	TapeSize  int
	StepQuota int
}

// Machine executes Programs. It holds only configuration; every Run owns
// a freshly zeroed tape, so a Machine may be shared between goroutines.
type Machine struct {
	config Config
}

// NewMachine constructs a Machine, defaulting a zero TapeSize.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.TapeSize == 0 {
		cfg.TapeSize = DefaultTapeSize
	}
	if cfg.TapeSize < 0 {
		return nil, fmt.Errorf("tape size must be positive, got %d", cfg.TapeSize)
	}
	if cfg.StepQuota < 0 {
		return nil, fmt.Errorf("step quota must not be negative, got %d", cfg.StepQuota)
	}
	return &Machine{config: cfg}, nil
}

// MustNewMachine is like NewMachine but panics on an invalid Config.
func MustNewMachine(cfg Config) *Machine {
	m, err := NewMachine(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

// Config returns the effective configuration.
func (m *Machine) Config() Config {
	return m.config
}

// Stats summarises a run.
type Stats struct {
	Steps    int
	Pointer  int
	BytesIn  int
	BytesOut int
}

type flusher interface {
	Flush() error
}

type execution struct {
	ctx   context.Context
	prog  *Program
	insts []Instruction

	tape []byte
	ptr  int
	pc   int

	steps int
	quota int

	in     io.Reader
	inDone bool
	out    io.Writer
	outBuf []byte

	bytesIn  int
	bytesOut int
}

// Run executes prog until the program counter passes the last instruction.
// Output operations write to out and Input operations read from in; a nil
// in behaves as an empty stream. When out implements Flush() error it is
// flushed before every blocking read and when the run ends.
//
// A pointer leaving the tape stops the run with a *BoundsError. Write
// failures and read failures other than end of stream are returned
// wrapped. The tape is discarded when Run returns.
func (m *Machine) Run(ctx context.Context, prog *Program, in io.Reader, out io.Writer) (Stats, error) {
	if prog == nil {
		return Stats{}, errors.New("run: nil program")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}
	exec := &execution{
		ctx:    ctx,
		prog:   prog,
		insts:  prog.insts,
		tape:   make([]byte, m.config.TapeSize),
		quota:  m.config.StepQuota,
		in:     in,
		inDone: in == nil,
		out:    out,
	}
	err := exec.run()
	if flushErr := exec.flush(); err == nil && flushErr != nil {
		err = flushErr
	}
	return Stats{
		Steps:    exec.steps,
		Pointer:  exec.ptr,
		BytesIn:  exec.bytesIn,
		BytesOut: exec.bytesOut,
	}, err
}

func (exec *execution) run() error {
	for exec.pc < len(exec.insts) {
		if err := exec.step(); err != nil {
			return err
		}
		in := exec.insts[exec.pc]
		switch in.Op {
		case OpMoveLeft:
			if err := exec.move(-in.Count()); err != nil {
				return err
			}
		case OpMoveRight:
			if err := exec.move(in.Count()); err != nil {
				return err
			}
		case OpIncrement:
			exec.tape[exec.ptr] += byte(in.Count())
		case OpDecrement:
			exec.tape[exec.ptr] -= byte(in.Count())
		case OpOutput:
			if err := exec.output(in.Count()); err != nil {
				return err
			}
		case OpInput:
			if err := exec.input(in.Count()); err != nil {
				return err
			}
		case OpLoopStart:
			// Landing on the partner and re-evaluating it always falls
			// through, so continue directly after it.
			if exec.tape[exec.ptr] == 0 {
				exec.pc = in.Target()
			}
		case OpLoopEnd:
			if exec.tape[exec.ptr] != 0 {
				exec.pc = in.Target()
			}
		default:
			return fmt.Errorf("%w: unknown operation %d at instruction %d", ErrMalformedProgram, uint8(in.Op), exec.pc)
		}
		exec.pc++
	}
	return nil
}

func (exec *execution) step() error {
	exec.steps++
	if exec.quota > 0 && exec.steps > exec.quota {
		exec.steps--
		return fmt.Errorf("%w (%d)", ErrStepQuotaExceeded, exec.quota)
	}
	if exec.steps%cancelCheckInterval == 0 {
		select {
		case <-exec.ctx.Done():
			return exec.ctx.Err()
		default:
		}
	}
	return nil
}

// move compares delta against the room left on the tape before adding, so
// run lengths near math.MaxInt cannot overflow the pointer.
func (exec *execution) move(delta int) error {
	if delta < 0 {
		if next := exec.ptr + delta; next < 0 {
			return exec.outOfBounds(next)
		}
	} else if delta > len(exec.tape)-1-exec.ptr {
		return exec.outOfBounds(saturatingAdd(exec.ptr, delta))
	}
	exec.ptr += delta
	return nil
}

// output writes count copies of the current cell in chunks of at most
// outputChunkSize bytes.
func (exec *execution) output(count int) error {
	if exec.outBuf == nil {
		exec.outBuf = make([]byte, outputChunkSize)
	}
	buf := exec.outBuf[:min(count, len(exec.outBuf))]
	cell := exec.tape[exec.ptr]
	for i := range buf {
		buf[i] = cell
	}
	for count > 0 {
		chunk := buf[:min(count, len(buf))]
		n, err := exec.out.Write(chunk)
		exec.bytesOut += n
		if err == nil && n < len(chunk) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		count -= n
	}
	return nil
}

// input fills tape[ptr], tape[ptr+1], ... without moving the pointer.
// Once the stream is exhausted the remaining cells, and every later read,
// are zero.
func (exec *execution) input(count int) error {
	if count > len(exec.tape)-exec.ptr {
		return exec.outOfBounds(saturatingAdd(exec.ptr, count-1))
	}
	cells := exec.tape[exec.ptr : exec.ptr+count]
	if exec.inDone {
		clear(cells)
		return nil
	}
	if err := exec.flush(); err != nil {
		return err
	}
	n, err := io.ReadFull(exec.in, cells)
	exec.bytesIn += n
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("read input: %w", err)
		}
		clear(cells[n:])
		exec.inDone = true
	}
	return nil
}

func (exec *execution) flush() error {
	f, ok := exec.out.(flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// saturatingAdd adds two non-negative ints, clamping at math.MaxInt.
func saturatingAdd(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

func (exec *execution) outOfBounds(pointer int) error {
	in := exec.insts[exec.pc]
	return &BoundsError{
		Pointer:  pointer,
		TapeSize: len(exec.tape),
		PC:       exec.pc,
		Op:       in.Op,
		Pos:      in.Pos,
		source:   exec.prog.source,
	}
}
