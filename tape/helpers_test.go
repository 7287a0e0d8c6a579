package tape

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

const helloWorldSource = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

func encodeSource(tb testing.TB, source string) *Program {
	tb.Helper()
	prog, err := Encode(source)
	if err != nil {
		tb.Fatalf("encode failed: %v", err)
	}
	return prog
}

func runSource(tb testing.TB, cfg Config, source string, input string) (string, Stats) {
	tb.Helper()
	out, stats, err := runSourceErr(tb, cfg, source, input)
	if err != nil {
		tb.Fatalf("run failed: %v", err)
	}
	return out, stats
}

func runSourceErr(tb testing.TB, cfg Config, source string, input string) (string, Stats, error) {
	tb.Helper()
	prog := encodeSource(tb, source)
	m, err := NewMachine(cfg)
	if err != nil {
		tb.Fatalf("new machine failed: %v", err)
	}
	var out bytes.Buffer
	stats, err := m.Run(context.Background(), prog, strings.NewReader(input), &out)
	return out.String(), stats, err
}

func requireErrorIs(tb testing.TB, err error, target error) {
	tb.Helper()
	if err == nil {
		tb.Fatalf("expected error wrapping %v, got nil", target)
	}
	if !errors.Is(err, target) {
		tb.Fatalf("expected error wrapping %v, got %v", target, err)
	}
}

func requireErrorContains(tb testing.TB, err error, want string) {
	tb.Helper()
	if err == nil {
		tb.Fatalf("expected error containing %q", want)
	}
	if !strings.Contains(err.Error(), want) {
		tb.Fatalf("unexpected error: %v", err)
	}
}
