package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgomes/tapescript/tape"
)

func newTestREPL(t *testing.T) replModel {
	t.Helper()
	m, err := newREPLModel(tape.Config{TapeSize: 64, StepQuota: 10000})
	if err != nil {
		t.Fatalf("newREPLModel failed: %v", err)
	}
	return m
}

func TestUpdateQuitCommandReturnsQuit(t *testing.T) {
	m := newTestREPL(t)
	m.textInput.SetValue(":quit")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}

	if !rm.quitting {
		t.Fatalf("quitting flag not set")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after quit command")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestUpdateNonQuitCommandDoesNotReturnCmd(t *testing.T) {
	m := newTestREPL(t)
	m.textInput.SetValue(":help")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}

	if cmd != nil {
		t.Fatalf("expected no command for non-quit input")
	}
	if rm.quitting {
		t.Fatalf("quitting should remain false")
	}
	if !rm.showHelp {
		t.Fatalf("help toggle should be enabled")
	}
}

func TestUpdateEnterRunsProgram(t *testing.T) {
	m := newTestREPL(t)
	m.textInput.SetValue(strings.Repeat("+", 72) + ".+.")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := model.(replModel)
	if len(rm.history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(rm.history))
	}
	entry := rm.history[0]
	if entry.isErr || entry.output != "HI" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !strings.Contains(entry.detail, "4 instructions") {
		t.Fatalf("unexpected detail %q", entry.detail)
	}
	if len(rm.cmdHistory) != 1 || rm.lastProgram == nil {
		t.Fatalf("program not recorded in history")
	}
}

func TestEvaluateReportsMalformedProgram(t *testing.T) {
	m := newTestREPL(t).evaluate("+[")
	entry := m.history[0]
	if !entry.isErr || !strings.Contains(entry.output, "unmatched '['") {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if strings.Contains(entry.output, "\n") {
		t.Fatalf("expected single-line error, got %q", entry.output)
	}
}

func TestEvaluateStopsRunawayPrograms(t *testing.T) {
	m := newTestREPL(t).evaluate("+[]")
	entry := m.history[0]
	if !entry.isErr || !strings.Contains(entry.output, "step quota exceeded") {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestEvaluateReportsOutOfBounds(t *testing.T) {
	m := newTestREPL(t).evaluate("<")
	entry := m.history[0]
	if !entry.isErr || !strings.Contains(entry.output, "pointer out of bounds") {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestInputCommandFeedsPrograms(t *testing.T) {
	m := newTestREPL(t)
	m, _ = m.handleCommand(`:input "ok\n"`)
	if m.stdin != "ok\n" {
		t.Fatalf("unexpected stdin %q", m.stdin)
	}
	m = m.evaluate(",.>,.>,.")
	entry := m.history[len(m.history)-1]
	if entry.isErr || entry.output != "ok" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestFormatOutputQuotesNonPrintable(t *testing.T) {
	if got := formatOutput(nil); got != "(no output)" {
		t.Fatalf("unexpected empty output %q", got)
	}
	if got := formatOutput([]byte{0, 255}); got != `"\x00\xff"` {
		t.Fatalf("unexpected quoted output %q", got)
	}
	if got := formatOutput([]byte("Hello\n")); got != "Hello" {
		t.Fatalf("unexpected printable output %q", got)
	}
}
