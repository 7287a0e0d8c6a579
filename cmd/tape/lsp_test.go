package main

import (
	"strings"
	"testing"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestDiagnosticsForSourceWithoutErrors(t *testing.T) {
	diags := diagnosticsForSource("+[->+<]\n")
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %d", len(diags))
	}
}

func TestDiagnosticsForSourceWithUnmatchedBracket(t *testing.T) {
	diags := diagnosticsForSource("+\n  -]\n")
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(diags))
	}
	first := diags[0]
	if first.Severity == nil || *first.Severity != protocol.DiagnosticSeverityError {
		t.Fatalf("expected error severity, got %#v", first.Severity)
	}
	if first.Message != "unmatched ']'" {
		t.Fatalf("unexpected message %q", first.Message)
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 3},
		End:   protocol.Position{Line: 1, Character: 4},
	}
	if first.Range != want {
		t.Fatalf("unexpected range %#v", first.Range)
	}
}

func TestDiagnosticsUseUTF16CharacterOffsets(t *testing.T) {
	diags := diagnosticsForSource("😀 [")
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(diags))
	}
	if got := diags[0].Range.Start.Character; got != 3 {
		t.Fatalf("expected UTF-16 offset 3, got %d", got)
	}
}

func TestHoverDescribesOperationAndRun(t *testing.T) {
	hover := hoverForSource("loop: [+++>]", protocol.Position{Line: 0, Character: 8})
	if hover == nil {
		t.Fatalf("expected hover")
	}
	contents, ok := hover.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatalf("unexpected hover contents %#v", hover.Contents)
	}
	if !strings.Contains(contents.Value, "Increment") || !strings.Contains(contents.Value, "Run length: 3") {
		t.Fatalf("unexpected hover value %q", contents.Value)
	}
}

func TestHoverIgnoresComments(t *testing.T) {
	if hover := hoverForSource("loop: [+]", protocol.Position{Line: 0, Character: 1}); hover != nil {
		t.Fatalf("expected no hover over comment text")
	}
	if hover := hoverForSource("+", protocol.Position{Line: 3, Character: 0}); hover != nil {
		t.Fatalf("expected no hover past the document")
	}
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	server := newLSPServer()
	type notification struct {
		method string
		params any
	}
	notified := make(chan notification, 1)
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			notified <- notification{method: method, params: params}
		},
	}

	err := server.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:  "file:///tmp/test.b",
			Text: "[[]",
		},
	})
	if err != nil {
		t.Fatalf("didOpen failed: %v", err)
	}

	select {
	case n := <-notified:
		if n.method != protocol.ServerTextDocumentPublishDiagnostics {
			t.Fatalf("unexpected method %q", n.method)
		}
		params, ok := n.params.(protocol.PublishDiagnosticsParams)
		if !ok {
			t.Fatalf("unexpected params %#v", n.params)
		}
		if len(params.Diagnostics) != 1 {
			t.Fatalf("expected one diagnostic, got %d", len(params.Diagnostics))
		}
	case <-time.After(time.Second):
		t.Fatalf("expected publishDiagnostics notification")
	}

	hover, err := server.textDocumentHover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///tmp/test.b"},
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	if err != nil || hover == nil {
		t.Fatalf("expected hover for open document, got %v %v", hover, err)
	}
}

func TestDiagnosticsFollowDocumentChanges(t *testing.T) {
	server := newLSPServer()
	var published []protocol.PublishDiagnosticsParams
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				published = append(published, params.(protocol.PublishDiagnosticsParams))
			}
		},
	}
	uri := protocol.DocumentUri("file:///tmp/edit.b")

	if err := server.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: "[["},
	}); err != nil {
		t.Fatalf("didOpen failed: %v", err)
	}
	for i, text := range []string{"[[]", "[[]]"} {
		err := server.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
				Version:                protocol.Integer(i + 2),
			},
			ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
		})
		if err != nil {
			t.Fatalf("didChange failed: %v", err)
		}
	}
	if err := server.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}); err != nil {
		t.Fatalf("didClose failed: %v", err)
	}

	wantCounts := []int{1, 1, 0, 0}
	if len(published) != len(wantCounts) {
		t.Fatalf("expected %d notifications, got %d", len(wantCounts), len(published))
	}
	for i, params := range published {
		if params.URI != uri || len(params.Diagnostics) != wantCounts[i] {
			t.Fatalf("notification %d: unexpected params %#v", i, params)
		}
	}
}
