package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/mgomes/tapescript/tape"
)

const lspName = "tape-lsp"

var opDescriptions = map[rune]string{
	'<': "MoveLeft: move the pointer one cell left per repetition",
	'>': "MoveRight: move the pointer one cell right per repetition",
	'+': "Increment: add one to the current cell per repetition, wrapping at 256",
	'-': "Decrement: subtract one from the current cell per repetition, wrapping at 0",
	'.': "Output: write the current cell to the output stream",
	',': "Input: read bytes into consecutive cells from the pointer (0 at end of input)",
	'[': "LoopStart: skip past the matching `]` when the current cell is 0",
	']': "LoopEnd: jump back past the matching `[` when the current cell is not 0",
}

type lspServer struct {
	mu   sync.Mutex
	docs map[protocol.DocumentUri]string

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

func newLSPServer() *lspServer {
	s := &lspServer{
		docs:    make(map[protocol.DocumentUri]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover: s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

func runLSP() error {
	return newLSPServer().server.RunStdio()
}

func (s *lspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("tape LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *lspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *lspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *lspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (s *lspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[uri] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *lspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	uri := params.TextDocument.URI

	// Full sync: the last change holds the whole document.
	last := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := last.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.docs[uri] = whole.Text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, whole.Text)
	return nil
}

func (s *lspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *lspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[params.TextDocument.URI]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return hoverForSource(text, params.Position), nil
}

// publishDiagnostics notifies from the handler goroutine so the client sees
// diagnostics in the order the document changed.
func (s *lspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnosticsForSource(text),
	})
}

// diagnosticsForSource reports unmatched brackets. Positions are
// converted to the zero-based line and UTF-16 character offsets LSP uses.
func diagnosticsForSource(source string) []protocol.Diagnostic {
	_, err := tape.Encode(source)
	if err == nil {
		return []protocol.Diagnostic{}
	}

	severity := protocol.DiagnosticSeverityError
	src := lspName
	diag := protocol.Diagnostic{
		Severity: &severity,
		Source:   &src,
		Message:  err.Error(),
	}
	var syntaxErr *tape.SyntaxError
	if errors.As(err, &syntaxErr) {
		start := lspPosition(source, syntaxErr.Pos)
		end := start
		end.Character++
		diag.Range = protocol.Range{Start: start, End: end}
		diag.Message = syntaxErr.Message
	}
	return []protocol.Diagnostic{diag}
}

func lspPosition(source string, pos tape.Position) protocol.Position {
	if !pos.IsValid() {
		return protocol.Position{}
	}
	lines := strings.Split(source, "\n")
	if pos.Line > len(lines) {
		return protocol.Position{Line: protocol.UInteger(pos.Line - 1)}
	}
	character := 0
	column := 1
	for _, r := range lines[pos.Line-1] {
		if column >= pos.Column {
			break
		}
		character += utf16Len(r)
		column++
	}
	return protocol.Position{Line: protocol.UInteger(pos.Line - 1), Character: protocol.UInteger(character)}
}

// hoverForSource describes the operation under the cursor along with the
// length of the run it belongs to.
func hoverForSource(source string, pos protocol.Position) *protocol.Hover {
	lines := strings.Split(source, "\n")
	if int(pos.Line) >= len(lines) {
		return nil
	}
	line := lines[pos.Line]
	symbol, index, ok := runeAtUTF16Offset(line, int(pos.Character))
	if !ok {
		return nil
	}
	desc, ok := opDescriptions[symbol]
	if !ok {
		return nil
	}

	value := fmt.Sprintf("`%c` %s", symbol, desc)
	if symbol != '[' && symbol != ']' {
		value += fmt.Sprintf("\n\nRun length: %d", runLength(line, index, symbol))
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

func runeAtUTF16Offset(line string, offset int) (rune, int, bool) {
	units := 0
	for i, r := range line {
		n := utf16Len(r)
		if offset < units+n {
			return r, i, true
		}
		units += n
	}
	return 0, 0, false
}

func runLength(line string, index int, symbol rune) int {
	start := index
	for start > 0 {
		r, w := utf8.DecodeLastRuneInString(line[:start])
		if r != symbol {
			break
		}
		start -= w
	}
	count := 0
	for _, r := range line[start:] {
		if r != symbol {
			break
		}
		count++
	}
	return count
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func boolPtr(v bool) *bool {
	return &v
}
