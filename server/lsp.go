package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/joomcode/errorx"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/fe/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "fe-lsp"

var (
	log = commonlog.GetLogger("fe.server")

	errWorkerStopped = errorx.IllegalState.New("analysis worker stopped")
)

// LspServer provides editor features for fe source files. Every document
// is re-analyzed on change; the analyses live on a Worker goroutine.
type LspServer struct {
	worker *Worker

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server that compiles with opts.
func NewLSP(opts compiler.Options) *LspServer {
	s := &LspServer{
		worker:  NewWorker(NewWorkspace(opts)),
		docs:    make(map[string]string),
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

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("fe LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	s.worker.Do(func(ws *Workspace) interface{} {
		ws.Forget(string(uri))
		return nil
	})

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// analysis runs fn on the worker with the current analysis of uri,
// re-analyzing if the stored one is missing or stale.
func (s *LspServer) analysis(uri protocol.DocumentUri, fn func(a *Analysis) interface{}) (interface{}, error) {
	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	return s.worker.Do(func(ws *Workspace) interface{} {
		a := ws.Get(string(uri))
		if a == nil || a.Text != text {
			a = ws.Update(string(uri), text)
		}
		return fn(a)
	})
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	result, err := s.analysis(params.TextDocument.URI, func(a *Analysis) interface{} {
		prefix := extractPrefix(a.Text, params.Position)
		if prefix == "" {
			return nil
		}
		return s.complete(a, prefix, offsetOf(a.Text, params.Position))
	})
	if err != nil || result == nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	result, err := s.analysis(params.TextDocument.URI, func(a *Analysis) interface{} {
		word := extractWord(a.Text, params.Position)
		if word == "" {
			return nil
		}
		return s.hover(a, word, offsetOf(a.Text, params.Position))
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	result, err := s.analysis(uri, func(a *Analysis) interface{} {
		word := extractWord(a.Text, params.Position)
		if word == "" {
			return nil
		}
		return s.definition(a, uri, word, offsetOf(a.Text, params.Position))
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	result, err := s.analysis(uri, func(a *Analysis) interface{} {
		word := extractWord(a.Text, params.Position)
		if word == "" {
			return nil
		}
		return s.references(a, uri, word, offsetOf(a.Text, params.Position), params.Context.IncludeDeclaration)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.([]protocol.Location), nil
}

// --- Analysis-backed logic (called on worker goroutine) ---

func (s *LspServer) complete(a *Analysis, prefix string, offset int) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		})
	}

	keywords := compiler.Keywords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		if strings.HasPrefix(kw, prefix) {
			add(kw, protocol.CompletionItemKindKeyword, "keyword")
		}
	}

	context := ""
	if fd := a.functionAt(offset); fd != nil {
		context = fd.Name
	}
	seen := make(map[string]bool)
	for _, d := range a.Declarations() {
		if seen[d.Name] || !strings.HasPrefix(d.Name, prefix) {
			continue
		}
		switch {
		case d.Kind == DeclFunction:
			add(d.Name, protocol.CompletionItemKindFunction, d.Func.Signature())
		case d.Function == context:
			add(d.Name, protocol.CompletionItemKindVariable, d.Type.String())
		default:
			continue
		}
		seen[d.Name] = true
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func (s *LspServer) hover(a *Analysis, word string, offset int) *protocol.Hover {
	d := a.Resolve(word, offset)
	if d == nil {
		return nil
	}

	var b strings.Builder
	switch d.Kind {
	case DeclFunction:
		fmt.Fprintf(&b, "```fe\n%s\n```", d.Func.Signature())
		if f := a.Function(d); f != nil && f.Resolved() {
			fmt.Fprintf(&b, "\n\nentry `%d`, frame %d bytes at local window %d", f.Entry, f.FrameSize, f.Window)
		}
	default:
		what := "variable"
		if d.Kind == DeclParam {
			what = "parameter"
		}
		fmt.Fprintf(&b, "**%s** `%s`\n\n", d.Name, d.Type)
		if d.Function == "" {
			fmt.Fprintf(&b, "global %s", what)
		} else {
			fmt.Fprintf(&b, "%s of `%s`", what, d.Function)
		}
		if sym := a.Symbol(d); sym != nil {
			fmt.Fprintf(&b, " at `%s` (offset %d)", sym.Addr, sym.Offset)
		}
	}

	r := toRange(a.Text, d.NameSpan)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
		Range: &r,
	}
}

func (s *LspServer) definition(a *Analysis, uri protocol.DocumentUri, word string, offset int) []protocol.Location {
	d := a.Resolve(word, offset)
	if d == nil {
		return nil
	}
	return []protocol.Location{{URI: uri, Range: toRange(a.Text, d.NameSpan)}}
}

func (s *LspServer) references(a *Analysis, uri protocol.DocumentUri, word string, offset int, includeDecl bool) []protocol.Location {
	d := a.Resolve(word, offset)
	if d == nil {
		return nil
	}
	var locations []protocol.Location
	for _, span := range a.References(d) {
		if !includeDecl && span == d.NameSpan {
			continue
		}
		locations = append(locations, protocol.Location{URI: uri, Range: toRange(a.Text, span)})
	}
	return locations
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	result, err := s.worker.Do(func(ws *Workspace) interface{} {
		return diagnosticsFor(ws.Update(string(uri), text))
	})
	if err != nil {
		log.Errorf("analyzing %s: %s", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: result.([]protocol.Diagnostic),
	})
}

// diagnosticsFor converts an analysis into LSP diagnostics: errors of the
// failing stage, then checker warnings.
func diagnosticsFor(a *Analysis) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	add := func(d compiler.Diagnostic, severity protocol.DiagnosticSeverity, code string) {
		source := lspName
		c := protocol.IntegerOrString{Value: code}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    diagnosticRange(a.Text, d.Pos),
			Severity: &severity,
			Code:     &c,
			Source:   &source,
			Message:  d.Message,
		})
	}
	for _, d := range a.Diagnostics {
		add(d, protocol.DiagnosticSeverityError, string(a.Stage))
	}
	for _, d := range a.Warnings {
		add(d, protocol.DiagnosticSeverityWarning, string(compiler.StageCheck))
	}
	return diagnostics
}

// --- Position conversion ---

// toPosition converts a 1-based source position to a 0-based LSP one.
func toPosition(p compiler.Position) protocol.Position {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func toRange(text string, span compiler.Span) protocol.Range {
	if span.End.Line == 0 {
		return diagnosticRange(text, span.Start)
	}
	return protocol.Range{Start: toPosition(span.Start), End: toPosition(span.End)}
}

// diagnosticRange covers the identifier or number starting at p, or a
// single character otherwise.
func diagnosticRange(text string, p compiler.Position) protocol.Range {
	start := toPosition(p)
	n := 0
	for i := p.Offset; i >= 0 && i < len(text) && isWordByte(text[i]); i++ {
		n++
	}
	if n == 0 {
		n = 1
	}
	end := start
	end.Character += protocol.UInteger(n)
	return protocol.Range{Start: start, End: end}
}

// offsetOf converts an LSP position to a byte offset in text. Positions
// past the end of a line clamp to the line end.
func offsetOf(text string, pos protocol.Position) int {
	offset := 0
	for line := 0; line < int(pos.Line); line++ {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			return len(text)
		}
		offset += i + 1
	}
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text) - offset
	}
	col := int(pos.Character)
	if col > end {
		col = end
	}
	return offset + col
}

// --- Text extraction helpers ---

func isWordByte(c byte) bool {
	ch := rune(c)
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}

	if start == col {
		return ""
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordByte(line[end]) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
