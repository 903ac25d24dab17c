package lsp

import (
	"log"
	"sort"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/findings"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
)

// diagnosticSource is shown next to every diagnostic in the client.
const diagnosticSource = "spin2"

// PublishDiagnostics sends diagnostic information to the client for a specific document.
func PublishDiagnostics(context *glsp.Context, uri string, diagnostics []protocol.Diagnostic) {
	if context == nil || context.Notify == nil {
		log.Println("Warning: Cannot publish diagnostics - context or Notify is nil")
		return
	}

	// An empty slice clears the diagnostics of the document
	params := &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	}

	log.Printf("Publishing %d diagnostic(s) for %s", len(diagnostics), uri)

	context.Notify(protocol.ServerTextDocumentPublishDiagnostics, params)
}

// publishForPaths publishes the diagnostics of every open document in paths.
func publishForPaths(context *glsp.Context, srv *server.Server, paths []string) {
	seen := make(map[string]bool, len(paths))

	for _, path := range paths {
		// Only open documents get diagnostics; a path may repeat in paths
		doc, ok := srv.Documents().GetByPath(path)
		if !ok || seen[doc.URI] {
			continue
		}

		seen[doc.URI] = true
		PublishDiagnostics(context, doc.URI, Diagnostics(srv, doc))
	}
}

// Diagnostics converts the problems of an open document to LSP diagnostics,
// sorted by position and capped at the configured maximum.
func Diagnostics(srv *server.Server, doc *server.Document) []protocol.Diagnostic {
	// Scanner problems plus missing files and circular objects
	problems := srv.Processor().Problems(doc.Path)
	lines := newLineCache(srv)
	source := diagnosticSource

	diagnostics := make([]protocol.Diagnostic, 0, len(problems))

	for _, problem := range problems {
		severity := severityOf(problem.Severity)
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lines.toRange(doc.Path, problem.Range),
			Severity: &severity,
			Source:   &source,
			Message:  problem.Message,
		})
	}

	sortDiagnostics(diagnostics)

	// A negative maximum means the setting is unset
	if limit := srv.Config().MaxProblems; limit >= 0 && len(diagnostics) > limit {
		diagnostics = diagnostics[:limit]
	}

	return diagnostics
}

func severityOf(s findings.Severity) protocol.DiagnosticSeverity {
	switch s {
	case findings.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case findings.SeverityInformation:
		return protocol.DiagnosticSeverityInformation
	}

	return protocol.DiagnosticSeverityError
}

// sortDiagnostics sorts diagnostics by position (line first, then column).
func sortDiagnostics(diagnostics []protocol.Diagnostic) {
	sort.SliceStable(diagnostics, func(i, j int) bool {
		if diagnostics[i].Range.Start.Line != diagnostics[j].Range.Start.Line {
			return diagnostics[i].Range.Start.Line < diagnostics[j].Range.Start.Line
		}

		return diagnostics[i].Range.Start.Character < diagnostics[j].Range.Start.Character
	})
}
