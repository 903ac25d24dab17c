package lsp

import (
	"log"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-spin2-lsp/internal/document"
	"github.com/CWBudde/go-spin2-lsp/internal/parser"
	"github.com/CWBudde/go-spin2-lsp/internal/position"
	"github.com/CWBudde/go-spin2-lsp/internal/query"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
)

// SignatureHelp handles textDocument/signatureHelp requests.
// Shows the method header and the parameter being typed inside a call.
func SignatureHelp(context *glsp.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	// Extract document URI and position from params
	uri := params.TextDocument.URI
	pos := params.Position

	log.Printf("SignatureHelp request at %s line %d, character %d\n", uri, pos.Line, pos.Character)

	// Get server instance
	srv, ok := serverInstance.(*server.Server)
	if !ok || srv == nil {
		log.Println("Warning: server instance not available in SignatureHelp")
		return nil, nil
	}

	// Signature help works on the published findings of the open document
	doc, f, ok := openDocument(srv, uri)
	if !ok {
		return nil, nil
	}

	logSignatureHelpTrigger(params.Context)

	// Collect the code of the call, which may start on a continued line
	code, at, ok := callText(doc.Text, pos)
	if !ok {
		return nil, nil
	}

	sig, ok := srv.Engine().SignatureHelp(f, code, at)
	if !ok {
		log.Printf("SignatureHelp: no method call at line %d\n", pos.Line)
		return nil, nil
	}

	info := buildSignatureInformation(sig)

	activeSignature := protocol.UInteger(0)
	activeParameter := protocol.UInteger(sig.Active)

	log.Printf("SignatureHelp: %q, activeParam=%d\n", sig.Label, activeParameter)

	return &protocol.SignatureHelp{
		Signatures:      []protocol.SignatureInformation{info},
		ActiveSignature: &activeSignature,
		ActiveParameter: &activeParameter,
	}, nil
}

// callText returns the source line at pos joined with the lines it continues
// ("..." at their end) and the byte position of the cursor in that text.
func callText(text string, pos protocol.Position) (string, position.Position, bool) {
	lines := parser.SplitLines(text)

	line := int(pos.Line)
	if line >= len(lines) {
		return "", position.Position{}, false
	}

	current := lines[line]
	col := document.ByteColumn(current, int(pos.Character))

	var prefix strings.Builder

	start := line
	for start > 0 && parser.IsContinued(parser.NonCommentRemainder(0, lines[start-1])) {
		start--
	}

	for i := start; i < line; i++ {
		code := strings.TrimRight(parser.NonCommentRemainder(0, lines[i]), " \t")
		prefix.WriteString(strings.TrimSuffix(code, parser.ContinuationMarker))
		prefix.WriteString(" ")
	}

	return prefix.String() + current, position.New(line, prefix.Len()+col), true
}

// logSignatureHelpTrigger logs information about the signature help trigger.
func logSignatureHelpTrigger(context *protocol.SignatureHelpContext) {
	if context == nil {
		return
	}

	switch context.TriggerKind {
	case protocol.SignatureHelpTriggerKindInvoked:
		log.Println("Signature help manually invoked")
	case protocol.SignatureHelpTriggerKindTriggerCharacter:
		if context.TriggerCharacter != nil {
			log.Printf("Signature help triggered by character: '%s'\n", *context.TriggerCharacter)
		}
	case protocol.SignatureHelpTriggerKindContentChange:
		log.Println("Signature help retriggered on content change")
	}
}

// buildSignatureInformation converts a method signature to the protocol form.
// Parameter labels are UTF-16 offsets into the signature label.
func buildSignatureInformation(sig query.Signature) protocol.SignatureInformation {
	parameters := make([]protocol.ParameterInformation, 0, len(sig.Parameters))

	for _, param := range sig.Parameters {
		parameters = append(parameters, protocol.ParameterInformation{
			Label: [2]protocol.UInteger{
				protocol.UInteger(document.UTF16Column(sig.Label, param[0])),
				protocol.UInteger(document.UTF16Column(sig.Label, param[1])),
			},
		})
	}

	info := protocol.SignatureInformation{
		Label:      sig.Label,
		Parameters: parameters,
	}

	// Add documentation if available
	if len(sig.Doc) > 0 {
		info.Documentation = protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.Join(sig.Doc, "\n"),
		}
	}

	return info
}
