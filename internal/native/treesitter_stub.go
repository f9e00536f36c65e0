//go:build !cgo

package native

// NewSyntaxParser returns nil when cgo is unavailable so the orchestrator can
// gracefully disable the native path on platforms that cannot build the
// tree-sitter bindings.
func NewSyntaxParser() Parser {
	return nil
}
