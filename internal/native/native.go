// Package native defines the in-process parse and format collaborators used
// by the native formatting path.
package native

import (
	"context"
	"encoding/json"
)

// Program is a parsed source file. Concrete parsers attach their own syntax
// tree representation.
type Program interface {
	// SyntaxKind reports the dialect the program was parsed as.
	SyntaxKind() string
	// Source returns the original source text.
	Source() string
}

// Parser turns source text into a Program. A non-empty error slice means the
// file cannot be formatted; the program is nil in that case.
type Parser interface {
	Parse(ctx context.Context, source string, syntaxKind string) (Program, []error)
}

// Engine renders a parsed Program according to the supplied options payload.
type Engine interface {
	Format(program Program, options json.RawMessage) (string, error)
}

// EmbeddedFormatterFunc formats an embedded code fragment identified by its
// tag name, for example a styled block inside a component file.
type EmbeddedFormatterFunc func(tagName, code string) (string, error)

// EmbeddedEngine is implemented by engines that delegate embedded fragments
// to the external formatting engine while rendering the surrounding program.
type EmbeddedEngine interface {
	Engine
	FormatWithEmbedded(program Program, options json.RawMessage, embedded EmbeddedFormatterFunc) (string, error)
}
