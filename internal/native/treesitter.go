//go:build cgo

package native

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

const errorNodeType = "ERROR"

// syntaxProgram carries the tree-sitter parse result.
type syntaxProgram struct {
	syntaxKind string
	source     string
	tree       *sitter.Tree
}

func (program *syntaxProgram) SyntaxKind() string { return program.syntaxKind }

func (program *syntaxProgram) Source() string { return program.source }

// Tree exposes the underlying syntax tree to engines that understand it.
func (program *syntaxProgram) Tree() *sitter.Tree { return program.tree }

type syntaxParser struct{}

// NewSyntaxParser constructs the tree-sitter backed Parser.
func NewSyntaxParser() Parser {
	return &syntaxParser{}
}

func languageForSyntaxKind(syntaxKind string) *sitter.Language {
	switch syntaxKind {
	case "javascript", "jsx":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	case "tsx":
		return tsx.GetLanguage()
	default:
		return nil
	}
}

func (parser *syntaxParser) Parse(ctx context.Context, source string, syntaxKind string) (Program, []error) {
	language := languageForSyntaxKind(syntaxKind)
	if language == nil {
		return nil, []error{fmt.Errorf("unsupported syntax kind %q", syntaxKind)}
	}

	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(language)
	tree, parseErr := sitterParser.ParseCtx(ctx, nil, []byte(source))
	if parseErr != nil {
		return nil, []error{fmt.Errorf("parse %s source: %w", syntaxKind, parseErr)}
	}

	if syntaxErrors := collectSyntaxErrors(tree.RootNode()); len(syntaxErrors) > 0 {
		return nil, syntaxErrors
	}
	return &syntaxProgram{syntaxKind: syntaxKind, source: source, tree: tree}, nil
}

// collectSyntaxErrors walks the tree and reports every error or missing node.
func collectSyntaxErrors(root *sitter.Node) []error {
	if root == nil || !root.HasError() {
		return nil
	}

	var syntaxErrors []error
	pending := []*sitter.Node{root}
	for len(pending) > 0 {
		node := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if node.Type() == errorNodeType || node.IsMissing() {
			syntaxErrors = append(syntaxErrors, fmt.Errorf("syntax error at byte %d", node.StartByte()))
			continue
		}
		if !node.HasError() {
			continue
		}
		for childIndex := 0; childIndex < int(node.ChildCount()); childIndex++ {
			pending = append(pending, node.Child(childIndex))
		}
	}
	if len(syntaxErrors) == 0 {
		syntaxErrors = append(syntaxErrors, fmt.Errorf("syntax error in %s", root.Type()))
	}
	return syntaxErrors
}
