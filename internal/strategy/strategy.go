// Package strategy classifies source files into the formatting path that
// handles them.
package strategy

import (
	"path/filepath"
	"strings"
)

// Kind enumerates the formatting paths a file can be routed to.
type Kind int

const (
	// KindSkip marks files no formatting path claims.
	KindSkip Kind = iota
	// KindNative routes files to the in-process AST formatter.
	KindNative
	// KindPassthroughConfig marks the tool's own configuration files, which
	// are never reformatted.
	KindPassthroughConfig
	// KindExternal routes files to the external formatting engine.
	KindExternal
	// KindExternalManifest routes package manifests to the external engine,
	// optionally key-sorting them first.
	KindExternalManifest
)

// String names the kind for logs.
func (kind Kind) String() string {
	switch kind {
	case KindNative:
		return "native"
	case KindPassthroughConfig:
		return "passthrough-config"
	case KindExternal:
		return "external"
	case KindExternalManifest:
		return "external-manifest"
	default:
		return "skip"
	}
}

// Strategy is the classification of one file. It is immutable once computed
// for a request.
type Strategy struct {
	Kind       Kind
	SyntaxKind string // set for KindNative
	EngineName string // set for the external kinds
}

// ManifestFileName is the package manifest whose keys may be sorted before
// external formatting.
const ManifestFileName = "package.json"

// ConfigFileNames lists the recognized configuration file names searched in a
// project root, strict JSON first.
var ConfigFileNames = []string{".fmtdrc.json", ".fmtdrc.jsonc"}

var nativeSyntaxByExtension = map[string]string{
	".js":  "javascript",
	".jsx": "jsx",
	".mjs": "javascript",
	".cjs": "javascript",
	".ts":  "typescript",
	".tsx": "tsx",
	".mts": "typescript",
	".cts": "typescript",
}

var engineByExtension = map[string]string{
	".json":     "json",
	".jsonc":    "json",
	".json5":    "json5",
	".css":      "css",
	".less":     "less",
	".scss":     "scss",
	".html":     "html",
	".htm":      "html",
	".md":       "markdown",
	".markdown": "markdown",
	".yaml":     "yaml",
	".yml":      "yaml",
	".vue":      "vue",
}

// DefaultEngineSet returns every engine name the extension mapping can route
// to. Used when no external engine has reported its supported languages.
func DefaultEngineSet() map[string]bool {
	engineSet := make(map[string]bool, len(engineByExtension))
	for _, engineName := range engineByExtension {
		engineSet[engineName] = true
	}
	return engineSet
}

// EngineSet converts a language identifier list, as reported by the external
// engine's init call, into a lookup set.
func EngineSet(languages []string) map[string]bool {
	engineSet := make(map[string]bool, len(languages))
	for _, language := range languages {
		engineSet[strings.ToLower(strings.TrimSpace(language))] = true
	}
	return engineSet
}

// Classify maps a file path and the set of enabled external engines to
// exactly one strategy. The function is total and deterministic: a manifest
// name wins over the generic extension mapping, which wins over the native
// syntax extension set; anything left over is skipped.
func Classify(path string, enabledEngines map[string]bool) Strategy {
	fileName := filepath.Base(path)

	for _, configFileName := range ConfigFileNames {
		if fileName == configFileName {
			return Strategy{Kind: KindPassthroughConfig}
		}
	}

	extension := strings.ToLower(filepath.Ext(fileName))

	if fileName == ManifestFileName {
		if engineName, mapped := engineByExtension[extension]; mapped && enabledEngines[engineName] {
			return Strategy{Kind: KindExternalManifest, EngineName: engineName}
		}
	}

	if engineName, mapped := engineByExtension[extension]; mapped && enabledEngines[engineName] {
		return Strategy{Kind: KindExternal, EngineName: engineName}
	}

	if syntaxKind, mapped := nativeSyntaxByExtension[extension]; mapped {
		return Strategy{Kind: KindNative, SyntaxKind: syntaxKind}
	}

	return Strategy{Kind: KindSkip}
}
