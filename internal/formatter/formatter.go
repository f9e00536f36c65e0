// Package formatter orchestrates formatting requests for one project root:
// it classifies files, resolves options, invokes the native or external
// engine, and converts results into minimal protocol edits.
package formatter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/temirov/fmtd/internal/bridge"
	"github.com/temirov/fmtd/internal/config"
	"github.com/temirov/fmtd/internal/manifest"
	"github.com/temirov/fmtd/internal/native"
	"github.com/temirov/fmtd/internal/strategy"
	"github.com/temirov/fmtd/internal/textedit"
	"github.com/temirov/fmtd/internal/workspace"
)

// Formatter is an immutable per-configuration orchestrator. Configuration or
// watched-file changes produce a replacement instance; the replaced instance
// must be closed so its workspace is deleted.
//
// Format requests against one instance are expected to be serialized by the
// host; the Formatter provides no internal mutual exclusion.
type Formatter struct {
	rootDirectory string
	rawOptions    json.RawMessage
	resolver      *config.Resolver
	ignore        *ignoreMatcher
	engine        bridge.ExternalFormatter
	registry      *workspace.Registry
	parser        native.Parser
	nativeEngine  native.Engine
	logger        *zap.Logger
}

// RootDirectory reports the project root the formatter serves.
func (formatter *Formatter) RootDirectory() string {
	return formatter.rootDirectory
}

// ExternalPathAvailable reports whether the external engine can be used.
func (formatter *Formatter) ExternalPathAvailable() bool {
	return formatter.engine != nil && formatter.registry != nil && formatter.registry.Active()
}

// RunFormat formats one file and returns the minimal edit list. The second
// return value distinguishes a skipped request (false: ignored, unreadable,
// unformattable, or unclaimed) from a handled one (true). A handled request
// with an empty edit list means the file is already formatted.
func (formatter *Formatter) RunFormat(ctx context.Context, path string, content *string) ([]textedit.Edit, bool) {
	absolutePath, absErr := filepath.Abs(path)
	if absErr != nil {
		formatter.logger.Debug("failed to resolve path", zap.String("path", path), zap.Error(absErr))
		return nil, false
	}

	if formatter.isIgnored(absolutePath) {
		formatter.logger.Debug("file is ignored", zap.String("path", absolutePath))
		return nil, false
	}

	// Caller-supplied content wins, enabling unsaved-buffer formatting.
	var sourceText string
	if content != nil {
		sourceText = *content
	} else {
		fileContent, readErr := os.ReadFile(absolutePath)
		if readErr != nil {
			formatter.logger.Debug("failed to read file", zap.String("path", absolutePath), zap.Error(readErr))
			return nil, false
		}
		sourceText = string(fileContent)
	}
	if !utf8.ValidString(sourceText) {
		formatter.logger.Debug("file is not valid UTF-8, not formatting", zap.String("path", absolutePath))
		return nil, false
	}

	classified := strategy.Classify(absolutePath, formatter.enabledEngines())
	resolved := formatter.resolver.Resolve(classified)
	if resolved.Kind != classified.Kind {
		return nil, false
	}

	switch classified.Kind {
	case strategy.KindNative:
		return formatter.formatNative(ctx, classified, resolved, sourceText)
	case strategy.KindPassthroughConfig:
		return nil, false
	case strategy.KindExternal:
		return formatter.formatExternal(ctx, classified, resolved, absolutePath, sourceText)
	case strategy.KindExternalManifest:
		return formatter.formatExternal(ctx, classified, resolved, absolutePath, sourceText)
	default:
		return nil, false
	}
}

func (formatter *Formatter) formatNative(ctx context.Context, classified strategy.Strategy, resolved config.ResolvedOptions, sourceText string) ([]textedit.Edit, bool) {
	if formatter.parser == nil || formatter.nativeEngine == nil {
		formatter.logger.Debug("native formatting path not available",
			zap.String("syntaxKind", classified.SyntaxKind))
		return nil, false
	}

	program, parseErrors := formatter.parser.Parse(ctx, sourceText, classified.SyntaxKind)
	if len(parseErrors) > 0 {
		formatter.logger.Debug("file has syntax errors, not formatting",
			zap.String("syntaxKind", classified.SyntaxKind),
			zap.Int("errors", len(parseErrors)))
		return nil, false
	}

	var code string
	var formatErr error
	embeddedEngine, supportsEmbedded := formatter.nativeEngine.(native.EmbeddedEngine)
	if supportsEmbedded && formatter.engine != nil {
		embedded := native.EmbeddedFormatterFunc(bridge.EmbeddedFormatter(ctx, formatter.engine, resolved.FormatConfig))
		code, formatErr = embeddedEngine.FormatWithEmbedded(program, resolved.FormatConfig, embedded)
	} else {
		code, formatErr = formatter.nativeEngine.Format(program, resolved.FormatConfig)
	}
	if formatErr != nil {
		formatter.logger.Debug("native engine failed", zap.Error(formatErr))
		return nil, false
	}
	code = applyFinalNewlinePolicy(code, resolved.InsertFinalNewline)

	return formatter.editsBetween(sourceText, code)
}

func (formatter *Formatter) formatExternal(ctx context.Context, classified strategy.Strategy, resolved config.ResolvedOptions, absolutePath, sourceText string) ([]textedit.Edit, bool) {
	if formatter.engine == nil || formatter.registry == nil {
		formatter.logger.Debug("external engine not available", zap.String("path", absolutePath))
		return nil, false
	}
	handle, held := formatter.registry.Handle()
	if !held {
		formatter.logger.Debug("external engine workspace not available", zap.String("path", absolutePath))
		return nil, false
	}

	engineInput := sourceText
	if classified.Kind == strategy.KindExternalManifest && resolved.SortManifest {
		sorted, sortErr := manifest.SortKeys(sourceText)
		if sortErr != nil {
			formatter.logger.Debug("failed to sort package manifest",
				zap.String("path", absolutePath), zap.Error(sortErr))
			return nil, false
		}
		engineInput = sorted
	}

	fileName := filepath.Base(absolutePath)
	code, formatErr := formatter.engine.FormatFile(ctx, handle, resolved.FormatConfig, classified.EngineName, fileName, engineInput)
	if formatErr != nil {
		formatter.logger.Debug("external engine failed",
			zap.String("path", absolutePath), zap.Error(formatErr))
		return nil, false
	}
	code = applyFinalNewlinePolicy(code, resolved.InsertFinalNewline)

	// Edits are computed against the caller's text, not the sorted
	// intermediate, so a sort-only change still produces an edit.
	return formatter.editsBetween(sourceText, code)
}

// editsBetween returns the explicit no-op signal for identical texts and a
// single-element minimal edit list otherwise. The equality check here is what
// keeps the minimal-edit precondition unreachable.
func (formatter *Formatter) editsBetween(sourceText, formattedText string) ([]textedit.Edit, bool) {
	if formattedText == sourceText {
		return []textedit.Edit{}, true
	}
	return textedit.BuildEdits(sourceText, formattedText), true
}

func (formatter *Formatter) isIgnored(absolutePath string) bool {
	if formatter.ignore == nil {
		return false
	}
	return formatter.ignore.isIgnored(absolutePath)
}

// enabledEngines reports the engine names the external engine declared during
// init, or the full default set when no engine is live, keeping
// classification total either way.
func (formatter *Formatter) enabledEngines() map[string]bool {
	if formatter.registry != nil && formatter.registry.Active() {
		return strategy.EngineSet(formatter.registry.Languages())
	}
	return strategy.DefaultEngineSet()
}

// applyFinalNewlinePolicy trims trailing whitespace when final newlines are
// disabled. The formatting engines themselves emit the trailing newline when
// the policy is on.
func applyFinalNewlinePolicy(code string, insertFinalNewline bool) string {
	if insertFinalNewline {
		return code
	}
	return strings.TrimRight(code, " \t\r\n")
}

// WatcherPatterns reports the configuration file patterns the host should
// watch: the explicit override when set, otherwise the recognized default
// config file names.
func (formatter *Formatter) WatcherPatterns(rawOptions json.RawMessage) []string {
	options := config.DecodeServiceOptions(rawOptions, formatter.logger)
	if options.ConfigPath != "" {
		return []string{options.ConfigPath}
	}
	return append([]string(nil), strategy.ConfigFileNames...)
}

// HandleConfigurationChange compares old and new host options. Equal
// configurations need no restart (nil, nil). Differing configurations yield a
// replacement instance and its freshly computed watch patterns; the caller
// must Close the replaced instance.
func (formatter *Formatter) HandleConfigurationChange(ctx context.Context, builder Builder, oldRawOptions, newRawOptions json.RawMessage) (*Formatter, []string) {
	oldOptions := config.DecodeServiceOptions(oldRawOptions, formatter.logger)
	newOptions := config.DecodeServiceOptions(newRawOptions, formatter.logger)
	if oldOptions == newOptions {
		return nil, nil
	}

	replacement := builder.Build(ctx, formatter.rootDirectory, newRawOptions)
	return replacement, replacement.WatcherPatterns(newRawOptions)
}

// HandleWatchedFileChange unconditionally rebuilds the formatter from its
// current options; no attempt is made to special-case which file changed.
func (formatter *Formatter) HandleWatchedFileChange(ctx context.Context, builder Builder, changedPath string) *Formatter {
	formatter.logger.Debug("watched file changed, rebuilding formatter",
		zap.String("path", changedPath))
	return builder.Build(ctx, formatter.rootDirectory, formatter.rawOptions)
}

// Close tears down the instance, deleting its workspace. Teardown never
// fails; deletion problems are logged by the registry.
func (formatter *Formatter) Close(ctx context.Context) {
	if formatter.registry != nil {
		formatter.registry.Close(ctx)
	}
}
