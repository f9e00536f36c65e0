package formatter

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/temirov/fmtd/internal/bridge"
	"github.com/temirov/fmtd/internal/config"
	"github.com/temirov/fmtd/internal/native"
	"github.com/temirov/fmtd/internal/workspace"
)

// defaultEngineThreadCount is passed to the external engine's init call.
const defaultEngineThreadCount = 1

// Builder assembles Formatter instances for a project root. The same builder
// is reused when configuration changes force a rebuild.
type Builder struct {
	// Engine is the external formatting engine, or nil when none is wired.
	Engine bridge.ExternalFormatter
	// Parser is the native syntax parser, or nil when the native path is
	// unavailable.
	Parser native.Parser
	// NativeEngine renders parsed programs, or nil when the native path is
	// unavailable.
	NativeEngine native.Engine
	// ThreadCount is forwarded to the external engine's init call.
	ThreadCount int
	// Logger receives warnings and debug traces. Nil means silent.
	Logger *zap.Logger
}

// Build constructs a Formatter from the host-supplied raw options. Build
// never fails: configuration problems degrade to defaults with a warning, and
// external engine failures permanently disable the external path for the
// instance.
func (builder Builder) Build(ctx context.Context, rootDirectory string, rawOptions json.RawMessage) *Formatter {
	logger := builder.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	options := config.DecodeServiceOptions(rawOptions, logger)
	resolver, ignorePatterns := builder.resolveConfiguration(rootDirectory, options, logger)

	matcher, matcherErr := newIgnoreMatcher(rootDirectory, ignorePatterns)
	if matcherErr != nil {
		logger.Warn("failed to build ignore globs, proceeding without ignore matching",
			zap.Error(matcherErr))
		matcher = nil
	}

	threadCount := builder.ThreadCount
	if threadCount <= 0 {
		threadCount = defaultEngineThreadCount
	}

	engine := builder.Engine
	var registry *workspace.Registry
	if engine != nil {
		registry = workspace.NewRegistry(ctx, engine, rootDirectory, threadCount, logger)
		if !registry.Active() {
			engine = nil
		}
	}

	return &Formatter{
		rootDirectory: rootDirectory,
		rawOptions:    append(json.RawMessage(nil), rawOptions...),
		resolver:      resolver,
		ignore:        matcher,
		engine:        engine,
		registry:      registry,
		parser:        builder.Parser,
		nativeEngine:  builder.NativeEngine,
		logger:        logger,
	}
}

// resolveConfiguration loads the project configuration, falling back to the
// default configuration on any failure so a broken config file never aborts
// the host.
func (builder Builder) resolveConfiguration(rootDirectory string, options config.ServiceOptions, logger *zap.Logger) (*config.Resolver, []string) {
	configPath := config.FindConfigPath(rootDirectory, options.ConfigPath, logger)

	resolver, resolverErr := config.NewResolver(rootDirectory, configPath)
	if resolverErr != nil {
		logger.Warn("failed to load configuration file, using default config",
			zap.String("configPath", configPath), zap.Error(resolverErr))
		resolver = mustDefaultResolver(rootDirectory)
	}

	ignorePatterns, validateErr := resolver.BuildAndValidate()
	if validateErr != nil {
		logger.Warn("failed to validate configuration, using default config",
			zap.Error(validateErr))
		resolver = mustDefaultResolver(rootDirectory)
		ignorePatterns, _ = resolver.BuildAndValidate()
	}

	return resolver, ignorePatterns
}

func mustDefaultResolver(rootDirectory string) *config.Resolver {
	resolver, resolverErr := config.NewResolver(rootDirectory, "")
	if resolverErr != nil {
		// The default configuration has no file to misparse.
		panic("formatter: default configuration failed to load: " + resolverErr.Error())
	}
	return resolver
}
