package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/temirov/fmtd/internal/strategy"
)

// FileConfiguration mirrors the on-disk .fmtdrc document.
type FileConfiguration struct {
	InsertFinalNewline  *bool          `mapstructure:"insertFinalNewline"`
	SortPackageManifest *bool          `mapstructure:"sortPackageManifest"`
	IgnorePatterns      []string       `mapstructure:"ignorePatterns"`
	Native              map[string]any `mapstructure:"native"`
	External            map[string]any `mapstructure:"external"`
}

// ResolvedOptions is the per-request option bundle, variant-matched to the
// strategy it was resolved for.
type ResolvedOptions struct {
	Kind               strategy.Kind
	FormatConfig       json.RawMessage
	InsertFinalNewline bool
	SortManifest       bool
}

// Resolver produces resolved options for classified strategies and the ignore
// pattern lines configured for the project.
type Resolver struct {
	rootDirectory   string
	configuration   FileConfiguration
	nativePayload   json.RawMessage
	externalPayload json.RawMessage
}

// FindConfigPath locates the effective configuration file for a project root.
// A non-empty explicit path wins when the file exists; otherwise the
// recognized default names are searched in order. Empty means no file.
func FindConfigPath(rootDirectory, explicitPath string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	if explicitPath != "" {
		candidate := explicitPath
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(rootDirectory, candidate)
		}
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate
		}
		logger.Warn("configuration file not found, searching for defaults in the project root",
			zap.String("configPath", candidate),
			zap.Strings("defaults", strategy.ConfigFileNames))
	}
	for _, configFileName := range strategy.ConfigFileNames {
		candidate := filepath.Join(rootDirectory, configFileName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate
		}
	}
	return ""
}

// NewResolver loads the configuration file at configFilePath. An empty path
// yields the default configuration. Parse failures are returned so the
// caller can fall back to defaults and warn.
func NewResolver(rootDirectory, configFilePath string) (*Resolver, error) {
	resolver := &Resolver{rootDirectory: rootDirectory}

	if configFilePath != "" {
		document, readErr := os.ReadFile(configFilePath)
		if readErr != nil {
			return nil, fmt.Errorf("read configuration %s: %w", configFilePath, readErr)
		}
		if strings.HasSuffix(configFilePath, ".jsonc") {
			document = StripJSONComments(document)
		}

		reader := viper.New()
		reader.SetConfigType("json")
		if parseErr := reader.ReadConfig(bytes.NewReader(document)); parseErr != nil {
			return nil, fmt.Errorf("parse configuration %s: %w", configFilePath, parseErr)
		}
		if decodeErr := reader.Unmarshal(&resolver.configuration); decodeErr != nil {
			return nil, fmt.Errorf("decode configuration %s: %w", configFilePath, decodeErr)
		}
	}

	nativePayload, nativeErr := marshalPayload(resolver.configuration.Native)
	if nativeErr != nil {
		return nil, fmt.Errorf("encode native options: %w", nativeErr)
	}
	externalPayload, externalErr := marshalPayload(resolver.configuration.External)
	if externalErr != nil {
		return nil, fmt.Errorf("encode external options: %w", externalErr)
	}
	resolver.nativePayload = nativePayload
	resolver.externalPayload = externalPayload
	return resolver, nil
}

func marshalPayload(section map[string]any) (json.RawMessage, error) {
	if section == nil {
		return json.RawMessage(`{}`), nil
	}
	encoded, encodeErr := json.Marshal(section)
	if encodeErr != nil {
		return nil, encodeErr
	}
	return json.RawMessage(encoded), nil
}

// BuildAndValidate finalizes the configuration and returns the explicit
// ignore pattern lines it contributes.
func (resolver *Resolver) BuildAndValidate() ([]string, error) {
	patterns := make([]string, 0, len(resolver.configuration.IgnorePatterns))
	for _, pattern := range resolver.configuration.IgnorePatterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		if strings.ContainsRune(trimmedPattern, '\x00') {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
		patterns = append(patterns, trimmedPattern)
	}
	return patterns, nil
}

// RootDirectory reports the project root the resolver was built for.
func (resolver *Resolver) RootDirectory() string {
	return resolver.rootDirectory
}

// Resolve produces fresh options for the supplied strategy. The result's Kind
// always matches the strategy's, so disagreement between the two signals a
// caller bug rather than a configuration state.
func (resolver *Resolver) Resolve(classified strategy.Strategy) ResolvedOptions {
	switch classified.Kind {
	case strategy.KindNative:
		return ResolvedOptions{
			Kind:               classified.Kind,
			FormatConfig:       resolver.nativePayload,
			InsertFinalNewline: resolver.insertFinalNewline(),
		}
	case strategy.KindExternal:
		return ResolvedOptions{
			Kind:               classified.Kind,
			FormatConfig:       resolver.externalPayload,
			InsertFinalNewline: resolver.insertFinalNewline(),
		}
	case strategy.KindExternalManifest:
		return ResolvedOptions{
			Kind:               classified.Kind,
			FormatConfig:       resolver.externalPayload,
			InsertFinalNewline: resolver.insertFinalNewline(),
			SortManifest:       resolver.sortPackageManifest(),
		}
	default:
		return ResolvedOptions{Kind: classified.Kind}
	}
}

func (resolver *Resolver) insertFinalNewline() bool {
	if resolver.configuration.InsertFinalNewline == nil {
		return true
	}
	return *resolver.configuration.InsertFinalNewline
}

func (resolver *Resolver) sortPackageManifest() bool {
	if resolver.configuration.SortPackageManifest == nil {
		return false
	}
	return *resolver.configuration.SortPackageManifest
}
