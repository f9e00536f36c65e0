// Package config resolves formatter configuration: the host-supplied service
// options and the project's .fmtdrc document.
package config

import (
	"bytes"
	"encoding/json"

	"go.uber.org/zap"
)

// ServiceOptions carries the settings the host protocol server supplies when
// it constructs or reconfigures the formatter.
type ServiceOptions struct {
	// ConfigPath overrides the configuration file location, relative to the
	// project root. An empty string means unset.
	ConfigPath string `json:"configPath"`
}

// DecodeServiceOptions parses the raw options payload. Malformed payloads
// fall back to defaults with a warning; they never fail the host.
func DecodeServiceOptions(rawOptions json.RawMessage, logger *zap.Logger) ServiceOptions {
	if logger == nil {
		logger = zap.NewNop()
	}
	trimmed := bytes.TrimSpace(rawOptions)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ServiceOptions{}
	}
	var options ServiceOptions
	if decodeErr := json.Unmarshal(trimmed, &options); decodeErr != nil {
		logger.Warn("failed to decode formatter options, falling back to defaults",
			zap.Error(decodeErr))
		return ServiceOptions{}
	}
	return options
}
