package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/fmtd/internal/formatter"
	"github.com/temirov/fmtd/internal/textedit"
)

// Command names accepted under the commands prefix.
const (
	CommandFormat        = "format"
	CommandPatterns      = "patterns"
	CommandConfigure     = "configure"
	CommandWatchedChange = "watched-change"
)

// FormatCommandRequest asks for the minimal edits that format one file.
// Content, when present, formats the unsaved buffer instead of the on-disk
// file.
type FormatCommandRequest struct {
	Path    string  `json:"path"`
	Content *string `json:"content,omitempty"`
}

// FormatCommandResponse carries the edit list. Edits is null when the file
// was skipped and an empty array when it is already formatted.
type FormatCommandResponse struct {
	Edits []textedit.Edit `json:"edits"`
}

// PatternsCommandRequest asks which configuration files the host should watch.
type PatternsCommandRequest struct {
	Options json.RawMessage `json:"options"`
}

// PatternsCommandResponse lists the watch patterns.
type PatternsCommandResponse struct {
	Patterns []string `json:"patterns"`
}

// ConfigureCommandRequest reports a host configuration change.
type ConfigureCommandRequest struct {
	OldOptions json.RawMessage `json:"oldOptions"`
	NewOptions json.RawMessage `json:"newOptions"`
}

// ConfigureCommandResponse reports whether the formatter restarted and, if it
// did, the fresh watch patterns.
type ConfigureCommandResponse struct {
	Restarted bool     `json:"restarted"`
	Patterns  []string `json:"patterns,omitempty"`
}

// WatchedChangeCommandRequest reports that a watched configuration file changed.
type WatchedChangeCommandRequest struct {
	Path string `json:"path"`
}

// WatchedChangeCommandResponse acknowledges the rebuild.
type WatchedChangeCommandResponse struct {
	Restarted bool `json:"restarted"`
}

// Service owns one formatter instance per project root and serializes
// access to it, replacing the instance when configuration changes demand it.
type Service struct {
	builder    formatter.Builder
	rawOptions json.RawMessage
	logger     *zap.Logger

	mutex    sync.Mutex
	instance *formatter.Formatter
}

// NewService builds the initial formatter instance for the project root.
func NewService(ctx context.Context, builder formatter.Builder, rootDirectory string, rawOptions json.RawMessage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		builder:    builder,
		rawOptions: append(json.RawMessage(nil), rawOptions...),
		logger:     logger,
		instance:   builder.Build(ctx, rootDirectory, rawOptions),
	}
}

// Executors returns the command table for the HTTP server.
func (service *Service) Executors() map[string]CommandExecutor {
	return map[string]CommandExecutor{
		CommandFormat:        CommandExecutorFunc(service.executeFormat),
		CommandPatterns:      CommandExecutorFunc(service.executePatterns),
		CommandConfigure:     CommandExecutorFunc(service.executeConfigure),
		CommandWatchedChange: CommandExecutorFunc(service.executeWatchedChange),
	}
}

// Capabilities describes the command table for discovery.
func (service *Service) Capabilities() []Capability {
	return []Capability{
		{Name: CommandFormat, Description: "Format one file and return the minimal edit list."},
		{Name: CommandPatterns, Description: "Report the configuration file patterns to watch."},
		{Name: CommandConfigure, Description: "Apply a host configuration change."},
		{Name: CommandWatchedChange, Description: "Reload after a watched configuration file changed."},
	}
}

// Close tears down the current formatter instance.
func (service *Service) Close(ctx context.Context) {
	service.mutex.Lock()
	defer service.mutex.Unlock()
	if service.instance != nil {
		service.instance.Close(ctx)
		service.instance = nil
	}
}

func (service *Service) executeFormat(ctx context.Context, request CommandRequest) (any, error) {
	var formatRequest FormatCommandRequest
	if decodeErr := json.Unmarshal(request.Payload, &formatRequest); decodeErr != nil {
		return nil, NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf("decode format request: %w", decodeErr))
	}
	if formatRequest.Path == "" {
		return nil, NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf("format request requires a path"))
	}

	service.mutex.Lock()
	defer service.mutex.Unlock()
	if service.instance == nil {
		return nil, NewCommandExecutionError(http.StatusServiceUnavailable, fmt.Errorf("formatter is closed"))
	}

	edits, handled := service.instance.RunFormat(ctx, formatRequest.Path, formatRequest.Content)
	if !handled {
		return FormatCommandResponse{Edits: nil}, nil
	}
	if edits == nil {
		edits = []textedit.Edit{}
	}
	return FormatCommandResponse{Edits: edits}, nil
}

func (service *Service) executePatterns(_ context.Context, request CommandRequest) (any, error) {
	var patternsRequest PatternsCommandRequest
	if len(request.Payload) > 0 {
		if decodeErr := json.Unmarshal(request.Payload, &patternsRequest); decodeErr != nil {
			return nil, NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf("decode patterns request: %w", decodeErr))
		}
	}
	options := patternsRequest.Options
	if options == nil {
		options = service.rawOptions
	}

	service.mutex.Lock()
	defer service.mutex.Unlock()
	if service.instance == nil {
		return nil, NewCommandExecutionError(http.StatusServiceUnavailable, fmt.Errorf("formatter is closed"))
	}
	return PatternsCommandResponse{Patterns: service.instance.WatcherPatterns(options)}, nil
}

func (service *Service) executeConfigure(ctx context.Context, request CommandRequest) (any, error) {
	var configureRequest ConfigureCommandRequest
	if decodeErr := json.Unmarshal(request.Payload, &configureRequest); decodeErr != nil {
		return nil, NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf("decode configure request: %w", decodeErr))
	}

	service.mutex.Lock()
	defer service.mutex.Unlock()
	if service.instance == nil {
		return nil, NewCommandExecutionError(http.StatusServiceUnavailable, fmt.Errorf("formatter is closed"))
	}

	replacement, patterns := service.instance.HandleConfigurationChange(ctx, service.builder, configureRequest.OldOptions, configureRequest.NewOptions)
	if replacement == nil {
		return ConfigureCommandResponse{Restarted: false}, nil
	}
	service.instance.Close(ctx)
	service.instance = replacement
	service.rawOptions = append(json.RawMessage(nil), configureRequest.NewOptions...)
	return ConfigureCommandResponse{Restarted: true, Patterns: patterns}, nil
}

func (service *Service) executeWatchedChange(ctx context.Context, request CommandRequest) (any, error) {
	var changeRequest WatchedChangeCommandRequest
	if decodeErr := json.Unmarshal(request.Payload, &changeRequest); decodeErr != nil {
		return nil, NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf("decode watched-change request: %w", decodeErr))
	}

	service.mutex.Lock()
	defer service.mutex.Unlock()
	if service.instance == nil {
		return nil, NewCommandExecutionError(http.StatusServiceUnavailable, fmt.Errorf("formatter is closed"))
	}

	service.logger.Info("watched configuration file changed", zap.String("path", changeRequest.Path))
	replacement := service.instance.HandleWatchedFileChange(ctx, service.builder, changeRequest.Path)
	service.instance.Close(ctx)
	service.instance = replacement
	return WatchedChangeCommandResponse{Restarted: true}, nil
}
