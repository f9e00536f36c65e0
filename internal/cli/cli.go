// Package cli provides the command line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/temirov/fmtd/internal/config"
	"github.com/temirov/fmtd/internal/formatter"
	"github.com/temirov/fmtd/internal/native"
	"github.com/temirov/fmtd/internal/services/clipboard"
	"github.com/temirov/fmtd/internal/services/protocol"
	"github.com/temirov/fmtd/internal/textedit"
	"github.com/temirov/fmtd/internal/utils"
)

const (
	versionFlagName      = "version"
	versionTemplate      = "fmtd version: %s\n"
	rootUse              = "fmtd"
	rootShortDescription = "fmtd command line interface"
	rootLongDescription  = `fmtd formats source files and package manifests.
Use the fmt subcommand for one-shot formatting and serve to expose the
formatter to an editor host over HTTP.`
	versionFlagDescription = "display application version"

	fmtUse              = "fmt [paths...]"
	fmtAlias            = "f"
	fmtShortDescription = "format files (" + fmtAlias + ")"
	fmtLongDescription  = `Format one or more files and print the result.
Use --write to rewrite files in place, --diff to print a line diff instead of
the formatted content, and --copy to place the output on the clipboard.`
	fmtUsageExample = `  # Print the formatted content of a file
  fmtd fmt site.css

  # Rewrite files in place
  fmtd fmt --write package.json src/app.js

  # Show what would change
  fmtd fmt --diff package.json`

	serveUse              = "serve"
	serveShortDescription = "serve formatting commands over HTTP"
	serveLongDescription  = `Start the formatting command server for an editor host.
The server prints its bound address on startup and runs until interrupted.`
	serveUsageExample = `  # Serve the current project on an ephemeral port
  fmtd serve

  # Serve a specific project root on a fixed address
  fmtd serve --root ~/src/webapp --addr 127.0.0.1:7421`

	configFlagName         = "config"
	configFlagDescription  = "path to the configuration file, relative to the project root"
	writeFlagName          = "write"
	writeFlagDescription   = "rewrite files in place"
	diffFlagName           = "diff"
	diffFlagDescription    = "print a line diff instead of the formatted content"
	copyFlagName           = "copy"
	copyFlagDescription    = "copy the output to the system clipboard"
	addressFlagName        = "addr"
	addressFlagDescription = "listen address for the command server"
	rootFlagName           = "root"
	rootFlagDescription    = "project root directory"

	defaultProjectRoot          = "."
	warningSkipPathFormat       = "Warning: skipping %s: not formattable\n"
	formattedPathFormat         = "formatted %s\n"
	unchangedPathFormat         = "unchanged %s\n"
	serverListeningFormat       = "fmtd listening on %s"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	clipboardCopyErrorFormat    = "copy output to clipboard: %w"
)

// Execute runs the fmtd application.
func Execute() error {
	rootCommand := createRootCommand()
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand() *cobra.Command {
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(
		createFmtCommand(),
		createServeCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// fmtOptions stores configuration for the one-shot formatting command.
type fmtOptions struct {
	configPath      string
	writeInPlace    bool
	showDiff        bool
	copyToClipboard bool
}

// createFmtCommand returns the fmt subcommand.
func createFmtCommand() *cobra.Command {
	var options fmtOptions

	fmtCommand := &cobra.Command{
		Use:     fmtUse,
		Aliases: []string{fmtAlias},
		Short:   fmtShortDescription,
		Long:    fmtLongDescription,
		Example: fmtUsageExample,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runFmt(command, arguments, options)
		},
	}
	fmtCommand.Flags().StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	fmtCommand.Flags().BoolVar(&options.writeInPlace, writeFlagName, false, writeFlagDescription)
	fmtCommand.Flags().BoolVar(&options.showDiff, diffFlagName, false, diffFlagDescription)
	copyFlag := fmtCommand.Flags().VarPF(newCopyFlagValue(&options.copyToClipboard), copyFlagName, "", copyFlagDescription)
	copyFlag.NoOptDefVal = "true"
	return fmtCommand
}

func runFmt(command *cobra.Command, arguments []string, options fmtOptions) error {
	workingDirectory, workingDirectoryErr := os.Getwd()
	if workingDirectoryErr != nil {
		return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryErr)
	}

	logger, loggerErr := utils.NewApplicationLogger()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	engine, closeEngine := newPassthroughEngine()
	defer closeEngine()

	builder := formatter.Builder{
		Engine: engine,
		Parser: native.NewSyntaxParser(),
		Logger: logger,
	}
	instance := builder.Build(command.Context(), workingDirectory, serviceOptionsPayload(options.configPath))
	defer instance.Close(context.Background())

	var collectedOutput strings.Builder
	for _, path := range arguments {
		sourceBytes, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		sourceText := string(sourceBytes)

		edits, handled := instance.RunFormat(command.Context(), path, &sourceText)
		if !handled {
			fmt.Fprintf(command.ErrOrStderr(), warningSkipPathFormat, path)
			continue
		}
		if len(edits) == 0 {
			if options.writeInPlace {
				fmt.Fprintf(command.OutOrStdout(), unchangedPathFormat, path)
			}
			continue
		}

		formattedText := applyEdits(sourceText, edits)
		switch {
		case options.writeInPlace:
			if writeErr := os.WriteFile(path, []byte(formattedText), 0o644); writeErr != nil {
				return fmt.Errorf("write %s: %w", path, writeErr)
			}
			fmt.Fprintf(command.OutOrStdout(), formattedPathFormat, path)
		case options.showDiff:
			preview := textedit.Preview(sourceText, formattedText)
			fmt.Fprint(command.OutOrStdout(), preview)
			collectedOutput.WriteString(preview)
		default:
			fmt.Fprint(command.OutOrStdout(), formattedText)
			collectedOutput.WriteString(formattedText)
		}
	}

	if options.copyToClipboard && collectedOutput.Len() > 0 {
		copier := clipboard.NewService()
		if copyErr := copier.Copy(collectedOutput.String()); copyErr != nil {
			return fmt.Errorf(clipboardCopyErrorFormat, copyErr)
		}
	}
	return nil
}

// applyEdits replays a minimal edit list against the original text.
func applyEdits(sourceText string, edits []textedit.Edit) string {
	result := sourceText
	for editIndex := len(edits) - 1; editIndex >= 0; editIndex-- {
		edit := edits[editIndex]
		result = result[:edit.StartOffset] + edit.NewText + result[edit.EndOffset:]
	}
	return result
}

// serveOptions stores configuration for the command server.
type serveOptions struct {
	address       string
	rootDirectory string
	configPath    string
}

// createServeCommand returns the serve subcommand.
func createServeCommand() *cobra.Command {
	var options serveOptions

	serveCommand := &cobra.Command{
		Use:     serveUse,
		Short:   serveShortDescription,
		Long:    serveLongDescription,
		Example: serveUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return runServe(command, options)
		},
	}
	serveCommand.Flags().StringVar(&options.address, addressFlagName, "", addressFlagDescription)
	serveCommand.Flags().StringVar(&options.rootDirectory, rootFlagName, defaultProjectRoot, rootFlagDescription)
	serveCommand.Flags().StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	return serveCommand
}

func runServe(command *cobra.Command, options serveOptions) error {
	rootDirectory, rootErr := filepath.Abs(options.rootDirectory)
	if rootErr != nil {
		return fmt.Errorf("resolve project root %s: %w", options.rootDirectory, rootErr)
	}

	logger, loggerErr := utils.NewApplicationLogger()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	engine, closeEngine := newPassthroughEngine()
	defer closeEngine()

	builder := formatter.Builder{
		Engine: engine,
		Parser: native.NewSyntaxParser(),
		Logger: logger,
	}

	serveCtx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := protocol.NewService(serveCtx, builder, rootDirectory, serviceOptionsPayload(options.configPath), logger)
	defer service.Close(context.Background())

	server := protocol.NewServer(protocol.Config{
		Address:      options.address,
		Capabilities: service.Capabilities(),
		Executors:    service.Executors(),
	})
	return server.Run(serveCtx, func(boundAddress string) {
		logger.Info(fmt.Sprintf(serverListeningFormat, boundAddress))
	})
}

// serviceOptionsPayload encodes the host options the builder consumes.
func serviceOptionsPayload(configPath string) json.RawMessage {
	if configPath == "" {
		return nil
	}
	payload, marshalErr := json.Marshal(config.ServiceOptions{ConfigPath: configPath})
	if marshalErr != nil {
		return nil
	}
	return payload
}
