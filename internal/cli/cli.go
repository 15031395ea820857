// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into the application's runtime configuration.
package cli

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/vk/queryflow/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments on top of the environment-derived
// configuration. It returns the merged config, a boolean indicating the
// program should exit cleanly (help was printed), or an ExitError.
func Parse(args []string, output io.Writer) (*config.Config, bool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("queryflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
queryflow - a validated workflow engine for retrieval-augmented queries.

Usage:
  queryflow [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a workflow definition (.hcl or .json) for a one-shot run.
    Requires -query. Omit when running with -serve.

Options:
`)
		flagSet.PrintDefaults()
	}

	serveFlag := flagSet.String("serve", "", "Address for the HTTP API, e.g. 127.0.0.1:8080. Empty runs one-shot.")
	queryFlag := flagSet.String("query", "", "Initial query for a one-shot workflow run.")
	corpusFlag := flagSet.String("corpus", "", "Path to a JSON document corpus for the in-memory retriever.")
	llmModeFlag := flagSet.String("llm-mode", "", "Generation mode: 'mock' or 'provider'.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Logging level: 'debug', 'info', 'warn', or 'error'.")
	nodeTimeoutFlag := flagSet.Duration("node-timeout", 0, "Per-node execution timeout (e.g. 30s).")
	permitsFlag := flagSet.Int64("llm-permits", 0, "Size of the shared permit pool for rate-limited nodes.")
	permitWaitFlag := flagSet.Duration("permit-wait", 0, "How long a node may wait for a permit before failing.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if *serveFlag != "" {
		cfg.ServeAddr = *serveFlag
	}
	if *queryFlag != "" {
		cfg.Query = *queryFlag
	}
	if *corpusFlag != "" {
		cfg.CorpusPath = *corpusFlag
	}
	if *llmModeFlag != "" {
		cfg.LLMMode = config.LLMMode(*llmModeFlag)
	}
	if *logFormatFlag != "" {
		cfg.LogFormat = config.LogFormat(*logFormatFlag)
	}
	if *logLevelFlag != "" {
		level, err := config.ParseLogLevel(*logLevelFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		cfg.LogLevel = level
	}
	if *nodeTimeoutFlag > 0 {
		cfg.NodeTimeout = *nodeTimeoutFlag
	}
	if *permitsFlag > 0 {
		cfg.PermitPoolSize = *permitsFlag
	}
	if *permitWaitFlag > time.Duration(0) {
		cfg.PermitWait = *permitWaitFlag
	}
	if flagSet.NArg() > 0 {
		cfg.WorkflowPath = flagSet.Arg(0)
	}

	if cfg.ServeAddr == "" && cfg.WorkflowPath == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return &cfg, false, nil
}
