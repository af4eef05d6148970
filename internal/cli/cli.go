// Package cli parses the kernlayout command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
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

// Config holds everything a kernlayout run needs.
type Config struct {
	ConfigPath string   // .pkl module, .hcl file or directory of .hcl files
	Board      string   // board to build
	Objects    []string // ELF objects replacing the board's fragments
	Format     string
	OutPath    string
	HexPath    string
	BundlePath string
	List       bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("a board configuration path is required")
	}
	if cfg.Board == "" && !cfg.List {
		return nil, errors.New("a board name is required")
	}
	switch cfg.Format {
	case "text", "json", "proto", "ld":
	default:
		return nil, fmt.Errorf("invalid format %q: must be 'text', 'json', 'proto' or 'ld'", cfg.Format)
	}
	return &cfg, nil
}

type objectList []string

func (o *objectList) String() string {
	return strings.Join(*o, ",")
}

func (o *objectList) Set(v string) error {
	*o = append(*o, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("kernlayout", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
kernlayout - computes and checks the memory layout of a kernel image.

Usage:
  kernlayout [options] BOARD

Options:
`)
		flagSet.PrintDefaults()
	}

	var objects objectList
	configFlag := flagSet.String("config", "./pkl/config.pkl", "Pkl board module, HCL board file or directory of HCL files.")
	boardFlag := flagSet.String("board", "", "Board to lay out.")
	formatFlag := flagSet.String("format", "text", "Output format. Options: 'text', 'json', 'proto' or 'ld'.")
	outFlag := flagSet.String("o", "", "Write the layout to this file instead of stdout.")
	hexFlag := flagSet.String("hex", "", "Write the manifest and app placeholder as Intel HEX to this file.")
	bundleFlag := flagSet.String("bundle", "", "Write a zip bundle of all outputs to this file.")
	listFlag := flagSet.Bool("list", false, "List the boards in the configuration and exit.")
	flagSet.Var(&objects, "elf", "Relocatable object to take input sections from. Repeatable.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	board := *boardFlag
	if board == "" && flagSet.NArg() > 0 {
		board = flagSet.Arg(0)
	}
	if board == "" && !*listFlag {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := NewConfig(Config{
		ConfigPath: *configFlag,
		Board:      board,
		Objects:    objects,
		Format:     strings.ToLower(*formatFlag),
		OutPath:    *outFlag,
		HexPath:    *hexFlag,
		BundlePath: *bundleFlag,
		List:       *listFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}

// NewLogger creates a slog.Logger writing to outW. It does not set the
// global logger.
func NewLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
