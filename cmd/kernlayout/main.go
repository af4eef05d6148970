package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/q0jt/go-kernlayout/internal/cli"
	"github.com/q0jt/go-kernlayout/internal/ctxlog"
	"github.com/q0jt/go-kernlayout/kernlayout"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, outW, logW io.Writer, args []string) error {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}
	logger := cli.NewLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)

	if cfg.List {
		boards, err := loadBoards(ctx, cfg.ConfigPath)
		if err != nil {
			return err
		}
		for _, b := range boards {
			fmt.Fprintf(outW, "%s\t%s\n", b.Name, b.Arch)
		}
		return nil
	}

	board, err := findBoard(ctx, cfg.ConfigPath, cfg.Board)
	if err != nil {
		return err
	}
	if len(cfg.Objects) > 0 {
		board.Fragments = nil
		for _, obj := range cfg.Objects {
			frags, err := kernlayout.FragmentsFromELF(obj)
			if err != nil {
				return err
			}
			logger.Debug("Object read.", "object", obj, "sections", len(frags))
			board.Fragments = append(board.Fragments, frags...)
		}
	}

	l, err := kernlayout.Build(ctx, board)
	if err != nil {
		return err
	}
	if err := writeLayout(l, cfg.Format, cfg.OutPath, outW); err != nil {
		return err
	}
	if cfg.HexPath != "" {
		if err := writeFile(cfg.HexPath, l.WriteHex); err != nil {
			return err
		}
	}
	if cfg.BundlePath != "" {
		if err := l.WriteBundleFile(cfg.BundlePath); err != nil {
			return err
		}
		logger.Info("Bundle written.", "path", cfg.BundlePath)
	}
	return nil
}

func loadBoards(ctx context.Context, path string) ([]*kernlayout.Board, error) {
	if filepath.Ext(path) == ".pkl" {
		return kernlayout.LoadBoards(ctx, path)
	}
	return kernlayout.LoadHCLBoards(ctx, path)
}

func findBoard(ctx context.Context, path, name string) (*kernlayout.Board, error) {
	if filepath.Ext(path) == ".pkl" {
		return kernlayout.FindBoard(ctx, path, name)
	}
	boards, err := kernlayout.LoadHCLBoards(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, b := range boards {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", kernlayout.ErrUnknownBoard, name)
}

func writeLayout(l *kernlayout.Layout, format, path string, outW io.Writer) error {
	write := l.WriteText
	switch format {
	case "json":
		write = l.WriteJSON
	case "ld":
		write = l.WriteLinkerScript
	case "proto":
		write = func(w io.Writer) error {
			b, err := l.MarshalSymbols()
			if err != nil {
				return err
			}
			_, err = w.Write(b)
			return err
		}
	}
	if path == "" {
		return write(outW)
	}
	return writeFile(path, write)
}

func writeFile(name string, write func(io.Writer) error) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()
	return write(f)
}
