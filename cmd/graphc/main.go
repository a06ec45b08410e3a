// Package main provides the graphc command, which imports ONNX models and
// compiles them for a set of backends.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	// Use a minimal logger until the flags are parsed.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes the command line args, writing results to out and logs to
// logW.
func run(out, logW io.Writer, args []string) error {
	root := NewCLI(out, logW)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}
