package artifact

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// Output is one file produced by a compile pass.
type Output struct {
	// Path is the filesystem location of the produced file.
	Path string
	// EntryPoint is the source location this output was produced for,
	// empty for secondary chunks.
	EntryPoint string
}

// Compiler turns page sources into browser-loadable artifacts. A single
// compile pass may emit more outputs than it was given entrypoints.
type Compiler interface {
	Compile(ctx context.Context, entrypoints []string) ([]Output, error)
}

// ExecCompiler invokes an external bundler command with the entrypoints
// appended to its arguments, then collects the files present in OutDir.
type ExecCompiler struct {
	// Command is the bundler binary, e.g. "esbuild".
	Command string
	// Args precede the entrypoints on the command line.
	Args []string
	// OutDir is where the bundler writes its outputs.
	OutDir string
}

func (c *ExecCompiler) Compile(ctx context.Context, entrypoints []string) ([]Output, error) {
	if c.Command == "" {
		return nil, fmt.Errorf("no build command configured")
	}

	args := append(slices.Clone(c.Args), entrypoints...)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", c.Command, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", c.Command, err)
	}

	entries, err := os.ReadDir(c.OutDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read build output dir: %w", err)
	}

	byBase := make(map[string]string, len(entrypoints))
	for _, ep := range entrypoints {
		byBase[strings.ToLower(filepath.Base(ep))] = ep
	}

	outputs := make([]Output, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(c.OutDir, entry.Name())
		outputs = append(outputs, Output{
			Path:       path,
			EntryPoint: byBase[strings.ToLower(entry.Name())],
		})
	}
	return outputs, nil
}
