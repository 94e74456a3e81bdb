package loadgen

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// binaryPath resolves the executable for a backend: the configured path
// when set, otherwise the bare name for a $PATH lookup.
func binaryPath(configured, name string) string {
	if configured != "" {
		return configured
	}
	return name
}

// runTool executes a backend process, captures both output streams, and
// classifies failures. A deadline hit maps to ToolTimeout; an abnormal
// exit maps to ToolProcessFailed with the exit code attached. Partial
// stdout is returned either way so adapters can salvage what the tool
// managed to print.
func (s RunSpec) runTool(ctx context.Context, bin string, args []string, dir string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := s.logger().WithField("cmd", bin+" "+strings.Join(args, " "))
	log.Debug("starting load tool")

	err := cmd.Run()
	if s.Debug && stderr.Len() > 0 {
		log.WithField("stderr", stderrTail(stderr.Bytes(), 20)).Debug("load tool stderr")
	}

	if ctx.Err() == context.DeadlineExceeded {
		return stdout.Bytes(), stderr.Bytes(), s.toolError(ToolTimeout, ctx.Err())
	}
	if err != nil {
		te := s.toolError(ToolProcessFailed, errors.Wrap(err, stderrTail(stderr.Bytes(), 5)))
		if exitErr, ok := err.(*exec.ExitError); ok {
			te.ExitCode = exitErr.ExitCode()
			te.Err = errors.Errorf("%s", stderrTail(stderr.Bytes(), 5))
		}
		return stdout.Bytes(), stderr.Bytes(), te
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// scriptDir returns the directory generated scripts and result files are
// written to, plus a cleanup func. A configured work dir is reused and
// never removed; otherwise a per-run temp dir is created.
func (s RunSpec) scriptDir() (string, func(), error) {
	if s.Tools.WorkDir != "" {
		if err := os.MkdirAll(s.Tools.WorkDir, 0o755); err != nil {
			return "", nil, errors.Wrap(err, "creating tool work dir")
		}
		return s.Tools.WorkDir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "querybench-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating tool temp dir")
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// writeScript writes a generated tool script into dir and returns its
// full path.
func writeScript(dir, name string, content []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", name)
	}
	return path, nil
}

// runFileBase names generated per-run files after the benchmark and
// tool, restricted to filesystem-safe characters so runs sharing a
// work dir never collide.
func runFileBase(spec RunSpec) string {
	name := spec.benchmarkName()
	if name == "" {
		name = "benchmark"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String() + "_" + spec.Tool
}

// stderrTail returns the last n non-empty lines of a captured stderr
// stream, for error messages that should carry the tool's own words.
func stderrTail(stderr []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append(kept, line)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}
