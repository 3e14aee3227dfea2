// Package sandbox compiles and executes untrusted C programs in isolated
// per-run workspaces with wall-clock and output ceilings.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"
)

// Status classifies one execution outcome.
type Status string

const (
	StatusOK              Status = "ok"
	StatusCompileError    Status = "compile_error"
	StatusRuntimeError    Status = "runtime_error"
	StatusTimeout         Status = "timeout"
	StatusOutputTruncated Status = "output_truncated"
)

// ExecResult captures one compile-and-run outcome. Stdout and Stderr are
// capped at the configured output limit.
type ExecResult struct {
	Status     Status `json:"status"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exitCode"`
	DurationMs int64  `json:"durationMs"`
}

// Runner executes one source program against one stdin payload.
type Runner interface {
	Execute(ctx context.Context, source, stdin string) (ExecResult, error)
}

// Config controls the sandbox runner. Zero values fall back to defaults.
type Config struct {
	// WorkRoot is the host directory under which per-run workspaces live.
	WorkRoot string `yaml:"work_root"`
	// CompileCmd is a shell-style template; {src} and {bin} are substituted
	// with workspace-local paths.
	CompileCmd string `yaml:"compile_cmd"`
	// CompileTimeout bounds the compiler invocation.
	CompileTimeout time.Duration `yaml:"compile_timeout"`
	// RunTimeout is the wall-clock ceiling for the compiled program.
	RunTimeout time.Duration `yaml:"run_timeout"`
	// OutputLimitBytes caps captured stdout and stderr, each.
	OutputLimitBytes int64 `yaml:"output_limit_bytes"`
	// EnableNamespaces turns on clone-based isolation for the program run.
	EnableNamespaces bool `yaml:"enable_namespaces"`
}

const (
	defaultCompileCmd     = "gcc {src} -o {bin} -O2 -lm"
	defaultCompileTimeout = 10 * time.Second
	defaultRunTimeout     = 5 * time.Second
	defaultOutputLimit    = 64 * 1024
)

// GCCRunner is the host-toolchain Runner implementation.
type GCCRunner struct {
	cfg         Config
	compileArgs []string
}

// New validates the config and parses the compile template.
func New(cfg Config) (*GCCRunner, error) {
	if cfg.WorkRoot == "" {
		cfg.WorkRoot = filepath.Join(os.TempDir(), "codearena-sandbox")
	}
	if cfg.CompileCmd == "" {
		cfg.CompileCmd = defaultCompileCmd
	}
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = defaultCompileTimeout
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	if cfg.OutputLimitBytes <= 0 {
		cfg.OutputLimitBytes = defaultOutputLimit
	}
	args, err := shlex.Split(cfg.CompileCmd)
	if err != nil {
		return nil, fmt.Errorf("parse compile command %q: %w", cfg.CompileCmd, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("compile command is empty")
	}
	if err := os.MkdirAll(cfg.WorkRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}
	return &GCCRunner{cfg: cfg, compileArgs: args}, nil
}

// Execute compiles source into a fresh workspace and runs it with stdin
// piped in. Compile failures, crashes, timeouts and output overruns are
// reported through ExecResult.Status; the returned error is reserved for
// host-side failures such as an unwritable workspace.
func (r *GCCRunner) Execute(ctx context.Context, source, stdin string) (ExecResult, error) {
	workDir := filepath.Join(r.cfg.WorkRoot, uuid.NewString())
	if err := os.MkdirAll(workDir, 0o700); err != nil {
		return ExecResult{}, fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	srcPath := filepath.Join(workDir, "main.c")
	binPath := filepath.Join(workDir, "prog")
	if err := os.WriteFile(srcPath, []byte(source), 0o600); err != nil {
		return ExecResult{}, fmt.Errorf("write source: %w", err)
	}

	if res, failed := r.compile(ctx, workDir, srcPath, binPath); failed {
		return res, nil
	}
	return r.run(ctx, workDir, binPath, stdin)
}

func (r *GCCRunner) compile(ctx context.Context, workDir, srcPath, binPath string) (ExecResult, bool) {
	args := make([]string, len(r.compileArgs))
	for i, a := range r.compileArgs {
		a = strings.ReplaceAll(a, "{src}", srcPath)
		a = strings.ReplaceAll(a, "{bin}", binPath)
		args[i] = a
	}

	compileCtx, cancel := context.WithTimeout(ctx, r.cfg.CompileTimeout)
	defer cancel()

	cmd := exec.CommandContext(compileCtx, args[0], args[1:]...)
	cmd.Dir = workDir
	var stderr limitWriter
	stderr.max = r.cfg.OutputLimitBytes
	cmd.Stderr = &stderr

	err := cmd.Run()
	if compileCtx.Err() == context.DeadlineExceeded {
		return ExecResult{
			Status: StatusCompileError,
			Stderr: "compilation timed out",
		}, true
	}
	if err != nil {
		return ExecResult{
			Status:   StatusCompileError,
			Stderr:   stderr.String(),
			ExitCode: exitCode(cmd, err),
		}, true
	}
	return ExecResult{}, false
}

func (r *GCCRunner) run(ctx context.Context, workDir, binPath, stdin string) (ExecResult, error) {
	cmd := exec.Command(binPath)
	cmd.Dir = workDir
	cmd.SysProcAttr = sysProcAttr(r.cfg.EnableNamespaces)
	cmd.Stdin = strings.NewReader(stdin)

	var killOnce sync.Once
	kill := func() {
		killOnce.Do(func() {
			if cmd.Process != nil {
				killGroup(cmd.Process.Pid)
			}
		})
	}

	stdout := &limitWriter{max: r.cfg.OutputLimitBytes, onTruncate: kill}
	stderr := &limitWriter{max: r.cfg.OutputLimitBytes, onTruncate: kill}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return ExecResult{}, fmt.Errorf("start program: %w", err)
	}

	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		timer := time.NewTimer(r.cfg.RunTimeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			kill()
		case <-timer.C:
			timedOut.Store(true)
			kill()
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	elapsed := time.Since(start).Milliseconds()

	res := ExecResult{
		Status:     StatusOK,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitCode:   exitCode(cmd, waitErr),
		DurationMs: elapsed,
	}
	switch {
	case timedOut.Load():
		res.Status = StatusTimeout
	case stdout.Truncated() || stderr.Truncated():
		res.Status = StatusOutputTruncated
	case ctx.Err() != nil:
		return ExecResult{}, ctx.Err()
	case waitErr != nil:
		res.Status = StatusRuntimeError
	}
	return res, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return 0
	}
	return -1
}

// limitWriter keeps the first max bytes and flags overflow. onTruncate
// fires once when the cap is first crossed.
type limitWriter struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	max        int64
	truncated  bool
	onTruncate func()
}

func (w *limitWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	room := w.max - int64(w.buf.Len())
	overflow := int64(len(p)) > room
	if room > 0 {
		keep := p
		if overflow {
			keep = p[:room]
		}
		w.buf.Write(keep)
	}
	fire := overflow && !w.truncated
	if overflow {
		w.truncated = true
	}
	w.mu.Unlock()

	if fire && w.onTruncate != nil {
		w.onTruncate()
	}
	return len(p), nil
}

func (w *limitWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func (w *limitWriter) Truncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncated
}
