// SPDX-License-Identifier: MPL-2.0

package plmc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evmodels/plmc-harness/internal/testutil"
)

// recordingExecutor counts calls and never spawns anything.
type recordingExecutor struct {
	calls atomic.Int32
	last  Command
}

func (e *recordingExecutor) Execute(_ context.Context, cmd Command) (*Execution, error) {
	e.calls.Add(1)
	e.last = cmd
	return &Execution{Command: cmd, ExitCode: 1}, nil
}

func stubRunner(t *testing.T, mode testutil.PlmcMode) *Runner {
	t.Helper()
	return NewRunner(RunnerConfig{BinaryPath: testutil.PlmcStub(t, t.TempDir(), mode)})
}

func TestRunner_RoundTrip(t *testing.T) {
	t.Parallel()

	runner := stubRunner(t, testutil.PlmcOK)
	dir := t.TempDir()
	alignment := testutil.MustWriteFile(t, dir, "a.a2m", ">query\nMKV\n>hit\nMRV\n")
	outDir := filepath.Join(dir, "out")

	res, err := runner.Run(context.Background(), Request{
		AlignmentPath: alignment,
		FocusSequence: "query",
		OutputDir:     outDir,
		Hyperparameters: Hyperparameters{
			LambdaE: 16.2, LambdaH: 0.01, MaxIterations: 200, Theta: 0.2, IgnoreGaps: true,
		},
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	params := filepath.Join(outDir, "uniref100.model_params")
	couplings := filepath.Join(outDir, "uniref100.EC")
	want := []string{
		"-o", params, "-c", couplings, "-f", "query",
		"-le", "16.2", "-lh", "0.01", "-m", "200", "-t", "0.2", "-g", alignment,
	}
	if got := testutil.StubArgs(t, params); !slices.Equal(got, want) {
		t.Errorf("plmc argv =\n  %q\nwant\n  %q", got, want)
	}

	if res.ParamsPath != params || res.CouplingsPath != couplings {
		t.Errorf("Result paths = %q, %q", res.ParamsPath, res.CouplingsPath)
	}
	if got := testutil.MustReadFile(t, res.CouplingsPath); got != testutil.StubCouplings {
		t.Errorf("couplings = %q", got)
	}
	if res.RunID == "" || !res.ExitCode.IsSuccess() {
		t.Errorf("Result = %+v", res)
	}
	if res.Stdout == "" || res.Stderr == "" {
		t.Errorf("captured output missing: stdout %q stderr %q", res.Stdout, res.Stderr)
	}

	m, err := ReadManifest(res.ManifestPath)
	if err != nil {
		t.Fatalf("ReadManifest() error: %v", err)
	}
	if m.RunID != res.RunID || m.Status != StatusSucceeded || m.Request.FocusSequence != "query" {
		t.Errorf("manifest = %+v", m)
	}
	if m.Hyper != DefaultHyperparameters() {
		t.Errorf("manifest hyperparameters = %+v", m.Hyper)
	}
}

func TestRunner_NonexistentAlignmentSpawnsNothing(t *testing.T) {
	t.Parallel()

	exec := &recordingExecutor{}
	runner := NewRunner(RunnerConfig{BinaryPath: "/does/not/matter", Executor: exec})

	_, err := runner.Run(context.Background(), Request{
		AlignmentPath: filepath.Join(t.TempDir(), "missing.a2m"),
		FocusSequence: "query",
		OutputDir:     t.TempDir(),
	})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "alignment_path" {
		t.Fatalf("Run() = %v, want alignment_path ValidationError", err)
	}
	if n := exec.calls.Load(); n != 0 {
		t.Errorf("executor called %d times", n)
	}
}

func TestRunner_EmptyCouplingsIsExecutionError(t *testing.T) {
	t.Parallel()

	runner := stubRunner(t, testutil.PlmcEmptyCouplings)
	dir := t.TempDir()
	req := Request{
		AlignmentPath: testutil.MustWriteFile(t, dir, "a.a2m", ">q\nMK\n"),
		FocusSequence: "q",
		OutputDir:     dir,
	}

	_, err := runner.Run(context.Background(), req)
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("Run() = %v, want *ExecutionError", err)
	}
	if !ee.ExitCode.IsSuccess() {
		t.Errorf("ExitCode = %d, want 0", ee.ExitCode)
	}
	want := filepath.Join(dir, "uniref100.EC")
	if !slices.Equal(ee.Missing, []string{want}) {
		t.Errorf("Missing = %v, want [%s]", ee.Missing, want)
	}
}

func TestRunner_FailureKeepsArtifactsAndManifest(t *testing.T) {
	t.Parallel()

	runner := stubRunner(t, testutil.PlmcFail)
	dir := t.TempDir()
	req := Request{
		AlignmentPath: testutil.MustWriteFile(t, dir, "a.a2m", ">q\nMK\n"),
		FocusSequence: "q",
		OutputDir:     dir,
		OutPrefix:     "run1",
	}

	_, err := runner.Run(context.Background(), req)
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("Run() = %v, want *ExecutionError", err)
	}
	if ee.ExitCode != 3 || ee.Stderr != "plmc stub: focus sequence not found\n" {
		t.Errorf("ExecutionError = %+v", ee)
	}

	m, err := ReadManifest(filepath.Join(dir, "run1.run.toml"))
	if err != nil {
		t.Fatalf("ReadManifest() error: %v", err)
	}
	if m.Status != StatusFailed || m.ExitCode != 3 || m.Error == "" {
		t.Errorf("manifest = %+v", m)
	}
}

func TestRunner_TimeoutRemovesPartialOutput(t *testing.T) {
	t.Parallel()

	runner := stubRunner(t, testutil.PlmcSleep)
	dir := t.TempDir()
	req := Request{
		AlignmentPath: testutil.MustWriteFile(t, dir, "a.a2m", ">q\nMK\n"),
		FocusSequence: "q",
		OutputDir:     dir,
		Timeout:       time.Second,
	}

	start := time.Now()
	_, err := runner.Run(context.Background(), req)
	elapsed := time.Since(start)

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Run() = %v, want *TimeoutError", err)
	}
	if te.Timeout != time.Second {
		t.Errorf("Timeout = %s, want 1s", te.Timeout)
	}
	if elapsed >= 2*time.Second {
		t.Errorf("Run() returned after %s, want < 2s", elapsed)
	}
	if _, err := os.Stat(filepath.Join(dir, "uniref100.model_params")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial params file left behind: %v", err)
	}
	if _, err := os.Stat(req.WithDefaults("").ManifestPath()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("manifest written for a timed-out run: %v", err)
	}
}

func TestRunner_CancelIsExecutionError(t *testing.T) {
	t.Parallel()

	runner := stubRunner(t, testutil.PlmcSleep)
	dir := t.TempDir()
	req := Request{
		AlignmentPath: testutil.MustWriteFile(t, dir, "a.a2m", ">q\nMK\n"),
		FocusSequence: "q",
		OutputDir:     dir,
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err := runner.Run(ctx, req)
	var ee *ExecutionError
	if !errors.As(err, &ee) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want ExecutionError caused by context.Canceled", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "uniref100.model_params")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial params file left behind: %v", err)
	}
}

func TestRunner_ConcurrentRequestsDoNotInterfere(t *testing.T) {
	t.Parallel()

	runner := stubRunner(t, testutil.PlmcOK)
	base := t.TempDir()
	alignment := testutil.MustWriteFile(t, base, "a.a2m", ">q\nMK\n")

	focus := []string{"alpha", "beta"}
	results := make([]*Result, len(focus))
	errs := make([]error, len(focus))

	var wg sync.WaitGroup
	for i, f := range focus {
		wg.Go(func() {
			results[i], errs[i] = runner.Run(context.Background(), Request{
				AlignmentPath: alignment,
				FocusSequence: f,
				OutputDir:     filepath.Join(base, f),
			})
		})
	}
	wg.Wait()

	for i, f := range focus {
		if errs[i] != nil {
			t.Fatalf("run %s: %v", f, errs[i])
		}
		if filepath.Dir(results[i].CouplingsPath) != filepath.Join(base, f) {
			t.Errorf("run %s wrote to %s", f, results[i].CouplingsPath)
		}
		args := testutil.StubArgs(t, results[i].ParamsPath)
		if args[5] != f {
			t.Errorf("run %s recorded focus %q", f, args[5])
		}
	}
	if results[0].RunID == results[1].RunID {
		t.Error("run ids should differ")
	}
}

func TestRunner_MissingBinaryIsEnvironmentError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runner := NewRunner(RunnerConfig{BinaryPath: filepath.Join(dir, "plmc")})
	_, err := runner.Run(context.Background(), Request{
		AlignmentPath: testutil.MustWriteFile(t, dir, "a.a2m", ">q\nMK\n"),
		FocusSequence: "q",
		OutputDir:     dir,
	})
	if !errors.Is(err, ErrEnvironment) {
		t.Fatalf("Run() = %v, want ErrEnvironment", err)
	}
}

func TestRunner_LauncherResolvesBinaryByName(t *testing.T) {
	t.Parallel()

	exec := &recordingExecutor{}
	runner := NewRunner(RunnerConfig{
		Launcher: []string{"conda", "run", "-n", "plmc"},
		Executor: exec,
		Locator:  Locator{LookPath: func(string) (string, error) { return "", os.ErrNotExist }},
	})
	dir := t.TempDir()
	_, _ = runner.Run(context.Background(), Request{
		AlignmentPath: testutil.MustWriteFile(t, dir, "a.a2m", ">q\nMK\n"),
		FocusSequence: "q",
		OutputDir:     dir,
	})
	if exec.calls.Load() != 1 {
		t.Fatalf("executor called %d times", exec.calls.Load())
	}
	if exec.last.Path != "conda" || exec.last.Args[3] != "plmc" {
		t.Errorf("command = %q", exec.last.Argv())
	}
}

func TestRunner_DefaultOutputDir(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "default-out")
	runner := NewRunner(RunnerConfig{
		BinaryPath:       testutil.PlmcStub(t, t.TempDir(), testutil.PlmcOK),
		DefaultOutputDir: out,
	})
	res, err := runner.Run(context.Background(), Request{
		AlignmentPath: testutil.MustWriteFile(t, t.TempDir(), "a.a2m", ">q\nMK\n"),
		FocusSequence: "q",
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if filepath.Dir(res.ParamsPath) != out {
		t.Errorf("ParamsPath = %q, want it under %q", res.ParamsPath, out)
	}
}
