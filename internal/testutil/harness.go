package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/vk/ecflowgen/internal/app"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an application run.
type HarnessResult struct {
	// Root is the directory the suite files were written to.
	Root      string
	Output    string
	LogOutput string
	Err       error
}

// RunApp writes files below a temporary directory and runs the app once
// on it. configure may adjust the configuration before it is validated.
func RunApp(t *testing.T, files map[string]string, configure func(*app.Config), opts ...app.Option) *HarnessResult {
	t.Helper()
	return RunAppWithContext(context.Background(), t, files, configure, opts...)
}

// RunAppWithContext is RunApp with a caller-provided context.
func RunAppWithContext(ctx context.Context, t *testing.T, files map[string]string, configure func(*app.Config), opts ...app.Option) *HarnessResult {
	t.Helper()

	root := WriteFiles(t, files)
	cfg := app.Config{
		SuitePaths: []string{root},
		LogLevel:   "debug",
		LogFormat:  "text",
		Workers:    2,
	}
	if configure != nil {
		configure(&cfg)
	}

	out := &SafeBuffer{}
	logs := &SafeBuffer{}
	result := &HarnessResult{Root: root}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		result.Err = fmt.Errorf("invalid configuration: %w", err)
		return result
	}
	a, err := app.NewApp(out, logs, validated, opts...)
	if err != nil {
		result.Err = err
		return result
	}

	result.Err = a.Run(ctx)
	result.Output = out.String()
	result.LogOutput = logs.String()

	if os.Getenv("ECFLOWGEN_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}
	return result
}
