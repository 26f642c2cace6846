package ecfclient

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/ecflowgen/internal/defs"
)

type call struct {
	name string
	args []string
	file string
}

// fakeRunner replays results in order and records every invocation.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	results []error
	output  string
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := call{name: name, args: append([]string(nil), args...)}
	for _, a := range args {
		if strings.HasSuffix(a, ".def") {
			content, _ := os.ReadFile(a)
			c.file = string(content)
		}
	}
	f.calls = append(f.calls, c)

	if len(f.results) == 0 {
		return []byte("ok"), nil
	}
	err := f.results[0]
	f.results = f.results[1:]
	return []byte(f.output), err
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		address string
		host    string
		port    int
		wantErr string
	}{
		{name: "colon", address: "ecflow:4141", host: "ecflow", port: 4141},
		{name: "at sign", address: "ecflow@4141", host: "ecflow", port: 4141},
		{name: "default port", address: "localhost", host: "localhost", port: DefaultPort},
		{name: "empty", address: " ", wantErr: "empty ecflow server address"},
		{name: "missing host", address: ":3141", wantErr: "missing host"},
		{name: "bad port", address: "h:http", wantErr: "invalid port"},
		{name: "port out of range", address: "h@70000", wantErr: "invalid port"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			host, port, err := ParseAddress(tc.address)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.host, host)
			assert.Equal(t, tc.port, port)
		})
	}
}

func TestClient_Replace(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fake := &fakeRunner{}
	c, err := New("server@4141", WithRunner(fake.run), WithBinary("/opt/ecflow/bin/ecflow_client"), WithTempDir(t.TempDir()))
	require.NoError(t, err)

	d := defs.New()
	require.NoError(t, d.AddSuite(defs.NewSuite("s")))

	// --- Act ---
	err = c.Replace(context.Background(), "/s", d)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)
	got := fake.calls[0]
	assert.Equal(t, "/opt/ecflow/bin/ecflow_client", got.name)
	require.Len(t, got.args, 5)
	assert.Equal(t, []string{"--host=server", "--port=4141", "--replace=/s"}, got.args[:3])
	assert.Equal(t, "parent", got.args[4])
	assert.Equal(t, d.String(), got.file)

	_, statErr := os.Stat(got.args[3])
	assert.True(t, os.IsNotExist(statErr), "staged definition should be removed")
}

func TestClient_Retries(t *testing.T) {
	t.Parallel()

	t.Run("transient failures are retried", func(t *testing.T) {
		fake := &fakeRunner{
			results: []error{errors.New("exit status 1"), nil},
			output:  "Connection refused",
		}
		c, err := New("h", WithRunner(fake.run), WithMaxElapsed(5*time.Second))
		require.NoError(t, err)

		require.NoError(t, c.Ping(context.Background()))
		assert.Len(t, fake.calls, 2)
	})

	t.Run("rejections are not retried", func(t *testing.T) {
		fake := &fakeRunner{
			results: []error{errors.New("exit status 1")},
			output:  "Node /s does not exist",
		}
		c, err := New("h", WithRunner(fake.run), WithMaxElapsed(5*time.Second))
		require.NoError(t, err)

		err = c.Begin(context.Background(), "/s")

		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, []string{"--begin=s"}, cerr.Args)
		assert.Contains(t, err.Error(), "Node /s does not exist")
		assert.Len(t, fake.calls, 1)
	})

	t.Run("missing binary", func(t *testing.T) {
		fake := &fakeRunner{results: []error{exec.ErrNotFound}}
		c, err := New("h", WithRunner(fake.run))
		require.NoError(t, err)

		err = c.Ping(context.Background())
		assert.ErrorIs(t, err, exec.ErrNotFound)
		assert.Len(t, fake.calls, 1)
	})

	t.Run("retries disabled", func(t *testing.T) {
		fake := &fakeRunner{
			results: []error{errors.New("exit status 1"), nil},
			output:  "timed out",
		}
		c, err := New("h", WithRunner(fake.run), WithMaxElapsed(0))
		require.NoError(t, err)

		assert.Error(t, c.Ping(context.Background()))
		assert.Len(t, fake.calls, 1)
	})
}
