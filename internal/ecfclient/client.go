// Package ecfclient talks to a running ecFlow server through the
// ecflow_client command line tool.
package ecfclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/defs"
)

// DefaultPort is the port ecFlow servers listen on unless told otherwise.
const DefaultPort = 3141

const defaultMaxElapsed = 30 * time.Second

// Error is returned when an ecflow_client invocation fails.
type Error struct {
	Args   []string
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ecflow_client %s failed: %v", strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Client drives one ecFlow server.
type Client struct {
	Host string
	Port int

	binary     string
	run        Runner
	maxElapsed time.Duration
	tempDir    string
}

// Option configures a Client.
type Option func(*Client)

// WithBinary selects the ecflow_client executable.
func WithBinary(path string) Option { return func(c *Client) { c.binary = path } }

// WithRunner replaces the command runner, mostly for tests.
func WithRunner(r Runner) Option { return func(c *Client) { c.run = r } }

// WithMaxElapsed bounds the time spent retrying a failing command. Zero
// disables retries.
func WithMaxElapsed(d time.Duration) Option { return func(c *Client) { c.maxElapsed = d } }

// WithTempDir sets where definition files are staged before upload.
func WithTempDir(dir string) Option { return func(c *Client) { c.tempDir = dir } }

// New creates a client for address, written "host:port" or "host@port". The
// port defaults to DefaultPort.
func New(address string, opts ...Option) (*Client, error) {
	host, port, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	c := &Client{
		Host:       host,
		Port:       port,
		binary:     "ecflow_client",
		run:        execRunner,
		maxElapsed: defaultMaxElapsed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ParseAddress splits a server address into host and port.
func ParseAddress(address string) (string, int, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, errors.New("empty ecflow server address")
	}
	host, portStr, found := strings.Cut(address, "@")
	if !found {
		host, portStr, found = strings.Cut(address, ":")
	}
	if !found {
		return address, DefaultPort, nil
	}
	if host == "" {
		return "", 0, fmt.Errorf("missing host in ecflow server address %q", address)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in ecflow server address %q", address)
	}
	return host, port, nil
}

func (c *Client) String() string { return fmt.Sprintf("%s@%d", c.Host, c.Port) }

func (c *Client) backoff(ctx context.Context) backoff.BackOff {
	if c.maxElapsed <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	return backoff.WithContext(bo, ctx)
}

// Command runs ecflow_client against the server with args, retrying
// failures the server may recover from.
func (c *Client) Command(ctx context.Context, args ...string) (string, error) {
	logger := ctxlog.FromContext(ctx)
	full := append([]string{"--host=" + c.Host, "--port=" + strconv.Itoa(c.Port)}, args...)

	var output []byte
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		out, err := c.run(ctx, c.binary, full...)
		output = out
		if err == nil {
			return nil
		}
		cerr := &Error{Args: args, Output: string(out), Err: err}
		if !isRetryable(err, out) {
			return backoff.Permanent(cerr)
		}
		logger.Debug("ecflow_client failed, retrying.", "server", c.String(), "attempt", attempt, "error", err)
		return cerr
	}, c.backoff(ctx))
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// isRetryable reports failures caused by a server that is not reachable
// yet. A missing binary or a rejected request will not improve.
func isRetryable(err error, output []byte) bool {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return false
	}
	msg := strings.ToLower(string(output))
	for _, transient := range []string{"connection refused", "timed out", "connection reset", "could not connect"} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Command(ctx, "--ping")
	return err
}

// Replace uploads d and replaces the node at path with its counterpart,
// creating parents as needed.
func (c *Client) Replace(ctx context.Context, path string, d *defs.Defs) error {
	f, err := os.CreateTemp(c.tempDir, "ecflowgen-*.def")
	if err != nil {
		return fmt.Errorf("staging definition for %s: %w", path, err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(d.String()); err != nil {
		f.Close()
		return fmt.Errorf("staging definition for %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("staging definition for %s: %w", path, err)
	}

	ctxlog.FromContext(ctx).Debug("Replacing node on server.", "server", c.String(), "path", path)
	_, err = c.Command(ctx, "--replace="+path, f.Name(), "parent")
	return err
}

// Begin starts scheduling the suite at path.
func (c *Client) Begin(ctx context.Context, path string) error {
	_, err := c.Command(ctx, "--begin="+strings.TrimPrefix(path, "/"))
	return err
}
