// Package deploy writes generated job scripts, manuals and include files
// to a deployment target.
//
// A Deployer sits between the generator and a Sink. It enforces the rules
// shared by every target:
//
//   - task scripts and manuals must live below the suite's ECF_FILES;
//   - writing identical content twice to one target is a no-op, while
//     writing different content is a *ConflictError carrying a diff;
//   - include files are collected while tasks are deployed and installed
//     once at the end.
//
// Sinks only move bytes: FileSystem writes a directory tree, GitRepo
// refreshes a git checkout and Memory records everything for inspection.
package deploy

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/script"
)

// ErrOutsideFiles is returned when a script is deployed outside ECF_FILES.
var ErrOutsideFiles = errors.New("Paths must be subpaths of the suite ECF_FILES path")

// Sink stores deployed content.
type Sink interface {
	Save(ctx context.Context, content []byte, target string) error
	Copy(ctx context.Context, source, target string) error
}

// Paths are the suite locations a deployment works with.
type Paths struct {
	// Home is ECF_HOME, "." when unset.
	Home string
	// Files is ECF_FILES, or Home when the suite has none.
	Files string
	// Include is ECF_INCLUDE, or Home when the suite has none.
	Include string
	// Out is ECF_OUT, or Home when the suite has none.
	Out string
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithoutHeaders skips installing include files.
func WithoutHeaders() Option {
	return func(d *Deployer) { d.headers = false }
}

// Deployer tracks everything deployed for one suite.
type Deployer struct {
	sink    Sink
	paths   Paths
	headers bool

	hashes   map[string][md5.Size]byte
	contents map[string]string

	includes    []script.Header
	includeSeen map[string]bool
}

// New creates a deployer writing to sink.
func New(sink Sink, paths Paths, opts ...Option) *Deployer {
	d := &Deployer{
		sink:        sink,
		paths:       paths,
		headers:     true,
		hashes:      map[string][md5.Size]byte{},
		contents:    map[string]string{},
		includeSeen: map[string]bool{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Paths returns the suite paths.
func (d *Deployer) Paths() Paths { return d.paths }

// checkUnique records content for target and rejects a second, different
// write.
func (d *Deployer) checkUnique(content []byte, target string) error {
	sum := md5.Sum(content)
	if prev, ok := d.hashes[target]; ok && prev != sum {
		return &ConflictError{Target: target, Diff: lineDiff(d.contents[target], string(content))}
	}
	d.hashes[target] = sum
	d.contents[target] = string(content)
	return nil
}

// Save implements script.Installer.
func (d *Deployer) Save(ctx context.Context, lines []string, target string) error {
	content := []byte(strings.Join(lines, "\n"))
	if err := d.checkUnique(content, target); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Saving deployed file.", "target", target, "bytes", len(content))
	return d.sink.Save(ctx, content, target)
}

// Copy implements script.Installer.
func (d *Deployer) Copy(ctx context.Context, source, target string) error {
	content, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read '%s': %w", source, err)
	}
	if err := d.checkUnique(content, target); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Copying deployed file.", "source", source, "target", target)
	return d.sink.Copy(ctx, source, target)
}

func (d *Deployer) checkPath(path string) error {
	if path != "" && !strings.HasPrefix(path, d.paths.Files) {
		return fmt.Errorf("%w: %s is not below %s", ErrOutsideFiles, path, d.paths.Files)
	}
	return nil
}

// DeployTask saves a task script and remembers the headers it includes.
// An empty path is accepted for sinks that do not need one.
func (d *Deployer) DeployTask(ctx context.Context, path string, lines []string, includes []script.Header) error {
	for _, h := range includes {
		if !d.includeSeen[h.IncludeName()] {
			d.includeSeen[h.IncludeName()] = true
			d.includes = append(d.includes, h)
		}
	}
	if err := d.checkPath(path); err != nil {
		return err
	}
	return d.Save(ctx, lines, path)
}

// DeployManual saves a family manual page.
func (d *Deployer) DeployManual(ctx context.Context, path string, lines []string) error {
	if err := d.checkPath(path); err != nil {
		return err
	}
	return d.Save(ctx, lines, path)
}

// DeployHeaders installs every header collected so far.
func (d *Deployer) DeployHeaders(ctx context.Context) error {
	var to script.Installer = d
	if !d.headers {
		to = discard{}
	}
	for _, h := range d.includes {
		if _, err := h.Install(ctx, to); err != nil {
			return err
		}
	}
	return nil
}

type discard struct{}

func (discard) Save(context.Context, []string, string) error { return nil }
func (discard) Copy(context.Context, string, string) error { return nil }
