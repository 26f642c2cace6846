package script

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Installer receives header files during deployment.
type Installer interface {
	Save(ctx context.Context, lines []string, target string) error
	Copy(ctx context.Context, source, target string) error
}

// Position says whether a header is included before or after the body.
type Position string

const (
	Head Position = "head"
	Tail Position = "tail"
)

// Header is a `%include <name>` file wrapped around job scripts.
type Header interface {
	IncludeName() string
	// Install writes the header through the installer and returns its
	// include name.
	Install(ctx context.Context, to Installer) (string, error)
}

func includeName(name string, what Position) string {
	return fmt.Sprintf("%s_%s.h", name, what)
}

// InlineHeader is a header whose content is given as text.
type InlineHeader struct {
	name        string
	what        Position
	includePath string
	code        []string
}

// NewInline creates an inline header saved under includePath. Each line of
// code is trimmed.
func NewInline(name, code, includePath string, what Position) *InlineHeader {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return &InlineHeader{name: name, what: what, includePath: includePath, code: lines}
}

func (h *InlineHeader) IncludeName() string { return includeName(h.name, h.what) }

// Lines returns the header content.
func (h *InlineHeader) Lines() []string { return h.code }

func (h *InlineHeader) Install(ctx context.Context, to Installer) (string, error) {
	target := filepath.Join(h.includePath, h.IncludeName())
	if err := to.Save(ctx, h.code, target); err != nil {
		return "", fmt.Errorf("failed to install header '%s': %w", h.IncludeName(), err)
	}
	return h.IncludeName(), nil
}

// FileHeader is copied from `<dir(home)>/files/<path>`.
type FileHeader struct {
	name        string
	what        Position
	includePath string
	source      string
}

// NewFileHeader creates a header copied from a file next to home.
func NewFileHeader(name, path, home, includePath string, what Position) *FileHeader {
	return &FileHeader{
		name:        name,
		what:        what,
		includePath: includePath,
		source:      filepath.Join(filepath.Dir(home), "files", path),
	}
}

func (h *FileHeader) IncludeName() string { return includeName(h.name, h.what) }

// Source returns the file the header is copied from.
func (h *FileHeader) Source() string { return h.source }

func (h *FileHeader) Install(ctx context.Context, to Installer) (string, error) {
	target := filepath.Join(h.includePath, h.IncludeName())
	if err := to.Copy(ctx, h.source, target); err != nil {
		return "", fmt.Errorf("failed to install header '%s': %w", h.IncludeName(), err)
	}
	return h.IncludeName(), nil
}

// LegacyHeader refers to an include file that already exists on the
// server. It is never installed.
type LegacyHeader struct {
	name string
}

// NewLegacy creates a header included verbatim as `%include <name>`.
func NewLegacy(name string) *LegacyHeader { return &LegacyHeader{name: name} }

func (h *LegacyHeader) IncludeName() string { return h.name }

func (h *LegacyHeader) Install(context.Context, Installer) (string, error) {
	return h.name, nil
}
