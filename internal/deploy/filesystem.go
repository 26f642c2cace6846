package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/ecflowgen/internal/ctxlog"
)

// ErrNoTarget is returned when a file sink receives an empty target.
var ErrNoTarget = errors.New("None is not a valid path for deployment. Most likely files/ECF_FILES unspecified")

// FileSystem writes deployed files into a directory tree. Targets are
// written where they point unless a root is given, in which case paths
// below files are relocated below root.
type FileSystem struct {
	files string
	root  string
	remap func(string) (string, error)

	mu        sync.Mutex
	processed map[string]bool
}

// NewFileSystem creates a filesystem sink. files is the suite ECF_FILES
// and root the optional directory to deploy into instead.
func NewFileSystem(files, root string) *FileSystem {
	fs := &FileSystem{files: files, root: root, processed: map[string]bool{}}
	fs.remap = fs.patchPath
	return fs
}

func (f *FileSystem) patchPath(path string) (string, error) {
	if f.root == "" {
		return path, nil
	}
	rel, err := filepath.Rel(f.files, path)
	if err != nil {
		return "", fmt.Errorf("cannot relocate '%s' below '%s': %w", path, f.files, err)
	}
	return filepath.Join(f.root, rel), nil
}

// check reports whether target still needs writing. A target is written
// once per deployment; its directory is created on first use.
func (f *FileSystem) check(ctx context.Context, target string) (bool, error) {
	if target == "" {
		return false, ErrNoTarget
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(target); err == nil {
		if f.processed[target] {
			return false, nil
		}
		f.processed[target] = true
		return true, nil
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		ctxlog.FromContext(ctx).Warn("Couldn't create directory.", "dir", dir, "error", err)
	}
	return true, nil
}

// Save implements Sink.
func (f *FileSystem) Save(ctx context.Context, content []byte, target string) error {
	target, err := f.remap(target)
	if err != nil {
		return err
	}
	ok, err := f.check(ctx, target)
	if err != nil || !ok {
		return err
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", target, err)
	}
	return nil
}

// Copy implements Sink.
func (f *FileSystem) Copy(ctx context.Context, source, target string) error {
	target, err := f.remap(target)
	if err != nil {
		return err
	}
	ok, err := f.check(ctx, target)
	if err != nil || !ok {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Copying file.", "source", source, "target", target)
	content, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read '%s': %w", source, err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", target, err)
	}
	return nil
}

// GitRepo deploys into a git checkout. Creating it clears the checkout
// (except .git) and writes the definition to `ecflow_defs`; files below
// ECF_FILES land in `files/` and files below ECF_INCLUDE in `include/`.
type GitRepo struct {
	*FileSystem
	path    string
	mapping []pathMapping
}

type pathMapping struct {
	from string
	to   string
}

// NewGitRepo prepares the checkout at path for a deployment.
func NewGitRepo(ctx context.Context, path string, paths Paths, definition string) (*GitRepo, error) {
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return nil, fmt.Errorf("'%s' is not a git repository: %w", path, err)
	}

	g := &GitRepo{FileSystem: NewFileSystem(paths.Files, ""), path: path}
	g.remap = g.patchPath

	if err := g.mapDir(paths.Files, "files"); err != nil {
		return nil, err
	}
	if paths.Include != paths.Files {
		if err := g.mapDir(paths.Include, "include"); err != nil {
			return nil, err
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list '%s': %w", path, err)
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(path, e.Name())); err != nil {
			return nil, fmt.Errorf("failed to clean '%s': %w", path, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Cleaned git deployment target.", "path", path, "entries", len(entries))

	if err := os.WriteFile(filepath.Join(path, "ecflow_defs"), []byte(definition), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write definitions: %w", err)
	}
	return g, nil
}

func absReal(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func (g *GitRepo) mapDir(from, dir string) error {
	src, err := absReal(from)
	if err != nil {
		return err
	}
	to, err := absReal(filepath.Join(g.path, dir))
	if err != nil {
		return err
	}
	g.mapping = append(g.mapping, pathMapping{from: src, to: to})
	return nil
}

func (g *GitRepo) patchPath(path string) (string, error) {
	if strings.HasPrefix(path, g.path) {
		return path, nil
	}
	full, err := absReal(path)
	if err != nil {
		return "", err
	}
	for _, m := range g.mapping {
		if full == m.from || strings.HasPrefix(full, m.from+string(filepath.Separator)) {
			rel, err := filepath.Rel(m.from, full)
			if err != nil {
				return "", err
			}
			return filepath.Join(m.to, rel), nil
		}
	}
	return "", fmt.Errorf("unexpected deployment path '%s'", path)
}
