package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/fsutil"
)

// Dispatch is a Loader that hands every file to the loader registered for
// its extension, then merges the models in file order.
type Dispatch map[string]Loader

// Extensions returns the registered extensions, sorted.
func (d Dispatch) Extensions() []string {
	exts := make([]string, 0, len(d))
	for ext := range d {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load implements Loader.
func (d Dispatch) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFiles(paths, d.Extensions()...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no suite files with extensions %v found in %v", d.Extensions(), paths)
	}
	logger.Debug("Discovered suite files.", "count", len(files))

	model := NewModel()
	for _, file := range files {
		loader, ok := d[filepath.Ext(file)]
		if !ok {
			continue
		}
		m, err := loader.Load(ctx, file)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(m); err != nil {
			return nil, err
		}
	}
	logger.Debug("Suite files loaded.", "suites", len(model.Suites), "externs", len(model.Externs), "hosts", len(model.Hosts))
	return model, nil
}
