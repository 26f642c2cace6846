package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vk/ecflowgen/internal/builder"
	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/dag"
	"github.com/vk/ecflowgen/internal/defs"
	"github.com/vk/ecflowgen/internal/deploy"
	"github.com/vk/ecflowgen/internal/flow"
)

// Run executes the main application logic: a single compilation, or a
// compilation after every change of the suite files in watch mode.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.")

	if a.config.Watch {
		return a.watch(ctx)
	}
	return a.compile(ctx)
}

// compile loads and builds every suite, then processes the selected ones
// concurrently. Failures of individual suites are joined.
func (a *App) compile(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	model, err := a.loader.Load(ctx, a.config.SuitePaths...)
	if err != nil {
		return fmt.Errorf("failed to load suites: %w", err)
	}
	res, err := builder.Build(ctx, model)
	if err != nil {
		return fmt.Errorf("failed to build suites: %w", err)
	}
	suites, err := a.selectSuites(res)
	if err != nil {
		return err
	}
	if a.config.GitDir != "" && len(suites) != 1 {
		return fmt.Errorf("git deployment needs exactly one suite, got %d", len(suites))
	}
	logger.Info("Compiling suites.", "count", len(suites), "workers", a.config.Workers)

	texts := make([]string, len(suites))
	errs := make([]error, len(suites))
	g := new(errgroup.Group)
	g.SetLimit(a.config.Workers)
	for i, s := range suites {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			texts[i], errs[i] = a.safeProcessSuite(ctx, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if err := a.writeDefinitions(strings.Join(texts, "")); err != nil {
		return err
	}
	logger.Info("Suites compiled.", "count", len(suites))
	return nil
}

func (a *App) selectSuites(res *builder.Result) ([]*flow.Node, error) {
	if len(a.config.Suites) == 0 {
		return res.Suites, nil
	}
	var out []*flow.Node
	for _, name := range a.config.Suites {
		s, ok := res.Suite(name)
		if !ok {
			return nil, fmt.Errorf("suite %q not found", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// safeProcessSuite runs processSuite on a worker goroutine, where a broken
// invariant panic would otherwise take the process down.
func (a *App) safeProcessSuite(ctx context.Context, s *flow.Node) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if inv, ok := r.(*flow.InvariantError); ok {
				err = fmt.Errorf("suite %s: %w", s.Name(), inv)
				return
			}
			err = fmt.Errorf("suite %s: panic: %v", s.Name(), r)
		}
	}()
	return a.processSuite(ctx, s)
}

// processSuite generates the definition of s and sends it to every
// configured target.
func (a *App) processSuite(ctx context.Context, s *flow.Node) (string, error) {
	logger := ctxlog.FromContext(ctx).With("suite", s.Name())
	ctx = ctxlog.WithLogger(ctx, logger)

	d, err := a.definition(s)
	if err != nil {
		return "", fmt.Errorf("suite %s: %w", s.Name(), err)
	}
	text := d.String()

	switch {
	case a.config.DeployDir != "":
		sink := deploy.NewFileSystem(s.DeployPaths().Files, filepath.Join(a.config.DeployDir, s.Name()))
		if _, err := s.DeploySuite(ctx, sink); err != nil {
			return "", fmt.Errorf("suite %s: deployment failed: %w", s.Name(), err)
		}
		logger.Info("Suite deployed.", "target", a.config.DeployDir)
	case a.config.GitDir != "":
		repo, err := deploy.NewGitRepo(ctx, a.config.GitDir, s.DeployPaths(), text)
		if err != nil {
			return "", fmt.Errorf("suite %s: %w", s.Name(), err)
		}
		if _, err := s.DeploySuite(ctx, repo); err != nil {
			return "", fmt.Errorf("suite %s: deployment failed: %w", s.Name(), err)
		}
		logger.Info("Suite deployed to git checkout.", "target", a.config.GitDir)
	}

	if a.replacer != nil {
		if err := s.ReplaceOnServer(ctx, a.replacer); err != nil {
			return "", fmt.Errorf("suite %s: %w", s.Name(), err)
		}
		logger.Info("Suite replaced on server.", "server", a.config.Replace)
	}
	return text, nil
}

func (a *App) definition(s *flow.Node) (*defs.Defs, error) {
	if !a.config.Check {
		return s.Definition()
	}
	d, err := s.CheckDefinition()
	if err != nil {
		return nil, err
	}
	if err := dag.CheckTriggers(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (a *App) writeDefinitions(text string) error {
	if a.config.Out == "" {
		_, err := fmt.Fprint(a.outW, text)
		return err
	}
	if err := os.WriteFile(a.config.Out, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write definitions: %w", err)
	}
	return nil
}
