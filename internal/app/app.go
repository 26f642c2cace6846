package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/ecfclient"
	"github.com/vk/ecflowgen/internal/flow"
	"github.com/vk/ecflowgen/internal/hcl"
	"github.com/vk/ecflowgen/internal/yamltree"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	replacer flow.Replacer
	debounce time.Duration
}

// Option customizes an App.
type Option func(*App)

// WithLoader replaces the default suite loader.
func WithLoader(l config.Loader) Option {
	return func(a *App) { a.loader = l }
}

// WithReplacer replaces the ecFlow client used for -replace.
func WithReplacer(r flow.Replacer) Option {
	return func(a *App) { a.replacer = r }
}

// WithDebounce sets how long watch mode waits for files to settle.
func WithDebounce(d time.Duration) Option {
	return func(a *App) { a.debounce = d }
}

// DefaultLoader reads HCL, YAML and JSON suite files.
func DefaultLoader() config.Dispatch {
	hclLoader := hcl.NewLoader()
	treeLoader := yamltree.NewLoader()
	d := config.Dispatch{hcl.Extension: hclLoader}
	for _, ext := range yamltree.Extensions {
		d[ext] = treeLoader
	}
	return d
}

// NewApp is the constructor for the main application. Definitions are
// written to outW and logs to logW, each app with its own logger.
func NewApp(outW, logW io.Writer, appConfig *Config, opts ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		loader:   DefaultLoader(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(a)
	}

	if appConfig.Replace != "" && a.replacer == nil {
		client, err := ecfclient.New(appConfig.Replace)
		if err != nil {
			return nil, fmt.Errorf("failed to configure ecflow client: %w", err)
		}
		a.replacer = client
		logger.Debug("ecFlow client configured.", "host", client.Host, "port", client.Port)
	}
	return a, nil
}

// Logger returns the application's logger. This is primarily for testing.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
