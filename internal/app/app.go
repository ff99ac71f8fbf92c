package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/catalog/sqlite"
	"github.com/dendi/filmscatalog/internal/config"
	"github.com/dendi/filmscatalog/internal/executor"
	"github.com/dendi/filmscatalog/internal/logging"
	"github.com/dendi/filmscatalog/internal/remote/tmdb"
	"github.com/dendi/filmscatalog/internal/repository"
)

// ErrNotOpen is returned by accessors used before Open.
var ErrNotOpen = errors.New("app is not open")

// App is the main application container with dependency injection.
type App struct {
	config   config.Config
	logger   *slog.Logger
	store    catalog.Store
	provider catalog.Provider
	policy   repository.FetchPolicy

	exec *executor.Executors
	repo *repository.Repository

	// closers run in reverse order on Close.
	closers []func() error
}

// Option is a function that configures the App.
type Option func(*App)

// New creates a new App with the given options.
func New(opts ...Option) *App {
	app := &App{
		config: config.DefaultConfig(),
		logger: logging.Discard(),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg config.Config) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithStore injects the local store instead of opening the configured
// database. The app closes it on Close.
func WithStore(store catalog.Store) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithProvider injects the remote provider instead of the TMDB client.
func WithProvider(provider catalog.Provider) Option {
	return func(a *App) {
		a.provider = provider
	}
}

// WithFetchPolicy overrides the policy derived from the cache settings.
func WithFetchPolicy(policy repository.FetchPolicy) Option {
	return func(a *App) {
		a.policy = policy
	}
}

// Config returns the application configuration.
func (a *App) Config() config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Open wires the store, provider, executors and repository. Dependencies
// injected through options are used as is.
func (a *App) Open() error {
	if a.repo != nil {
		return nil
	}

	if a.store == nil {
		store, err := sqlite.New(a.config.Database())
		if err != nil {
			return fmt.Errorf("failed to open catalog store: %w", err)
		}
		a.store = store
	}
	a.closers = append(a.closers, a.store.Close)

	if a.provider == nil {
		client, err := tmdb.NewClient(
			a.config.API.BaseURL,
			a.config.API.Token,
			tmdb.WithTimeout(a.config.API.Timeout.Std()),
		)
		if err != nil {
			a.Close()
			return fmt.Errorf("failed to create provider: %w", err)
		}
		a.provider = client
	}

	if a.policy == nil {
		a.policy = PolicyFor(a.config.Cache)
	}

	a.exec = executor.New(a.config.Cache.NetworkWorkers)
	a.closers = append(a.closers, func() error {
		a.exec.Close()
		return nil
	})

	a.repo = repository.New(a.store, a.provider,
		repository.WithExecutors(a.exec),
		repository.WithFetchPolicy(a.policy),
		repository.WithLogger(a.logger),
	)
	a.closers = append(a.closers, func() error {
		a.repo.Close()
		return nil
	})

	a.logger.Debug("app opened", "db", a.config.Database(), "api", a.config.API.BaseURL)
	return nil
}

// OnClose registers fn to run when the app closes. Functions registered
// before Open run after every wired component has closed.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Repository returns the synchronization engine.
func (a *App) Repository() (*repository.Repository, error) {
	if a.repo == nil {
		return nil, ErrNotOpen
	}
	return a.repo, nil
}

// Store returns the local store.
func (a *App) Store() (catalog.Store, error) {
	if a.repo == nil {
		return nil, ErrNotOpen
	}
	return a.store, nil
}

// Close stops the repository, drains the executors and closes the store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.repo = nil
	return errors.Join(errs...)
}

// PolicyFor maps cache settings to a fetch policy.
func PolicyFor(cfg config.CacheConfig) repository.FetchPolicy {
	if ttl := cfg.TTL.Std(); ttl > 0 {
		return repository.TTL(ttl, nil)
	}
	return repository.WhenEmpty()
}
