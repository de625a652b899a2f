package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/zxsted/dialogmanager"
	"github.com/zxsted/dialogmanager/internal/config"
	"github.com/zxsted/dialogmanager/internal/logging"
	"github.com/zxsted/dialogmanager/pkg/adapters/file"
	"github.com/zxsted/dialogmanager/pkg/adapters/loam"
	"github.com/zxsted/dialogmanager/pkg/adapters/memory"
	"github.com/zxsted/dialogmanager/pkg/adapters/process"
	"github.com/zxsted/dialogmanager/pkg/adapters/recast"
	redisadapter "github.com/zxsted/dialogmanager/pkg/adapters/redis"
	"github.com/zxsted/dialogmanager/pkg/catalog"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/observability"
	"github.com/zxsted/dialogmanager/pkg/persistence/middleware"
	"github.com/zxsted/dialogmanager/pkg/ports"
)

// Options are the command line overrides applied on top of the config file.
type Options struct {
	ConfigPath string
	Actions    string
	LogLevel   string
	// LogOutput defaults to stderr.
	LogOutput io.Writer
	// Validators are attached to catalog notions by alias.
	Validators map[string]domain.Validator
	// BotOptions are applied after the configured ones.
	BotOptions []dialogmanager.Option
}

// App wires a Bot and its dependencies from the configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Store   ports.StateStore
	Source  ports.ActionSource

	bot     atomic.Pointer[dialogmanager.Bot]
	botOpts []dialogmanager.Option
	closers []func() error
}

// NewApp loads the configuration, builds the store chain, the classifier
// and the action source, and creates the Bot.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Actions != "" {
		cfg.Actions = opts.Actions
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	app := &App{Config: cfg}

	app.Logger, err = newLogger(cfg, opts.LogOutput)
	if err != nil {
		return nil, err
	}

	store, locker, err := app.buildStore()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	compileOpts := app.processHooks()
	if len(opts.Validators) > 0 {
		compileOpts = append(compileOpts, catalog.WithValidators(opts.Validators))
	}
	app.Source, err = OpenSource(cfg.Actions, compileOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}

	hooks := observability.LoggingHooks(app.Logger)
	if cfg.Metrics.Enabled {
		app.Metrics = observability.NewMetrics(cfg.Metrics.Namespace)
		hooks = domain.ChainHooks(hooks, app.Metrics.Hooks())
	}

	fallback, err := app.fallbackReplies()
	if err != nil {
		app.Close()
		return nil, err
	}

	app.botOpts = []dialogmanager.Option{
		dialogmanager.WithStore(store),
		dialogmanager.WithLanguage(cfg.Language),
		dialogmanager.WithFallbackReplies(fallback),
		dialogmanager.WithLifecycleHooks(hooks),
		dialogmanager.WithLogger(app.Logger),
	}
	if locker != nil {
		app.botOpts = append(app.botOpts,
			dialogmanager.WithLocker(locker),
			dialogmanager.WithLockTTL(cfg.LockTTL()))
	}
	if classifier := app.buildClassifier(); classifier != nil {
		app.botOpts = append(app.botOpts, dialogmanager.WithClassifier(classifier))
	}
	app.botOpts = append(app.botOpts, opts.BotOptions...)

	if err := app.Reload(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Reload creates a new Bot from the current action source. Conversations
// are kept since the store is shared.
func (a *App) Reload(ctx context.Context) error {
	bot, err := dialogmanager.New(a.botOpts...)
	if err != nil {
		return err
	}
	if err := bot.Load(ctx, a.Source); err != nil {
		return err
	}
	a.bot.Store(bot)
	a.Logger.Info("actions loaded", "source", a.Config.Actions, "count", len(bot.Actions()))
	return nil
}

// Close releases the store connections.
func (a *App) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	return logging.NewWithWriter(w, level, logging.Format(cfg.LogFormat)), nil
}

// buildStore creates the configured store wrapped in the PII and
// encryption middlewares. The locker is only available with redis.
func (a *App) buildStore() (ports.StateStore, ports.DistributedLocker, error) {
	cfg := a.Config
	var (
		store  ports.StateStore
		locker ports.DistributedLocker
	)

	switch cfg.Store.Driver {
	case config.DriverFile:
		store = file.New(cfg.Store.Dir)
	case config.DriverRedis:
		r := cfg.Store.Redis
		var redisOpts []redisadapter.Option
		if r.Prefix != "" {
			redisOpts = append(redisOpts, redisadapter.WithPrefix(r.Prefix))
		}
		if ttl := cfg.RedisTTL(); ttl > 0 {
			redisOpts = append(redisOpts, redisadapter.WithTTL(ttl))
		}
		rs := redisadapter.New(r.Addr, r.Password, r.DB, redisOpts...)
		a.closers = append(a.closers, rs.Close)
		store = rs
		locker = redisadapter.NewLocker(rs.Client(), rs.Prefix())
	default:
		store = memory.NewStore()
	}

	var mws []middleware.Middleware
	if len(cfg.PII.Patterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PII.Patterns))
	}
	encoded, err := cfg.EncryptionKey()
	if err != nil {
		return nil, nil, err
	}
	if encoded != "" {
		key, err := middleware.DecodeKey(encoded)
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}

	a.Logger.Debug("store configured", "driver", cfg.Store.Driver, "middlewares", len(mws))
	return middleware.Chain(store, mws...), locker, nil
}

// processHooks binds the configured external commands to actions and
// aliases. Validators given in Options take precedence.
func (a *App) processHooks() []catalog.CompileOption {
	pc := a.Config.Processes
	if len(pc.Producers) == 0 && len(pc.Validators) == 0 {
		return nil
	}

	registry := make(map[string]process.Process)
	for action, p := range pc.Producers {
		registry["producer:"+action] = process.Process{Command: p.Command, Args: p.Args, Env: p.Env}
	}
	for alias, p := range pc.Validators {
		registry["validator:"+alias] = process.Process{Command: p.Command, Args: p.Args, Env: p.Env}
	}
	runner := process.NewRunner(
		process.WithProcesses(registry),
		process.WithBaseDir(pc.Dir),
		process.WithTimeout(a.Config.ProcessTimeout()),
		process.WithLogger(a.Logger),
	)

	var opts []catalog.CompileOption
	for action := range pc.Producers {
		opts = append(opts, catalog.WithProducer(action, runner.Producer("producer:"+action)))
	}
	validators := make(map[string]domain.Validator, len(pc.Validators))
	for alias := range pc.Validators {
		validators[alias] = runner.Validator("validator:" + alias)
	}
	if len(validators) > 0 {
		opts = append(opts, catalog.WithValidators(validators))
	}
	a.Logger.Debug("external processes configured", "producers", len(pc.Producers), "validators", len(pc.Validators))
	return opts
}

func (a *App) buildClassifier() ports.Classifier {
	c := a.Config.Classifier
	if c.URL == "" && c.Token == "" {
		return nil
	}
	opts := []recast.Option{
		recast.WithToken(c.Token),
		recast.WithTimeout(a.Config.ClassifierTimeout()),
		recast.WithLogger(a.Logger),
	}
	if c.URL != "" {
		opts = append(opts, recast.WithBaseURL(c.URL))
	}
	return recast.New(opts...)
}

// fallbackReplies prefers the configuration over the catalog file.
func (a *App) fallbackReplies() (any, error) {
	if a.Config.FallbackReplies != nil {
		return catalog.ReplyValue(a.Config.FallbackReplies), nil
	}
	if fs, ok := a.Source.(*catalog.FileSource); ok {
		return fs.FallbackReplies()
	}
	return nil, nil
}

// OpenSource returns a loam loader for a directory and a catalog file
// source otherwise.
func OpenSource(path string, opts ...catalog.CompileOption) (ports.ActionSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("actions %s: %w", path, err)
	}
	if info.IsDir() {
		loader, err := loam.Open(path, opts...)
		if err != nil {
			return nil, err
		}
		return loader, nil
	}
	return catalog.NewFileSource(path, opts...), nil
}
