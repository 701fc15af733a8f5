package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytbridge/internal/normalize"
	"github.com/desertthunder/ytbridge/internal/repositories"
	"github.com/desertthunder/ytbridge/internal/server"
	"github.com/desertthunder/ytbridge/internal/services"
	"github.com/desertthunder/ytbridge/internal/session"
	"github.com/desertthunder/ytbridge/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	input      io.Reader
	output     io.Writer
	factory    services.ClientFactory
	resolver   services.StreamResolver
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Factory and Resolver replace the proxy client and yt-dlp resolver built from the config.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Input      io.Reader
	Output     io.Writer
	Factory    services.ClientFactory
	Resolver   services.StreamResolver
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		input:      opts.Input,
		output:     opts.Output,
		factory:    opts.Factory,
		resolver:   opts.Resolver,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, callCommand, exportCommand, authCommand, cacheCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by every component built afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Before loads the configuration named by --config and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if err := r.loadConfig(); err != nil {
		return ctx, err
	}

	level := r.config.Server.LogLevel
	if override := cmd.String("log-level"); override != "" {
		level = override
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// loadConfig reads the config file when it exists, then the .env file, and validates the result.
func (r *Runner) loadConfig() error {
	if r.configPath != "" {
		config, err := shared.LoadConfigOrDefault(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	if err := r.config.LoadEnv(); err != nil {
		return err
	}
	return r.config.Validate()
}

func (r *Runner) clientFactory() services.ClientFactory {
	if r.factory != nil {
		return r.factory
	}
	return services.NewClientFactory(services.ClientOptions{
		BaseURL:   r.config.Catalog.ProxyURL,
		Language:  r.config.Catalog.Language,
		Location:  r.config.Catalog.Location,
		RateLimit: r.config.Catalog.RateLimit,
		Retries:   r.config.Catalog.Retries,
	})
}

// newSession creates the session manager and loads stored credentials.
func (r *Runner) newSession(ctx context.Context) *session.Manager {
	sess := session.New(session.Options{
		Paths:   session.Paths{Cookie: r.config.CookiePath(), OAuth: r.config.OAuthPath()},
		Factory: r.clientFactory(),
		OAuth:   session.OAuthConfig(r.config.OAuth.ClientID, r.config.OAuth.ClientSecret),
		Logger:  r.logger,
	})
	sess.EnsureAuthenticated(ctx)
	return sess
}

// openStore opens the stream URL database, or returns nil when persistence is disabled.
func (r *Runner) openStore() (*repositories.StreamRepository, func(), error) {
	path := r.config.DatabasePath()
	if path == "" {
		return nil, func() {}, nil
	}

	db, err := shared.OpenStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stream store: %w", err)
	}
	return repositories.NewStreamRepository(db), func() { db.Close() }, nil
}

// newResolver builds the cached stream resolver. The returned func releases its resources.
func (r *Runner) newResolver() (services.StreamResolver, func(), error) {
	if r.resolver != nil {
		return r.resolver, func() {}, nil
	}

	store, closeStore, err := r.openStore()
	if err != nil {
		return nil, nil, err
	}

	var backing services.StreamStore
	if store != nil {
		backing = store
	}

	resolver := services.NewCachedResolver(
		services.NewYTDLPResolver(r.config.Stream.Format, r.logger),
		backing,
		services.CacheOptions{
			Size:   r.config.Stream.CacheSize,
			TTL:    r.config.StreamTTL(),
			Format: r.config.Stream.Format,
		},
		r.logger,
	)
	return resolver, func() {
		resolver.Close()
		closeStore()
	}, nil
}

// newRouter wires the command handlers into a router with request logging.
func (r *Runner) newRouter(sess *session.Manager, resolver services.StreamResolver) *server.Router {
	router := server.NewRouter(r.logger)
	router.Use(server.Logging(r.logger))
	server.NewHandlers(sess, resolver, normalize.New(r.logger), r.logger).Register(router)
	return router
}

// bridge builds the session, resolver and router shared by serve, call and tui.
func (r *Runner) bridge(ctx context.Context) (*server.Router, func(), error) {
	sess := r.newSession(ctx)
	resolver, cleanup, err := r.newResolver()
	if err != nil {
		return nil, nil, err
	}
	return r.newRouter(sess, resolver), cleanup, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain(format+"\n", args...)
}

// dispatch runs one command in-process and returns its payload, or the error message as an error.
func (r *Runner) dispatch(ctx context.Context, router *server.Router, command string, params map[string]any) (server.Payload, error) {
	req, err := server.NewRequest(command, shared.GenerateID(), params)
	if err != nil {
		return nil, err
	}
	resp := router.Dispatch(ctx, req)
	if resp.Status != server.StatusOK {
		return nil, fmt.Errorf("%s", resp.Message)
	}
	return resp.Payload, nil
}
