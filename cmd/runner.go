package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/cache"
	"github.com/desertthunder/spindle/internal/gateway"
	"github.com/desertthunder/spindle/internal/session"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/spotify"
	"github.com/desertthunder/spindle/internal/tokens"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, playlistsCommand, exportCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// stack bundles the wired service components a command needs.
type stack struct {
	db       *sql.DB
	sessions session.Store
	tokens   *tokens.Store
	gateway  *gateway.Gateway
	client   *spotify.Client
	cache    *cache.Store
}

// buildStack opens the database and wires the session backend, token
// store, gateway, upstream client, and cache from the loaded config.
//
// Sessions live in Redis when an address is configured, in SQLite
// otherwise.
func (r *Runner) buildStack() (*stack, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var sessions session.Store
	if r.config.Redis.Addr != "" {
		r.logger.Info("using redis session backend", "addr", r.config.Redis.Addr)
		sessions = session.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     r.config.Redis.Addr,
			Password: r.config.Redis.Password,
			DB:       r.config.Redis.DB,
		}))
	} else {
		sessions = session.NewSQLiteStore(db)
	}

	conf := spotify.NewOAuthConfig(r.config.Credentials.Spotify)
	ts := tokens.NewStore(sessions, conf, r.logger)

	gw := gateway.New(gateway.Opts{
		BaseURL:    spotify.BaseURL,
		HTTPClient: r.httpClient,
		Tokens:     ts,
		App:        spotify.NewAppConfig(r.config.Credentials.Spotify),
		Limiter:    rate.NewLimiter(rate.Limit(10), 10),
		Logger:     r.logger,
	})

	return &stack{
		db:       db,
		sessions: sessions,
		tokens:   ts,
		gateway:  gw,
		client:   spotify.NewClient(gw),
		cache:    cache.NewStore(db, r.logger),
	}, nil
}

func (s *stack) close() {
	s.db.Close()
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
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
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
