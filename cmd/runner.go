package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/categories"
	"github.com/desertthunder/clouder/internal/formatter"
	"github.com/desertthunder/clouder/internal/playback"
	"github.com/desertthunder/clouder/internal/repositories"
	"github.com/desertthunder/clouder/internal/services"
	"github.com/desertthunder/clouder/internal/session"
	"github.com/desertthunder/clouder/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, session and services are built on first use.
type Runner struct {
	config     *shared.Config
	configPath string
	loadConfig bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	store session.TokenStore
	db    *sql.DB
	sess  *session.Session
	api   *services.Client
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Store replaces the SQLite token store.
	Store session.TokenStore
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	loadConfig := opts.Config == nil
	if loadConfig {
		opts.Config = shared.DefaultConfig()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		loadConfig: loadConfig,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, playerCommand, categoriesCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "clouder",
		Usage:   "Control Spotify playback and file tracks into weekly category playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides the config file",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

// Before loads the configuration named by --config, falling back to defaults when the file is missing.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.loadConfig {
		r.configPath = cmd.String("config")
		config, err := readConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	shared.SetLogLevel(r.logger, level)

	return ctx, r.config.Validate()
}

// After releases the database.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

func readConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(path)
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) tokenStore() (session.TokenStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.store = repositories.NewTokenRepository(db)
	return r.store, nil
}

func (r *Runner) refresher() (session.Refresher, error) {
	if r.config.API.Refresh == shared.RefreshOAuth {
		oauthConfig, err := services.NewOAuthConfig(r.config.Credentials.Spotify.Map())
		if err != nil {
			return nil, err
		}
		return session.NewOAuthRefresher(oauthConfig), nil
	}
	return session.NewBackendRefresher(r.config.API.BackendURL, r.httpClient), nil
}

// Session loads the stored tokens once per process.
func (r *Runner) Session(ctx context.Context) (*session.Session, error) {
	if r.sess != nil {
		return r.sess, nil
	}

	store, err := r.tokenStore()
	if err != nil {
		return nil, err
	}
	refresher, err := r.refresher()
	if err != nil {
		return nil, err
	}

	sess, err := session.New(ctx, store, refresher, r.logger)
	if err != nil {
		return nil, err
	}
	r.sess = sess
	return sess, nil
}

// authenticated returns the session, failing when no tokens are stored.
func (r *Runner) authenticated(ctx context.Context) (*session.Session, error) {
	sess, err := r.Session(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		return nil, fmt.Errorf("%w: run `clouder auth login`", shared.ErrNotAuthenticated)
	}
	return sess, nil
}

func (r *Runner) client(ctx context.Context) (*services.Client, error) {
	if r.api != nil {
		return r.api, nil
	}
	sess, err := r.authenticated(ctx)
	if err != nil {
		return nil, err
	}
	r.api = services.NewClient(sess, r.httpClient, r.logger)
	return r.api, nil
}

func (r *Runner) spotify(ctx context.Context) (*services.SpotifyService, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewSpotifyService(client, r.config.API.SpotifyURL, nil, r.logger), nil
}

func (r *Runner) clouder(ctx context.Context) (*services.ClouderService, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewClouderService(client, r.config.API.BackendURL, r.logger), nil
}

// player bundles the playback components shared by the long-running commands.
type player struct {
	spotify    *services.SpotifyService
	source     playback.Source
	dispatcher *playback.Dispatcher
	resolver   *categories.Resolver
	mover      *categories.Mover
}

func (p *player) Close() {
	p.dispatcher.Close()
	p.source.Close()
}

// newPlayer wires the configured state source. oneShot always polls.
func (r *Runner) newPlayer(ctx context.Context, oneShot bool) (*player, error) {
	sess, err := r.authenticated(ctx)
	if err != nil {
		return nil, err
	}
	spotify, err := r.spotify(ctx)
	if err != nil {
		return nil, err
	}
	clouder, err := r.clouder(ctx)
	if err != nil {
		return nil, err
	}

	pc := r.config.Player
	var source playback.Source
	if pc.Mode == shared.ModePush && !oneShot {
		source = playback.NewPushSource(pc.DeviceURL, pc.InterpolateInterval, r.logger)
	} else {
		source = playback.NewPoller(spotify, pc.PollInterval, r.logger)
	}

	resolver := categories.NewResolver(clouder, r.logger)
	return &player{
		spotify: spotify,
		source:  source,
		dispatcher: playback.NewDispatcher(spotify, source, sess, playback.DispatcherOptions{
			SettleDelay: pc.SettleDelay,
			SeekStep:    pc.SeekStep,
			Logger:      r.logger,
		}),
		resolver: resolver,
		mover:    categories.NewMover(resolver, clouder, source, r.logger),
	}, nil
}

// polled returns a one-shot player whose source has read the current snapshot.
func (r *Runner) polled(ctx context.Context) (*player, error) {
	p, err := r.newPlayer(ctx, true)
	if err != nil {
		return nil, err
	}
	if err := p.source.(*playback.Poller).Poll(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
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

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain("\n"+format+"\n", args...)
}

// emit writes rendered output to path, or to the runner's output when path is empty.
func (r *Runner) emit(data []byte, path string) error {
	if path != "" {
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		r.logger.Info("output written", "path", path)
		return nil
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
