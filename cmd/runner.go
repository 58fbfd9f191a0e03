package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunedl/internal/ledger"
	"github.com/desertthunder/tunedl/internal/repositories"
	"github.com/desertthunder/tunedl/internal/retrieval"
	"github.com/desertthunder/tunedl/internal/services"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tagging"
	"github.com/desertthunder/tunedl/internal/tasks"
	"github.com/desertthunder/tunedl/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators left nil in [RunnerOpts] are built from the config on first use.
type Runner struct {
	config     *shared.Config
	catalog    services.Catalog
	retriever  retrieval.Retriever
	tagger     tagging.Tagger
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	interval   time.Duration
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // loaded from --config when nil
	Catalog    services.Catalog
	Retriever  retrieval.Retriever
	Tagger     tagging.Tagger
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Interval   time.Duration // watcher poll interval
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
	if opts.Interval <= 0 {
		opts.Interval = ui.DefaultInterval
	}

	return &Runner{
		config:     opts.Config,
		catalog:    opts.Catalog,
		retriever:  opts.Retriever,
		tagger:     opts.Tagger,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		interval:   opts.Interval,
	}
}

// SetLogger replaces the logger used by commands and by collaborators built after the call.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, downloadCommand, infoCommand, searchCommand, watchCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads --config, falling back to the embedded defaults when the file does not exist.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	path := cmd.String("config")
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	level, _ := shared.ParseLogLevel(config.Log.Level)
	shared.SetLogLevel(r.logger, level)

	r.config = config
	return config, nil
}

func (r *Runner) getCatalog(ctx context.Context, config *shared.Config) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	spotify := config.Credentials.Spotify
	if !spotify.Configured() {
		return nil, fmt.Errorf("%w: set credentials.spotify in the config or SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET", shared.ErrMissingCredentials)
	}

	svc, err := services.NewSpotifyService(ctx, services.SpotifyOpts{
		ClientID:          spotify.ClientID,
		ClientSecret:      spotify.ClientSecret,
		Market:            config.Catalog.Market,
		RequestsPerSecond: config.Catalog.RequestsPerSecond,
		HTTPClient:        r.httpClient,
	})
	if err != nil {
		return nil, err
	}
	r.catalog = svc
	return svc, nil
}

// getRetriever resolves yt-dlp and ffmpeg, failing fast when either is missing.
func (r *Runner) getRetriever(config *shared.Config) (retrieval.Retriever, error) {
	if r.retriever != nil {
		return r.retriever, nil
	}

	bins, err := retrieval.CheckDependencies(config.Download.YtDlpPath, config.Download.FFmpegPath)
	if err != nil {
		return nil, err
	}

	r.retriever = retrieval.NewYtDlp(retrieval.YtDlpOpts{
		Executable:   bins.YtDlp,
		FFmpegPath:   bins.FFmpeg,
		AudioFormat:  config.Download.AudioFormat,
		AudioQuality: config.Download.AudioQuality,
		Retries:      config.Download.Retries,
		Logger:       r.logger,
	})
	return r.retriever, nil
}

func (r *Runner) getTagger(config *shared.Config) tagging.Tagger {
	if r.tagger == nil {
		r.tagger = tagging.NewID3Tagger(r.httpClient, config.Download.CoverMaxSize)
	}
	return r.tagger
}

// openDatabase opens the history database and brings its schema up to date.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// session is a ready to use orchestrator and the resources behind it.
type session struct {
	orch *tasks.Orchestrator
	root string
	db   *sql.DB
}

func (s *session) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// newSession wires catalog, retriever, tagger, ledger and optional history into an orchestrator.
// An empty root falls back to the configured download root.
func (r *Runner) newSession(ctx context.Context, config *shared.Config, root string) (*session, error) {
	catalog, err := r.getCatalog(ctx, config)
	if err != nil {
		return nil, err
	}
	retriever, err := r.getRetriever(config)
	if err != nil {
		return nil, err
	}

	if root == "" {
		if root, err = config.Download.RootDir(); err != nil {
			return nil, err
		}
	}

	s := &session{root: root}
	engineOpts := tasks.EngineOpts{
		Root:      root,
		Qualifier: config.Download.Qualifier,
		Retriever: retriever,
		Tagger:    r.getTagger(config),
		Ledger:    ledger.New(ledger.DefaultCapacity),
		Logger:    r.logger,
	}
	orchOpts := tasks.OrchestratorOpts{Catalog: catalog, Logger: r.logger}

	if config.Download.History {
		if s.db, err = r.openDatabase(config); err != nil {
			return nil, err
		}
		history := repositories.NewHistory(s.db)
		engineOpts.Recorder = history
		orchOpts.History = history
	}

	orchOpts.Engine = tasks.NewEngine(engineOpts)
	s.orch = tasks.NewOrchestrator(orchOpts)
	return s, nil
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
