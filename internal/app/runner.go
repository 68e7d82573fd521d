package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/sha1n/docindex/internal/config"
	"github.com/sha1n/docindex/internal/domain"
	"github.com/sha1n/docindex/internal/elastic"
	"github.com/sha1n/docindex/internal/extract"
	"github.com/sha1n/docindex/internal/ingest"
	"github.com/sha1n/docindex/internal/localindex"
	mcputil "github.com/sha1n/docindex/internal/mcp"
	"github.com/sha1n/docindex/internal/render"
	"github.com/sha1n/docindex/internal/search"
)

// ServerName is the MCP implementation name.
const ServerName = "docindex"

// Engine is a search engine that documents can be written to.
type Engine interface {
	ingest.Indexer
	search.Engine
	Close() error
}

// RunParams contains dependencies for the run functions
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	NewEngine         func(context.Context, *config.Settings, *slog.Logger) (Engine, error)
	StartSSEServer    func(context.Context, *mcp.Server, *config.ServeSettings, *slog.Logger) error
	CreateServer      func(mcputil.ServerConfig) (*mcp.Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO

	// Stdout receives command output. Defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives logs. Defaults to os.Stderr.
	Stderr io.Writer
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		NewEngine:      NewEngine,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

func (p RunParams) stdout() io.Writer {
	if p.Stdout == nil {
		return os.Stdout
	}
	return p.Stdout
}

func (p RunParams) stderr() io.Writer {
	if p.Stderr == nil {
		return os.Stderr
	}
	return p.Stderr
}

// session holds what every command needs once settings are resolved.
type session struct {
	settings *config.Settings
	logger   *slog.Logger
	format   render.Format
}

func prepare(params RunParams, flags *pflag.FlagSet) (*session, error) {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	format, err := render.ParseFormat(settings.Output)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Logs always go to stderr so stdout stays clean for results and stdio transport
	logger, err := config.NewLogger(params.stderr(), settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.LogWithLogger(settings, logger)

	return &session{
		settings: settings,
		logger:   logger,
		format:   format,
	}, nil
}

func (s *session) openEngine(ctx context.Context, params RunParams) (Engine, func(), error) {
	engine, err := params.NewEngine(ctx, s.settings, s.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s engine: %w", s.settings.Engine.Backend, err)
	}
	return engine, func() {
		if err := engine.Close(); err != nil {
			s.logger.Error("Failed to close engine", "engine", engine.Name(), "error", err)
		}
	}, nil
}

// NewEngine creates the engine selected by settings. The Elasticsearch
// cluster is pinged so connectivity failures surface before any work starts.
func NewEngine(ctx context.Context, settings *config.Settings, logger *slog.Logger) (Engine, error) {
	switch settings.Engine.Backend {
	case config.BackendBleve:
		idx, err := localindex.New(settings.Bleve.Dir, settings.Index, logger)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case config.BackendElasticsearch:
		es := settings.Elasticsearch
		client, err := elastic.New(elastic.Config{
			URL:                es.Address(),
			Index:              settings.Index,
			Username:           es.Username,
			Password:           es.Password,
			InsecureSkipVerify: es.InsecureSkipVerify,
			Timeout:            es.Timeout,
			Refresh:            es.Refresh,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", settings.Engine.Backend)
	}
}

// RunIngest extracts every supported document under dir and indexes it.
// An empty dir falls back to the configured input directory.
func RunIngest(ctx context.Context, params RunParams, flags *pflag.FlagSet, dir string) error {
	s, err := prepare(params, flags)
	if err != nil {
		return err
	}
	if dir != "" {
		s.settings.Ingest.InputDir = dir
	}

	engine, closeEngine, err := s.openEngine(ctx, params)
	if err != nil {
		return err
	}
	defer closeEngine()

	walker := extract.NewWalker(
		extract.New(s.logger),
		extract.NewFileFilter(s.settings.Ingest.MaxFileSize),
		s.logger,
	)
	ingestor := ingest.New(engine, walker, s.settings.Ingest.BatchSize, s.logger)

	report, err := ingestor.Run(ctx, s.settings.Ingest.InputDir)
	if report != nil && s.settings.Ingest.ReportPath != "" {
		if saveErr := report.Save(s.settings.Ingest.ReportPath); saveErr != nil {
			s.logger.Error("Failed to save report", "path", s.settings.Ingest.ReportPath, "error", saveErr)
		} else {
			s.logger.Info("Report saved", "path", s.settings.Ingest.ReportPath)
		}
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	return render.New(params.stdout(), s.format).Report(report)
}

// RunSearch runs a relevance-ordered text search and prints the results.
func RunSearch(ctx context.Context, params RunParams, flags *pflag.FlagSet, query string, limit int) error {
	s, err := prepare(params, flags)
	if err != nil {
		return err
	}

	engine, closeEngine, err := s.openEngine(ctx, params)
	if err != nil {
		return err
	}
	defer closeEngine()

	results, err := search.NewService(engine, s.logger).Basic(ctx, query, limit)
	if err != nil {
		return err
	}

	return render.New(params.stdout(), s.format).SearchResults(query, results)
}

// RunAdvancedSearch runs req and prints the results with their criteria.
func RunAdvancedSearch(ctx context.Context, params RunParams, flags *pflag.FlagSet, req domain.SearchRequest) error {
	s, err := prepare(params, flags)
	if err != nil {
		return err
	}

	engine, closeEngine, err := s.openEngine(ctx, params)
	if err != nil {
		return err
	}
	defer closeEngine()

	results, err := search.NewService(engine, s.logger).Search(ctx, req)
	if err != nil {
		return err
	}

	return render.New(params.stdout(), s.format).AdvancedResults(req, results)
}

// RunServe exposes the search tools over MCP on the configured transport.
func RunServe(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	s, err := prepare(params, flags)
	if err != nil {
		return err
	}

	s.logger.Info("Starting docindex MCP server", "version", version)
	config.LogServeSettings(&s.settings.Serve, s.logger)

	engine, closeEngine, err := s.openEngine(ctx, params)
	if err != nil {
		return err
	}
	defer closeEngine()

	mcpServer, cleanup, err := params.CreateServer(mcputil.ServerConfig{
		Name:     ServerName,
		Version:  version,
		Searcher: search.NewService(engine, s.logger),
		Format:   s.format,
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if s.settings.Serve.Transport == config.TransportStdio {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	s.logger.Info("Starting SSE server", "host", s.settings.Serve.Host, "port", s.settings.Serve.Port)
	return params.StartSSEServer(ctx, mcpServer, &s.settings.Serve, s.logger)
}

// CreateMCPServer creates the MCP server with registered tools
func CreateMCPServer(cfg mcputil.ServerConfig) (*mcp.Server, func(), error) {
	if cfg.Searcher == nil {
		return nil, nil, fmt.Errorf("mcp server requires a searcher")
	}
	return mcputil.CreateServer(cfg), nil, nil
}
