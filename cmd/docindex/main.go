package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/sha1n/docindex/internal/app"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "docindex"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Index office documents and search them",
		Long: heredoc.Doc(`
			Extracts text from docx, doc, xlsx, xls, pdf and csv files, indexes it into
			Elasticsearch or an embedded bleve index, and searches the indexed corpus
			from the command line or over MCP.

			Every flag can also be set through a DOCINDEX_* environment variable or a
			.env file in the working directory.
		`),
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	app.RegisterGlobalFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(
		newIngestCmd(ctx),
		newSearchCmd(ctx),
		newAdvancedSearchCmd(ctx),
		newServeCmd(ctx, version),
	)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}

func newIngestCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [DIR]",
		Short: "Extract and index every supported document under a directory",
		Long: heredoc.Doc(`
			Walks DIR (or --input-dir) recursively, extracts the text of every supported
			document and writes it to the index in batches. The index is created when
			it does not exist. Re-ingesting a file overwrites its previous version.
		`),
		Example: heredoc.Doc(`
			$ docindex ingest ./contracts
			$ docindex ingest --engine bleve --report run.json ./data
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return app.RunIngest(ctx, app.DefaultRunParams(), cmd.Flags(), dir)
		},
	}
	app.RegisterIngestFlags(cmd.Flags())
	return cmd
}

func newSearchCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Full-text search ordered by relevance",
		Example: heredoc.Doc(`
			$ docindex search "quarterly budget"
			$ docindex search invoice --limit 5 -o json
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt(app.FlagLimit)
			return app.RunSearch(ctx, app.DefaultRunParams(), cmd.Flags(), args[0], limit)
		},
	}
	app.RegisterSearchFlags(cmd.Flags())
	return cmd
}

func newAdvancedSearchCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advanced-search",
		Short: "Search with file type and size filters and explicit ordering",
		Long: heredoc.Doc(`
			Combines an optional free-text query with structural filters. Without a
			query every document matching the filters is returned. Results are ordered
			by relevance_score, file_size or file_name.
		`),
		Example: heredoc.Doc(`
			$ docindex advanced-search --query report --type pdf --min-size 10000
			$ docindex advanced-search --type xlsx --sort-by file_size --sort-order asc
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := app.AdvancedSearchRequest(cmd.Flags())
			if err != nil {
				return err
			}
			return app.RunAdvancedSearch(ctx, app.DefaultRunParams(), cmd.Flags(), req)
		},
	}
	app.RegisterAdvancedSearchFlags(cmd.Flags())
	return cmd
}

func newServeCmd(ctx context.Context, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search tools over MCP (stdio or SSE)",
		Example: heredoc.Doc(`
			$ docindex serve
			$ docindex serve --transport sse --port 8080 --auth-type apikey --auth-api-keys k1
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunServe(ctx, app.DefaultRunParams(), cmd.Flags(), version)
		},
	}
	app.RegisterServeFlags(cmd.Flags())
	return cmd
}
