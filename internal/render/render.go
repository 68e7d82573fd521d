// Package render writes search results and ingestion reports for the terminal
// or for machine consumption.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/sha1n/docindex/internal/domain"
	"github.com/sha1n/docindex/internal/ingest"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Highlight display limits.
const (
	MaxHighlights      = 2
	MaxHighlightLength = 100
)

// ParseFormat parses an output format name. The empty string yields text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Renderer writes results to out in one format.
type Renderer struct {
	out    io.Writer
	format Format
	styles styles
}

type styles struct {
	title lipgloss.Style
	name  lipgloss.Style
	label lipgloss.Style
	dim   lipgloss.Style
}

// New creates a Renderer. Styling adapts to the color support of out.
func New(out io.Writer, format Format) *Renderer {
	r := lipgloss.NewRenderer(out)
	return &Renderer{
		out:    out,
		format: format,
		styles: styles{
			title: r.NewStyle().Bold(true),
			name: r.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#0AF")),
			label: r.NewStyle().Foreground(lipgloss.Color("#888888")),
			dim:   r.NewStyle().Foreground(lipgloss.Color("#666666")),
		},
	}
}

// SearchResults writes the results of a basic search for query.
func (r *Renderer) SearchResults(query string, results []domain.SearchResult) error {
	return r.results(fmt.Sprintf("'%s'", query), "", results)
}

// AdvancedResults writes the results of req, including its criteria and ordering.
func (r *Renderer) AdvancedResults(req domain.SearchRequest, results []domain.SearchResult) error {
	req = req.WithDefaults()
	sorting := fmt.Sprintf("%s (%s)", req.SortBy, req.SortOrder)
	return r.results("criteria: "+Criteria(req), sorting, results)
}

// Report writes an ingestion report.
func (r *Renderer) Report(report *ingest.Report) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(report)
	case FormatYAML:
		return r.encodeYAML(report)
	}

	var sb strings.Builder
	fmt.Fprintln(&sb, r.styles.title.Render("Ingestion complete"))
	r.field(&sb, "Run", report.RunID)
	r.field(&sb, "Input", report.InputDir)
	r.field(&sb, "Engine", report.Engine)
	r.field(&sb, "Scanned", fmt.Sprintf("%d files", report.FilesScanned))
	r.field(&sb, "Extracted", fmt.Sprintf("%d documents", report.DocumentsExtracted))
	r.field(&sb, "Indexed", fmt.Sprintf("%d documents", report.DocumentsIndexed))
	r.field(&sb, "Duration", report.Duration().String())

	if len(report.Failed) > 0 {
		fmt.Fprintln(&sb, r.styles.title.Render("Failed:"))
		for _, f := range report.Failed {
			fmt.Fprintf(&sb, "  - %s: %s\n", f.FilePath, r.styles.dim.Render(f.Reason))
		}
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(&sb, "%s %d files\n", r.styles.title.Render("Skipped:"), len(report.Skipped))
	}

	_, err := io.WriteString(r.out, sb.String())
	return err
}

func (r *Renderer) results(criteria, sorting string, results []domain.SearchResult) error {
	if results == nil {
		results = []domain.SearchResult{}
	}

	switch r.format {
	case FormatJSON:
		return r.encodeJSON(results)
	case FormatYAML:
		return r.encodeYAML(results)
	}

	var sb strings.Builder
	if len(results) == 0 {
		fmt.Fprintf(&sb, "No documents found matching %s\n", criteria)
		_, err := io.WriteString(r.out, sb.String())
		return err
	}

	fmt.Fprintf(&sb, "\n%s\n", r.styles.title.Render(fmt.Sprintf("Found %d documents matching %s:", len(results), criteria)))
	if sorting != "" {
		fmt.Fprintf(&sb, "%s %s\n", r.styles.label.Render("Sorted by:"), sorting)
	}
	sb.WriteString("\n")

	for i, res := range results {
		fmt.Fprintf(&sb, "%d. %s %s\n", i+1, r.styles.name.Render(res.FileName), r.styles.dim.Render("(score: "+FormatScore(res.Score)+")"))
		fmt.Fprintf(&sb, "   %s %s, %s %d bytes\n", r.styles.label.Render("Type:"), res.FileType, r.styles.label.Render("Size:"), res.FileSize)
		fmt.Fprintf(&sb, "   %s %s\n", r.styles.label.Render("Path:"), res.FilePath)

		if len(res.Highlights) > 0 {
			fmt.Fprintf(&sb, "   %s\n", r.styles.label.Render("Highlights:"))
			for _, h := range res.Highlights[:min(len(res.Highlights), MaxHighlights)] {
				fmt.Fprintf(&sb, "   - %s\n", FormatHighlight(h))
			}
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(r.out, sb.String())
	return err
}

func (r *Renderer) field(sb *strings.Builder, name, value string) {
	fmt.Fprintf(sb, "  %s %s\n", r.styles.label.Render(fmt.Sprintf("%-10s", name+":")), value)
}

func (r *Renderer) encodeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) encodeYAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// FormatScore renders a relevance score with two decimals, or N/A when absent.
func FormatScore(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *score)
}

// FormatHighlight flattens a highlight to one line of at most
// MaxHighlightLength characters, marking truncation with an ellipsis.
func FormatHighlight(h string) string {
	h = strings.TrimSpace(strings.ReplaceAll(h, "\n", " "))
	runes := []rune(h)
	if len(runes) > MaxHighlightLength {
		return string(runes[:MaxHighlightLength]) + "..."
	}
	return h
}

// Criteria describes the filters of req for display.
func Criteria(req domain.SearchRequest) string {
	var parts []string
	if req.HasQueryText() {
		parts = append(parts, fmt.Sprintf("text '%s'", *req.QueryText))
	}
	if req.FileType != nil {
		parts = append(parts, fmt.Sprintf("file type '%s'", *req.FileType))
	}
	if req.MinSize != nil {
		parts = append(parts, fmt.Sprintf("min size %d bytes", *req.MinSize))
	}
	if req.MaxSize != nil {
		parts = append(parts, fmt.Sprintf("max size %d bytes", *req.MaxSize))
	}
	if len(parts) == 0 {
		return "all documents"
	}
	return strings.Join(parts, ", ")
}
