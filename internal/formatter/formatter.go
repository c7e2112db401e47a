// package formatter renders reconciliation results and run history as tables, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/repositories"
)

// Format selects an output representation.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat maps a flag value to a [Format]. An empty value selects [FormatTable].
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected table, markdown or json)", s)
	}
}

// Options controls table rendering.
type Options struct {
	// Color paints statuses with the lipgloss palette
	Color bool
}

func planTable(result *models.ExecutionResult, opts Options) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Target", "Playlist", "Mode", "Status", "Add", "Remove", "Deferred", "Inserted", "Deleted"})

	for _, p := range result.Plans {
		status := string(p.Status)
		if opts.Color {
			status = styles.Status(p.Status)
		}
		t.AppendRow(table.Row{
			p.Target,
			p.PlaylistID,
			string(p.Mode),
			status,
			len(p.Add),
			len(p.Remove),
			deferred(p),
			p.Inserted,
			p.Deleted,
		})
	}

	api := result.Metrics.API
	t.AppendFooter(table.Row{
		"", "", "", "API calls",
		fmt.Sprintf("list %d", api.List),
		fmt.Sprintf("insert %d", api.Insert),
		fmt.Sprintf("delete %d", api.Delete),
		"", "",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})
	return t
}

func deferred(p models.ReconciliationPlan) string {
	if p.AddDeferred == 0 && p.RemoveDeferred == 0 {
		return "-"
	}
	return fmt.Sprintf("+%d/-%d", p.AddDeferred, p.RemoveDeferred)
}

func header(result *models.ExecutionResult) string {
	mode := "live"
	if result.DryRun {
		mode = "dry-run"
	}
	return fmt.Sprintf("Run %s (%s) started %s, window %s..%s, %.2fs",
		result.RunID, mode, result.StartedAt.Format(time.RFC3339),
		result.DateWindow.Start, result.DateWindow.End, result.Metrics.DurationSec)
}

// ResultToTable renders an execution result as a terminal table with a run header and an API call footer.
func ResultToTable(result *models.ExecutionResult, opts Options) string {
	var buf strings.Builder

	title := header(result)
	if opts.Color {
		title = styles.Title(title)
	}
	buf.WriteString(title + "\n")

	t := planTable(result, opts)
	t.SetStyle(table.StyleLight)
	buf.WriteString(t.Render() + "\n")

	if opts.Color {
		buf.WriteString(styles.Outcome(result) + "\n")
	} else if result.Succeeded() {
		buf.WriteString("ok\n")
	} else {
		buf.WriteString("failed: " + result.Error + "\n")
	}

	return buf.String()
}

// ResultToMarkdown renders an execution result as a Markdown report, listing changed items per target.
func ResultToMarkdown(result *models.ExecutionResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Run %s\n\n", result.RunID))
	buf.WriteString(fmt.Sprintf("**Started**: %s\n", result.StartedAt.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Dry run**: %t\n", result.DryRun))
	buf.WriteString(fmt.Sprintf("**Window**: %s to %s\n", result.DateWindow.Start, result.DateWindow.End))
	if !result.Succeeded() {
		buf.WriteString(fmt.Sprintf("**Error**: %s\n", result.Error))
	}
	buf.WriteString("\n## Targets\n\n")
	buf.WriteString(planTable(result, Options{}).RenderMarkdown() + "\n")

	for _, p := range result.Plans {
		if len(p.Add) == 0 && len(p.Remove) == 0 {
			continue
		}
		buf.WriteString(fmt.Sprintf("\n### %s\n\n", p.Target))
		for i, id := range p.Add {
			if p.Rebuild {
				buf.WriteString(fmt.Sprintf("- insert `%s` at %d\n", id, i))
			} else {
				buf.WriteString(fmt.Sprintf("- add `%s`\n", id))
			}
		}
		for _, id := range p.Remove {
			buf.WriteString(fmt.Sprintf("- remove `%s`\n", id))
		}
	}

	return buf.Bytes(), nil
}

// ResultToJSON encodes an execution result as indented JSON.
func ResultToJSON(result *models.ExecutionResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return append(data, '\n'), nil
}

// Render renders result in the given format.
func Render(result *models.ExecutionResult, format Format, opts Options) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return ResultToMarkdown(result)
	case FormatJSON:
		return ResultToJSON(result)
	default:
		return []byte(ResultToTable(result, opts)), nil
	}
}

// WriteReport writes result to path, choosing the format from the file extension (.md, .json, otherwise table text).
//
// Parent directories are created as needed.
func WriteReport(result *models.ExecutionResult, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("run_%s.json", result.RunID)
	}

	format := FormatTable
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		format = FormatMarkdown
	case ".json":
		format = FormatJSON
	}

	data, err := Render(result, format, Options{})
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// RunsToTable renders the run history list.
func RunsToTable(runs []repositories.RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded\n"
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Mode", "Window", "Targets", "List", "Insert", "Delete", "Duration", "Result"})

	for _, r := range runs {
		mode := "live"
		if r.DryRun {
			mode = "dry-run"
		}
		outcome := "ok"
		if r.Error != "" {
			outcome = "failed"
		}
		t.AppendRow(table.Row{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			mode,
			r.Window.Start + ".." + r.Window.End,
			r.Targets,
			r.Metrics.API.List,
			r.Metrics.API.Insert,
			r.Metrics.API.Delete,
			fmt.Sprintf("%.2fs", r.Metrics.DurationSec),
			outcome,
		})
	}

	return t.Render() + "\n"
}

// TargetHistoryToTable renders the recorded plans of a single target.
func TargetHistoryToTable(target string, records []repositories.PlanRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("No runs recorded for %s\n", target)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(target)
	t.AppendHeader(table.Row{"Run", "Started", "Status", "Add", "Remove", "Inserted", "Deleted"})
	for _, p := range records {
		t.AppendRow(table.Row{
			shortID(p.RunID),
			p.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(p.Status),
			p.Add,
			p.Remove,
			p.Inserted,
			p.Deleted,
		})
	}
	return t.Render() + "\n"
}

// shortID truncates a UUID to its first group; history show accepts the prefix.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
