// Package report renders detection results as terminal tables or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/store"
	"github.com/abelbrown/trendwatch/internal/textutil"
)

const titleWidth = 48

// signalColumns are the trend-score components shown after SCORE.
var signalColumns = []struct{ header, name string }{
	{"VOL", "volume"},
	{"SPREAD", "spread"},
	{"REL", "reliability"},
	{"RECENT", "recency"},
}

var (
	colorHeader   = lipgloss.Color("62")  // Purple
	colorAccepted = lipgloss.Color("78")  // Green
	colorRejected = lipgloss.Color("196") // Red
	colorMuted    = lipgloss.Color("241") // Gray
)

// Entry pairs a ranked trend with its verdict.
type Entry struct {
	Rank       int                     `json:"rank"`
	Trend      *model.Trend            `json:"trend"`
	Validation *model.ValidationResult `json:"validation,omitempty"`
}

// Entries zips trends and results by index. A missing result leaves
// Validation nil.
func Entries(trends []*model.Trend, results []*model.ValidationResult) []Entry {
	out := make([]Entry, len(trends))
	for i, t := range trends {
		out[i] = Entry{Rank: i + 1, Trend: t}
		if i < len(results) {
			out[i].Validation = results[i]
		}
	}
	return out
}

// Verdict is the one-word outcome shown for a result.
func Verdict(r *model.ValidationResult) string {
	switch {
	case r == nil:
		return "unchecked"
	case r.IsValid:
		return "accepted"
	case r.DuplicateCheck:
		return "duplicate"
	default:
		return "rejected"
	}
}

// Render prints a table of trends followed by the issues of every trend
// that was not accepted. Styling follows the writer's color profile.
func Render(w io.Writer, trends []*model.Trend, results []*model.ValidationResult) error {
	r := lipgloss.NewRenderer(w)
	entries := Entries(trends, results)

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, r.NewStyle().Foreground(colorMuted).Render("No trends detected."))
		return err
	}

	headers := []string{"#", "TREND", "ARTICLES", "SOURCES", "SCORE"}
	for _, c := range signalColumns {
		headers = append(headers, c.header)
	}
	headers = append(headers, "CONFIDENCE", "VERDICT")
	verdictCol := len(headers) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(colorMuted)).
		Headers(headers...)

	for _, e := range entries {
		row := []string{
			fmt.Sprint(e.Rank),
			textutil.Clip(e.Trend.Title, titleWidth),
			fmt.Sprint(e.Trend.ArticleCount),
			fmt.Sprint(e.Trend.SourceCount),
			fmt.Sprintf("%.2f", e.Trend.TrendScore),
		}
		for _, c := range signalColumns {
			row = append(row, signal(e.Trend, c.name))
		}
		row = append(row, fmt.Sprintf("%.2f", e.Trend.ConfidenceScore), Verdict(e.Validation))
		t.Row(row...)
	}

	header := r.NewStyle().Bold(true).Foreground(colorHeader).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return header
		}
		if col == verdictCol && row >= 0 && row < len(entries) {
			if entries[row].Validation != nil && entries[row].Validation.IsValid {
				return cell.Foreground(colorAccepted)
			}
			return cell.Foreground(colorRejected)
		}
		return cell
	})

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}

	issue := r.NewStyle().Foreground(colorMuted)
	for _, e := range entries {
		if e.Validation == nil || e.Validation.IsValid || len(e.Validation.Issues) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n#%d %s\n", e.Rank, e.Trend.Title); err != nil {
			return err
		}
		for _, is := range e.Validation.Issues {
			if _, err := fmt.Fprintln(w, issue.Render("  - "+is)); err != nil {
				return err
			}
		}
	}
	return nil
}

// signal formats one score component, or "-" when it was not recorded.
func signal(t *model.Trend, name string) string {
	v, ok := t.Signals[name]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// WriteJSON writes the ranked entries as an indented JSON array.
func WriteJSON(w io.Writer, trends []*model.Trend, results []*model.ValidationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Entries(trends, results))
}

// RenderHistory prints persisted validations, newest first.
func RenderHistory(w io.Writer, records []store.TrendRecord) error {
	r := lipgloss.NewRenderer(w)
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, r.NewStyle().Foreground(colorMuted).Render("No stored trends."))
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(colorMuted)).
		Headers("VALIDATED", "TREND", "CATEGORY", "ARTICLES", "CONFIDENCE", "VERDICT", "ISSUES")

	for _, rec := range records {
		verdict := "rejected"
		if rec.IsValid {
			verdict = "accepted"
		}
		t.Row(
			rec.ValidatedAt.Local().Format("Jan 02 15:04"),
			textutil.Clip(rec.Trend.Title, titleWidth),
			string(rec.Trend.Category),
			fmt.Sprint(rec.Trend.ArticleCount),
			fmt.Sprintf("%.2f", rec.Confidence),
			verdict,
			strings.Join(rec.Issues, "; "),
		)
	}

	header := r.NewStyle().Bold(true).Foreground(colorHeader).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return header
		}
		return cell
	})

	_, err := fmt.Fprintln(w, t.String())
	return err
}
