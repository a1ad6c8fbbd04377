package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/trendwatch/internal/engine"
	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/report"
	"github.com/abelbrown/trendwatch/internal/textutil"
)

// Board is the root Bubble Tea model. It never runs the engine itself; it
// asks runCycle for a command and renders the CycleDone that comes back.
type Board struct {
	runCycle func() tea.Cmd
	autoRun  bool

	spinner spinner.Model
	report  *engine.CycleReport
	err     error
	cycles  int
	cursor  int
	running bool
	width   int
	height  int
}

// NewBoard creates a Board that runs its first cycle on Init. runCycle
// also serves the 'r' key and may be nil.
func NewBoard(runCycle func() tea.Cmd) Board {
	b := NewWatchBoard(runCycle)
	b.autoRun = true
	return b
}

// NewWatchBoard creates a Board whose cycles are driven elsewhere and
// announced with CycleStarted and CycleDone. runCycle serves the 'r' key.
func NewWatchBoard(runCycle func() tea.Cmd) Board {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorHighlight)
	return Board{runCycle: runCycle, spinner: s, width: 100, height: 30}
}

// Init starts the first cycle when the board drives its own cycles.
func (b Board) Init() tea.Cmd {
	if !b.autoRun || b.runCycle == nil {
		return nil
	}
	return tea.Batch(b.spinner.Tick, b.runCycle())
}

// Update handles messages and returns the updated model and any commands.
func (b Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		return b, nil

	case CycleStarted:
		if b.running {
			return b, nil
		}
		b.running = true
		return b, b.spinner.Tick

	case CycleDone:
		b.running = false
		b.cycles++
		b.err = msg.Err
		if msg.Report != nil && (msg.Err == nil || len(msg.Report.Trends) > 0) {
			b.report = msg.Report
		}
		if n := len(b.trends()); b.cursor >= n {
			b.cursor = max(0, n-1)
		}
		return b, nil

	case spinner.TickMsg:
		if !b.running {
			return b, nil
		}
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return b, cmd
	}

	return b, nil
}

func (b Board) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return b, tea.Quit

	case "j", "down":
		if b.cursor < len(b.trends())-1 {
			b.cursor++
		}
		return b, nil

	case "k", "up":
		if b.cursor > 0 {
			b.cursor--
		}
		return b, nil

	case "r":
		if b.running || b.runCycle == nil {
			return b, nil
		}
		b.running = true
		b.err = nil
		return b, tea.Batch(b.spinner.Tick, b.runCycle())
	}

	return b, nil
}

func (b Board) trends() []*model.Trend {
	if b.report == nil {
		return nil
	}
	return b.report.Trends
}

func (b Board) result(i int) *model.ValidationResult {
	if b.report == nil || i >= len(b.report.Results) {
		return nil
	}
	return b.report.Results[i]
}

// View renders the board.
func (b Board) View() string {
	var sb strings.Builder

	sb.WriteString(TitleBar.Render("trendwatch"))
	sb.WriteString(" ")
	sb.WriteString(b.summary())
	sb.WriteString("\n\n")

	trends := b.trends()
	if len(trends) == 0 {
		if b.running || b.cycles == 0 {
			sb.WriteString(HelpStyle.Render("Waiting for the first cycle..."))
		} else {
			sb.WriteString(HelpStyle.Render("No trends detected. Press 'r' to run a cycle."))
		}
		sb.WriteString("\n")
	} else {
		titleW := max(20, b.width-40)
		for i, t := range trends {
			r := b.result(i)
			verdict := report.Verdict(r)
			vs := Rejected
			if r != nil && r.IsValid {
				vs = Accepted
			}
			line := fmt.Sprintf("%2d  %-*s  %3d art  %2d src  %.2f  ",
				i+1, titleW, textutil.Clip(t.Title, titleW-3), t.ArticleCount, t.SourceCount, t.TrendScore)
			if i == b.cursor {
				sb.WriteString(SelectedRow.Render(line))
			} else {
				sb.WriteString(NormalRow.Render(line))
			}
			sb.WriteString(vs.Render(verdict))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		sb.WriteString(b.detail(trends[b.cursor], b.result(b.cursor)))
	}

	if b.err != nil {
		sb.WriteString("\n")
		sb.WriteString(ErrorStyle.Render("Error: " + b.err.Error()))
	}

	sb.WriteString("\n")
	sb.WriteString(b.statusBar())
	return sb.String()
}

func (b Board) summary() string {
	if b.running {
		return b.spinner.View() + " running cycle"
	}
	if b.report == nil {
		return DetailText.Render("no cycles yet")
	}
	r := b.report
	return DetailText.Render(fmt.Sprintf("cycle %d · %d fetched · %d kept · %d trends · %d accepted · %s",
		b.cycles, r.Fetched, r.ArticlesKept, len(r.Trends), r.Accepted, r.Duration.Round(time.Millisecond)))
}

func (b Board) detail(t *model.Trend, r *model.ValidationResult) string {
	var sb strings.Builder
	field := func(label, value string) {
		sb.WriteString(DetailLabel.Render(label))
		sb.WriteString(" ")
		sb.WriteString(DetailText.Render(value))
		sb.WriteString("\n")
	}
	field("Keywords:", strings.Join(t.Keywords, ", "))
	field("Sources:", strings.Join(t.SourceNames(), ", "))
	field("Category:", string(t.Category))
	if t.Description != "" {
		field("Summary:", textutil.Clip(t.Description, max(40, b.width-12)))
	}
	if r != nil {
		field("Confidence:", fmt.Sprintf("%.2f (xref %.2f, fact %.2f)", r.ConfidenceScore, r.CrossReferenceScore, r.FactCheckScore))
		for _, is := range r.Issues {
			field("Issue:", is)
		}
	}
	return sb.String()
}

func (b Board) statusBar() string {
	keys := []string{
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("r") + StatusBarText.Render(":run"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	return StatusBar.Width(b.width).Render(strings.Join(keys, " "))
}

// Cursor returns the current cursor position (for testing).
func (b Board) Cursor() int {
	return b.cursor
}

// Running reports whether a cycle is in flight (for testing).
func (b Board) Running() bool {
	return b.running
}
