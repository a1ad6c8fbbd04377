package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/trendwatch/internal/engine"
	"github.com/abelbrown/trendwatch/internal/model"
)

// mockCycle tracks whether a cycle was requested.
type mockCycle struct {
	calls int
}

func (m *mockCycle) run() tea.Cmd {
	m.calls++
	return func() tea.Msg { return CycleDone{Report: sampleReport()} }
}

func sampleReport() *engine.CycleReport {
	src := &model.NewsSource{Name: "Wire"}
	return &engine.CycleReport{
		ID:           "c1",
		Fetched:      12,
		ArticlesKept: 9,
		Accepted:     1,
		Trends: []*model.Trend{
			{ID: "a", Title: "Hurricane Milton Makes Landfall", Keywords: []string{"hurricane", "milton"},
				Articles: []*model.Article{{Source: src}}, ArticleCount: 5, SourceCount: 4, TrendScore: 0.8},
			{ID: "b", Title: "Celebrity Rumor", ArticleCount: 3, SourceCount: 1, TrendScore: 0.3},
		},
		Results: []*model.ValidationResult{
			{IsValid: true, ConfidenceScore: 0.6},
			{IsValid: false, Issues: []string{"Insufficient sources: 1 < 2"}},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardInit(t *testing.T) {
	mock := &mockCycle{}
	if cmd := NewBoard(mock.run).Init(); cmd == nil {
		t.Fatal("Init should return a command")
	}
	if mock.calls != 1 {
		t.Error("Init should request a cycle")
	}
	if NewBoard(nil).Init() != nil {
		t.Error("Init should return nil without runCycle")
	}
}

func TestBoardCycleDone(t *testing.T) {
	b := NewBoard(nil)
	m, _ := b.Update(CycleStarted{})
	b = m.(Board)
	if !b.Running() {
		t.Fatal("CycleStarted should mark the board running")
	}

	m, _ = b.Update(CycleDone{Report: sampleReport()})
	b = m.(Board)
	if b.Running() {
		t.Error("CycleDone should clear running")
	}

	view := b.View()
	for _, want := range []string{"Hurricane Milton Makes Landfall", "accepted", "rejected", "hurricane, milton", "Wire"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBoardNavigation(t *testing.T) {
	b := NewBoard(nil)
	m, _ := b.Update(CycleDone{Report: sampleReport()})
	b = m.(Board)

	m, _ = b.Update(key("j"))
	b = m.(Board)
	if b.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", b.Cursor())
	}
	m, _ = b.Update(key("j"))
	b = m.(Board)
	if b.Cursor() != 1 {
		t.Error("cursor should stop at the last trend")
	}
	if !strings.Contains(b.View(), "Insufficient sources: 1 < 2") {
		t.Error("detail pane should list the selected trend's issues")
	}

	m, _ = b.Update(key("k"))
	b = m.(Board)
	m, _ = b.Update(key("k"))
	b = m.(Board)
	if b.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", b.Cursor())
	}
}

func TestBoardRunKey(t *testing.T) {
	mock := &mockCycle{}
	b := NewBoard(mock.run)

	m, cmd := b.Update(key("r"))
	b = m.(Board)
	if cmd == nil || !b.Running() || mock.calls != 1 {
		t.Fatalf("r should start a cycle: running=%v calls=%d", b.Running(), mock.calls)
	}

	_, cmd = b.Update(key("r"))
	if cmd != nil || mock.calls != 1 {
		t.Error("r must not start a second cycle while one runs")
	}
}

func TestBoardQuit(t *testing.T) {
	_, cmd := NewBoard(nil).Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestBoardErrorKeepsLastReport(t *testing.T) {
	b := NewBoard(nil)
	m, _ := b.Update(CycleDone{Report: sampleReport()})
	b = m.(Board)
	m, _ = b.Update(CycleDone{Report: &engine.CycleReport{ID: "c2"}, Err: errors.New("fetch: all sources failed")})
	b = m.(Board)

	view := b.View()
	if !strings.Contains(view, "Hurricane Milton") {
		t.Error("a failed cycle should keep the previous trends on screen")
	}
	if !strings.Contains(view, "all sources failed") {
		t.Error("error should be shown")
	}
}

func TestBoardEmpty(t *testing.T) {
	b := NewBoard(nil)
	m, _ := b.Update(CycleDone{Report: &engine.CycleReport{}})
	if !strings.Contains(m.(Board).View(), "No trends detected") {
		t.Error("expected empty-state hint")
	}
}

func TestWatchBoardInit(t *testing.T) {
	mock := &mockCycle{}
	if cmd := NewWatchBoard(mock.run).Init(); cmd != nil || mock.calls != 0 {
		t.Error("watch board should wait for externally driven cycles")
	}
}
