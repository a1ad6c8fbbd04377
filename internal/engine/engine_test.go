package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/store"
	"github.com/abelbrown/trendwatch/internal/trend"
	"github.com/abelbrown/trendwatch/internal/validate"
)

var t0 = time.Date(2024, 10, 9, 18, 0, 0, 0, time.UTC)

// mockFetcher implements articleSource for testing.
type mockFetcher struct {
	articles func() []*model.Article
	err      error
	calls    atomic.Int32
}

func (m *mockFetcher) FetchAll(ctx context.Context, _ []*model.NewsSource) ([]*model.Article, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.articles(), nil
}

type failingStore struct{}

func (failingStore) SaveTrend(context.Context, string, *model.Trend, *model.ValidationResult) error {
	return errors.New("disk full")
}

func src(name string, rel float64) *model.NewsSource {
	return &model.NewsSource{Name: name, ReliabilityScore: rel, IsActive: true}
}

// batch is five hurricane reports from four outlets plus noise: one
// malformed record, one unreliable outlet and one unrelated story.
func batch() []*model.Article {
	outlets := []*model.NewsSource{src("Wire", 0.9), src("Daily", 0.9), src("Herald", 0.9), src("Courier", 0.9)}
	var out []*model.Article
	for i := 0; i < 5; i++ {
		s := outlets[i%len(outlets)]
		out = append(out, &model.Article{
			ID:               fmt.Sprintf("h%d", i),
			Title:            fmt.Sprintf("Hurricane Milton makes landfall near Tampa, desk%d", i),
			Description:      "Hurricane Milton landfall brings storm surge to Tampa coast",
			URL:              fmt.Sprintf("https://news.example/h/%d", i),
			Source:           s,
			PublishedAt:      t0.Add(-time.Duration(i) * 10 * time.Minute),
			Keywords:         []string{"hurricane", "milton", "tampa", "landfall"},
			ReliabilityScore: s.ReliabilityScore,
		})
	}
	out = append(out,
		&model.Article{ID: "bad", Title: "", URL: "https://news.example/bad", Source: outlets[0], PublishedAt: t0},
		&model.Article{ID: "tab", Title: "Celebrity spotted", URL: "https://tabloid.example/1",
			Source: src("Tabloid", 0.2), PublishedAt: t0, ReliabilityScore: 0.2},
		&model.Article{ID: "x", Title: "Local bakery wins award", URL: "https://news.example/x",
			Source: outlets[1], PublishedAt: t0, ReliabilityScore: 0.9},
	)
	return out
}

func newTestEngine(f articleSource, s trendStore, opts Options) (*Engine, *validate.Pipeline) {
	d := trend.NewDetector(trend.DefaultOptions(), nil)
	d.SetClock(func() time.Time { return t0 })
	p := validate.New(validate.DefaultConfig())
	p.SetFingerprints(validate.NewMemoryFingerprints())
	e := New(f, d, p, s, opts, nil)
	e.SetClock(func() time.Time { return t0 })
	return e, p
}

func TestRunCycle(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	e, _ := newTestEngine(&mockFetcher{articles: batch}, st, Options{MinReliability: 0.5, MaxAge: 24 * time.Hour})
	rep, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if _, err := uuid.Parse(rep.ID); err != nil {
		t.Errorf("cycle id %q is not a uuid", rep.ID)
	}
	if rep.Fetched != 8 {
		t.Errorf("fetched = %d, want 8", rep.Fetched)
	}
	if rep.ArticlesKept != 6 || rep.ArticlesRejected != 2 {
		t.Errorf("kept/rejected = %d/%d, want 6/2", rep.ArticlesKept, rep.ArticlesRejected)
	}
	if len(rep.Trends) != 1 || len(rep.Results) != 1 {
		t.Fatalf("expected 1 trend, got %d", len(rep.Trends))
	}
	if rep.Accepted != 1 || !rep.Results[0].IsValid {
		t.Errorf("trend should be accepted: %+v", rep.Results[0])
	}

	tr := rep.Trends[0]
	if len(tr.SourceLinks) != 5 {
		t.Errorf("source links = %v", tr.SourceLinks)
	}
	if tr.ConfidenceScore != rep.Results[0].ConfidenceScore {
		t.Error("trend confidence should carry the validated score")
	}

	n, err := st.CountTrends(context.Background())
	if err != nil || n != 1 {
		t.Errorf("stored trends = %d, %v", n, err)
	}
	recs, _ := st.RecentTrends(context.Background(), 5)
	if len(recs) != 1 || recs[0].CycleID != rep.ID {
		t.Errorf("records = %+v", recs)
	}
}

func TestRunCycleRepeatIsDuplicate(t *testing.T) {
	e, _ := newTestEngine(&mockFetcher{articles: batch}, nil, Options{})

	first, err := e.RunCycle(context.Background())
	if err != nil || first.Accepted != 1 {
		t.Fatalf("first cycle accepted %d, err %v", first.Accepted, err)
	}

	second, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Results) != 1 || !second.Results[0].DuplicateCheck || second.Accepted != 0 {
		t.Errorf("repeat trend should be flagged duplicate: %+v", second.Results)
	}
}

func TestRunCycleFetchFailure(t *testing.T) {
	boom := errors.New("network down")
	e, _ := newTestEngine(&mockFetcher{err: boom}, nil, Options{})

	rep, err := e.RunCycle(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
	if rep == nil || rep.ID == "" {
		t.Error("report should still carry the cycle id")
	}
}

func TestRunCycleTopicFilter(t *testing.T) {
	e, _ := newTestEngine(&mockFetcher{articles: batch}, nil, Options{Topics: []string{"sports"}})
	rep, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Trends) != 0 || len(rep.Results) != 0 {
		t.Errorf("off-topic trends should be dropped, got %d", len(rep.Trends))
	}
}

func TestRunCycleStoreErrorsAreNotFatal(t *testing.T) {
	e, _ := newTestEngine(&mockFetcher{articles: batch}, failingStore{}, Options{})
	rep, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("store failure should not fail the cycle: %v", err)
	}
	if rep.StoreErrors != 1 || rep.Accepted != 1 {
		t.Errorf("store errors = %d, accepted = %d", rep.StoreErrors, rep.Accepted)
	}
}

func TestProcessEmptyBatch(t *testing.T) {
	e, _ := newTestEngine(&mockFetcher{}, nil, Options{})
	rep, err := e.Process(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Trends == nil || len(rep.Trends) != 0 {
		t.Errorf("expected empty non-nil trends, got %v", rep.Trends)
	}
}

func TestProcessCancelled(t *testing.T) {
	e, _ := newTestEngine(&mockFetcher{}, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Process(ctx, batch()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStartAndWait(t *testing.T) {
	f := &mockFetcher{articles: batch}
	e, _ := newTestEngine(f, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var reports []*CycleReport
	got := make(chan struct{}, 10)

	e.Start(ctx, 10*time.Millisecond, func(r *CycleReport, err error) {
		mu.Lock()
		reports = append(reports, r)
		mu.Unlock()
		got <- struct{}{}
	})

	for i := 0; i < 2; i++ {
		select {
		case <-got:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for cycles")
		}
	}
	cancel()

	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reports) < 2 || f.calls.Load() < 2 {
		t.Errorf("reports = %d, calls = %d", len(reports), f.calls.Load())
	}
	if reports[0].ID == reports[1].ID {
		t.Error("each cycle needs its own id")
	}
}

func TestCycleHook(t *testing.T) {
	e, _ := newTestEngine(&mockFetcher{articles: batch}, nil, Options{})
	var hooked []string
	e.SetCycleHook(func(id string) { hooked = append(hooked, id) })

	rep, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(hooked) != 1 || hooked[0] != rep.ID {
		t.Errorf("hook saw %v, want [%s]", hooked, rep.ID)
	}

	if _, err := e.Process(context.Background(), batch()); err != nil {
		t.Fatal(err)
	}
	if len(hooked) != 1 {
		t.Error("Process should not fire the fetching-cycle hook")
	}
}
