package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abelbrown/trendwatch/internal/engine"
	"github.com/abelbrown/trendwatch/internal/model"
	"github.com/abelbrown/trendwatch/internal/ranking"
	"github.com/abelbrown/trendwatch/internal/report"
)

func runRun() error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file (default ~/.trendwatch/config.yaml)")
	keys := fs.String("keys", "", "Shell file of 'export KEY=value' lines to apply")
	asJSON := fs.Bool("json", false, "Output JSON instead of a table")
	top := fs.Int("top", 0, "Show only the N highest-scoring trends (0 = all)")
	noStore := fs.Bool("no-store", false, "Do not persist trends")
	fs.Parse(os.Args[1:])

	cfg, err := loadConfig(*cfgPath, *keys)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, !*noStore)
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.engine.RunCycle(ctx)
	if err != nil {
		return err
	}
	return printReport(os.Stdout, rep, *asJSON, *top)
}

func runDetect() error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file (default ~/.trendwatch/config.yaml)")
	in := fs.String("in", "", "JSON array of articles ('-' for stdin)")
	nowFlag := fs.String("now", "", "Reference time, RFC3339 (default: current time)")
	asJSON := fs.Bool("json", false, "Output JSON instead of a table")
	top := fs.Int("top", 0, "Show only the N highest-scoring trends (0 = all)")
	save := fs.Bool("save", false, "Persist trends to the database")
	fs.Parse(os.Args[1:])

	if *in == "" {
		fs.Usage()
		return fmt.Errorf("-in is required")
	}

	cfg, err := loadConfig(*cfgPath, "")
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	articles, err := readArticles(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", *in, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, *save)
	if err != nil {
		return err
	}
	defer a.close()

	if *nowFlag != "" {
		now, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			return fmt.Errorf("-now: %w", err)
		}
		clock := func() time.Time { return now }
		a.detector.SetClock(clock)
		a.pipeline.SetClock(clock)
		a.engine.SetClock(clock)
	}

	rep, err := a.engine.Process(ctx, articles)
	if err != nil {
		return err
	}
	return printReport(os.Stdout, rep, *asJSON, *top)
}

func printReport(w io.Writer, rep *engine.CycleReport, asJSON bool, top int) error {
	trends, results := topTrends(rep, top)
	if asJSON {
		return report.WriteJSON(w, trends, results)
	}
	fmt.Fprintf(w, "%d articles, %d kept, %d trends, %d accepted (%s)\n\n",
		rep.Fetched, rep.ArticlesKept, len(rep.Trends), rep.Accepted, rep.Duration.Round(time.Millisecond))
	return report.Render(w, trends, results)
}

// topTrends keeps the n best-ranked trends and their results. Trends in a
// report are already ranked and results share their indexes.
func topTrends(rep *engine.CycleReport, n int) ([]*model.Trend, []*model.ValidationResult) {
	trends := ranking.TopN(rep.Trends, n)
	results := rep.Results
	if len(results) > len(trends) {
		results = results[:len(trends)]
	}
	return trends, results
}

// readArticles decodes a JSON array of articles. Articles naming the same
// source share one NewsSource; missing ids are derived from the link, and
// a missing reliability score falls back to the source's.
func readArticles(r io.Reader) ([]*model.Article, error) {
	var articles []*model.Article
	if err := json.NewDecoder(r).Decode(&articles); err != nil {
		return nil, err
	}

	sources := make(map[string]*model.NewsSource)
	for _, a := range articles {
		if a == nil || a.Source == nil {
			continue
		}
		if s, ok := sources[a.Source.Name]; ok {
			a.Source = s
		} else {
			sources[a.Source.Name] = a.Source
		}
		if a.ID == "" {
			a.ID = model.ArticleID(a.URL, a.Title, a.Source.Name)
		}
		if a.ReliabilityScore == 0 {
			a.ReliabilityScore = a.Source.ReliabilityScore
		}
	}
	return articles, nil
}
