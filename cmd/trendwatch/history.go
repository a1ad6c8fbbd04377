package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/abelbrown/trendwatch/internal/report"
	"github.com/abelbrown/trendwatch/internal/store"
)

// linkSource looks up the article URLs stored for a trend.
type linkSource interface {
	TrendArticleURLs(ctx context.Context, trendID string) ([]string, error)
}

func runHistory() error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file (default ~/.trendwatch/config.yaml)")
	n := fs.Int("n", 20, "Number of validations to show")
	links := fs.Bool("links", false, "Include each trend's article links")
	asJSON := fs.Bool("json", false, "Output JSON instead of a table")
	fs.Parse(os.Args[1:])

	cfg, err := loadConfig(*cfgPath, "")
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	recs, err := st.RecentTrends(ctx, *n)
	if err != nil {
		return err
	}
	if *links {
		if err := attachLinks(ctx, st, recs); err != nil {
			return err
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	if err := report.RenderHistory(os.Stdout, recs); err != nil {
		return err
	}
	if *links {
		writeLinks(os.Stdout, recs)
	}
	return nil
}

// attachLinks fills each record's SourceLinks from the store.
func attachLinks(ctx context.Context, src linkSource, recs []store.TrendRecord) error {
	for i := range recs {
		urls, err := src.TrendArticleURLs(ctx, recs[i].Trend.ID)
		if err != nil {
			return fmt.Errorf("links for %s: %w", recs[i].Trend.ID, err)
		}
		recs[i].Trend.SourceLinks = urls
	}
	return nil
}

func writeLinks(w io.Writer, recs []store.TrendRecord) {
	for _, r := range recs {
		if len(r.Trend.SourceLinks) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s %s\n", short(r.Trend.ID), r.Trend.Title)
		for _, u := range r.Trend.SourceLinks {
			fmt.Fprintf(w, "  %s\n", u)
		}
	}
}
