package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/trendwatch/internal/engine"
	"github.com/abelbrown/trendwatch/internal/ui"
)

func runWatch() error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file (default ~/.trendwatch/config.yaml)")
	keys := fs.String("keys", "", "Shell file of 'export KEY=value' lines to apply")
	interval := fs.Duration("interval", 15*time.Minute, "Time between cycles")
	fs.Parse(os.Args[1:])

	cfg, err := loadConfig(*cfgPath, *keys)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	runCycle := func() tea.Cmd {
		return func() tea.Msg {
			rep, err := a.engine.RunCycle(ctx)
			return ui.CycleDone{Report: rep, Err: err}
		}
	}

	program := tea.NewProgram(ui.NewWatchBoard(runCycle), tea.WithAltScreen(), tea.WithContext(ctx))

	a.engine.SetCycleHook(func(string) { program.Send(ui.CycleStarted{}) })
	a.engine.Start(ctx, *interval, func(rep *engine.CycleReport, err error) {
		program.Send(ui.CycleDone{Report: rep, Err: err})
	})

	_, runErr := program.Run()

	// Graceful shutdown
	cancel()
	a.engine.Wait()

	if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return runErr
}
