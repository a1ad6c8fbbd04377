// Command trendwatch detects and validates news trends across feeds.
//
// Usage:
//
//	trendwatch                   Show help
//	trendwatch run               One detection cycle over configured feeds
//	trendwatch detect -in FILE   Offline detection over a JSON article batch
//	trendwatch watch             Live trend board
//	trendwatch history           Recently stored trends
//	trendwatch events            JSONL event log viewer
//	trendwatch config            Print the effective configuration
package main

import (
	"fmt"
	"os"
)

const usage = `trendwatch - trend clustering & validation engine

Usage:
  trendwatch <command> [flags]

Commands:
  run       Fetch every configured feed once and report trends
  detect    Detect and validate trends in a JSON article batch (-in)
  watch     Live trend board, one cycle every -interval
  history   Recently stored trends
  events    JSONL event log viewer
  config    Print the effective configuration (-init writes the default file)

Environment:
  NEWSGUARD_API_KEY        Enables the remote fact-checker
  REDIS_HOST, REDIS_PORT   Redis fingerprint cache (selects the redis backend)
  USER_TOPICS_OF_INTEREST  Comma-separated categories to report
  TRENDWATCH_DB            SQLite database path
  LOG_LEVEL                debug, info, warn, error

Run 'trendwatch <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	var err error
	switch cmd {
	case "run":
		err = runRun()
	case "detect":
		err = runDetect()
	case "watch":
		err = runWatch()
	case "history":
		err = runHistory()
	case "events":
		err = runEvents()
	case "config":
		err = runConfig()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "trendwatch: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "trendwatch %s: %v\n", cmd, err)
		os.Exit(1)
	}
}
