// Command zwave-log views and analyzes Z-Wave protocol capture files.
//
// Capture files are written by zwave-controller with the -protocol-log flag.
//
// Usage:
//
//	zwave-log <command> [flags] <file.zlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON lines or CSV
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View handshake events for node 5
//	zwave-log view -layer handshake -node 5 session.zlog
//
//	# View only retransmission control frames
//	zwave-log view -category control session.zlog
//
//	# Export exclusion events to CSV
//	zwave-log export -format csv -operation exclusion session.zlog
//
//	# Show statistics
//	zwave-log stats session.zlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/homenode/zwave-go/cmd/zwave-log/commands"
)

const usage = `zwave-log - Z-Wave Protocol Log Analyzer

Usage:
  zwave-log <command> [flags] <file.zlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON lines or CSV
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "zwave-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the shared filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	var opts commands.FilterOptions
	fs.StringVar(&opts.SessionID, "session-id", "", "Filter by session ID")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, serialapi, handshake, session)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, control, state, error)")
	fs.StringVar(&opts.Operation, "operation", "", "Filter handshake events by operation (inclusion, exclusion)")
	fs.StringVar(&opts.NodeID, "node", "", "Filter handshake events by node id")
	return &opts
}

// parseArgs parses fs and returns the log file path.
func parseArgs(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func commandUsage(fs *flag.FlagSet, text string) func() {
	return func() {
		fmt.Fprint(os.Stderr, text)
		fs.PrintDefaults()
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = commandUsage(fs, `zwave-log view - View log file in human-readable format

Usage:
  zwave-log view [flags] <file.zlog>

Flags:
`)
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	filter, err := commands.BuildFilter(*opts)
	exitOnError(err)
	exitOnError(commands.RunView(path, filter, os.Stdout))
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = commandUsage(fs, `zwave-log export - Export log file to JSON lines or CSV

Usage:
  zwave-log export [flags] <file.zlog>

Flags:
`)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	filter, err := commands.BuildFilter(*opts)
	exitOnError(err)
	exitOnError(commands.RunExport(path, *format, *output, filter))
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = commandUsage(fs, `zwave-log filter - Filter log file and write to new file

Usage:
  zwave-log filter -o <out.zlog> [flags] <file.zlog>

Flags:
`)
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := commands.BuildFilter(*opts)
	exitOnError(err)

	count, err := commands.RunFilter(path, *output, filter)
	exitOnError(err)
	fmt.Printf("Filtered %d events to %s\n", count, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = commandUsage(fs, `zwave-log stats - Show statistics about the log file

Usage:
  zwave-log stats <file.zlog>

`)
	path := parseArgs(fs, args)
	exitOnError(commands.RunStats(path, os.Stdout))
}
