package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const versionString = "1.0.0"

type cliOptions struct {
	configPath  string
	pkg         string
	graphPath   string
	format      string
	outPath     string
	cycles      bool
	why         string
	impact      string
	showConfig  bool
	interactive bool
	watch       bool
	commit      bool
	history     bool
	since       string
	verbose     bool
	version     bool
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("depgraph", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file (default ./depgraph.toml, then ./data/config/depgraph.toml)")
	fs.StringVar(&opts.configPath, "c", "", "Shorthand for -config")
	fs.StringVar(&opts.pkg, "package", "", "Package to resolve instead of package.name")
	fs.StringVar(&opts.graphPath, "graph", "", "Read the graph from this file or directory (implies test mode)")
	fs.StringVar(&opts.format, "format", "", "Output format: text, tsv, dot, mermaid or json")
	fs.StringVar(&opts.outPath, "out", "", "Output file instead of output.file")
	fs.BoolVar(&opts.cycles, "cycles", false, "List every dependency cycle in the graph and exit")
	fs.StringVar(&opts.why, "why", "", "Print the shortest chain from the package to this dependency and exit")
	fs.StringVar(&opts.impact, "impact", "", "List the packages affected by a change to this package and exit")
	fs.BoolVar(&opts.showConfig, "show-config", false, "Print the effective configuration and exit")
	fs.BoolVar(&opts.interactive, "interactive", false, "Prompt for source, graph path and package")
	fs.BoolVar(&opts.watch, "watch", false, "Re-resolve whenever the local graph changes (test mode only)")
	fs.BoolVar(&opts.commit, "commit", false, "Commit the output file with git after writing it")
	fs.BoolVar(&opts.history, "history", false, "Record the run in the history store and print drift")
	fs.StringVar(&opts.since, "since", "", "Only include history at/after this time (RFC3339 or YYYY-MM-DD)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if err := validateModes(opts); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}

func validateModes(opts cliOptions) error {
	modes := 0
	for _, on := range []bool{opts.cycles, opts.why != "", opts.impact != "", opts.showConfig, opts.watch} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("-cycles, -why, -impact, -show-config and -watch cannot be combined")
	}
	if opts.since != "" && !opts.history {
		return fmt.Errorf("-since requires -history")
	}
	if _, err := parseSince(opts.since); err != nil {
		return err
	}
	return nil
}
