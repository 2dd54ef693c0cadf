// Command roster parses an exported army list and prints it enriched with
// Wahapedia data, either locally or through a running API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pefman/w40k-roster/internal/api"
	"github.com/pefman/w40k-roster/internal/config"
	"github.com/pefman/w40k-roster/internal/logging"
	"github.com/pefman/w40k-roster/internal/matching"
	"github.com/pefman/w40k-roster/internal/parser"
	"github.com/pefman/w40k-roster/internal/wahapedia"
)

// cliEnv holds the environment defaults of the flags.
type cliEnv struct {
	DataDir string `env:"WAHAPEDIA_DIR" envDefault:"data/wahapedia"`
	Server  string `env:"ROSTER_SERVER"`
}

type options struct {
	dataDir   string
	server    string
	format    string
	parseOnly bool
	verbose   bool
	input     string
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "roster:", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	var defaults cliEnv
	if err := config.ParseEnv(&defaults); err != nil {
		return opts, err
	}
	fs := flag.NewFlagSet("roster", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.dataDir, "data", defaults.DataDir, "Wahapedia export directory")
	fs.StringVar(&opts.server, "server", defaults.Server, "API base URL; when set the server does the work")
	fs.StringVar(&opts.format, "format", "json", "output format: json, yaml or text")
	fs.BoolVar(&opts.parseOnly, "parse-only", false, "print the parsed list without matching")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: roster [flags] FILE|-")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("expected exactly one input file")
	}
	opts.input = fs.Arg(0)
	switch opts.format {
	case "json", "yaml", "text":
	default:
		return opts, fmt.Errorf("unknown format %q", opts.format)
	}
	return opts, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log, err := logging.New("roster", level, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	text, err := readInput(opts.input, stdin)
	if err != nil {
		return err
	}

	out, err := process(opts, text, log)
	if err != nil {
		return err
	}
	return write(stdout, opts.format, out)
}

func readInput(name string, stdin io.Reader) (string, error) {
	var r io.Reader = stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

func process(opts options, text string, log *zap.Logger) (any, error) {
	if opts.server != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c := api.NewClient(opts.server)
		if opts.parseOnly {
			return c.Parse(ctx, text)
		}
		v, err := c.CreateSession(ctx, text)
		if err != nil {
			return nil, err
		}
		log.Debug("session created", zap.String("id", v.ID))
		return v.Army, nil
	}

	parsed := parser.Parse(text)
	if opts.parseOnly {
		return parsed, nil
	}
	if strings.TrimSpace(opts.dataDir) == "" {
		return nil, errors.New("-data is required without -server")
	}
	idx, err := wahapedia.Load(opts.dataDir)
	if err != nil {
		return nil, err
	}
	return matching.NewEnricher(idx, log).Enrich(parsed)
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "text":
		return writeText(w, v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
