// Package main provides the vibe-agg command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-agg/internal/aggregate"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries the state shared by all commands.
type app struct {
	v       *viper.Viper
	logger  *zap.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	cfgFile string
}

// usageError marks errors caused by invalid arguments or flags.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		v:      viper.New(),
		logger: zap.NewNop(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	defer func() { _ = a.logger.Sync() }()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	var ue *usageError
	switch {
	case errors.As(err, &ue):
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		fmt.Fprint(stderr, root.UsageString())
		return ExitUsage
	case errors.Is(err, aggregate.ErrInternal):
		fmt.Fprintf(stderr, "Error: internal error (see log for details)\n")
		return ExitError
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-agg",
		Short: "Aggregate exome and genome variant data",
		Long: `vibe-agg looks up the variants of a gene, transcript or region in a
population dataset, merging exome and genome observations into one ordered
list with consequence, LoF and MNV annotations.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.v, a.cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(a.v, a.stderr)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ~/.vibe-agg.yaml)")
	pf.String("backend", "", "search backend: duckdb or elasticsearch")
	pf.String("duckdb", "", "DuckDB database path")
	pf.String("es-url", "", "Elasticsearch URL")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")
	bindFlag(a.v, pf.Lookup("backend"), searchBackendKey)
	bindFlag(a.v, pf.Lookup("duckdb"), duckdbPathKey)
	bindFlag(a.v, pf.Lookup("es-url"), esURLKey)
	bindFlag(a.v, pf.Lookup("log-level"), logLevelKey)
	bindFlag(a.v, pf.Lookup("log-format"), logFormatKey)

	root.AddCommand(newVariantsCmd(a))
	root.AddCommand(newCountCmd(a))
	root.AddCommand(newVariantCmd(a))
	root.AddCommand(newGeneCmd(a))
	root.AddCommand(newDatasetsCmd(a))
	root.AddCommand(newLoadCmd(a))
	root.AddCommand(newConfigCmd(a))

	return root
}
