package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inodb/vibe-agg/internal/aggregate"
	"github.com/inodb/vibe-agg/internal/dataset"
	"github.com/inodb/vibe-agg/internal/output"
	"github.com/inodb/vibe-agg/internal/variant"
)

const defaultDataset = "gnomad_r2_1"

// selector holds the flags choosing what a lookup covers.
type selector struct {
	dataset         string
	referenceGenome string
	gene            string
	transcript      string
	region          string
}

func (s *selector) register(fs *pflag.FlagSet) {
	fs.StringVarP(&s.dataset, "dataset", "d", defaultDataset, "dataset ID (see 'vibe-agg datasets')")
	fs.StringVar(&s.referenceGenome, "reference-genome", "", "required reference genome: GRCh37 or GRCh38")
	fs.StringVar(&s.gene, "gene", "", "gene ID, e.g. ENSG00000169174")
	fs.StringVar(&s.transcript, "transcript", "", "transcript ID, e.g. ENST00000302118")
	fs.StringVar(&s.region, "region", "", "region as chrom-start-stop or chrom:start-stop")
}

// request builds the aggregate request. Exactly one of gene, transcript
// and region must be set.
func (s *selector) request() (aggregate.Request, error) {
	req := aggregate.Request{Dataset: s.dataset, ReferenceGenome: s.referenceGenome}

	set := 0
	for _, v := range []string{s.gene, s.transcript, s.region} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return req, usageErrorf("exactly one of --gene, --transcript or --region is required")
	}

	switch {
	case s.gene != "":
		req.Context = variant.Gene(s.gene)
	case s.transcript != "":
		req.Context = variant.Transcript(s.transcript)
	default:
		chrom, start, stop, err := parseRegion(s.region)
		if err != nil {
			return req, &usageError{err: err}
		}
		req.Context = variant.Region()
		req.Chrom, req.Start, req.Stop = chrom, start, stop
	}
	return req, nil
}

// parseRegion parses "1-55505221-55530525" or "chr1:55505221-55530525".
func parseRegion(s string) (chrom string, start, stop int64, err error) {
	var rest string
	if i := strings.Index(s, ":"); i >= 0 {
		chrom, rest = s[:i], s[i+1:]
	} else if i := strings.Index(s, "-"); i >= 0 {
		chrom, rest = s[:i], s[i+1:]
	}
	parts := strings.Split(rest, "-")
	if chrom == "" || len(parts) != 2 {
		return "", 0, 0, fmt.Errorf("invalid region %q (want chrom-start-stop)", s)
	}

	start, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid region start %q", parts[0])
	}
	stop, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid region stop %q", parts[1])
	}
	if start < 1 || stop < start {
		return "", 0, 0, fmt.Errorf("invalid region %q: need 1 <= start <= stop", s)
	}
	return chrom, start, stop, nil
}

// openOutput returns the output file, or stdout when path is empty.
func openOutput(a *app, path string) (io.Writer, func() error, error) {
	if path == "" {
		return a.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

func newVariantsCmd(a *app) *cobra.Command {
	var (
		sel          selector
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "variants",
		Short: "List the variants of a gene, transcript or region",
		Example: `  vibe-agg variants --gene ENSG00000169174
  vibe-agg variants -d gnomad_r2_1_controls --region 1-55505221-55530525 -f json
  vibe-agg variants --transcript ENST00000302118 -o pcsk9.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := sel.request()
			if err != nil {
				return err
			}
			if outputFormat != "tab" && outputFormat != "json" {
				return usageErrorf("unknown output format %q", outputFormat)
			}

			svc, closeSvc, err := openService(a)
			if err != nil {
				return err
			}
			defer closeSvc()

			variants, err := svc.ListVariants(cmd.Context(), req)
			if err != nil {
				return err
			}

			out, closeOut, err := openOutput(a, outputFile)
			if err != nil {
				return err
			}
			defer closeOut()

			if outputFormat == "json" {
				return output.WriteJSON(out, variants)
			}
			return writeTab(out, variants)
		},
	}

	sel.register(cmd.Flags())
	cmd.Flags().StringVarP(&outputFormat, "output-format", "f", "tab", "output format: tab, json")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func writeTab(w io.Writer, variants []*variant.Summary) error {
	tw := output.NewTabWriter(w)
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, v := range variants {
		if err := tw.Write(v); err != nil {
			return fmt.Errorf("writing %s: %w", v.VariantID, err)
		}
	}
	return tw.Flush()
}

func newCountCmd(a *app) *cobra.Command {
	var sel selector

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the variant documents of a gene, transcript or region",
		Long: `Count the variant documents of a gene, transcript or region, summed over
the exome and genome indices. A variant seen in both is counted twice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := sel.request()
			if err != nil {
				return err
			}

			svc, closeSvc, err := openService(a)
			if err != nil {
				return err
			}
			defer closeSvc()

			n, err := svc.CountVariants(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, n)
			return nil
		},
	}

	sel.register(cmd.Flags())
	return cmd
}

func newVariantCmd(a *app) *cobra.Command {
	var datasetID string

	cmd := &cobra.Command{
		Use:     "variant <variant-id>",
		Short:   "Show one variant as JSON",
		Example: `  vibe-agg variant 1-55516888-G-GA`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeSvc, err := openService(a)
			if err != nil {
				return err
			}
			defer closeSvc()

			v, err := svc.GetVariant(cmd.Context(), datasetID, args[0])
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, v)
		},
	}

	cmd.Flags().StringVarP(&datasetID, "dataset", "d", defaultDataset, "dataset ID")
	return cmd
}

func newGeneCmd(a *app) *cobra.Command {
	var (
		datasetID  string
		transcript bool
	)

	cmd := &cobra.Command{
		Use:   "gene <gene-id>",
		Short: "Show a gene or transcript record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeSvc, err := openService(a)
			if err != nil {
				return err
			}
			defer closeSvc()

			if transcript {
				tx, err := svc.LookupTranscript(cmd.Context(), datasetID, args[0])
				if err != nil {
					return err
				}
				return writeJSON(a.stdout, tx)
			}
			g, err := svc.LookupGene(cmd.Context(), datasetID, args[0])
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, g)
		},
	}

	cmd.Flags().StringVarP(&datasetID, "dataset", "d", defaultDataset, "dataset ID")
	cmd.Flags().BoolVar(&transcript, "transcript", false, "look up a transcript ID instead")
	return cmd
}

func newDatasetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the known datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range dataset.IDs() {
				ds, _ := dataset.Lookup(id)
				fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", ds.ID, ds.ReferenceGenome, ds.Label)
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
