package commands

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spherical/disclosure-extractor/cmd/disclosure-extractor/ui"
	"github.com/spherical/disclosure-extractor/internal/export"
	"github.com/spherical/disclosure-extractor/internal/storage"
)

var (
	batchDoc         documentFlags
	batchConcurrency int
	batchOutDir      string
	batchFormat      string
	batchStore       bool
	batchFailFast    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <files...>",
	Short: "Extract the metrics of several documents of the same type",
	Long: `Extract several documents concurrently. Each document is a separate run
with its own output file in --out-dir. A failed document is reported and the
others continue, unless --fail-fast is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	addDocumentFlags(batchCmd, &batchDoc)
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "j", 2, "documents processed at the same time")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "out", "output directory")
	batchCmd.Flags().StringVar(&batchFormat, "format", "jsonl", "output format: jsonl, csv or xlsx")
	batchCmd.Flags().BoolVar(&batchStore, "store", false, "persist every run in the configured database")
	batchCmd.Flags().BoolVar(&batchFailFast, "fail-fast", false, "stop at the first failed document")
	rootCmd.AddCommand(batchCmd)
}

type batchOutcome struct {
	input   string
	output  string
	records int
	failed  int
	err     error
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	format, err := export.ParseFormat(batchFormat)
	if err != nil {
		return err
	}
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}

	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	var store *storage.Store
	if batchStore {
		if store, err = openStore(ctx, cfg); err != nil {
			return err
		}
		if store == nil {
			ui.Warning("--store given but no database is configured")
		} else {
			defer store.Close()
		}
	}

	ui.Section("Batch extraction")
	ui.Info("%d documents, %d at a time, output in %s", len(args), batchConcurrency, batchOutDir)

	spin := ui.NewSpinner(fmt.Sprintf("0/%d documents done", len(args)))
	spin.Start()

	outcomes := make([]batchOutcome, len(args))
	var finished atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, input := range args {
		g.Go(func() error {
			out := extractOne(gctx, p, store, input, format)
			outcomes[i] = out
			n := finished.Add(1)
			spin.UpdateMessage(fmt.Sprintf("%d/%d documents done", n, len(args)))
			if out.err != nil && batchFailFast {
				return fmt.Errorf("%s: %w", input, out.err)
			}
			return nil
		})
	}
	groupErr := g.Wait()
	spin.Stop()

	rows := make([][]string, 0, len(outcomes))
	failures := 0
	for _, o := range outcomes {
		status := "ok"
		if o.err != nil {
			status = o.err.Error()
			failures++
		}
		rows = append(rows, []string{o.input, strconv.Itoa(o.records), strconv.Itoa(o.failed), o.output, status})
	}
	ui.Section("Summary")
	ui.Table([]string{"Document", "Records", "Failed calls", "Output", "Status"}, rows)

	if groupErr != nil {
		return groupErr
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(args))
	}
	ui.Success("All %d documents extracted", len(args))
	return nil
}

// extractOne runs one document. Errors are returned in the outcome so the
// other documents keep going.
func extractOne(ctx context.Context, p *pipeline, store *storage.Store, input string, format export.Format) batchOutcome {
	out := batchOutcome{input: input}

	doc, err := readDocument(input, batchDoc)
	if err != nil {
		out.err = err
		return out
	}

	result, err := p.service.Process(ctx, doc, nil)
	if err != nil {
		logger.Error().Err(err).Str("document", input).Msg("document failed")
		out.err = err
		return out
	}
	out.records = len(result.Records)
	out.failed = result.Stats.FailedCalls

	out.output = outputPath(batchOutDir, input, format)
	if err := writeRecords(out.output, format, result.Records); err != nil {
		out.err = err
		return out
	}

	if store != nil {
		if err := store.SaveRun(ctx, result); err != nil {
			out.err = err
		}
	}
	return out
}
