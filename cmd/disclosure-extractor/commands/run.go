package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/disclosure-extractor/cmd/disclosure-extractor/ui"
	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/export"
)

var (
	runDoc    documentFlags
	runOutput string
	runFormat string
	runStore  bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Extract the metrics of one document",
	Long: `Extract every metric of one document and write the records as JSONL, CSV
or XLSX. 8-K and DEF 14A documents are JSON lists of {"content": ...} objects;
10-K, 10-Q and earnings call documents are HTML; plain documents are text.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	addDocumentFlags(runCmd, &runDoc)
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output file (default: <input-name>.<format>)")
	runCmd.Flags().StringVar(&runFormat, "format", "", "output format: jsonl, csv or xlsx (default: from --output, else jsonl)")
	runCmd.Flags().BoolVar(&runStore, "store", false, "persist the run in the configured database")
	rootCmd.AddCommand(runCmd)
}

func addDocumentFlags(cmd *cobra.Command, flags *documentFlags) {
	cmd.Flags().StringVarP(&flags.docType, "type", "t", "plain", "document type: filing_8k, filing_10k, filing_10q, filing_def14a, earnings_call, plain")
	cmd.Flags().StringVar(&flags.company, "company", "", "company name used in prompts")
	cmd.Flags().StringVar(&flags.quarter, "quarter", "", `reporting quarter, e.g. "2023 Q4"`)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	input := args[0]
	doc, err := readDocument(input, runDoc)
	if err != nil {
		return err
	}

	format := export.FormatFromPath(runOutput)
	if runFormat != "" {
		if format, err = export.ParseFormat(runFormat); err != nil {
			return err
		}
	}
	if runOutput == "" {
		runOutput = outputPath(".", input, format)
	}

	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	ui.Section("Extraction")
	ui.Info("Document: %s (%s)", input, doc.DocType)
	ui.Info("Output:   %s", runOutput)

	eventCh := make(chan domain.StreamEvent, 256)
	done := make(chan struct{})
	go func() {
		showProgress(eventCh)
		close(done)
	}()

	result, err := p.service.Process(ctx, doc, eventCh)
	close(eventCh)
	<-done
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if err := writeRecords(runOutput, format, result.Records); err != nil {
		return err
	}

	if runStore {
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if store == nil {
			ui.Warning("--store given but no database is configured")
		} else {
			defer store.Close()
			if err := store.SaveRun(ctx, result); err != nil {
				return err
			}
			ui.Info("Stored run %s", result.RunID)
		}
	}

	printSummary(result)
	ui.Success("Records saved to: %s", runOutput)
	return nil
}

// showProgress renders one progress bar per dispatched stage until eventCh is
// closed.
func showProgress(eventCh <-chan domain.StreamEvent) {
	var (
		bar      *ui.ProgressBar
		barStage domain.RunState
	)
	finish := func() {
		if bar != nil {
			bar.Finish()
			bar = nil
		}
	}

	for ev := range eventCh {
		switch ev.Type {
		case domain.EventTaskComplete, domain.EventTaskFailed:
			if bar == nil || ev.State != barStage {
				finish()
				bar, barStage = ui.NewProgressBar(int64(ev.Total), ev.State.String()), ev.State
			}
			bar.Set(int64(ev.Done))
			if ev.Type == domain.EventTaskFailed && ui.Verbose() {
				ui.Warning("call failed: %v", ev.Payload)
			}
		case domain.EventError:
			finish()
			ui.Error("%v", ev.Payload)
		case domain.EventComplete:
			finish()
		}
	}
	finish()
}

func printSummary(result *domain.RunResult) {
	ui.Section("Summary")
	s := result.Stats
	ui.Table([]string{"Metric", "Value"}, [][]string{
		{"Run ID", result.RunID.String()},
		{"Segments", strconv.Itoa(s.Segments)},
		{"Tables", strconv.Itoa(s.TableSegments)},
		{"Stage A calls", strconv.Itoa(s.StageACalls)},
		{"Stage B calls", strconv.Itoa(s.StageBCalls)},
		{"Failed calls", strconv.Itoa(s.FailedCalls)},
		{"Records", strconv.Itoa(s.Records)},
		{"Duration", ui.FormatDuration(s.Duration)},
	})

	if len(result.CategoryCounts) == 0 {
		return
	}
	cats := make([]string, 0, len(result.CategoryCounts))
	for c := range result.CategoryCounts {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{c, strconv.Itoa(result.CategoryCounts[domain.Category(c)])})
	}
	ui.Newline()
	ui.Table([]string{"Category", "Records"}, rows)
}
