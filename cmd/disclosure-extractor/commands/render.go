package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/disclosure-extractor/internal/chunk"
	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/table"
)

var renderType string

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Print the canonical text of every table in a document",
	Long: `Chunk a document and print each table segment the way it is sent to the
model: a pipe-delimited grid with merged cells expanded, empty rows and columns
dropped and repeated cells collapsed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderType, "type", "t", "filing_10k", "document type")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	docType, err := domain.ParseDocType(renderType)
	if err != nil {
		return domain.ValidationError("invalid --type", err)
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return domain.IOError(fmt.Sprintf("read %s", args[0]), err)
	}

	segments, err := chunk.New().Chunk(string(raw), docType)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	n := 0
	for _, seg := range segments {
		if seg.Kind != domain.SegmentTable {
			continue
		}
		text := strings.TrimSpace(table.RenderHTML(seg.Content))
		if text == "" {
			logger.Debug().Int("segment_index", seg.Index).Msg("table has no rows")
			continue
		}
		if n > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "<!-- segment %d -->\n%s\n", seg.Index, text)
		n++
	}
	if n == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no tables found")
	}
	return nil
}
