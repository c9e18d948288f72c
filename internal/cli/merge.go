package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Lllllllleong/pdfmergeflow/internal/models"
	"github.com/spf13/cobra"
)

func newMergeCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge <file.pdf[:rotation]>...",
		Short: "Stage PDFs and merge them in order",
		Long: `Stage each input exactly as an upload would, then merge them in argument order.
A ":90", ":180" or ":270" suffix rotates every page of that input.`,
		Example: "  stagingctl merge -o out.pdf cover.pdf scan.pdf:90",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := opts.pipeline(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer p.Close()

			items := make([]models.MergeItem, 0, len(args))
			discard := func() {
				for _, item := range items {
					p.Store.Delete(ctx, item.StagingID)
				}
			}
			for _, arg := range args {
				path, rotation := parseMergeArg(arg)
				f, err := os.Open(path)
				if err != nil {
					discard()
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				staged, err := p.Ingest.Ingest(ctx, f, filepath.Base(path))
				f.Close()
				if err != nil {
					discard()
					return err
				}
				items = append(items, models.MergeItem{StagingID: staged.ID, Rotation: rotation})
			}

			merged, err := p.Merge.Process(ctx, items)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, merged, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes, %d inputs)\n", output, len(merged), len(items))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "merged_document.pdf", "Output file")
	return cmd
}

// parseMergeArg splits "path:rotation". A suffix that is not a number is
// part of the path.
func parseMergeArg(arg string) (string, models.Rotation) {
	i := strings.LastIndex(arg, ":")
	if i < 0 {
		return arg, models.RotateNone
	}
	n, err := strconv.Atoi(arg[i+1:])
	if err != nil {
		return arg, models.RotateNone
	}
	return arg[:i], models.Rotation(n).Normalize()
}
