package cli

import (
	"fmt"
	"os"

	"github.com/Lllllllleong/pdfmergeflow/internal/pdfengine"
	"github.com/spf13/cobra"
)

func newPageCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pagecount <file.pdf>...",
		Short: "Print the page count of each PDF",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := pdfengine.New()
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				n, err := engine.PageCount(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("could not read PDF %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", path, n)
			}
			return nil
		},
	}
}
