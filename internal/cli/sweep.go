package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove staged files older than the maximum age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.pipeline(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer p.Close()

			result := p.Sweeper.Trigger(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned: %d\n", result.Scanned)
			fmt.Fprintf(out, "Removed: %d\n", result.Removed)
			fmt.Fprintf(out, "Failed:  %d\n", result.Failed)
			if result.Err != nil {
				return fmt.Errorf("sweep incomplete: %w", result.Err)
			}
			return nil
		},
	}
}
