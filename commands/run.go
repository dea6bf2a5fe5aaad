package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var RunCmd = Run{}

// Run is the on-demand invocation.
type Run struct {
}

func (r *Run) Command(options *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Archives the recordings in the lookback window and prints the results as JSON",
		Example: `  leo-ring run
  leo-ring --env /etc/leo-ring/leo-ring.env run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := invoke(cmd.Context(), options, nil)
			if err != nil {
				return err
			}

			if err := writeJSON(os.Stdout, results); err != nil {
				return fmt.Errorf("error writing results (%w)", err)
			}

			return nil
		},
	}
}
