package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/storage"
)

var ProbeCmd = Probe{}

// Probe checks that the configured storage backend can see the archive folders.
type Probe struct {
}

func (cmd *Probe) Command(options *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [path...]",
		Short: "Checks that the storage backend can resolve the archive folders",
		Long: `Authenticates with the configured storage backend and looks up each path. With no
arguments the RING_FILE_PREFIX folder is probed.`,
		Example: `  leo-ring probe
  leo-ring probe /Shared/Ring /Shared/Ring/Sheets`,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, services, err := services(options)
			if err != nil {
				return err
			}

			store, err := services.Store(c.Context())
			if err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				paths = []string{cfg.Prefix}
			}

			return probe(c, store, paths)
		},
	}
}

func probe(c *cobra.Command, store storage.Store, paths []string) error {
	failed := 0

	for _, p := range paths {
		item, err := store.Info(c.Context(), p)
		if err != nil {
			log.Warnf("%v: %v", p, err)
			fmt.Fprintf(c.OutOrStdout(), "  %-40v  failed (%v)\n", p, err)
			failed++
			continue
		}

		fmt.Fprintf(c.OutOrStdout(), "  %-40v  ok     %v\n", p, item.ID)
	}

	if failed > 0 {
		return fmt.Errorf("%v of %v paths could not be resolved", failed, len(paths))
	}

	return nil
}
