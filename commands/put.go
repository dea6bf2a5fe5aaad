package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/storage"
)

var PutCmd = Put{
	policy: "fail",
}

// Put uploads a local file to the storage backend.
type Put struct {
	file   string
	dest   string
	policy string
}

func (cmd *Put) Command(options *Options) *cobra.Command {
	c := &cobra.Command{
		Use:   "put",
		Short: "Uploads a file to the storage backend",
		Long: `Uploads a local file to a path on the storage backend, e.g. to restore an index
workbook. The --policy option decides what happens if the destination already exists.`,
		Example: `  leo-ring put --file ./202403.xlsx --dest /Shared/Ring/Sheets/202403.xlsx --policy replace`,
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if strings.TrimSpace(cmd.file) == "" {
				return fmt.Errorf("--file is a required option")
			}

			if strings.TrimSpace(cmd.dest) == "" {
				return fmt.Errorf("--dest is a required option")
			}

			policy, err := storage.ParsePolicy(cmd.policy)
			if err != nil {
				return err
			}

			_, services, err := services(options)
			if err != nil {
				return err
			}

			store, err := services.Store(c.Context())
			if err != nil {
				return err
			}

			item, err := storage.UploadFile(c.Context(), store, cmd.file, cmd.dest, policy)
			if err != nil {
				return err
			}

			log.Infof("uploaded %v to %v", cmd.file, item.Path())
			fmt.Fprintf(c.OutOrStdout(), "%v\n", item.WebURL)

			return nil
		},
	}

	c.Flags().StringVar(&cmd.file, "file", cmd.file, "Local file to upload")
	c.Flags().StringVar(&cmd.dest, "dest", cmd.dest, "Destination path e.g. /Shared/Ring/Sheets/202403.xlsx")
	c.Flags().StringVar(&cmd.policy, "policy", cmd.policy, "Conflict policy: fail, skip or replace")

	return c
}
