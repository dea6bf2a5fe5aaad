package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leo-automation/leo-ring/index"
	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/pipeline"
	"github.com/leo-automation/leo-ring/storage"
)

var GetCmd = Get{
	month: "",
	file:  "",
}

// Get retrieves a monthly index workbook and stores it as a TSV (or unconverted .xlsx) file.
type Get struct {
	month string
	file  string
}

func (cmd *Get) Command(options *Options) *cobra.Command {
	c := &cobra.Command{
		Use:   "get",
		Short: "Retrieves a monthly index workbook",
		Long: `Downloads the index workbook for a month from the storage backend. The workbook is
written as-is if the file has an .xlsx extension, otherwise it is converted to TSV.
Without --file the TSV is written to stdout.`,
		Example: `  leo-ring get --month 202403
  leo-ring get --month 202403 --file ./index/202403.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			month, err := parseMonth(cmd.month, time.Now())
			if err != nil {
				return err
			}

			cfg, services, err := services(options)
			if err != nil {
				return err
			}

			store, err := services.Store(c.Context())
			if err != nil {
				return err
			}

			src := pipeline.IndexPath(cfg.Prefix, month)

			if cmd.file == "" {
				return get(c.Context(), store, src, c.OutOrStdout())
			}

			return cmd.save(c.Context(), store, src)
		},
	}

	c.Flags().StringVar(&cmd.month, "month", cmd.month, "Index month as YYYYMM (defaults to the current month)")
	c.Flags().StringVar(&cmd.file, "file", cmd.file, "Output file (.xlsx or .tsv)")

	return c
}

func (cmd *Get) save(ctx context.Context, store storage.Store, src string) error {
	if strings.EqualFold(filepath.Ext(cmd.file), ".xlsx") {
		if err := storage.DownloadFile(ctx, store, src, cmd.file); err != nil {
			return err
		}

		log.Infof("retrieved %v to file %v", src, cmd.file)
		return nil
	}

	dir := filepath.Dir(cmd.file)
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".leo-ring-*.tsv")
	if err != nil {
		return err
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := get(ctx, store, src, tmp); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), cmd.file); err != nil {
		return err
	}

	log.Infof("retrieved %v to file %v", src, cmd.file)

	return nil
}

// get downloads the index workbook and writes it as TSV.
func get(ctx context.Context, store storage.Store, src string, w io.Writer) error {
	var b bytes.Buffer

	if err := store.Download(ctx, src, &b); err != nil {
		return err
	}

	table, err := index.Parse(&b)
	if err != nil {
		return err
	}

	defer table.Close()

	if err := index.MakeTSV(w, table); err != nil {
		return fmt.Errorf("error creating TSV file (%w)", err)
	}

	return nil
}

func parseMonth(s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return now, nil
	}

	month, err := time.ParseInLocation("200601", strings.TrimSpace(s), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --month '%v' - expected YYYYMM e.g. 202403", s)
	}

	return month, nil
}
