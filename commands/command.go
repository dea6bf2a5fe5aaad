package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leo-automation/leo-ring/config"
	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/pipeline"
)

const APP = "leo-ring"

// Options are the flags shared by all commands.
type Options struct {
	EnvFile string
	Debug   bool
}

type Command interface {
	Command(options *Options) *cobra.Command
}

var commands = []Command{
	&RunCmd,
	&ServeCmd,
	&ScheduleCmd,
	&AuthoriseCmd,
	&RingLoginCmd,
	&ProbeCmd,
	&GetCmd,
	&PutCmd,
	&VersionCmd,
}

// Root builds the command tree.
func Root() *cobra.Command {
	options := Options{}

	root := &cobra.Command{
		Use:   APP,
		Short: "Archives doorbell recordings to cloud storage",
		Long: `Copies recent doorbell event recordings to OneDrive (or Google Drive) and keeps
a monthly spreadsheet index of everything archived.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts := log.FromEnv()
			if options.Debug {
				opts.Level = "debug"
			}

			log.Init(opts)
		},
	}

	root.PersistentFlags().StringVar(&options.EnvFile, "env", "", "Environment file with the settings (default is .env if present)")
	root.PersistentFlags().BoolVar(&options.Debug, "debug", false, "Enable debugging information")

	for _, c := range commands {
		root.AddCommand(c.Command(&options))
	}

	return root
}

// processed is the JSON response for an invocation.
type processed struct {
	Processed []pipeline.Result `json:"processed"`
}

func writeJSON(w io.Writer, results []pipeline.Result) error {
	if results == nil {
		results = []pipeline.Result{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(processed{Processed: results})
}

// trigger runs the pipeline for the timer and HTTP entry points, never more than one
// invocation at a time.
type trigger struct {
	sync.Mutex
	options *Options
	metrics *pipeline.Metrics
}

var errBusy = fmt.Errorf("an archive run is already in progress")

func (t *trigger) invoke(ctx context.Context) ([]pipeline.Result, error) {
	if !t.TryLock() {
		return nil, errBusy
	}

	defer t.Unlock()

	return invoke(ctx, t.options, t.metrics)
}

// invoke loads the configuration and archives the current lookback window.
func invoke(ctx context.Context, options *Options, metrics *pipeline.Metrics) ([]pipeline.Result, error) {
	log.SetRun(uuid.NewString())

	cfg, err := config.Load(options.EnvFile)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.Setup(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}

	return p.Run(ctx)
}

// services loads the configuration for the storage-only commands.
func services(options *Options) (*config.Config, *pipeline.Services, error) {
	cfg, err := config.Load(options.EnvFile)
	if err != nil {
		return nil, nil, err
	}

	return cfg, pipeline.NewServices(cfg, nil), nil
}
