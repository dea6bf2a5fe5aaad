package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/leo-automation/leo-ring/config"
	"github.com/leo-automation/leo-ring/log"
)

var ScheduleCmd = Schedule{
	interval: 0,
	action:   "",
}

// Schedule is the timer trigger. It can also be installed as an OS service.
type Schedule struct {
	interval time.Duration
	action   string
}

func (s *Schedule) Command(options *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Runs the archiver immediately and then periodically",
		Long: `Runs the archiver immediately and then every SCHEDULE_INTERVAL. A run that is still
in progress when the next one is due is not interrupted and the missed run is skipped.

With --service the command installs, uninstalls, starts or stops the scheduler as an
OS service.`,
		Example: `  leo-ring schedule --interval 30m
  sudo leo-ring --env /etc/leo-ring/leo-ring.env schedule --service install`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.execute(cmd.Context(), options)
		},
	}

	cmd.Flags().DurationVar(&s.interval, "interval", s.interval, "Run interval (default SCHEDULE_INTERVAL or 1h)")
	cmd.Flags().StringVar(&s.action, "service", s.action, "Service control action: install, uninstall, start or stop")

	return cmd
}

func (s *Schedule) execute(ctx context.Context, options *Options) error {
	cfg, err := config.Load(options.EnvFile)
	if err != nil {
		return err
	}

	interval := cfg.ScheduleInterval
	if s.interval > 0 {
		interval = s.interval
	}

	arguments := []string{}
	if options.EnvFile != "" {
		arguments = append(arguments, "--env", options.EnvFile)
	}
	arguments = append(arguments, "schedule", "--interval", interval.String())

	svcConfig := &service.Config{
		Name:        APP,
		DisplayName: "Doorbell recording archiver",
		Description: "Copies doorbell recordings to cloud storage on a schedule",
		Arguments:   arguments,
	}

	p := &program{
		interval: interval,
		trigger: &trigger{
			options: options,
		},
	}

	svc, err := service.New(p, svcConfig)
	if err != nil {
		return err
	}

	if s.action != "" {
		if err := service.Control(svc, s.action); err != nil {
			return fmt.Errorf("failed to %v service (%w)", s.action, err)
		}

		fmt.Printf("   ... service %v completed\n", s.action)

		return nil
	}

	return svc.Run()
}

// program implements service.Interface.
type program struct {
	interval time.Duration
	trigger  invoker
	cancel   context.CancelFunc
	done     chan struct{}
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())

	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		p.loop(ctx)
	}()

	return nil
}

func (p *program) Stop(s service.Service) error {
	log.Infof("stopping scheduler")

	if p.cancel != nil {
		p.cancel()
		<-p.done
	}

	return nil
}

// loop runs once immediately and then on every tick. Ticks that arrive while a run is
// in progress are dropped by the ticker.
func (p *program) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *program) tick(ctx context.Context) {
	results, err := p.trigger.invoke(ctx)
	if err != nil {
		log.Errorf("%v", err)
		return
	}

	for _, r := range results {
		log.Infof("ID=%v, Created At %v, %v", r.ID, r.CreatedAt.Format(time.RFC3339), r.Status)
	}
}

var _ invoker = (*trigger)(nil)
var _ service.Interface = (*program)(nil)
