package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regwatch/docharvest/internal/admin"
	"github.com/regwatch/docharvest/internal/clock/system"
	"github.com/regwatch/docharvest/internal/config"
	"github.com/regwatch/docharvest/internal/harvest"
	"github.com/regwatch/docharvest/internal/harvesters/feed"
	"github.com/regwatch/docharvest/internal/harvesters/listing"
	"github.com/regwatch/docharvest/internal/logging"
	"github.com/regwatch/docharvest/internal/scheduler"
	"github.com/regwatch/docharvest/internal/store/local"
)

// newRunCmd creates and configures the 'run' subcommand, which starts the
// harvest scheduler and blocks until it is signaled to stop.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Starts the harvest scheduler",
		Long: `Runs the harvest loop over the configured source roster. By default the
loop fires weekly at the configured slot; --hourly fires at every hour
boundary and --once performs a single pass and exits.`,
		RunE: runHarvest,
	}
	cmd.Flags().Bool("once", false, "perform a single pass and exit")
	cmd.Flags().Bool("hourly", false, "fire at every hour boundary")
	return cmd
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if once, _ := cmd.Flags().GetBool("once"); once {
		cfg.Schedule.Once = true
	}
	if hourly, _ := cmd.Flags().GetBool("hourly"); hourly {
		cfg.Schedule.Hourly = true
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	store, err := local.New(local.Config{
		Root:          cfg.Storage.Root,
		AttachmentExt: cfg.Storage.AttachmentExt,
	})
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck // indexes flushed per write

	roster, err := buildRoster(cfg, logger)
	if err != nil {
		return err
	}
	if len(roster) == 0 {
		return fmt.Errorf("no sources configured")
	}

	runLogger := func(now time.Time) (*zap.Logger, func(), error) {
		l, _, closeFn, err := logging.NewRunLogger(cfg.Logging.Dir, cfg.Logging.Level, now)
		return l, closeFn, err
	}

	sched := scheduler.New(
		schedulerConfig(cfg),
		roster,
		store,
		system.New(),
		logger,
		runLogger,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Admin.Port > 0 {
		adminSrv := admin.NewServer(func() string { return sched.State().String() }, logger)
		go func() {
			if err := adminSrv.ListenAndServe(ctx, cfg.Admin.Port); err != nil {
				logger.Error("admin server failed", zap.Error(err))
			}
		}()
	}

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func schedulerConfig(cfg config.Config) scheduler.Config {
	mode := scheduler.ModeWeekly
	switch {
	case cfg.Schedule.Once:
		mode = scheduler.ModeOnce
	case cfg.Schedule.Hourly:
		mode = scheduler.ModeHourly
	}
	return scheduler.Config{
		Mode:       mode,
		WindowDays: cfg.Schedule.WindowDays,
		Weekday:    cfg.ScheduleWeekday(),
		Hour:       cfg.Schedule.Hour,
		Minute:     cfg.Schedule.Minute,
		Backoff:    cfg.Backoff(),
	}
}

// buildRoster assembles harvesters from the source map in name order, so a
// pass always visits sources in a stable sequence.
func buildRoster(cfg config.Config, logger *zap.Logger) ([]harvest.Harvester, error) {
	client := &http.Client{Timeout: cfg.HTTPTimeout()}

	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	roster := make([]harvest.Harvester, 0, len(names))
	for _, name := range names {
		src := cfg.Sources[name]
		basis := harvest.BasisCanonicalURL
		if src.IDBasis == "raw" {
			basis = harvest.BasisRawURL
		}
		switch src.Kind {
		case "feed":
			roster = append(roster, feed.New(feed.Config{
				Name:      name,
				FeedURL:   src.URL,
				Language:  src.Language,
				DocType:   src.DocType,
				Basis:     basis,
				RPS:       src.RPS,
				UserAgent: cfg.HTTP.UserAgent,
			}, client, logger))
		case "listing":
			roster = append(roster, listing.New(listing.Config{
				Name:      name,
				IndexURL:  src.URL,
				Language:  src.Language,
				DocType:   src.DocType,
				Basis:     basis,
				RPS:       src.RPS,
				UserAgent: cfg.HTTP.UserAgent,
				Selectors: listing.Selectors{
					Item:  src.ItemSelector,
					Link:  src.LinkSelector,
					Title: src.TitleSelector,
					Date:  src.DateSelector,
					Body:  src.BodySelector,
				},
			}, client, logger))
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", name, src.Kind)
		}
	}
	return roster, nil
}
