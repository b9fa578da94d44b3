package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the reminder job daily on the configured cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newNotifier(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		loc, err := n.cfg.Location()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, id, err := newScheduler(n.cfg.Scheduler.Cron, loc, n.log, func() {
			_, _ = n.run(ctx)
		})
		if err != nil {
			return err
		}

		c.Start()
		n.log.Info("scheduler started",
			zap.String("cron", n.cfg.Scheduler.Cron),
			zap.String("timezone", loc.String()),
			zap.Time("next", c.Entry(id).Next),
		)

		var immediate <-chan struct{}
		if runNow {
			immediate = triggerNow(c, id)
		}

		<-ctx.Done()
		n.log.Info("shutting down scheduler, waiting for running job")
		shutdown(c, immediate)
		return nil
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&runNow, "run-now", false, "also run once immediately on start")
}

// newScheduler registers fn on the cron expression expr in loc. Overlapping runs are skipped and
// panics are recovered and logged.
func newScheduler(expr string, loc *time.Location, log *zap.Logger, fn func()) (*cron.Cron, cron.EntryID, error) {
	cl := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	id, err := c.AddFunc(expr, fn)
	if err != nil {
		return nil, 0, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	return c, id, nil
}

// triggerNow runs entry id once outside its schedule. The returned channel is
// closed when that run returns.
func triggerNow(c *cron.Cron, id cron.EntryID) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Entry(id).WrappedJob.Run()
	}()
	return done
}

// shutdown stops c and blocks until scheduled runs and the immediate run, if
// any, have returned.
func shutdown(c *cron.Cron, immediate <-chan struct{}) {
	<-c.Stop().Done()
	if immediate != nil {
		<-immediate
	}
}
