package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/jobs"
)

var (
	settleWorker bool
	expireWorker bool
)

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settle platform fees for completed bookings",
	Long:  "Run one platform-fee settlement pass, or with --worker run it on the configured cron schedule.",
	Run: func(_ *cobra.Command, _ []string) {
		app := mustCreateApplication()
		defer app.Close()

		lock, closeLock := app.newSettlementLock()
		defer closeLock()

		job := jobs.NewPlatformFeeJob(app.settlementService, jobs.NewRunner(lock, jobs.NewMetrics(prometheus.DefaultRegisterer)))
		if !settleWorker {
			job.Run(context.Background())
			return
		}

		scheduler := jobs.NewScheduler(app.cfg.Settlement.Location)
		if err := job.Schedule(scheduler, app.cfg.Settlement.Schedule); err != nil {
			logrus.WithError(err).Fatal("Invalid settlement schedule")
		}
		scheduler.Start()
		logrus.WithFields(logrus.Fields{
			"schedule": app.cfg.Settlement.Schedule,
			"timezone": scheduler.Location().String(),
		}).Info("Settlement scheduler started")

		waitForShutdown()
		logrus.Info("Settlement scheduler shutdown requested")
		<-scheduler.Stop().Done()
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Close subscription periods whose validity window has ended",
	Run: func(_ *cobra.Command, _ []string) {
		app := mustCreateApplication()
		defer app.Close()

		fn := func(ctx context.Context) error {
			closed, err := app.subscriptionService.RunExpirationBatch(ctx)
			if closed > 0 {
				logrus.WithField("job", "expire_subscriptions").WithField("closed", closed).Info("Expired subscriptions closed")
			}
			return err
		}

		if expireWorker {
			runWorker("expire_subscriptions", app.cfg.Jobs.ExpirationCheckInterval, fn)
			return
		}

		ctx := context.Background()
		runJob("expire_subscriptions", func() error { return fn(ctx) })
	},
}

func init() {
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(expireCmd)

	settleCmd.Flags().BoolVar(&settleWorker, "worker", false, "Run continuously on the configured cron schedule")
	expireCmd.Flags().BoolVar(&expireWorker, "worker", false, "Run continuously using configured interval")
}

func runWorker(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(ctx) })
		}
	}
}

func waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
