package jobs

import (
	"context"

	"github.com/vibast-solutions/ms-go-hotel-billing/app/factory"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/service"
)

const PlatformFeeJobName = "settle_platform_fees"

type feeSettler interface {
	SettlePlatformFees(ctx context.Context) (*service.SettlementResult, error)
}

type PlatformFeeJob struct {
	settler feeSettler
	runner  *Runner
}

func NewPlatformFeeJob(settler feeSettler, runner *Runner) *PlatformFeeJob {
	return &PlatformFeeJob{settler: settler, runner: runner}
}

// Run performs one settlement pass. It never returns an error.
func (j *PlatformFeeJob) Run(ctx context.Context) {
	j.runner.Run(ctx, PlatformFeeJobName, func(ctx context.Context) error {
		result, err := j.settler.SettlePlatformFees(ctx)
		if err != nil {
			return err
		}
		factory.NewModuleLogger("jobs").
			WithField("job", PlatformFeeJobName).
			WithField("evaluated", result.Evaluated).
			WithField("settled", result.Settled).
			WithField("skipped", result.Skipped).
			WithField("total_fees", result.TotalFees.StringFixed(2)).
			Info("Platform fee settlement finished")
		return nil
	})
}

// Schedule registers the job on the scheduler.
func (j *PlatformFeeJob) Schedule(s *Scheduler, spec string) error {
	return s.Add(PlatformFeeJobName, spec, func() { j.Run(context.Background()) })
}
