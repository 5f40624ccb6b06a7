package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/factory"
)

// Scheduler triggers jobs on cron expressions evaluated in a fixed
// timezone. Missed ticks are not replayed.
type Scheduler struct {
	cron   *cron.Cron
	logger logrus.FieldLogger
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := factory.NewModuleLogger("scheduler")
	cronLogger := cronLogrus{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Scheduler{cron: c, logger: logger}
}

func (s *Scheduler) Add(name, spec string, fn func()) error {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		s.logger.WithError(err).WithField("job", name).Error("Failed to schedule job")
		return err
	}
	s.logger.WithField("job", name).WithField("schedule", spec).Info("Scheduled job")
	return nil
}

func (s *Scheduler) Location() *time.Location {
	return s.cron.Location()
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs; the returned context is done once running jobs
// finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

type cronLogrus struct {
	logger logrus.FieldLogger
}

func (l cronLogrus) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l cronLogrus) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(toFields(keysAndValues)).Error(msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
