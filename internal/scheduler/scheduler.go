package scheduler

import (
	"fmt"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/robfig/cron/v3"
)

// Job is a unit of periodic background work.
type Job interface {
	Run() error
	Name() string
}

type Scheduler struct {
	cron *cron.Cron
	log  logger.Logger
}

func New(log logger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", logger.IntField("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

// AddJob registers job under a standard five-field cron expression or a descriptor
// such as "@every 1m".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.execute(job)
	})
	if err != nil {
		return fmt.Errorf("register job %s: %w", job.Name(), err)
	}

	s.log.Info("Job registered",
		logger.StringField("schedule", schedule),
		logger.StringField("job", job.Name()))
	return nil
}

// RunNow executes job on the calling goroutine, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info("Running job immediately", logger.StringField("job", job.Name()))
	return job.Run()
}

func (s *Scheduler) execute(job Job) {
	start := time.Now()
	s.log.Debug("Running job", logger.StringField("job", job.Name()))

	if err := job.Run(); err != nil {
		s.log.Error("Job failed",
			logger.StringField("job", job.Name()),
			logger.ErrorField("error", err))
		return
	}
	s.log.Debug("Job completed",
		logger.StringField("job", job.Name()),
		logger.DurationField("took", time.Since(start)))
}
