package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/fxwallet/fxwallet/internal/logging"
)

// DefaultSchedule matches the upstream publication polling interval.
const DefaultSchedule = "@every 1m"

// Runnable is a unit of scheduled work.
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	jobs   []cron.Job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		logger: logging.Component(logger, "scheduler"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers job under a cron spec such as "@every 1m" or "0 16 * * MON-FRI".
// An empty spec means DefaultSchedule.
func (s *Scheduler) AddJob(spec string, job Runnable) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	// The startup run and the ticks share one guard, so a slow run is never
	// overlapped by another run of the same job.
	guarded := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).
		Then(cron.FuncJob(func() { s.run(job) }))
	if _, err := s.cron.AddJob(spec, guarded); err != nil {
		return err
	}
	s.jobs = append(s.jobs, guarded)
	s.logger.Info("job registered", slog.String("job", job.Name()), slog.String("schedule", spec))
	return nil
}

// Start begins the cron loop and kicks off one immediate run of every
// registered job in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, job := range s.jobs {
			job.Run()
		}
	}()
	s.logger.Info("scheduler started")
}

// Stop cancels running jobs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(job Runnable) {
	s.logger.Debug("running job", slog.String("job", job.Name()))
	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("job failed", slog.String("job", job.Name()), slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("job completed", slog.String("job", job.Name()))
}
