// Package scheduler runs periodic maintenance jobs (export refresh, backups)
// on cron specs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mbolis/freewill-survey/log"
	"github.com/robfig/cron/v3"
)

type Job func(ctx context.Context) error

type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under name on spec (standard 5-field cron or
// descriptors such as "@every 5m"). An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if spec == "" {
		log.Debugf("scheduler.%s: disabled", name)
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		log.Debugf("scheduler.%s: run", name)
		if err := job(s.ctx); err != nil {
			log.Errorf("scheduler.%s: %s", name, err)
		}
	})
	if err != nil {
		return err
	}
	log.Infof("Scheduled %s on %q", name, spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish, then cancels their context.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		<-s.cron.Stop().Done()
		s.cancel()
	})
}

// Jobs is the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}
