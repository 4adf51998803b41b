package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

const DefaultSchedule = "0 1 * * *"

// PayloadPruner deletes archived raw payloads older than a retention window.
type PayloadPruner interface {
	CleanupOldRawPayloads(ctx context.Context, retentionDays int) (int64, error)
}

// Scheduler runs fetch-and-save on a cron schedule in a fixed time zone.
type Scheduler struct {
	scheduler *gocron.Scheduler
	saver     *Saver
	spec      string
	timeout   time.Duration

	pruner        PayloadPruner
	retentionDays int
}

func NewScheduler(saver *Saver, spec string, loc *time.Location) *Scheduler {
	if spec == "" {
		spec = DefaultSchedule
	}
	if loc == nil {
		loc = time.UTC
	}
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		saver:     saver,
		spec:      spec,
		timeout:   2 * time.Minute,
	}
}

// SetPayloadRetention prunes raw payloads older than days after each
// scheduled fetch. A non-positive days keeps payloads forever.
func (s *Scheduler) SetPayloadRetention(pruner PayloadPruner, days int) {
	s.pruner = pruner
	s.retentionDays = days
}

// Start registers the job and starts the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Cron(s.spec).Do(s.runOnce); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.scheduler.StartAsync()

	_, next := s.scheduler.NextRun()
	log.Printf("scheduler: fetch-and-save scheduled %q, next run %s", s.spec, next.Format(time.RFC3339))
	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	log.Println("scheduler: shutting down")
	s.Stop()
	return nil
}

func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runOnce() {
	log.Println("scheduler: running scheduled fetch-and-save")
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result := s.saver.FetchAndSave(ctx)
	if !result.Success {
		log.Printf("scheduler: fetch-and-save failed: %s", result.Error)
	} else {
		log.Printf("scheduler: saved %d forecasts for %s", result.Count, result.SavedDate)
	}

	s.prunePayloads(ctx)
}

func (s *Scheduler) prunePayloads(ctx context.Context) {
	if s.pruner == nil || s.retentionDays <= 0 {
		return
	}
	n, err := s.pruner.CleanupOldRawPayloads(ctx, s.retentionDays)
	if err != nil {
		log.Printf("scheduler: prune raw payloads: %v", err)
		return
	}
	if n > 0 {
		log.Printf("scheduler: pruned %d raw payloads older than %d days", n, s.retentionDays)
	}
}
