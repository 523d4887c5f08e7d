// Package scheduler runs the pipeline on named daily schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is a named five-field cron expression.
type Schedule struct {
	Name string
	Spec string
}

var (
	Morning   = Schedule{Name: "morning", Spec: "0 8 * * *"}
	Afternoon = Schedule{Name: "afternoon", Spec: "0 14 * * *"}
	Evening   = Schedule{Name: "evening", Spec: "0 20 * * *"}
)

// Defaults is used when no schedule is selected.
func Defaults() []Schedule {
	return []Schedule{Morning, Afternoon, Evening}
}

// Interval returns a schedule firing at minute 0 of every n-th hour.
func Interval(hours int) (Schedule, error) {
	if hours < 1 || hours > 23 {
		return Schedule{}, fmt.Errorf("interval must be between 1 and 23 hours, got %d", hours)
	}
	return Schedule{Name: fmt.Sprintf("every %dh", hours), Spec: fmt.Sprintf("0 */%d * * *", hours)}, nil
}

// Describe renders a cron expression for people. Expressions it does not
// recognise are returned unchanged.
func Describe(spec string) string {
	fields := strings.Fields(spec)
	if len(fields) != 5 || fields[2] != "*" || fields[3] != "*" || fields[4] != "*" {
		return spec
	}
	minute, err := strconv.Atoi(fields[0])
	if err != nil {
		return spec
	}
	if n, ok := strings.CutPrefix(fields[1], "*/"); ok {
		hours, err := strconv.Atoi(n)
		if err != nil || minute != 0 {
			return spec
		}
		if hours == 1 {
			return "every hour"
		}
		return fmt.Sprintf("every %d hours", hours)
	}
	hour, err := strconv.Atoi(fields[1])
	if err != nil {
		return spec
	}
	switch {
	case hour == 0 && minute == 0:
		return "every day at midnight"
	case hour == 12 && minute == 0:
		return "every day at noon"
	}
	return fmt.Sprintf("every day at %02d:%02d", hour, minute)
}

// Next returns the first activation of spec after from.
func Next(spec string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return sched.Next(from), nil
}

// LoadLocation resolves a timezone name, falling back to UTC when it is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler fires a job on a set of schedules. A trigger that arrives while
// the previous run is still going is dropped.
type Scheduler struct {
	cron *cron.Cron
	job  Job
	loc  *time.Location

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler for job in loc.
func New(loc *time.Location, job Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		job:     job,
		loc:     loc,
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers a schedule, replacing one with the same name.
func (s *Scheduler) Add(sc Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[sc.Name]; ok {
		s.cron.Remove(id)
		delete(s.entries, sc.Name)
	}
	id, err := s.cron.AddFunc(sc.Spec, func() {
		log.Printf("Scheduled run triggered: %s", sc.Name)
		if err := s.RunOnce(s.ctx); err != nil {
			log.Printf("Scheduled run %s failed: %v", sc.Name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("adding schedule %s (%s): %w", sc.Name, sc.Spec, err)
	}
	s.entries[sc.Name] = id
	log.Printf("Schedule configured: %s (%s, %s)", sc.Name, sc.Spec, Describe(sc.Spec))
	return nil
}

// RunOnce runs the job immediately, outside any schedule.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	log.Println(strings.Repeat("=", 56))
	log.Println("Starting automated run")
	log.Println(strings.Repeat("=", 56))

	start := time.Now()
	if err := s.job(ctx); err != nil {
		log.Printf("Automated run failed after %s: %v", time.Since(start).Round(time.Second), err)
		return err
	}
	log.Printf("Automated run finished in %s", time.Since(start).Round(time.Second))
	return nil
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		log.Printf("Next run: %s", e.Next.In(s.loc).Format("2006-01-02 15:04 MST"))
	}
	log.Printf("Scheduler active with %d schedule(s)", len(s.cron.Entries()))
}

// Stop cancels the running job's context and waits for it to return.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	s.cancel()
	<-s.cron.Stop().Done()
	log.Println("Scheduler stopped")
}
