// Package scheduler runs recurring tasks on cron schedules and logs their results.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Task is one firing of scheduled work. The returned report is logged by the
// scheduler; tasks do not log their own results.
type Task func(ctx context.Context) (slog.LogValuer, error)

// Config controls schedule interpretation.
type Config struct {
	// Timezone is an IANA zone name used to interpret cron specs. Empty means UTC.
	Timezone string
	// RunOnStart fires every task once when Start is called.
	RunOnStart bool
}

type entry struct {
	name string
	spec string
	task Task
	id   cron.EntryID
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron       *cron.Cron
	parser     cron.Parser
	logger     *slog.Logger
	runOnStart bool

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
	wg      sync.WaitGroup
}

// New creates a scheduler. Cron specs use the standard 5-field format or a
// descriptor such as @hourly.
func New(cfg Config, logger *slog.Logger) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}

	logger = logger.With("component", "scheduler")
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronLog := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		parser:     parser,
		logger:     logger,
		runOnStart: cfg.RunOnStart,
		ctx:        ctx,
		cancel:     cancel,
		entries:    make(map[string]*entry),
	}, nil
}

// Add registers a task under a unique name.
func (s *Scheduler) Add(name, spec string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("task %q already scheduled", name)
	}

	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("failed to parse cron expression %q: %w", spec, err)
	}

	e := &entry{name: name, spec: spec, task: task}
	id, err := s.cron.AddFunc(spec, func() {
		_ = s.run(s.ctx, e)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	e.id = id
	s.entries[name] = e

	s.logger.Info("Task scheduled",
		"task", name,
		"schedule", spec,
		"next_run", s.cron.Entry(id).Schedule.Next(time.Now()).Format(time.RFC3339))
	return nil
}

// Start begins firing tasks. With RunOnStart every task also fires once now,
// in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "tasks", len(s.entries))

	if !s.runOnStart {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		s.wg.Add(1)
		go func(e *entry) {
			defer s.wg.Done()
			_ = s.run(s.ctx, e)
		}(e)
	}
}

// Run fires the named task once, synchronously, and returns its error.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	return s.run(ctx, e)
}

// Stop prevents further firings and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()

	startDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(startDone)
	}()

	defer s.cancel()
	for _, done := range []<-chan struct{}{cronDone.Done(), startDone} {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	logger := s.logger.With(
		"task", e.name,
		"run_id", uuid.NewString(),
	)
	logger.InfoContext(ctx, "Task triggered")

	start := time.Now()
	report, err := e.task(ctx)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.WarnContext(ctx, "Task cancelled", "duration_ms", duration.Milliseconds())
			return err
		}
		attrs := []any{"error", err, "duration_ms", duration.Milliseconds()}
		if report != nil {
			attrs = append(attrs, "report", report)
		}
		logger.ErrorContext(ctx, "Task failed", attrs...)
		return err
	}

	attrs := []any{"duration_ms", duration.Milliseconds()}
	if report != nil {
		attrs = append(attrs, "report", report)
	}
	logger.InfoContext(ctx, "Task completed", attrs...)
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

var _ cron.Logger = cronLogger{}
