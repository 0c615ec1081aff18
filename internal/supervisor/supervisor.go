// Package supervisor runs named periodic tasks. A failing or panicking run is
// reported and the schedule continues.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ton-buy-tracker/internal/observability"
)

// ErrUnknownTask is returned for operations on a task that was never added.
var ErrUnknownTask = errors.New("unknown task")

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// Reporter receives every failed run.
type Reporter func(task string, err error)

type entry struct {
	id     cron.EntryID
	run    func()
	cancel context.CancelFunc
}

// Supervisor schedules tasks on a cron scheduler.
type Supervisor struct {
	cron     *cron.Cron
	logger   *zap.Logger
	reporter Reporter

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu    sync.Mutex
	tasks map[string]*entry
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// WithReporter sets an additional error reporter.
func WithReporter(r Reporter) Option {
	return func(s *Supervisor) { s.reporter = r }
}

// New creates a stopped supervisor. Tasks inherit ctx.
func New(ctx context.Context, opts ...Option) *Supervisor {
	s := &Supervisor{
		logger: zap.NewNop(),
		tasks:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseCtx, s.baseCancel = context.WithCancel(ctx)

	cl := cronLogger{s.logger.Named("cron").Sugar()}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// Add schedules task every interval. Each run is bounded by timeout when
// timeout > 0. Intervals below one second are rounded up to one second.
func (s *Supervisor) Add(name string, every, timeout time.Duration, task Task) error {
	if every <= 0 {
		return fmt.Errorf("task %s: interval must be positive", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %s already scheduled", name)
	}

	taskCtx, cancel := context.WithCancel(s.baseCtx)
	e := &entry{cancel: cancel}
	e.run = func() { s.runOnce(taskCtx, name, timeout, task) }
	e.id = s.cron.Schedule(cron.Every(every), cron.FuncJob(e.run))
	s.tasks[name] = e

	s.logger.Info("task scheduled", zap.String("task", name), zap.Duration("every", every))
	return nil
}

// RunNow runs a task synchronously outside its schedule.
func (s *Supervisor) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	e.run()
	return nil
}

// Remove cancels a single task and unschedules it.
func (s *Supervisor) Remove(name string) error {
	s.mu.Lock()
	e, ok := s.tasks[name]
	delete(s.tasks, name)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	s.cron.Remove(e.id)
	e.cancel()
	return nil
}

// Start begins scheduling.
func (s *Supervisor) Start() {
	s.cron.Start()
}

// Stop cancels all running tasks and waits for them to return.
func (s *Supervisor) Stop() {
	s.baseCancel()
	<-s.cron.Stop().Done()
}

func (s *Supervisor) runOnce(ctx context.Context, name string, timeout time.Duration, task Task) {
	if ctx.Err() != nil {
		return
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	err := s.call(ctx, name, task)
	dur := time.Since(started)

	switch {
	case err == nil:
		observability.RecordTaskRun(name, "ok", dur)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		observability.RecordTaskRun(name, "canceled", dur)
	default:
		observability.RecordTaskRun(name, "error", dur)
		s.logger.Error("task failed", zap.String("task", name), zap.Duration("duration", dur), zap.Error(err))
		if s.reporter != nil {
			s.reporter(name, err)
		}
	}
}

func (s *Supervisor) call(ctx context.Context, name string, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked",
				zap.String("task", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("task %s panicked: %v", name, r)
		}
	}()
	return task(ctx)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
