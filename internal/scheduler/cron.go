package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/helliott20/prunerr-sub001/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ErrUnknownTask is returned when no task is registered under the name
var ErrUnknownTask = errors.New("unknown task")

// ErrAlreadyRunning is returned when an invocation of the same task is in
// flight; single-flight is per task name, not global.
var ErrAlreadyRunning = errors.New("task already running")

// TaskFunc is one schedulable task: parameterless, safe to invoke at any
// time, returning task-specific counters.
type TaskFunc func(ctx context.Context) (map[string]int, error)

// TaskResult is the structured outcome of one task run
type TaskResult struct {
	Task      string         `json:"task"`
	RunID     string         `json:"runId"`
	Success   bool           `json:"success"`
	StartedAt time.Time      `json:"startedAt"`
	Duration  time.Duration  `json:"duration"`
	Counters  map[string]int `json:"counters,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// TaskStatus is the advisory view of one registered task
type TaskStatus struct {
	Name       string      `json:"name"`
	CronExpr   string      `json:"cronExpr,omitempty"`
	Running    bool        `json:"running"`
	NextRun    *time.Time  `json:"nextRun,omitempty"`
	LastResult *TaskResult `json:"lastResult,omitempty"`
}

type task struct {
	name       string
	expr       string
	fn         TaskFunc
	entryID    cron.EntryID
	running    bool
	lastResult *TaskResult
}

// Scheduler runs registered tasks on cron schedules and on demand, enforcing
// single-flight per task name. A crashing task is converted into a failed
// result; it never takes the scheduler down and never leaves the task
// permanently marked running.
type Scheduler struct {
	cron   *cron.Cron
	mu     sync.Mutex
	tasks  map[string]*task
	logger *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		tasks:  make(map[string]*task),
		logger: logger,
	}
}

// Register adds a named task. A non-empty cron expression schedules it; an
// empty one registers it for manual triggering only.
func (s *Scheduler) Register(name, cronExpr string, fn TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %q already registered", name)
	}

	t := &task{name: name, expr: cronExpr, fn: fn}

	if cronExpr != "" {
		entryID, err := s.cron.AddFunc(cronExpr, func() {
			if _, err := s.RunNow(name); err != nil {
				if errors.Is(err, ErrAlreadyRunning) {
					s.logger.WithField("task", name).Warn("Skipping scheduled run, task still running")
					return
				}
				s.logger.WithError(err).WithField("task", name).Error("Scheduled run failed to start")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %q: %w", name, err)
		}
		t.entryID = entryID
	}

	s.tasks[name] = t
	return nil
}

// Start starts the cron dispatcher
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop stops the cron dispatcher; in-flight task runs complete
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// RunNow executes the named task immediately, blocking until it completes.
// Fails with ErrUnknownTask or, when another invocation of the same task is
// in flight, ErrAlreadyRunning.
func (s *Scheduler) RunNow(name string) (*TaskResult, error) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	if t.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrAlreadyRunning, name)
	}
	t.running = true
	s.mu.Unlock()

	result := s.run(t)

	s.mu.Lock()
	t.running = false
	t.lastResult = result
	s.mu.Unlock()

	return result, nil
}

// run executes the task function with panic containment
func (s *Scheduler) run(t *task) *TaskResult {
	result := &TaskResult{
		Task:      t.name,
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	logger := s.logger.WithFields(logrus.Fields{
		"task":   t.name,
		"run_id": result.RunID,
	})
	logger.Info("Task starting")

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Success = false
				result.Error = fmt.Sprintf("task panicked: %v", r)
				logger.WithField("panic", r).Error("Task panicked")
			}
		}()

		counters, err := t.fn(context.Background())
		result.Counters = counters
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			return
		}
		result.Success = true
	}()

	result.Duration = time.Since(result.StartedAt)

	status := "success"
	if !result.Success {
		status = "failure"
		logger.WithField("error", result.Error).Error("Task failed")
	} else {
		logger.WithFields(logrus.Fields{
			"duration": result.Duration.String(),
			"counters": result.Counters,
		}).Info("Task completed")
	}
	metrics.TaskRuns.WithLabelValues(t.name, status).Inc()

	return result
}

// Statuses returns the advisory status of every registered task, including
// the next cron fire time. Next-run times never gate execution.
func (s *Scheduler) Statuses() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		status := TaskStatus{
			Name:       t.name,
			CronExpr:   t.expr,
			Running:    t.running,
			LastResult: t.lastResult,
		}
		if t.expr != "" {
			if next := s.cron.Entry(t.entryID).Next; !next.IsZero() {
				status.NextRun = &next
			}
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}
