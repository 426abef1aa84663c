package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
)

type Task struct {
	ID       cron.EntryID
	Schedule string
	Action   func()
}

type Scheduler struct {
	cron   *cron.Cron
	tasks  map[string]*Task
	mu     sync.RWMutex
	logger logr.Logger
}

func NewScheduler(l logr.Logger) *Scheduler {
	l = l.WithName("scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		tasks:  make(map[string]*Task),
		logger: l,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) AddTask(key string, schedule string, action func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingTask, exists := s.tasks[key]; exists {
		s.cron.Remove(existingTask.ID)
		delete(s.tasks, key)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		s.logger.V(1).Info("Running scheduled task", "key", key)
		action()
	})
	if err != nil {
		return err
	}

	s.tasks[key] = &Task{
		ID:       id,
		Schedule: schedule,
		Action:   action,
	}
	return nil
}

func (s *Scheduler) RemoveTask(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, exists := s.tasks[key]; exists {
		s.cron.Remove(task.ID)
		delete(s.tasks, key)
	}
}

func (s *Scheduler) UpdateTask(key string, schedule string, action func()) error {
	return s.AddTask(key, schedule, action)
}

// Keys returns the registered task keys in order.
func (s *Scheduler) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.tasks))
	for k := range s.tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Scheduler) Schedule(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[key]
	if !ok {
		return "", false
	}
	return task.Schedule, true
}
