// internal/scheduler/scheduler.go
package scheduler

import (
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/user/artifactdl/internal/state"
)

// Handler is the callback invoked when a watch fires.
type Handler func(watch state.Watch)

// Scheduler evaluates cron expressions from the watch store and fires watches
// through a handler callback.
type Scheduler struct {
	store   *state.WatchStore
	handler Handler
	cron    *cron.Cron
	mu      sync.Mutex
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether expr parses as a cron schedule.
func ValidateSchedule(expr string) error {
	_, err := cronParser.Parse(expr)
	return err
}

// New creates a new Scheduler backed by the given watch store. The handler is
// called each time a watch fires.
func New(store *state.WatchStore, handler Handler) *Scheduler {
	return &Scheduler{
		store:   store,
		handler: handler,
		cron:    newCron(),
	}
}

func newCron() *cron.Cron {
	// Skip a run while the previous one for the same watch is still going.
	return cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
}

// Start loads watches from the store, registers enabled watches that have a
// schedule as cron entries, and starts the cron ticker. Returns the number of
// watches scheduled.
func (s *Scheduler) Start() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	watches, err := s.store.List()
	if err != nil {
		return 0, err
	}

	scheduled := 0
	for _, w := range watches {
		if w.Schedule == "" || !w.Enabled {
			continue
		}

		watch := *w
		_, err := s.cron.AddFunc(watch.Schedule, func() {
			slog.Info("cron firing watch", "name", watch.Name, "conversation_id", watch.ConversationID)
			s.handler(watch)
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", watch.Name, "schedule", watch.Schedule, "error", err)
			continue
		}
		scheduled++
		slog.Info("scheduled watch", "name", watch.Name, "schedule", watch.Schedule)
	}

	s.cron.Start()
	return scheduled, nil
}

// Reload stops the existing cron, creates a new one, and calls Start() again.
func (s *Scheduler) Reload() (int, error) {
	s.mu.Lock()
	ctx := s.cron.Stop()
	s.cron = newCron()
	s.mu.Unlock()
	<-ctx.Done()
	return s.Start()
}

// Stop stops the cron ticker and waits for running handlers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	ctx := s.cron.Stop()
	s.mu.Unlock()
	<-ctx.Done()
}
