// internal/scheduler/scheduler_test.go
package scheduler

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/artifactdl/internal/state"
)

func TestSchedulerFiresWatch(t *testing.T) {
	dir := t.TempDir()
	store := state.NewWatchStore(filepath.Join(dir, "watches.json"))

	watch := &state.Watch{
		Name:           "every-second",
		ConversationID: "11111111-1111-1111-1111-111111111111",
		Schedule:       "* * * * * *",
		Enabled:        true,
	}
	if err := store.Add(watch); err != nil {
		t.Fatal(err)
	}

	var fires atomic.Int32
	handler := func(w state.Watch) {
		fires.Add(1)
	}

	sched := New(store, handler)
	if _, err := sched.Start(); err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	// Wait up to 2.5 seconds for at least one fire
	deadline := time.After(2500 * time.Millisecond)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			t.Fatalf("handler did not fire within 2.5s, fires=%d", fires.Load())
		case <-ticker.C:
			if fires.Load() > 0 {
				return
			}
		}
	}
}

func TestSchedulerSkipsDisabled(t *testing.T) {
	dir := t.TempDir()
	store := state.NewWatchStore(filepath.Join(dir, "watches.json"))

	watch := &state.Watch{
		Name:           "disabled-watch",
		ConversationID: "11111111-1111-1111-1111-111111111111",
		Schedule:       "* * * * * *",
		Enabled:        false,
	}
	if err := store.Add(watch); err != nil {
		t.Fatal(err)
	}

	var fires atomic.Int32
	handler := func(w state.Watch) {
		fires.Add(1)
	}

	sched := New(store, handler)
	if _, err := sched.Start(); err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	time.Sleep(2 * time.Second)

	if n := fires.Load(); n != 0 {
		t.Errorf("expected 0 fires for disabled watch, got %d", n)
	}
}

func TestSchedulerNoScheduleWatches(t *testing.T) {
	dir := t.TempDir()
	store := state.NewWatchStore(filepath.Join(dir, "watches.json"))

	watch := &state.Watch{
		Name:           "no-schedule",
		ConversationID: "11111111-1111-1111-1111-111111111111",
		Schedule:       "",
		Enabled:        true,
	}
	if err := store.Add(watch); err != nil {
		t.Fatal(err)
	}

	var fires atomic.Int32
	handler := func(w state.Watch) {
		fires.Add(1)
	}

	sched := New(store, handler)
	if _, err := sched.Start(); err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()

	time.Sleep(2 * time.Second)

	if n := fires.Load(); n != 0 {
		t.Errorf("expected 0 fires for watch with no schedule, got %d", n)
	}
}

func TestSchedulerPassesWatch(t *testing.T) {
	dir := t.TempDir()
	store := state.NewWatchStore(filepath.Join(dir, "watches.json"))

	if err := store.Add(&state.Watch{
		Name:           "export",
		ConversationID: "11111111-1111-1111-1111-111111111111",
		Schedule:       "* * * * * *",
		Destination:    "file:/tmp/out",
		Enabled:        true,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(&state.Watch{
		Name:     "bad",
		Schedule: "not a schedule",
		Enabled:  true,
	}); err != nil {
		t.Fatal(err)
	}

	got := make(chan state.Watch, 4)
	sched := New(store, func(w state.Watch) {
		select {
		case got <- w:
		default:
		}
	})
	n, err := sched.Start()
	if err != nil {
		t.Fatal(err)
	}
	defer sched.Stop()
	if n != 1 {
		t.Errorf("expected 1 scheduled watch, got %d", n)
	}

	select {
	case w := <-got:
		if w.Name != "export" || w.Destination != "file:/tmp/out" {
			t.Errorf("unexpected watch %+v", w)
		}
	case <-time.After(2500 * time.Millisecond):
		t.Fatal("watch did not fire")
	}
}

func TestValidateSchedule(t *testing.T) {
	for _, expr := range []string{"0 2 * * *", "*/5 * * * * *", "@hourly"} {
		if err := ValidateSchedule(expr); err != nil {
			t.Errorf("expected %q to be valid: %v", expr, err)
		}
	}
	if err := ValidateSchedule("bogus"); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
