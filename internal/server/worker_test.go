package server

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/f5xs-0000a/adam/internal/store"
)

func newTestStore(t *testing.T) *store.FSStore {
	t.Helper()
	st, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return st
}

func TestRunJob_Success(t *testing.T) {
	jm := NewJobManager()
	st := newTestStore(t)

	config := JobConfig{
		Objective:   "sphere",
		Dim:         3,
		Generations: 10,
		StartPop:    16,
		PopSize:     8,
		Seed:        42,
		Alpha:       0.05,
		Epsilon:     1e-8,
		Beta1:       0.9,
		Beta2:       0.999,
	}

	job := jm.CreateJob(config)

	ctx := context.Background()
	err := runJob(ctx, jm, st, job.ID)

	if err != nil {
		t.Errorf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Errorf("Job should be completed, got %s", updated.State)
	}

	if len(updated.BestVector) != 3 {
		t.Errorf("Expected best vector of length 3, got %d", len(updated.BestVector))
	}

	if updated.BestScore < updated.InitialScore {
		t.Errorf("Best score %v should not be below initial %v",
			updated.BestScore, updated.InitialScore)
	}

	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}

	// A trace should have been written alongside the checkpoints
	if _, err := os.Stat(store.TracePath(st.BaseDir(), job.ID)); err != nil {
		t.Errorf("Trace file should exist: %v", err)
	}
}

func TestRunJob_UnknownObjective(t *testing.T) {
	jm := NewJobManager()
	st := newTestStore(t)

	config := JobConfig{
		Objective:   "does-not-exist",
		Dim:         3,
		Generations: 10,
		StartPop:    16,
		PopSize:     8,
		Seed:        42,
	}

	job := jm.CreateJob(config)

	ctx := context.Background()
	err := runJob(ctx, jm, st, job.ID)

	if err == nil {
		t.Error("runJob should fail with unknown objective")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}

	if updated.Error == "" {
		t.Error("Error message should be set")
	}
}

func TestRunJob_Cancellation(t *testing.T) {
	jm := NewJobManager()
	st := newTestStore(t)

	config := JobConfig{
		Objective:   "rosenbrock",
		Dim:         8,
		Generations: 1_000_000, // Long-running job
		StartPop:    64,
		PopSize:     32,
		Seed:        42,
		Alpha:       0.001,
		Epsilon:     1e-8,
		Beta1:       0.9,
		Beta2:       0.999,
	}

	job := jm.CreateJob(config)

	// Cancel up front so the worker stops before the first generation,
	// independent of how fast generations run.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runJob(ctx, jm, st, job.ID)

	if err == nil {
		t.Error("runJob should return error when cancelled")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}
}

func TestEventBroadcaster_SubscribeBroadcast(t *testing.T) {
	eb := NewEventBroadcaster()

	ch := eb.Subscribe("job-1")
	defer eb.Unsubscribe("job-1", ch)

	event := ProgressEvent{
		JobID:      "job-1",
		State:      StateRunning,
		Generation: 5,
		BestScore:  -1.25,
		Timestamp:  time.Now(),
	}
	eb.Broadcast(event)

	select {
	case got := <-ch:
		if got.Generation != 5 || got.BestScore != -1.25 {
			t.Errorf("Unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
}

func TestEventBroadcaster_LastEventReplay(t *testing.T) {
	eb := NewEventBroadcaster()

	eb.Broadcast(ProgressEvent{JobID: "job-1", Generation: 3})

	// A late subscriber should receive the cached last event
	ch := eb.Subscribe("job-1")
	defer eb.Unsubscribe("job-1", ch)

	select {
	case got := <-ch:
		if got.Generation != 3 {
			t.Errorf("Expected replayed generation 3, got %d", got.Generation)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for replayed event")
	}
}

func TestEventBroadcaster_CleanupJob(t *testing.T) {
	eb := NewEventBroadcaster()

	ch := eb.Subscribe("job-1")
	eb.CleanupJob("job-1")

	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after cleanup")
	}
}
