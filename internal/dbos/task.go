package dbos

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	pendingSetKey  = "tasks:pending"
	inflightSetKey = "tasks:inflight"
	deadLetterKey  = "tasks:dead"

	requeueJitterSeconds = 5
)

func taskKey(id string) string { return "task:" + id }

// ScheduleTask stores the task and enqueues it in tasks:pending scored by
// its scheduled-at time.
func (s *Store) ScheduleTask(ctx context.Context, t Task) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if t.Status == "" {
		t.Status = TaskPending
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := s.kv.Set(ctx, taskKey(t.ID), string(data), 0); err != nil {
		return err
	}
	return s.kv.ZAdd(ctx, pendingSetKey, float64(t.ScheduledAt), t.ID)
}

// GetTask returns the task record for id, or ErrNotFound.
func (s *Store) GetTask(ctx context.Context, id string) (Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	raw, err := s.kv.Get(ctx, taskKey(id))
	if err != nil {
		return Task{}, mapKVError(err)
	}
	var t Task
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	return t, nil
}

func (s *Store) putTask(ctx context.Context, t Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return s.kv.Set(ctx, taskKey(t.ID), string(data), 0)
}

// ListDueTasks returns pending tasks scored at or before now, without
// claiming them (a read-only preview used by ClaimDueTasks callers that
// want to inspect before claiming, and by the REST/RPC surface).
func (s *Store) ListDueTasks(ctx context.Context, now int64) ([]Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ids, err := s.kv.ZRangeByScore(ctx, pendingSetKey, 0, float64(now))
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ClaimDueTasks moves every task scored at or before now from tasks:pending
// into tasks:inflight, rescored to now+visibilityTimeout, and returns them.
// The move is remove-then-add since the underlying engine has no native
// atomic ZMOVE; a crash between the two steps is recovered by
// RequeueExpiredTasks, which treats an orphaned inflight entry the same as
// a claim that simply ran out its visibility window.
func (s *Store) ClaimDueTasks(ctx context.Context, now int64, visibilityTimeout int64) ([]Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ids, err := s.kv.ZRangeByScore(ctx, pendingSetKey, 0, float64(now))
	if err != nil {
		return nil, err
	}

	claimed := make([]Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			continue
		}

		if err := s.kv.ZRem(ctx, pendingSetKey, id); err != nil {
			return claimed, err
		}
		newDeadline := now + visibilityTimeout
		if err := s.kv.ZAdd(ctx, inflightSetKey, float64(newDeadline), id); err != nil {
			return claimed, err
		}

		t.Status = TaskInFlight
		t.VisibleAt = newDeadline
		if err := s.putTask(ctx, t); err != nil {
			return claimed, err
		}

		claimed = append(claimed, t)
	}
	return claimed, nil
}

// AckTask removes a claimed task from tasks:inflight and deletes its
// primary record.
func (s *Store) AckTask(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := s.GetTask(ctx, id); err != nil {
		return err
	}
	if err := s.kv.ZRem(ctx, inflightSetKey, id); err != nil {
		return err
	}
	return s.kv.Delete(ctx, taskKey(id))
}

// NackTask removes a claimed task from tasks:inflight and re-schedules it
// into tasks:pending after retryDelay seconds, incrementing its retry
// count. Once the retry ceiling is exceeded the task is routed to the
// dead-letter list and marked failed instead of being rescheduled.
func (s *Store) NackTask(ctx context.Context, id string, retryDelay int64, now int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	t, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if err := s.kv.ZRem(ctx, inflightSetKey, id); err != nil {
		return err
	}

	t.RetryCount++
	if t.RetryCount > s.maxRetries {
		t.Status = TaskFailed
		if err := s.putTask(ctx, t); err != nil {
			return err
		}
		return s.kv.ZAdd(ctx, deadLetterKey, float64(now), id)
	}

	t.Status = TaskPending
	newScore := now + retryDelay
	if err := s.putTask(ctx, t); err != nil {
		return err
	}
	return s.kv.ZAdd(ctx, pendingSetKey, float64(newScore), id)
}

// RequeueExpiredTasks moves every task whose visibility deadline in
// tasks:inflight is at or before now back into tasks:pending, with a small
// jitter so requeued tasks don't stampede back into the same claim window.
func (s *Store) RequeueExpiredTasks(ctx context.Context, now int64) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	ids, err := s.kv.ZRangeByScore(ctx, inflightSetKey, 0, float64(now))
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, id := range ids {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			continue
		}
		if err := s.kv.ZRem(ctx, inflightSetKey, id); err != nil {
			return moved, err
		}
		t.Status = TaskPending
		if err := s.putTask(ctx, t); err != nil {
			return moved, err
		}
		if err := s.kv.ZAdd(ctx, pendingSetKey, float64(now+requeueJitterSeconds), id); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}
