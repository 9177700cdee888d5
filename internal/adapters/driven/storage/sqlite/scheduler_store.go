package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

var _ driven.SchedulerStore = (*schedulerStore)(nil)

type schedulerStore struct {
	store *Store
}

const taskColumns = `id, name, interval_ns, enabled, last_run, next_run, last_success, last_error`

func (s *schedulerStore) GetTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("%w: task requires an ID", domain.ErrInvalidInput)
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_ns = excluded.interval_ns,
			enabled = excluded.enabled,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_success = excluded.last_success,
			last_error = excluded.last_error
	`, task.ID, task.Name, int64(task.Interval), boolToInt(task.Enabled),
		formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
		formatNullableTime(task.LastSuccess), nullString(task.LastError))
	if err != nil {
		return fmt.Errorf("saving scheduled task %s: %w", task.ID, err)
	}
	return nil
}

// RecordResult inserts the run and trims the task's history in one
// transaction.
func (s *schedulerStore) RecordResult(ctx context.Context, result domain.TaskResult, keep int) error {
	if result.TaskID == "" {
		return fmt.Errorf("%w: result requires a task ID", domain.ErrInvalidInput)
	}
	failures, err := json.Marshal(nonNil(result.Failures))
	if err != nil {
		return fmt.Errorf("encoding failures: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO task_runs (task_id, started_at, ended_at, error, processed, failures)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.TaskID, formatTime(result.StartedAt), formatTime(result.EndedAt),
		nullString(result.Error), result.Processed, string(failures)); err != nil {
		return fmt.Errorf("recording %s run: %w", result.TaskID, err)
	}

	if keep > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM task_runs
			WHERE task_id = ? AND id NOT IN (
				SELECT id FROM task_runs WHERE task_id = ?
				ORDER BY started_at DESC, id DESC LIMIT ?
			)
		`, result.TaskID, result.TaskID, keep); err != nil {
			return fmt.Errorf("trimming %s history: %w", result.TaskID, err)
		}
	}
	return tx.Commit()
}

func (s *schedulerStore) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, started_at, ended_at, error, processed, failures
		FROM task_runs WHERE task_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s history: %w", taskID, err)
	}
	defer rows.Close()

	var runs []domain.TaskResult
	for rows.Next() {
		var (
			r              domain.TaskResult
			started, ended string
			errMsg         sql.NullString
			failures       string
		)
		if err := rows.Scan(&r.TaskID, &started, &ended, &errMsg, &r.Processed, &failures); err != nil {
			return nil, fmt.Errorf("scanning task run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		r.Error = errMsg.String
		if err := json.Unmarshal([]byte(failures), &r.Failures); err != nil {
			return nil, fmt.Errorf("decoding failures: %w", err)
		}
		if len(r.Failures) == 0 {
			r.Failures = nil
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.ScheduledTask, error) {
	var (
		task                              domain.ScheduledTask
		interval                          int64
		enabled                           int
		lastRun, nextRun, lastOK, lastErr sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Name, &interval, &enabled,
		&lastRun, &nextRun, &lastOK, &lastErr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}
	task.Interval = time.Duration(interval)
	task.Enabled = enabled == 1
	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	task.LastSuccess = parseNullableTime(lastOK)
	task.LastError = lastErr.String
	return &task, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
