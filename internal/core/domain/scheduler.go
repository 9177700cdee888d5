package domain

import "time"

// Task IDs for the built-in credential maintenance tasks.
const (
	TaskIDTokenRefresh      = "token-refresh"
	TaskIDCredentialCleanup = "credential-cleanup"
)

// StaleCredentialAge is how long past expiry an unrefreshable credential
// is kept before cleanup removes it.
const StaleCredentialAge = 30 * 24 * time.Hour

// ScheduledTask is the persisted schedule of one credential maintenance task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	LastError   string
}

// Due reports whether the task should run at now. A task that has never
// been scheduled is due immediately.
func (t ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Finish records the outcome of a run and schedules the next one.
func (t *ScheduledTask) Finish(r TaskResult) {
	t.LastRun = r.StartedAt
	t.NextRun = r.EndedAt.Add(t.Interval)
	t.LastError = r.Error
	if r.Success() {
		t.LastSuccess = r.EndedAt
	}
}

// TaskResult records one run of a scheduled task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Error     string

	// Processed counts credentials left valid by a refresh run, or removed
	// by a cleanup run.
	Processed int

	// Failures names the "user/service" credentials the run could not handle.
	Failures []string
}

// Success reports whether the run completed. A refresh run with individual
// failures still succeeds; those are listed in Failures.
func (r TaskResult) Success() bool {
	return r.Error == ""
}

// Duration is the wall time of the run.
func (r TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// TaskConfig is the schedule of a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// SchedulerConfig maps task IDs to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig
}

// Task returns the schedule for id, or a disabled zero value.
func (c SchedulerConfig) Task(id string) TaskConfig {
	return c.Tasks[id]
}

// SetInterval overrides the interval of a configured task.
func (c SchedulerConfig) SetInterval(id string, every time.Duration) {
	if tc, ok := c.Tasks[id]; ok && every > 0 {
		tc.Interval = every
		c.Tasks[id] = tc
	}
}

// DefaultSchedulerConfig refreshes tokens every 45 minutes and sweeps
// stale credentials daily.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Tasks: map[string]TaskConfig{
			TaskIDTokenRefresh:      {Enabled: true, Interval: 45 * time.Minute},
			TaskIDCredentialCleanup: {Enabled: true, Interval: 24 * time.Hour},
		},
	}
}
