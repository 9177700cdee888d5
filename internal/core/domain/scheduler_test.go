package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()
	assert.Len(t, config.Tasks, 2)

	refresh := config.Task(TaskIDTokenRefresh)
	assert.True(t, refresh.Enabled)
	assert.Equal(t, 45*time.Minute, refresh.Interval)

	cleanup := config.Task(TaskIDCredentialCleanup)
	assert.True(t, cleanup.Enabled)
	assert.Equal(t, 24*time.Hour, cleanup.Interval)

	assert.Equal(t, TaskConfig{}, config.Task("missing"))
	var empty SchedulerConfig
	assert.Equal(t, TaskConfig{}, empty.Task(TaskIDTokenRefresh))
}

func TestSchedulerConfig_SetInterval(t *testing.T) {
	config := DefaultSchedulerConfig()

	config.SetInterval(TaskIDTokenRefresh, 10*time.Minute)
	config.SetInterval(TaskIDCredentialCleanup, 0)
	config.SetInterval("missing", time.Minute)

	assert.Equal(t, 10*time.Minute, config.Task(TaskIDTokenRefresh).Interval)
	assert.Equal(t, 24*time.Hour, config.Task(TaskIDCredentialCleanup).Interval)
	assert.NotContains(t, config.Tasks, "missing")
}

func TestScheduledTask_Due(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task ScheduledTask
		want bool
	}{
		{"never scheduled", ScheduledTask{Enabled: true}, true},
		{"past", ScheduledTask{Enabled: true, NextRun: now.Add(-time.Second)}, true},
		{"exactly now", ScheduledTask{Enabled: true, NextRun: now}, true},
		{"future", ScheduledTask{Enabled: true, NextRun: now.Add(time.Minute)}, false},
		{"disabled", ScheduledTask{NextRun: now.Add(-time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.Due(now))
		})
	}
}

func TestScheduledTask_Finish(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	task := ScheduledTask{Interval: time.Hour, Enabled: true}

	task.Finish(TaskResult{StartedAt: start, EndedAt: start.Add(2 * time.Second)})
	assert.Equal(t, start, task.LastRun)
	assert.Equal(t, start.Add(time.Hour+2*time.Second), task.NextRun)
	assert.Equal(t, start.Add(2*time.Second), task.LastSuccess)
	assert.Empty(t, task.LastError)

	later := start.Add(time.Hour)
	task.Finish(TaskResult{StartedAt: later, EndedAt: later, Error: "store offline"})
	assert.Equal(t, "store offline", task.LastError)
	assert.Equal(t, start.Add(2*time.Second), task.LastSuccess, "failure keeps last success")
	assert.Equal(t, later.Add(time.Hour), task.NextRun)
}

func TestTaskResult(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := TaskResult{StartedAt: start, EndedAt: start.Add(1500 * time.Millisecond), Failures: []string{"alice/gmail"}}

	assert.True(t, r.Success())
	assert.Equal(t, 1500*time.Millisecond, r.Duration())

	r.Error = "boom"
	assert.False(t, r.Success())
}
