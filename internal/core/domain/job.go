package domain

import (
	"fmt"
	"slices"
	"time"
)

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal returns true for absorbing states.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// GenerationMetrics summarise a finished generation.
type GenerationMetrics struct {
	TokensUsed        int           `json:"tokens_used"`
	UsageReported     bool          `json:"usage_reported"`
	SectionsGenerated int           `json:"sections_generated"`
	Duration          time.Duration `json:"duration"`
	ModelUsed         string        `json:"model_used"`
}

// Section is one named part of generated text.
type Section struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// CaseStudyResult holds the structured parts extracted from a finished case study.
type CaseStudyResult struct {
	ExecutiveSummary string   `json:"executive_summary,omitempty"`
	KeyInsights      []string `json:"key_insights,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// GenerationJob is the record of one case study generation.
// The generation engine is its only writer while it runs.
type GenerationJob struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	ProjectName     string            `json:"project_name,omitempty"`
	Status          JobStatus         `json:"status"`
	ProgressPercent int               `json:"progress_percent"`
	CurrentSection  string            `json:"current_section,omitempty"`
	AccumulatedText string            `json:"accumulated_text"`
	Sections        []Section         `json:"sections,omitempty"`
	Metrics         GenerationMetrics `json:"metrics"`
	ModelName       string            `json:"model_name"`
	Template        Template          `json:"template"`
	Result          *CaseStudyResult  `json:"result,omitempty"`
	// Warnings record partial failures such as a service that could not be fetched.
	Warnings    []string   `json:"warnings,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewGenerationJob returns a pending job.
func NewGenerationJob(id, userID, modelName string, template Template, now time.Time) *GenerationJob {
	return &GenerationJob{
		ID:        id,
		UserID:    userID,
		Status:    JobPending,
		ModelName: modelName,
		Template:  template,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start moves a pending job to running.
func (j *GenerationJob) Start(now time.Time) error {
	if j.Status != JobPending {
		return j.transitionError(JobRunning)
	}
	j.Status = JobRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// Complete moves a running job to completed.
func (j *GenerationJob) Complete(now time.Time) error {
	if j.Status != JobRunning {
		return j.transitionError(JobCompleted)
	}
	j.Status = JobCompleted
	j.ProgressPercent = 100
	j.CurrentSection = ""
	j.finish(now)
	return nil
}

// Fail moves a non-terminal job to failed. Accumulated text is kept.
func (j *GenerationJob) Fail(cause error, now time.Time) error {
	if j.Status.IsTerminal() {
		return j.transitionError(JobFailed)
	}
	j.Status = JobFailed
	if cause != nil {
		j.Error = cause.Error()
	}
	j.finish(now)
	return nil
}

// Cancel moves a non-terminal job to cancelled.
func (j *GenerationJob) Cancel(now time.Time) error {
	if j.Status.IsTerminal() {
		return j.transitionError(JobCancelled)
	}
	j.Status = JobCancelled
	j.finish(now)
	return nil
}

func (j *GenerationJob) finish(now time.Time) {
	j.CompletedAt = &now
	j.UpdatedAt = now
}

func (j *GenerationJob) transitionError(to JobStatus) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is %s", ErrJobTerminal, j.ID, j.Status)
	}
	return fmt.Errorf("%w: job %s cannot move from %s to %s", ErrInvalidInput, j.ID, j.Status, to)
}

// SetProgress records progress. Progress never moves backwards and is
// clamped to [0, 100].
func (j *GenerationJob) SetProgress(percent int, now time.Time) bool {
	percent = max(0, min(100, percent))
	if percent <= j.ProgressPercent {
		return false
	}
	j.ProgressPercent = percent
	j.UpdatedAt = now
	return true
}

// OpenSection makes name the current section. A repeated name continues
// the existing entry so section order is by first appearance.
func (j *GenerationJob) OpenSection(name string) {
	j.CurrentSection = name
	if j.sectionIndex(name) < 0 {
		j.Sections = append(j.Sections, Section{Name: name})
	}
}

// AppendSectionText adds text to the current section, if any.
func (j *GenerationJob) AppendSectionText(text string) {
	if j.CurrentSection == "" {
		return
	}
	if i := j.sectionIndex(j.CurrentSection); i >= 0 {
		j.Sections[i].Text += text
	}
}

// SectionText returns the text of a named section.
func (j *GenerationJob) SectionText(name string) (string, bool) {
	if i := j.sectionIndex(name); i >= 0 {
		return j.Sections[i].Text, true
	}
	return "", false
}

func (j *GenerationJob) sectionIndex(name string) int {
	return slices.IndexFunc(j.Sections, func(s Section) bool { return s.Name == name })
}

// Snapshot returns a deep copy safe to hand to observers.
func (j *GenerationJob) Snapshot() GenerationJob {
	out := *j
	out.Sections = slices.Clone(j.Sections)
	out.Warnings = slices.Clone(j.Warnings)
	if j.Result != nil {
		r := *j.Result
		r.KeyInsights = slices.Clone(j.Result.KeyInsights)
		r.Recommendations = slices.Clone(j.Result.Recommendations)
		out.Result = &r
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
