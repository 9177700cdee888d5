package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
	"github.com/custodia-labs/casebrief/internal/logger"
)

// Ensure Run implements the interface.
var _ driving.GenerationRun = (*Run)(nil)

const (
	// DefaultQueueDepth bounds buffered events between engine and consumer.
	DefaultQueueDepth = 64

	// expectedSections is the section count of the standard case study
	// structure. Progress advances per section up to this many.
	expectedSections = 8

	// generationProgressCap leaves room for post-processing after the
	// model finishes.
	generationProgressCap = 95
)

// GenerationEngine streams case study text from a model backend and
// tracks it on a GenerationJob.
type GenerationEngine struct {
	models     *ModelRegistry
	prompts    *PromptBuilder
	observer   driven.JobObserver
	queueDepth int
	now        func() time.Time
}

// NewGenerationEngine creates an engine. observer may be nil.
func NewGenerationEngine(models *ModelRegistry, prompts *PromptBuilder, observer driven.JobObserver) *GenerationEngine {
	return &GenerationEngine{
		models:     models,
		prompts:    prompts,
		observer:   observer,
		queueDepth: DefaultQueueDepth,
		now:        time.Now,
	}
}

// SetQueueDepth changes the event buffer size. Values below 1 are ignored.
func (e *GenerationEngine) SetQueueDepth(n int) {
	if n > 0 {
		e.queueDepth = n
	}
}

// SetClock replaces the time source. Intended for tests.
func (e *GenerationEngine) SetClock(now func() time.Time) {
	e.now = now
}

// GenerateRequest describes one generation.
type GenerateRequest struct {
	ModelName          string
	ProjectName        string
	Template           domain.Template
	CustomInstructions string
	Bundle             *domain.ProjectDataBundle

	// ProgressFrom is the job progress when generation starts. Progress
	// climbs from here to 95 as sections appear.
	ProgressFrom int

	// Finalize runs against the job after the last section closes and
	// before the job is marked completed.
	Finalize func(job *domain.GenerationJob)
}

// Start resolves the model, builds the prompts and begins streaming.
// The engine owns job from this call on; callers read it through the
// returned Run. Configuration errors fail the job and are returned
// before any streaming starts.
func (e *GenerationEngine) Start(ctx context.Context, job *domain.GenerationJob, req GenerateRequest) (*Run, error) {
	if req.Bundle == nil {
		req.Bundle = domain.NewProjectDataBundle(e.now())
	}

	binding, err := e.models.Resolve(req.ModelName)
	if err != nil {
		return nil, e.failBeforeStart(ctx, job, err)
	}
	system, err := e.prompts.SystemPrompt(req.Template, req.CustomInstructions)
	if err != nil {
		return nil, e.failBeforeStart(ctx, job, err)
	}
	user, err := e.prompts.UserPrompt(req.ProjectName, req.Bundle)
	if err != nil {
		return nil, e.failBeforeStart(ctx, job, err)
	}

	if err := job.Start(e.now()); err != nil {
		return nil, err
	}
	job.SetProgress(req.ProgressFrom, e.now())

	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		ctx:      runCtx,
		cancel:   cancel,
		events:   make(chan domain.StreamingEvent, e.queueDepth),
		done:     make(chan struct{}),
		job:      job,
		observer: e.observer,
		now:      e.now,
	}
	r.notify()

	streamReq := driven.StreamRequest{
		Model: binding.ModelID,
		Messages: []driven.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   binding.MaxTokens,
		Temperature: binding.Temperature,
	}
	logger.Debug("job %s: streaming from %s model %s", job.ID, binding.Backend.Provider(), binding.ModelID)
	go r.produce(binding, streamReq, req)
	return r, nil
}

// GenerateComplete runs a generation to the end and returns the final job.
// A failed generation returns the job together with its error.
func (e *GenerationEngine) GenerateComplete(ctx context.Context, job *domain.GenerationJob, req GenerateRequest) (domain.GenerationJob, error) {
	run, err := e.Start(ctx, job, req)
	if err != nil {
		return job.Snapshot(), err
	}
	var streamErr string
	for ev := range run.Events() {
		if ev.Kind == domain.EventError {
			streamErr = ev.Text
		}
	}
	final := run.Wait()
	if final.Status == domain.JobFailed {
		return final, fmt.Errorf("%w: %s", domain.ErrGeneration, streamErr)
	}
	return final, nil
}

func (e *GenerationEngine) failBeforeStart(ctx context.Context, job *domain.GenerationJob, err error) error {
	if failErr := job.Fail(err, e.now()); failErr == nil && e.observer != nil {
		e.observer.OnJobUpdate(ctx, job.Snapshot())
	}
	return err
}

// Run is one generation in progress. Its producer goroutine is the only
// writer of the job; readers take snapshots.
type Run struct {
	ctx      context.Context
	cancel   context.CancelFunc
	events   chan domain.StreamingEvent
	done     chan struct{}
	observer driven.JobObserver
	now      func() time.Time

	mu  sync.Mutex
	job *domain.GenerationJob

	notifyMu sync.Mutex
}

// Events yields streaming events until the terminal event or release.
func (r *Run) Events() <-chan domain.StreamingEvent {
	return r.events
}

// Job returns a snapshot of the job.
func (r *Run) Job() domain.GenerationJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job.Snapshot()
}

// Wait blocks until the producer exits and returns the final job.
func (r *Run) Wait() domain.GenerationJob {
	<-r.done
	return r.Job()
}

// Close abandons consumption. The model stream is released before Close
// returns and the job keeps whatever state it had reached.
func (r *Run) Close() {
	r.cancel()
	<-r.done
}

// Cancel releases the stream and marks the job cancelled.
func (r *Run) Cancel() error {
	r.mu.Lock()
	err := r.job.Cancel(r.now())
	r.mu.Unlock()

	r.cancel()
	<-r.done
	if err == nil {
		r.notify()
	}
	return err
}

// notify hands the latest job state to the observer. Notifications are
// serialised and always read the current state, so a late notification
// can never persist an older snapshot over a newer one.
func (r *Run) notify() {
	if r.observer == nil {
		return
	}
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.observer.OnJobUpdate(context.WithoutCancel(r.ctx), r.Job())
}

// emit delivers an event, blocking while the queue is full. It returns
// false once the consumer has released the run.
func (r *Run) emit(ev domain.StreamingEvent) bool {
	if r.ctx.Err() != nil {
		return false
	}
	ev.JobID = r.job.ID
	ev.Timestamp = r.now()
	select {
	case r.events <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// streamState is producer-local bookkeeping.
type streamState struct {
	splitter     sectionSplitter
	current      string
	boundaries   int
	progressFrom int
}

func (r *Run) produce(binding ModelBinding, streamReq driven.StreamRequest, req GenerateRequest) {
	defer close(r.done)
	defer close(r.events)
	defer r.cancel()

	started := r.now()
	st := &streamState{progressFrom: req.ProgressFrom}

	stream, err := binding.Backend.Stream(r.ctx, streamReq)
	if err != nil {
		if r.ctx.Err() == nil {
			r.fail(err)
		}
		return
	}
	defer stream.Close()

	var usage *driven.TokenUsage
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.handleSegments(st, st.splitter.flush())
			r.fail(err)
			return
		}
		if delta.Usage != nil {
			usage = delta.Usage
		}
		if delta.Text == "" {
			continue
		}

		r.mu.Lock()
		r.job.AccumulatedText += delta.Text
		r.mu.Unlock()

		if !r.handleSegments(st, st.splitter.feed(delta.Text)) {
			return
		}
	}

	if !r.handleSegments(st, st.splitter.flush()) {
		return
	}
	if st.current != "" {
		if !r.emit(domain.StreamingEvent{Kind: domain.EventSectionEnd, SectionName: st.current}) {
			return
		}
	}
	r.complete(st, binding, usage, started, req.Finalize)
}

// handleSegments applies splitter output to the job and emits events.
// It returns false once the consumer has released the run.
func (r *Run) handleSegments(st *streamState, segs []segment) bool {
	for _, seg := range segs {
		if !seg.boundary {
			r.mu.Lock()
			r.job.AppendSectionText(seg.text)
			r.mu.Unlock()
			if !r.emit(domain.StreamingEvent{Kind: domain.EventContent, Text: seg.text, SectionName: st.current}) {
				return false
			}
			continue
		}

		st.boundaries++
		if seg.name == st.current {
			continue
		}
		if st.current != "" {
			if !r.emit(domain.StreamingEvent{Kind: domain.EventSectionEnd, SectionName: st.current}) {
				return false
			}
		}
		st.current = seg.name

		span := generationProgressCap - st.progressFrom
		progress := st.progressFrom + span*min(st.boundaries, expectedSections)/expectedSections
		r.mu.Lock()
		r.job.OpenSection(seg.name)
		r.job.SetProgress(progress, r.now())
		r.mu.Unlock()
		r.notify()

		if !r.emit(domain.StreamingEvent{Kind: domain.EventSectionStart, SectionName: seg.name}) {
			return false
		}
	}
	return true
}

func (r *Run) complete(st *streamState, binding ModelBinding, usage *driven.TokenUsage, started time.Time, finalize func(*domain.GenerationJob)) {
	r.mu.Lock()
	metrics := domain.GenerationMetrics{
		SectionsGenerated: st.boundaries,
		Duration:          r.now().Sub(started),
		ModelUsed:         binding.Name,
	}
	if usage != nil && usage.OutputTokens > 0 {
		metrics.TokensUsed = usage.OutputTokens
		metrics.UsageReported = true
	} else {
		metrics.TokensUsed = utf8.RuneCountInString(r.job.AccumulatedText) / 4
	}
	r.job.Metrics = metrics
	if finalize != nil {
		finalize(r.job)
	}
	err := r.job.Complete(r.now())
	r.mu.Unlock()
	if err != nil {
		// Cancelled while finishing.
		return
	}
	r.notify()

	r.emit(domain.StreamingEvent{
		Kind: domain.EventMetadata,
		Payload: map[string]any{
			"generation_complete": true,
			"duration_seconds":    metrics.Duration.Seconds(),
			"tokens_used":         metrics.TokensUsed,
			"sections_generated":  metrics.SectionsGenerated,
			"model_used":          metrics.ModelUsed,
		},
	})
}

// fail marks the job failed and emits the single terminal error event.
func (r *Run) fail(err error) {
	if domain.ErrorKindOf(err) == domain.ErrorKindUnknown {
		err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	r.mu.Lock()
	failErr := r.job.Fail(err, r.now())
	r.mu.Unlock()
	if failErr != nil {
		return
	}
	logger.Warn("job %s failed: %v", r.job.ID, err)
	r.notify()

	r.emit(domain.StreamingEvent{
		Kind: domain.EventError,
		Text: "Generation error: " + err.Error(),
		Payload: map[string]any{
			"error_kind": string(domain.ErrorKindOf(err)),
		},
	})
}
