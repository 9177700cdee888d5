package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
	"github.com/custodia-labs/casebrief/internal/logger"
)

// defaultWindow is the look-back used when --from is omitted.
const defaultWindow = 90 * 24 * time.Hour

var (
	genProject      string
	genKeywords     []string
	genParticipants []string
	genFrom         string
	genTo           string
	genModel        string
	genTemplate     string
	genInstructions string
	genBudget       int
	genResultCap    int
	genJSON         bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a case study for a project",
	Long: `Fetches items matching the project scope from every connected service,
selects the most relevant ones and streams a case study from the chosen model.

Output is rendered section by section on a terminal. With --json, or when
stdout is not a terminal, every streaming event is written as one JSON line.
Ctrl-C cancels the job.`,
	Example: `  casebrief generate --project Apollo --keywords apollo,launch \
    --participants ana@acme.com --from 2024-01-01 --to 2024-03-31 --model gpt-4`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&genProject, "project", "p", "", "project name used in the prompt")
	f.StringSliceVarP(&genKeywords, "keywords", "k", nil, "comma-separated search keywords")
	f.StringSliceVar(&genParticipants, "participants", nil, "comma-separated participant emails or logins")
	f.StringVar(&genFrom, "from", "", "start date YYYY-MM-DD (default 90 days before --to)")
	f.StringVar(&genTo, "to", "", "end date YYYY-MM-DD, inclusive (default today)")
	f.StringVarP(&genModel, "model", "m", "", "model name (see 'casebrief models')")
	f.StringVarP(&genTemplate, "template", "t", string(domain.TemplateComprehensive),
		"template: comprehensive, technical, marketing, product or custom")
	f.StringVar(&genInstructions, "instructions", "", "custom instructions appended to the prompt")
	f.IntVar(&genBudget, "budget", 0, "maximum items given to the model (default from config)")
	f.IntVar(&genResultCap, "result-cap", 0, "maximum items fetched per service (default from config)")
	f.BoolVar(&genJSON, "json", false, "write streaming events as JSON lines")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if s.CaseStudy == nil {
		return errors.New("case study service not configured")
	}

	start, end, err := parseWindow(genFrom, genTo, time.Now())
	if err != nil {
		return err
	}
	scope, err := domain.NewProjectScope(genKeywords, genParticipants, start, end, genResultCap)
	if err != nil {
		return err
	}
	tpl, err := domain.ParseTemplate(genTemplate)
	if err != nil {
		return err
	}

	req := domain.CaseStudyRequest{
		UserID:             userID,
		ProjectName:        genProject,
		Scope:              scope,
		ModelName:          pickModel(s, genModel),
		Template:           tpl,
		CustomInstructions: genInstructions,
		Budget:             genBudget,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := s.CaseStudy.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	release := context.AfterFunc(ctx, func() {
		if err := run.Cancel(); err != nil {
			logger.Debug("cancel job %s: %v", run.Job().ID, err)
		}
	})
	defer release()

	out := cmd.OutOrStdout()
	if genJSON || !isTerminal(out) {
		err = streamJSON(out, run)
	} else {
		err = streamText(out, run)
	}
	if err != nil {
		run.Close()
		return err
	}

	job := run.Wait()
	switch job.Status {
	case domain.JobFailed:
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	case domain.JobCancelled:
		return fmt.Errorf("job %s cancelled", job.ID)
	}
	return nil
}

// parseWindow resolves --from/--to. The end date is inclusive, so it is
// moved to the last second of that day.
func parseWindow(from, to string, now time.Time) (time.Time, time.Time, error) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: --to: %w", domain.ErrInvalidInput, err)
		}
		end = t
	}

	start := end.Add(-defaultWindow)
	if from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: --from: %w", domain.ErrInvalidInput, err)
		}
		start = t
	}

	return start, end.Add(24*time.Hour - time.Second), nil
}

// pickModel prefers the flag, then the configured default, then the first
// registered model.
func pickModel(s *Services, flag string) string {
	if flag != "" {
		return flag
	}
	if s.DefaultModel != "" {
		return s.DefaultModel
	}
	if s.Models != nil {
		if models := s.Models.Models(); len(models) > 0 {
			return models[0].Name
		}
	}
	return ""
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// streamJSON writes each event as one JSON line.
func streamJSON(w io.Writer, run driving.GenerationRun) error {
	enc := json.NewEncoder(w)
	for ev := range run.Events() {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
	return nil
}

// streamText renders events for a human reader.
func streamText(w io.Writer, run driving.GenerationRun) error {
	for ev := range run.Events() {
		var err error
		switch ev.Kind {
		case domain.EventSectionStart:
			_, err = fmt.Fprintln(w, sectionStyle.Render(ev.SectionName))
		case domain.EventContent:
			_, err = io.WriteString(w, ev.Text)
		case domain.EventSectionEnd:
			_, err = fmt.Fprintln(w)
		case domain.EventMetadata:
			_, err = fmt.Fprintln(w, "\n"+mutedStyle.Render(summariseMetadata(ev.Payload)))
		case domain.EventError:
			_, err = fmt.Fprintln(w, "\n"+errorStyle.Render(ev.Text))
		}
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

// summariseMetadata renders the terminal metadata payload as one line.
func summariseMetadata(payload map[string]any) string {
	keys := []string{"model_used", "sections_generated", "tokens_used", "duration_seconds"}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, "  ")
}
