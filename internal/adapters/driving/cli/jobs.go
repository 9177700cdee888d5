package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
)

var (
	jobsLimit int
	jobsJSON  bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect generation jobs",
}

var jobsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the user's jobs, newest first",
	RunE:    runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job and its generated sections",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

func init() {
	jobsListCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "maximum number of jobs")
	jobsCmd.PersistentFlags().BoolVar(&jobsJSON, "json", false, "output as JSON")
	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd)
	rootCmd.AddCommand(jobsCmd)
}

func caseStudyService() (driving.CaseStudyService, error) {
	s, err := requireServices()
	if err != nil {
		return nil, err
	}
	if s.CaseStudy == nil {
		return nil, errors.New("case study service not configured")
	}
	return s.CaseStudy, nil
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	svc, err := caseStudyService()
	if err != nil {
		return err
	}

	jobs, err := svc.ListJobs(cmd.Context(), userID, jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if jobsJSON {
		return printJSON(cmd, jobs)
	}
	if len(jobs) == 0 {
		cmd.Println("No jobs.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tMODEL\tPROJECT\tCREATED")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\t%s\t%s\n",
			j.ID,
			jobStyle(j.Status).Render(string(j.Status)),
			j.ProgressPercent,
			j.ModelName,
			j.ProjectName,
			j.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	svc, err := caseStudyService()
	if err != nil {
		return err
	}

	job, err := svc.GetJob(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("job %s not found", args[0])
		}
		return fmt.Errorf("get job: %w", err)
	}

	if jobsJSON {
		return printJSON(cmd, job)
	}

	cmd.Printf("Job:      %s\n", job.ID)
	cmd.Printf("Status:   %s (%d%%)\n", jobStyle(job.Status).Render(string(job.Status)), job.ProgressPercent)
	cmd.Printf("Model:    %s\n", job.ModelName)
	cmd.Printf("Template: %s\n", job.Template)
	if job.ProjectName != "" {
		cmd.Printf("Project:  %s\n", job.ProjectName)
	}
	if job.Metrics.TokensUsed > 0 {
		cmd.Printf("Tokens:   %d\n", job.Metrics.TokensUsed)
	}
	if job.Error != "" {
		cmd.Printf("Error:    %s\n", errorStyle.Render(job.Error))
	}
	for _, w := range job.Warnings {
		cmd.Printf("Warning:  %s\n", warningStyle.Render(w))
	}

	for _, section := range job.Sections {
		cmd.Println(sectionStyle.Render(section.Name))
		cmd.Println(section.Text)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
