package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/logger"
)

var (
	refreshWatch   bool
	refreshCleanup bool
	refreshHistory int
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh credentials that are close to expiry",
	Long: `Refreshes every connected service's token for the user when it is within
the refresh buffer of expiry.

With --cleanup, credentials that expired long ago and cannot be refreshed
are removed. With --watch, the background scheduler keeps refreshing
tokens for every user until interrupted. With --history N, the last N
scheduler runs of each task are shown instead.`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshWatch, "watch", false, "keep refreshing in the background until interrupted")
	refreshCmd.Flags().BoolVar(&refreshCleanup, "cleanup", false, "remove stale credentials that cannot be refreshed")
	refreshCmd.Flags().IntVar(&refreshHistory, "history", 0, "show the last N background runs of each task")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if s.Tokens == nil {
		return errors.New("token service not configured")
	}

	if refreshWatch {
		return watch(cmd, s)
	}
	if refreshHistory > 0 {
		return history(cmd, s, refreshHistory)
	}

	ctx := cmd.Context()
	results := s.Tokens.EnsureAll(ctx, userID)
	if len(results) == 0 {
		cmd.Printf("No connected services for %s.\n", userID)
	}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	failed := 0
	for _, id := range ids {
		if results[id] {
			cmd.Printf("%s  %s\n", successStyle.Render("ok    "), id)
			continue
		}
		failed++
		reason := "no valid token"
		if err := s.Tokens.LastError(userID, id); err != nil {
			reason = err.Error()
		}
		cmd.Printf("%s  %s: %s\n", errorStyle.Render("failed"), id, reason)
	}

	if refreshCleanup {
		removed, err := s.Tokens.CleanupStale(ctx, userID)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		for _, id := range removed {
			cmd.Printf("%s  %s\n", warningStyle.Render("removed"), id)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d services could not be refreshed", failed, len(ids))
	}
	return nil
}

// watch runs the scheduler until the process is interrupted.
func watch(cmd *cobra.Command, s *Services) error {
	if s.Scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	cmd.Println("Refreshing credentials in the background. Press Ctrl-C to stop.")
	err := s.Scheduler.Start(ctx)
	if stopErr := s.Scheduler.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// history prints recent scheduler runs of both maintenance tasks.
func history(cmd *cobra.Command, s *Services, limit int) error {
	if s.Scheduler == nil {
		return errors.New("scheduler not configured")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tSTARTED\tDURATION\tPROCESSED\tRESULT")
	rows := 0
	for _, taskID := range []string{domain.TaskIDTokenRefresh, domain.TaskIDCredentialCleanup} {
		runs, err := s.Scheduler.History(cmd.Context(), taskID, limit)
		if err != nil {
			return fmt.Errorf("loading %s history: %w", taskID, err)
		}
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				taskID,
				r.StartedAt.Local().Format(time.DateTime),
				r.Duration().Round(time.Millisecond),
				r.Processed,
				runOutcome(r))
			rows++
		}
	}
	if rows == 0 {
		cmd.Println("No background runs recorded yet. Start one with 'casebrief refresh --watch'.")
		return nil
	}
	return w.Flush()
}

func runOutcome(r domain.TaskResult) string {
	switch {
	case !r.Success():
		return errorStyle.Render("error: " + r.Error)
	case len(r.Failures) > 0:
		return warningStyle.Render("failed: " + strings.Join(r.Failures, ", "))
	default:
		return successStyle.Render("ok")
	}
}
