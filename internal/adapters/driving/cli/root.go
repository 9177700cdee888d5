// Package cli provides the casebrief command line interface.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
	"github.com/custodia-labs/casebrief/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// annotationNoServices marks commands that run without the service graph.
const annotationNoServices = "casebrief/no-services"

// Services are the driving ports the commands call.
type Services struct {
	CaseStudy   driving.CaseStudyService
	Connections driving.ConnectionService
	Tokens      driving.TokenLifecycle
	Models      driving.ModelCatalog
	Scheduler   driving.Scheduler
	Settings    driving.Settings

	// DefaultModel is used when generate is run without --model.
	DefaultModel string
	// Warnings are non-fatal start-up problems, shown with --verbose.
	Warnings []string
}

// Options are the global flags handed to the bootstrap function.
type Options struct {
	DataDir  string
	InMemory bool
}

// BootstrapFunc builds the service graph. The returned cleanup runs after
// the command finishes.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	services  *Services
	bootstrap BootstrapFunc
	cleanup   func()

	verbose  bool
	userID   string
	dataDir  string
	inMemory bool
)

var rootCmd = &cobra.Command{
	Use:   "casebrief",
	Short: "Generate project case studies from your connected services",
	Long: `casebrief gathers email, documents, calendar events and tickets about a
project from your connected services, picks the most relevant items and
streams a structured case study from a language model.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", defaultUser(), "user whose connections are used")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.casebrief)")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "keep credentials and jobs in memory only")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices installs a ready service graph, bypassing bootstrap.
func SetServices(s *Services) {
	services = s
}

// SetBootstrap installs the function that builds services on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if !verbose {
		logger.LevelFromEnv()
	}
	if cmd.Annotations[annotationNoServices] != "" || services != nil || bootstrap == nil {
		return nil
	}

	s, done, err := bootstrap(cmd.Context(), Options{DataDir: dataDir, InMemory: inMemory})
	if err != nil {
		return err
	}
	services = s
	cleanup = done
	for _, w := range s.Warnings {
		logger.Warn("%s", w)
	}
	return nil
}

// requireServices returns the installed services or an error naming what
// is missing.
func requireServices() (*Services, error) {
	if services == nil {
		return nil, errors.New("services not configured")
	}
	return services, nil
}

// defaultUser picks the local account name as the default user.
func defaultUser() string {
	if u := os.Getenv("CASEBRIEF_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}
