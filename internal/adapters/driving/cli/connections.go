package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
)

var (
	connJSON         bool
	connAccessToken  string
	connRefreshToken string
	connExpiresIn    time.Duration
	connScopes       []string
)

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conn"},
	Short:   "Show and manage service connections",
	Long: `Lists every supported service with its connection status for the user.
Expired credentials that can be refreshed are refreshed on the next
generate or refresh run.`,
	RunE: runConnectionsList,
}

var connectionsAddCmd = &cobra.Command{
	Use:   "add <service>",
	Short: "Store a credential obtained outside casebrief",
	Long: `Stores an OAuth access token (and optionally a refresh token) for a service.
If --access-token is omitted the token is read from stdin.

Tokens without a refresh token cannot be renewed, so --expires-in should
match the token's real lifetime. GitHub personal access tokens often live
for months, e.g. --expires-in 2160h.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectionsAdd,
}

var connectionsRemoveCmd = &cobra.Command{
	Use:     "remove <service>",
	Aliases: []string{"rm"},
	Short:   "Remove a service credential",
	Args:    cobra.ExactArgs(1),
	RunE:    runConnectionsRemove,
}

var connectionsScopesCmd = &cobra.Command{
	Use:   "scopes [service...]",
	Short: "Print the OAuth scopes needed by services",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connectionService()
		if err != nil {
			return err
		}
		for _, scope := range s.Scopes(args...) {
			cmd.Println(scope)
		}
		return nil
	},
}

func init() {
	connectionsCmd.Flags().BoolVar(&connJSON, "json", false, "output as JSON")

	f := connectionsAddCmd.Flags()
	f.StringVar(&connAccessToken, "access-token", "", "access token (read from stdin when empty)")
	f.StringVar(&connRefreshToken, "refresh-token", "", "refresh token")
	f.DurationVar(&connExpiresIn, "expires-in", time.Hour, "time until the access token expires")
	f.StringSliceVar(&connScopes, "scopes", nil, "scopes granted to the token")

	connectionsCmd.AddCommand(connectionsAddCmd, connectionsRemoveCmd, connectionsScopesCmd)
	rootCmd.AddCommand(connectionsCmd)
}

func connectionService() (driving.ConnectionService, error) {
	s, err := requireServices()
	if err != nil {
		return nil, err
	}
	if s.Connections == nil {
		return nil, errors.New("connection service not configured")
	}
	return s.Connections, nil
}

func runConnectionsList(cmd *cobra.Command, _ []string) error {
	svc, err := connectionService()
	if err != nil {
		return err
	}

	infos, err := svc.Status(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("connection status: %w", err)
	}

	if connJSON {
		return printJSON(cmd, infos)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, headerStyle.Render("SERVICE")+"\tSTATUS\tEXPIRES\tREFRESH")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			info.ServiceID,
			connectionStyle(info.Status).Render(string(info.Status)),
			formatExpiry(info.ExpiresInMinutes),
			yesNo(info.CanRefresh))
		if info.LastError != "" {
			fmt.Fprintf(w, "\t%s\t\t\n", mutedStyle.Render(info.LastError))
		}
	}
	return w.Flush()
}

func runConnectionsAdd(cmd *cobra.Command, args []string) error {
	svc, err := connectionService()
	if err != nil {
		return err
	}

	token := connAccessToken
	if token == "" {
		cmd.Print("Access token: ")
		token = readSecret(cmd.InOrStdin())
		cmd.Println()
	}

	cred := domain.ServiceCredential{
		ServiceID:    args[0],
		AccessToken:  token,
		RefreshToken: connRefreshToken,
		TokenType:    "Bearer",
		Scopes:       connScopes,
	}
	if connExpiresIn > 0 {
		expiresAt := time.Now().Add(connExpiresIn).UTC()
		cred.ExpiresAt = &expiresAt
	}

	if err := svc.Connect(cmd.Context(), userID, cred); err != nil {
		return fmt.Errorf("connect %s: %w", args[0], err)
	}
	cmd.Printf("Connected %s for %s.\n", args[0], userID)
	return nil
}

func runConnectionsRemove(cmd *cobra.Command, args []string) error {
	svc, err := connectionService()
	if err != nil {
		return err
	}
	if err := svc.Disconnect(cmd.Context(), userID, args[0]); err != nil {
		return fmt.Errorf("disconnect %s: %w", args[0], err)
	}
	cmd.Printf("Removed %s for %s.\n", args[0], userID)
	return nil
}

// readSecret reads one line without echo when r is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(r io.Reader) string {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	line, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimSpace(line)
}

func formatExpiry(minutes *int) string {
	switch {
	case minutes == nil:
		return "-"
	case *minutes < 0:
		return fmt.Sprintf("%s ago", time.Duration(-*minutes)*time.Minute)
	default:
		return fmt.Sprintf("in %s", time.Duration(*minutes)*time.Minute)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
