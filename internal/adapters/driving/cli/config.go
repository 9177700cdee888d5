package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driving"
	"github.com/custodia-labs/casebrief/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write configuration values",
	Long: `Keys use dot notation and map to TOML tables, e.g. llm.openai.api_key is
[llm.openai] api_key. Any key can be overridden with an environment
variable such as CASEBRIEF_LLM_OPENAI_API_KEY.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := requireSettings()
		if err != nil {
			return err
		}
		val, ok := settings.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s is not set", domain.ErrNotFound, args[0])
		}
		cmd.Println(displayValue(args[0], val))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a configuration value",
	Long: `Stores a value in the config file. Whole numbers and true/false are
stored as TOML integers and booleans; everything else as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := requireSettings()
		if err != nil {
			return err
		}
		key := strings.TrimSpace(args[0])
		if key == "" || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
			return fmt.Errorf("%w: invalid key %q", domain.ErrInvalidInput, args[0])
		}
		if err := settings.Set(key, parseSettingValue(args[1])); err != nil {
			return err
		}
		cmd.Printf("%s %s\n", successStyle.Render("Saved"), key)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := requireSettings()
		if err != nil {
			return err
		}
		cmd.Println(settings.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func requireSettings() (driving.Settings, error) {
	s, err := requireServices()
	if err != nil {
		return nil, err
	}
	if s.Settings == nil {
		return nil, errors.New("settings not configured")
	}
	return s.Settings, nil
}

func parseSettingValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

// displayValue masks credentials.
func displayValue(key string, val any) string {
	s := fmt.Sprint(val)
	if strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "secret") {
		return logger.MaskToken(s)
	}
	return s
}
