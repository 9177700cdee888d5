package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available for generation",
	Long: `Lists models whose provider is configured. OpenAI and Anthropic models
appear once their API key is set; Ollama models appear when
llm.ollama.base_url is set.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if s.Models == nil {
		return errors.New("model catalogue not configured")
	}

	models := s.Models.Models()
	if len(models) == 0 {
		cmd.Println("No models configured. Set llm.openai.api_key, llm.anthropic.api_key or llm.ollama.base_url.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPROVIDER\tMODEL ID\tDEFAULT")
	for _, m := range models {
		def := ""
		if m.Name == s.DefaultModel {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, m.Provider, m.ModelID, def)
	}
	return w.Flush()
}
