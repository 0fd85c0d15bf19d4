package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/tiermem/tiermem/internal/config"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.NewDefault())
		if err != nil {
			return fmt.Errorf("failed to marshal defaults: %w", err)
		}
		cmd.Print(string(data))
		return nil
	},
}
