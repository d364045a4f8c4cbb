package main

import (
	"fmt"
	"os"

	"github.com/matsen/bibproxy/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the bibp configuration",
	Long: `Inspect or create the bibp configuration.

Settings come from built-in defaults, then the config file, then a .env
file in the working directory, then BIBP_* environment variables.

Examples:
  bibp config show
  bibp config path
  bibp config init --force`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		if humanOutput {
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			fmt.Fprint(stdout, string(data))
			return nil
		}
		return outputJSON(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFilePath()
		if humanOutput {
			fmt.Fprintln(stdout, path)
			return nil
		}
		return outputJSON(map[string]string{"path": path})
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFilePath()
		if _, err := os.Stat(path); err == nil && !configForce {
			exitWithError(ExitConfigError, "%s already exists\n  Hint: use --force to overwrite", path)
		}
		cfg := config.Default()
		if err := cfg.Save(path); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if humanOutput {
			fmt.Fprintf(stdout, "Wrote %s\n", path)
			return nil
		}
		return outputJSON(map[string]string{"path": path, "status": "created"})
	},
}

// configFilePath returns the --config override or the default location.
func configFilePath() string {
	if configPath != "" {
		return configPath
	}
	return config.Path()
}
