package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dyluth/koorda/internal/config"
	"github.com/dyluth/koorda/internal/printer"
	"github.com/spf13/cobra"
)

// defaultConfigPath is read when present and --config is not given.
const defaultConfigPath = "koorda.yml"

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "koorda",
	Short: "Koorda - voice assistant bridge for the Koordinator workflow engine",
	Long: `Koorda answers voice assistant utterances about Koordinator workflows.

It reads and acts on pending manual tasks, launches workflows, reports on
running instances and relays every other intent to the Koordinator bot,
correlating the bot's asynchronous replies back to the waiting conversation.

Configuration comes from koorda.yml (see --config) with KOORDA_* environment
overrides.`,
	Version: version,
	// Unknown flags on the bare root command are an error rather than a silent success
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Cobra's own error and usage printing is
// silenced; the printer package reports errors.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to koorda.yml")
}

// loadConfig loads the configuration. A missing default koorda.yml falls back
// to environment-only configuration; a missing explicit --config is an error.
func loadConfig() (*config.Config, error) {
	path := configPath
	if !rootCmd.PersistentFlags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		source := path
		if source == "" {
			source = "environment (KOORDA_*)"
		}
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Source": source},
			[]string{
				"Create a koorda.yml with at least koordinator.base_url, workspace and namespace",
				"Or set KOORDA_KOORDINATOR_BASE_URL, KOORDA_KOORDINATOR_WORKSPACE and KOORDA_KOORDINATOR_NAMESPACE",
			},
		)
	}
	return cfg, nil
}
