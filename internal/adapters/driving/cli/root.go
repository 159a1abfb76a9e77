// Package cli provides the command-line interface.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	configfile "github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/config/file"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "aqi-server",
	Short: "Assessment quality analysis service",
	Long: `aqi-server analyses uploaded assessments: it extracts questions with
LLM backends, aligns them to canonical curriculum standards, votes the
engines' proposals into a consensus, and scores the assessment's design,
measurement, and alignment quality.`,
	SilenceUsage: true,
}

var (
	configPath string
	dataDir    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides config)")
}

// defaultConfigPath is ~/.aqi/config.toml, falling back to the working
// directory when the home directory cannot be determined.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".aqi", "config.toml")
}

// loadSettings reads the config file named by the --config flag.
func loadSettings() (domain.Settings, error) {
	return configfile.Load(configPath)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
