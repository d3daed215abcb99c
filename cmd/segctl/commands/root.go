package commands

import (
	"github.com/spf13/cobra"

	"github.com/dqtools/segments/pkg/config"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "segctl",
	Short: "Data-quality segment toolkit",
	Long: `segctl works with detector data-quality segments.

It queries segment databases, converts segment files between formats,
applies veto definer documents, serves a local segment API, and follows
live segment streams.

Examples:
  segctl query X1:TEST-FLAG_NAME:1 1126051217 1126137617
  segctl convert segments.txt segments.json
  segctl veto vetoes.xml 1126051217 1126137617 --populate
  segctl serve
  segctl monitor ws://localhost:8090/api/streams/segments`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the environment configuration, honoring --verbose.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
