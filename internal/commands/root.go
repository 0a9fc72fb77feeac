// Package commands implements the sonar-collector command-line interface:
// one cobra subcommand per operation, sharing the configuration, logging
// and storage bootstrap.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sonar-collector",
	Short: "Collect, classify and export SonarQube quality metrics",
	Long: `sonar-collector gathers quality gate status and code metrics for every
project a SonarQube (or SonarCloud) token can see, classifies projects
by analysis activity, exports the results as CSV and JSON, and keeps a
history of runs that AI agents can query over MCP.

Get started:
  sonar-collector configure        Interactive connection setup
  sonar-collector test-connection  Verify the server is reachable
  sonar-collector projects         List projects visible to the token
  sonar-collector collect          Collect quality metrics for all projects
  sonar-collector classify         Split projects into active and inactive
  sonar-collector runs             List stored runs
  sonar-collector mcp              Serve stored runs over MCP`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./config.yaml or ~/.sonar-collector/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		configureCmd,
		testConnectionCmd,
		projectsCmd,
		collectCmd,
		classifyCmd,
		runsCmd,
		mcpCmd,
	)
}

// initEnv loads .env into the environment before any command reads its
// configuration, so local development credentials reach viper without a
// config file.
func initEnv() {
	_ = gotenv.Load()
}
