// Package cmd contains CLI commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Mements/serve/cli/internal/config"
)

var (
	cfg      *config.Config
	declPath string
	format   string
	verbose  bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve - dynamic page server",
	Long: `Serve compiles page sources on demand, injects import maps and
server data into the produced HTML, and dispatches requests across
build-output files, assets, page routes, and API handlers.

Examples:
  # Start the server from a declaration file
  serve run --config serve.yaml

  # Precompile every declared page route
  serve build

  # Print the resolved import map
  serve imports --dev
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.DefaultConfig()
		if declPath != "" {
			cfg.DeclPath = declPath
		}
		if format != "" {
			cfg.Format = format
		}
		cfg.Verbose = verbose
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&declPath, "config", "c", "", "Declaration file (default serve.yaml)")
	rootCmd.PersistentFlags().StringVarP(&format, "output", "o", "", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(importsCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints version info.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("serve version 0.1.0")
	},
}
