// Package cmd provides the CLI commands for Helios.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helios-rules/helios/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "helios",
	Short: "Helios - high-throughput rule-matching engine",
	Long: `Helios matches events against a compiled set of boolean rules and
returns the codes of every rule the event satisfies.

Quick start:
  1. Write a rules file: rules.jsonl (one JSON array of rules per line)
  2. Run: helios serve

Configuration:
  Config is loaded from helios.yaml in the current directory,
  $HOME/.helios/, or /etc/helios/.

  Environment variables can override config values with the HELIOS_ prefix.
  Example: HELIOS_SERVER_HTTP_ADDR=:9090

Commands:
  serve       Start the evaluation HTTP server
  check       Compile a rules file and print a summary
  config      Print the effective configuration
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./helios.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
