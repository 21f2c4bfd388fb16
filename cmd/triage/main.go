// Package main implements the triage CLI. Commands score transcripts
// in-process by default, or against a running triaged when --server is set.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/intaketriage/internal/extraction"
	"github.com/fyrsmithlabs/intaketriage/internal/scoring"
)

var (
	// serverURL is the base URL of a triaged server; empty scores locally
	serverURL string
	// configPath is the YAML config used for local scoring
	configPath string
	// noLLM forces heuristic-only extraction for local scoring
	noLLM bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Score personal-injury intake transcripts",
	Long: `triage extracts case features from an intake call transcript and scores
the case as ACCEPT, REVIEW or DECLINE.

By default scoring runs in-process using the local configuration. Pass
--server to send requests to a running triaged instead.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside development.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "[triage] ignoring .env: %v\n", err)
		}
		return nil
	},
}

// versionCmd prints build and scoring versions
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "triage %s\n", version)
		fmt.Fprintf(out, "Scoring:    %s\n", extraction.ScoringVersion)
		fmt.Fprintf(out, "Rules:      %s\n", extraction.ExtractionRulesVersion)
		fmt.Fprintf(out, "Weights:    %s\n", scoring.DefaultWeightsVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "triaged server URL (empty scores locally)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file for local scoring")
	rootCmd.PersistentFlags().BoolVar(&noLLM, "no-llm", false, "disable model-assisted extraction for local scoring")
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(weightsCmd)
	rootCmd.AddCommand(versionCmd)
}
