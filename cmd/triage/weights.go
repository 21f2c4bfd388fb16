package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
	"github.com/fyrsmithlabs/intaketriage/internal/scoring"
)

var (
	weightsFile     string
	weightsCaseType string
)

// weightsCmd prints effective weights
var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print the effective scoring weights",
	Long: `Print the weights used for a case type as TOML, after the case-type
profile is applied. With --file the override file is loaded and validated
first, which makes this a quick check for a new weights file.

Examples:
  triage weights --case-type DOG_BITE
  triage weights --file firm-weights.toml --case-type MVA_REAR_END`,
	Args: cobra.NoArgs,
	RunE: runWeights,
}

func init() {
	weightsCmd.Flags().StringVar(&weightsFile, "file", "", "TOML weights override file")
	weightsCmd.Flags().StringVar(&weightsCaseType, "case-type", string(features.Other), "case type to resolve")
}

func runWeights(cmd *cobra.Command, args []string) error {
	table, err := scoring.LoadWeightsFile(weightsFile)
	if err != nil {
		return err
	}

	ct := features.CaseType(weightsCaseType)
	if features.ParseCaseType(weightsCaseType) != ct {
		return fmt.Errorf("unknown case type %q", weightsCaseType)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# version: %s\n# case_type: %s\n", table.Version, ct)
	return toml.NewEncoder(out).Encode(table.For(ct))
}
