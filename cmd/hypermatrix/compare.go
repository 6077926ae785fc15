package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	compareFormat string
	compareScanID string
)

var compareCmd = &cobra.Command{
	Use:   "compare <fileA> <fileB>",
	Short: "Compare the affinity of two scanned files",
	Long: `Compute the affinity score between two files from a stored scan:
content similarity, structural similarity and DNA-vector distance,
combined into an overall score with a confidence level.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareFormat, "format", "human", "Output format (json, human)")
	compareCmd.Flags().StringVar(&compareScanID, "scan", "", "Scan ID (defaults to the latest completed scan)")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	scanID := compareScanID
	if scanID == "" {
		scanID, err = latestCompletedScan(eng)
		if err != nil {
			return err
		}
	}

	score, err := eng.scans.Compare(context.Background(), scanID, args[0], args[1], eng.cfg.Affinity.Weights())
	if err != nil {
		return err
	}

	if compareFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(score)
	}
	fmt.Printf("%s vs %s\n", args[0], args[1])
	fmt.Printf("  overall:   %.3f (%s)\n", score.Overall, score.Level)
	fmt.Printf("  content:   %.3f\n", score.Content)
	fmt.Printf("  structure: %.3f\n", score.Structure)
	fmt.Printf("  dna:       %.3f\n", score.DNA)
	if score.HashMatch {
		fmt.Println("  files are byte-identical")
	}
	return nil
}
