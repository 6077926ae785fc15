package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var scanFormat string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the workspace and store fingerprints",
	Long: `Walk the workspace, fingerprint every supported source file and persist
the scan. Sibling groups, comparisons and merges all work from a stored scan.

Examples:
  hypermatrix scan
  hypermatrix scan list
  hypermatrix scan delete <scan-id>`,
	RunE: runScan,
}

var scanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scans",
	RunE:  runScanList,
}

var scanDeleteCmd = &cobra.Command{
	Use:   "delete <scan-id>",
	Short: "Delete a stored scan and its results",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanDelete,
}

func init() {
	scanCmd.PersistentFlags().StringVar(&scanFormat, "format", "human", "Output format (json, human)")
	scanCmd.AddCommand(scanListCmd)
	scanCmd.AddCommand(scanDeleteCmd)
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	scan, err := eng.scans.Run(context.Background(), workspaceRoot())
	if err != nil {
		return err
	}

	if scanFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(scan)
	}

	parseErrors, _ := eng.db.ParseErrorsForScan(scan.ID)
	fmt.Printf("Scan %s completed: %d files", scan.ID, scan.TotalFiles)
	if len(parseErrors) > 0 {
		fmt.Printf(", %d parse errors", len(parseErrors))
	}
	fmt.Println()
	for _, pe := range parseErrors {
		fmt.Printf("  parse error: %s\n", pe.Filepath)
	}
	return nil
}

func runScanList(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	scans, err := eng.scans.List()
	if err != nil {
		return err
	}

	if scanFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(scans)
	}

	if len(scans) == 0 {
		fmt.Println("No scans stored")
		return nil
	}
	for _, s := range scans {
		fmt.Printf("%s  %-10s  %4d files  %s  %s\n",
			s.ID, s.Status, s.TotalFiles, s.StartedAt.Format("2006-01-02 15:04:05"), s.Root)
	}
	return nil
}

func runScanDelete(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.scans.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted scan %s\n", args[0])
	return nil
}
