package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <scan-id>",
	Short: "Export a scan as a compressed snapshot",
	Long: `Write a scan and all of its fingerprints as a zstd-compressed JSON
snapshot, suitable for archiving or importing into another database.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a scan snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (defaults to scan-<id>.json.zst)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	scanID := args[0]
	out := exportOutput
	if out == "" {
		out = fmt.Sprintf("scan-%s.json.zst", scanID)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := eng.db.ExportScan(f, scanID); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Exported scan %s to %s\n", scanID, out)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	scan, err := eng.db.ImportScan(f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported scan %s (%d files)\n", scan.ID, scan.TotalFiles)
	return nil
}
