package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hypermatrix/internal/merge"
	"hypermatrix/internal/rules"
)

var (
	mergeFormat string
	mergeBase   string
	mergeOutput string
	mergePolicy string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <file> <file> [file...]",
	Short: "Preview or execute a merge of sibling files",
	Long: `Merge two or more sibling files into a single consolidated file.

Without --output this shows the merge preview: common declarations,
unique contributions per file and conflicts that need resolving. With
--output the merge is executed after resolving conflicts per the
configured policy (or --policy).

Examples:
  hypermatrix merge frontend/utils.py backend/utils.py
  hypermatrix merge a/utils.py b/utils.py --output merged/utils.py --policy keep_largest`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeFormat, "format", "human", "Output format (json, human)")
	mergeCmd.Flags().StringVar(&mergeBase, "base", "", "Base file (defaults to the selected master)")
	mergeCmd.Flags().StringVar(&mergeOutput, "output", "", "Execute the merge and write the result here")
	mergeCmd.Flags().StringVar(&mergePolicy, "policy", "", "Conflict-resolution policy override")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	cfg := eng.rules.Get()
	policy := cfg.ConflictResolution
	if mergePolicy != "" {
		policy = rules.Policy(mergePolicy)
	}

	plan := merge.NewPlan(args, mergeBase)
	plan.SetPreviewMaxLines(eng.cfg.Merge.PreviewMaxLines)
	preview, err := plan.Preview(context.Background(), cfg)
	if err != nil {
		return err
	}
	if mergeOutput == "" {
		return printPreview(preview)
	}

	result, err := plan.Execute(context.Background(), mergeOutput, policy)
	if err != nil {
		return err
	}
	if mergeFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"preview": preview,
			"result":  result,
		})
	}
	fmt.Printf("Merged %d files into %s (%d functions, %d classes)\n",
		len(args), result.OutputFile, result.Stats.TotalFunctions, result.Stats.TotalClasses)
	return nil
}

func printPreview(preview *merge.Preview) error {
	if mergeFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(preview)
	}

	fmt.Printf("Base: %s\n", preview.BaseFile)
	fmt.Printf("Common: %d functions, %d classes\n", len(preview.CommonFunctions), len(preview.CommonClasses))
	if len(preview.UniqueFunctions) > 0 || len(preview.UniqueClasses) > 0 {
		fmt.Println("Unique contributions:")
		for name, file := range preview.UniqueFunctions {
			fmt.Printf("  func  %-24s from %s\n", name, file)
		}
		for name, file := range preview.UniqueClasses {
			fmt.Printf("  class %-24s from %s\n", name, file)
		}
	}
	if len(preview.Conflicts) > 0 {
		fmt.Printf("Conflicts (%d):\n", len(preview.Conflicts))
		for _, c := range preview.Conflicts {
			fmt.Printf("  %s %s\n", c.Type, c.Name)
			for _, line := range conflictLines(c) {
				fmt.Printf("    %s\n", line)
			}
		}
	}
	for _, pe := range preview.ParseErrors {
		fmt.Printf("parse error: %s\n", pe)
	}
	return nil
}

// conflictLines renders one line per version. The first version is the
// reference the diff hints compare against, so hint i belongs to
// version i+1.
func conflictLines(c merge.Conflict) []string {
	lines := make([]string, 0, len(c.Versions))
	for i, v := range c.Versions {
		if i == 0 {
			lines = append(lines, v)
			continue
		}
		hint := ""
		if i-1 < len(c.Differences) {
			hint = "  " + c.Differences[i-1]
		}
		lines = append(lines, v+hint)
	}
	return lines
}
