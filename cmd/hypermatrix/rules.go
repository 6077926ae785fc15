package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hypermatrix/internal/rules"
)

var rulesFormat string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show and manage consolidation rules",
	Long: `Consolidation rules control sibling grouping thresholds, master
selection preferences and the conflict-resolution policy used by merges.

Examples:
  hypermatrix rules
  hypermatrix rules set rules.json
  hypermatrix rules apply conservative
  hypermatrix rules reset`,
	RunE: runRulesShow,
}

var rulesSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Replace the rules configuration from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesSet,
}

var rulesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset rules to defaults",
	RunE:  runRulesReset,
}

var rulesPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List available rule presets",
	RunE:  runRulesPresets,
}

var rulesApplyCmd = &cobra.Command{
	Use:   "apply <preset>",
	Short: "Apply a named preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesApply,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a rules file without applying it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesValidate,
}

func init() {
	rulesCmd.PersistentFlags().StringVar(&rulesFormat, "format", "human", "Output format (json, human)")
	rulesCmd.AddCommand(rulesSetCmd)
	rulesCmd.AddCommand(rulesResetCmd)
	rulesCmd.AddCommand(rulesPresetsCmd)
	rulesCmd.AddCommand(rulesApplyCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	printRules(eng.rules.Get())
	return nil
}

func runRulesSet(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	cfg, err := readRulesFile(args[0])
	if err != nil {
		return err
	}
	if err := eng.rules.Put(cfg); err != nil {
		return err
	}
	fmt.Println("Rules updated")
	return nil
}

func runRulesReset(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	cfg, err := eng.rules.Reset()
	if err != nil {
		return err
	}
	printRules(cfg)
	return nil
}

func runRulesPresets(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	presets := eng.rules.Presets()
	if rulesFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(presets)
	}
	for _, p := range presets {
		fmt.Printf("%-14s %s\n", p.Name, p.Description)
	}
	return nil
}

func runRulesApply(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	cfg, err := eng.rules.ApplyPreset(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Applied preset %q\n", args[0])
	printRules(cfg)
	return nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	cfg, err := readRulesFile(args[0])
	if err != nil {
		return err
	}
	issues := rules.Validate(cfg)
	if len(issues) == 0 {
		fmt.Println("Rules file is valid")
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("  - %s\n", issue)
	}
	return fmt.Errorf("%d issue(s) found", len(issues))
}

func readRulesFile(path string) (rules.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rules.Config{}, err
	}
	cfg := rules.DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return rules.Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func printRules(cfg rules.Config) {
	if rulesFormat == "json" {
		json.NewEncoder(os.Stdout).Encode(cfg) //nolint:errcheck
		return
	}
	fmt.Printf("minAffinityThreshold: %g\n", cfg.MinAffinityThreshold)
	fmt.Printf("conflictResolution:   %s\n", cfg.ConflictResolution)
	fmt.Printf("autoCommit:           %t\n", cfg.AutoCommit)
	fmt.Printf("preferPaths:          %v\n", cfg.PreferPaths)
	fmt.Printf("neverMasterFrom:      %v\n", cfg.NeverMasterFrom)
	fmt.Printf("ignorePatterns:       %v\n", cfg.IgnorePatterns)
}
