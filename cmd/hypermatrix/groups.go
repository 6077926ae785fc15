package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hypermatrix/internal/errors"
	"hypermatrix/internal/storage"
)

var (
	groupsFormat      string
	groupsMinAffinity float64
	groupsSearch      string
	groupsScanID      string
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List sibling file groups from a scan",
	Long: `Group files that share the same filename and show how closely related
each group is, along with the proposed master for every group.

Uses the most recent completed scan unless --scan is given.`,
	RunE: runGroups,
}

func init() {
	groupsCmd.Flags().StringVar(&groupsFormat, "format", "human", "Output format (json, human)")
	groupsCmd.Flags().Float64Var(&groupsMinAffinity, "min-affinity", 0, "Only show groups at or above this average affinity (default: rules threshold)")
	groupsCmd.Flags().StringVar(&groupsSearch, "search", "", "Filter groups by filename substring")
	groupsCmd.Flags().StringVar(&groupsScanID, "scan", "", "Scan ID (defaults to the latest completed scan)")
	rootCmd.AddCommand(groupsCmd)
}

func runGroups(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	scanID := groupsScanID
	if scanID == "" {
		scanID, err = latestCompletedScan(eng)
		if err != nil {
			return err
		}
	}

	rulesCfg := eng.rules.Get()
	if !cmd.Flags().Changed("min-affinity") {
		groupsMinAffinity = rulesCfg.MinAffinityThreshold
	}

	proposals, err := eng.scans.GroupsWithMasters(context.Background(), scanID, eng.cfg.Affinity.Weights(), rulesCfg)
	if err != nil {
		return err
	}

	filtered := proposals[:0]
	for _, gp := range proposals {
		if gp.Group.AverageAffinity < groupsMinAffinity {
			continue
		}
		if groupsSearch != "" && !strings.Contains(gp.Group.Filename, groupsSearch) {
			continue
		}
		filtered = append(filtered, gp)
	}

	if groupsFormat == "json" {
		return json.NewEncoder(os.Stdout).Encode(filtered)
	}

	if len(filtered) == 0 {
		fmt.Println("No sibling groups found")
		return nil
	}
	for _, gp := range filtered {
		fmt.Printf("%s  (%d files, affinity %.2f)\n", gp.Group.Filename, gp.Group.FileCount(), gp.Group.AverageAffinity)
		for _, f := range gp.Group.Files {
			marker := "  "
			if gp.Proposal != nil && gp.Proposal.Filepath == f.Filepath {
				marker = "* "
			}
			fmt.Printf("  %s%s\n", marker, f.Filepath)
		}
	}
	return nil
}

// latestCompletedScan picks the newest completed scan in the store.
func latestCompletedScan(eng *engine) (string, error) {
	scans, err := eng.scans.List()
	if err != nil {
		return "", err
	}
	for _, s := range scans {
		if s.Status == storage.ScanCompleted {
			return s.ID, nil
		}
	}
	return "", errors.New(errors.ScanNotFound, "no completed scan found, run 'hypermatrix scan' first")
}
