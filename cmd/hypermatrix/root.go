package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hypermatrix/internal/version"
)

var (
	workspaceFlag string
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "hypermatrix",
	Short: "HyperMatrix - file affinity and consolidation engine",
	Long: `HyperMatrix scans a workspace, fingerprints every source file and finds
sibling files (same basename, similar content) scattered across the tree.
It scores pair affinity, proposes a master per group and plans merges that
consolidate siblings into a single file.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("HyperMatrix version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: human, json")

	viper.SetEnvPrefix("HYPERMATRIX")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// workspaceRoot resolves the workspace from the flag, the environment or
// the working directory.
func workspaceRoot() string {
	if ws := viper.GetString("workspace"); ws != "" {
		return ws
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
