package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	appName    = "scenebridge"
	appVersion = "1.1.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Remote control bridge for a live game engine editor",
	Long: `Scenebridge connects an external controller to a running editor:
  - discovers the in-editor agent through a project-local record file
  - sends scene, game object, component, prefab, asset and editor commands
  - streams editor console output and play mode changes
  - installs and updates the engine-side agent plugin`,
	Version: appVersion,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("project", "p", ".", "Engine project directory")

	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(installPluginCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

// projectDir resolves the --project flag to an absolute path.
func projectDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("project")
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve project directory %q: %w", dir, err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", fmt.Errorf("project directory %q does not exist", abs)
	}
	return abs, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
