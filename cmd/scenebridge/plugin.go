package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polyforge/scenebridge/internal/bridge"
)

var installPluginCmd = &cobra.Command{
	Use:   "install-plugin",
	Short: "Install or update the agent plugin in a project",
	Long: `Copy the embedded agent plugin source into the project's plugin
directory. Installs when absent, overwrites an older copy, and leaves a
current or newer copy alone. The controller does this automatically on
startup unless disabled in configuration.`,
	RunE: runInstallPlugin,
}

func runInstallPlugin(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}

	action, err := bridge.EnsurePlugin(dir)
	if err != nil {
		return err
	}

	target := bridge.PluginInstallPath(dir)
	switch action {
	case bridge.ProvisionInstalled:
		fmt.Printf("Installed plugin %s at %s\n", bridge.PluginVersion(), target)
	case bridge.ProvisionUpgraded:
		fmt.Printf("Upgraded plugin to %s at %s\n", bridge.PluginVersion(), target)
	default:
		fmt.Printf("Plugin already current (%s) at %s\n", bridge.InstalledPluginVersion(dir), target)
	}
	return nil
}
