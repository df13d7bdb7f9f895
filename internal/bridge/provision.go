package bridge

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

//go:embed plugin/SceneBridgeAgent.source
var pluginSource []byte

const (
	pluginInstallDir = "Plugins/SceneBridge"
	pluginFileName   = "SceneBridgeAgent.source"

	// versionMarker prefixes the version line inside the plugin artifact.
	versionMarker = "// scenebridge-plugin-version:"
)

// ProvisionAction describes what EnsurePlugin did.
type ProvisionAction string

const (
	ProvisionInstalled ProvisionAction = "installed"
	ProvisionUpgraded  ProvisionAction = "upgraded"
	ProvisionCurrent   ProvisionAction = "current"
)

// PluginInstallPath returns where the agent plugin lives inside a project.
func PluginInstallPath(projectDir string) string {
	return filepath.Join(projectDir, filepath.FromSlash(pluginInstallDir), pluginFileName)
}

// PluginVersion returns the version embedded in this build's plugin
// artifact.
func PluginVersion() string {
	return extractVersion(pluginSource)
}

// InstalledPluginVersion reports the version of the plugin copy installed
// in a project. Empty when none is installed.
func InstalledPluginVersion(projectDir string) string {
	data, err := os.ReadFile(PluginInstallPath(projectDir))
	if err != nil {
		return ""
	}
	return extractVersion(data)
}

// EnsurePlugin makes sure the agent plugin source is present and current
// in the target project: installs if absent, overwrites if older, no-ops
// if the installed copy is the same version or newer. Callers treat this
// as fire and forget; it never blocks discovery or connection.
func EnsurePlugin(projectDir string) (ProvisionAction, error) {
	embedded := extractVersion(pluginSource)
	if embedded == "" {
		return "", fmt.Errorf("embedded plugin artifact has no version marker")
	}

	target := PluginInstallPath(projectDir)
	existing, err := os.ReadFile(target)
	switch {
	case os.IsNotExist(err):
		if err := writePlugin(target); err != nil {
			return "", err
		}
		log.Printf("[Bridge] installed agent plugin %s at %s", embedded, target)
		return ProvisionInstalled, nil
	case err != nil:
		return "", fmt.Errorf("failed to read installed plugin: %w", err)
	}

	installed := extractVersion(existing)
	if installed != "" && compareVersions(installed, embedded) >= 0 {
		return ProvisionCurrent, nil
	}

	if err := writePlugin(target); err != nil {
		return "", err
	}
	log.Printf("[Bridge] upgraded agent plugin %s -> %s at %s", installed, embedded, target)
	return ProvisionUpgraded, nil
}

// writePlugin writes the artifact atomically via a temp file rename.
func writePlugin(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create plugin directory: %w", err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, pluginSource, 0644); err != nil {
		return fmt.Errorf("failed to write plugin: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to install plugin: %w", err)
	}
	return nil
}

// extractVersion scans an artifact for the version marker line.
func extractVersion(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, versionMarker) {
			return strings.TrimSpace(strings.TrimPrefix(line, versionMarker))
		}
	}
	return ""
}

// compareVersions orders dotted numeric versions. Returns -1, 0 or 1.
// Non-numeric segments compare as zero.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}
