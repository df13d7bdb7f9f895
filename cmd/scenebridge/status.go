package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/polyforge/scenebridge/internal/bridge"
	"github.com/polyforge/scenebridge/internal/discovery"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent discovery and plugin status for a project",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s\n", dir)

	installed := bridge.InstalledPluginVersion(dir)
	switch {
	case installed == "":
		fmt.Printf("Plugin:  not installed (embedded version %s)\n", bridge.PluginVersion())
	default:
		fmt.Printf("Plugin:  %s installed (embedded version %s)\n", installed, bridge.PluginVersion())
	}

	rec, err := discovery.Read(dir)
	if err != nil {
		fmt.Println("Agent:   no discovery record (editor not running)")
		return nil
	}

	age := rec.Age(time.Now()).Round(time.Second)
	fmt.Printf("Agent:   port %d, pid %d, protocol %s, record age %s\n",
		rec.Port, rec.PID, rec.Version, age)
	if rec.Channel != "" {
		fmt.Printf("Channel: %s\n", rec.Channel)
	}
	if rec.IsStale(time.Now(), discovery.DefaultStaleAfter) {
		fmt.Println("Health:  record is stale; the agent likely exited uncleanly")
		return nil
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(rec.HealthURL())
	if err != nil {
		fmt.Printf("Health:  unreachable (%v)\n", err)
		return nil
	}
	defer resp.Body.Close()

	var health map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Printf("Health:  malformed response (%v)\n", err)
		return nil
	}
	fmt.Printf("Health:  %s (agent version %s)\n", health["status"], health["version"])
	return nil
}
