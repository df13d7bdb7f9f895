package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/polyforge/scenebridge/internal/bridge"
	"github.com/polyforge/scenebridge/internal/config"
	"github.com/polyforge/scenebridge/internal/protocol"
)

var sendCmd = &cobra.Command{
	Use:   "send <category.action> [key=value...]",
	Short: "Send one command to the agent and print the result",
	Long: `Send a single command to the connected agent. Parameters are given
as key=value pairs; vector values use the bracketed form "[x,y,z]".

Examples:
  scenebridge send gameObject.createPrimitive name=Player primitiveType=Capsule
  scenebridge send gameObject.setTransform gameObjectPath=Player position=[0,1,0]
  scenebridge send scene.save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().Duration("connect-timeout", 15*time.Second, "How long to wait for the agent connection")
}

// newBridgeClient builds a controller from the merged configuration.
func newBridgeClient(dir string, cfg *config.Config) *bridge.Client {
	return bridge.NewClient(bridge.Config{
		ProjectDir:        dir,
		HandshakeTimeout:  cfg.Controller.HandshakeTimeout,
		RequestTimeout:    cfg.Controller.RequestTimeout,
		ReconnectAttempts: cfg.Controller.ReconnectAttempts,
		ReconnectDelay:    cfg.Controller.ReconnectDelay,
		WriteTimeout:      10 * time.Second,
		PollInterval:      cfg.Controller.PollInterval,
		FastPollInterval:  cfg.Controller.FastPollInterval,
		StaleAfter:        cfg.Controller.StaleAfter,
		AutoProvision:     cfg.Controller.AutoProvision,
	})
}

// connectClient starts the controller and waits for the Connected state.
func connectClient(client *bridge.Client, timeout time.Duration) error {
	connected := make(chan struct{}, 1)
	client.OnStateChange(func(s bridge.ConnectionState) {
		if s == bridge.StateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	if err := client.Start(); err != nil {
		return err
	}
	select {
	case <-connected:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("no agent found within %s (is the editor running?)", timeout)
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	key := args[0]
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || !protocol.IsKnownCommand(key) {
		return fmt.Errorf("unknown command %q\n\nKnown commands:\n  %s",
			key, strings.Join(protocol.KnownCommands(), "\n  "))
	}

	params := protocol.Params{}
	for _, arg := range args[1:] {
		kv := strings.SplitN(arg, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return fmt.Errorf("invalid parameter %q, expected key=value", arg)
		}
		params[kv[0]] = kv[1]
	}

	connectTimeout, _ := cmd.Flags().GetDuration("connect-timeout")
	client := newBridgeClient(dir, cfg)
	if err := connectClient(client, connectTimeout); err != nil {
		return err
	}
	defer client.Stop()

	resp, err := client.Send(parts[0], parts[1], params)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s failed: %s", key, resp.Error)
	}

	out, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
