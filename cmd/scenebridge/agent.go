package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polyforge/scenebridge/internal/agent"
	"github.com/polyforge/scenebridge/internal/config"
	"github.com/polyforge/scenebridge/internal/scene"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run a standalone agent with an in-memory editor",
	Long: `Run the engine-side agent outside an editor, hosting an in-memory
scene graph. Useful for developing and testing controllers without a
running editor; the real agent runs as an editor plugin.`,
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().String("channel", "", "Channel path segment for the websocket endpoint")
	agentCmd.Flags().String("scene", "Untitled", "Name of the initial scene")
}

func runAgent(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	channel, _ := cmd.Flags().GetString("channel")
	if channel == "" {
		channel = cfg.Agent.Channel
	}
	sceneName, _ := cmd.Flags().GetString("scene")

	agentCfg := agent.Config{
		ProjectDir:        dir,
		Channel:           channel,
		MaxBatchPerTick:   cfg.Agent.MaxBatchPerTick,
		InboundQueueSize:  cfg.Agent.InboundQueueSize,
		OutboundQueueSize: cfg.Agent.OutboundQueueSize,
		SendInterval:      cfg.Agent.SendInterval,
		WriteTimeout:      10 * time.Second,
	}

	editor := scene.NewEditor(sceneName)
	server := agent.New(agentCfg, editor)
	if err := server.Start(); err != nil {
		return err
	}
	fmt.Printf("Agent listening on port %d (project %s)\n", server.Port(), dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down", sig)
		cancel()
	}()

	server.RunLoop(ctx, cfg.Agent.SendInterval)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	return server.Stop(stopCtx)
}
