package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/polyforge/scenebridge/internal/bridge"
	"github.com/polyforge/scenebridge/internal/config"
	"github.com/polyforge/scenebridge/internal/protocol"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream editor console output and play mode changes",
	Long: `Connect to the agent and print its console output and play mode
transitions as they happen, along with connection state changes. Runs
until interrupted.`,
	RunE: runWatch,
}

var (
	infoColor    = color.New(color.FgWhite)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	stateColor   = color.New(color.FgCyan)
	playColor    = color.New(color.FgGreen, color.Bold)
)

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	client := newBridgeClient(dir, cfg)

	client.OnStateChange(func(s bridge.ConnectionState) {
		stateColor.Printf("%s [bridge] %s\n", timestamp(), s)
	})
	client.OnConsoleLog(func(cl protocol.ConsoleLog) {
		line := fmt.Sprintf("%s [%s] %s", timestamp(), cl.LogType, cl.Message)
		switch cl.LogType {
		case protocol.LogTypeWarning:
			warningColor.Println(line)
		case protocol.LogTypeError:
			errorColor.Println(line)
			if cl.StackTrace != "" {
				errorColor.Println(cl.StackTrace)
			}
		default:
			infoColor.Println(line)
		}
	})
	client.OnPlayModeChange(func(pm protocol.PlayModeChange) {
		playColor.Printf("%s [play mode] %s\n", timestamp(), pm.State)
	})

	if err := client.Start(); err != nil {
		return err
	}
	defer client.Stop()

	fmt.Printf("Watching project %s (ctrl-c to stop)\n", dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}
