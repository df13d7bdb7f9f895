// Package config loads scenebridge configuration from KDL files: a global
// file under the user config dir and an optional per-project override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
)

// Configuration file names.
const (
	GlobalConfigFile  = "config.kdl"
	ProjectConfigFile = ".scenebridge.kdl"
)

// Config is the merged, validated configuration.
type Config struct {
	Version    string
	Controller ControllerSettings
	Agent      AgentSettings
}

// ControllerSettings tune the host-side client.
type ControllerSettings struct {
	PollInterval      time.Duration
	FastPollInterval  time.Duration
	HandshakeTimeout  time.Duration
	RequestTimeout    time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	StaleAfter        time.Duration
	AutoProvision     bool
}

// AgentSettings tune the engine-side server.
type AgentSettings struct {
	Channel           string
	MaxBatchPerTick   int
	InboundQueueSize  int
	OutboundQueueSize int
	SendInterval      time.Duration
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Controller: ControllerSettings{
			PollInterval:      5 * time.Second,
			FastPollInterval:  2 * time.Second,
			HandshakeTimeout:  5 * time.Second,
			RequestTimeout:    10 * time.Second,
			ReconnectAttempts: 5,
			ReconnectDelay:    2 * time.Second,
			StaleAfter:        60 * time.Second,
			AutoProvision:     true,
		},
		Agent: AgentSettings{
			MaxBatchPerTick:   10,
			InboundQueueSize:  256,
			OutboundQueueSize: 256,
			SendInterval:      16 * time.Millisecond,
		},
	}
}

// kdlConfig mirrors the file layout. Durations are whole seconds except
// where the field name says otherwise.
type kdlConfig struct {
	Version    string         `kdl:"version"`
	Controller *kdlController `kdl:"controller"`
	Agent      *kdlAgent      `kdl:"agent"`
}

type kdlController struct {
	PollInterval      int  `kdl:"poll-interval"`
	FastPollInterval  int  `kdl:"fast-poll-interval"`
	HandshakeTimeout  int  `kdl:"handshake-timeout"`
	RequestTimeout    int  `kdl:"request-timeout"`
	ReconnectAttempts int  `kdl:"reconnect-attempts"`
	ReconnectDelay    int  `kdl:"reconnect-delay"`
	StaleAfter        int  `kdl:"stale-after"`
	DisableProvision  bool `kdl:"disable-provision"`
}

type kdlAgent struct {
	Channel           string `kdl:"channel"`
	MaxBatchPerTick   int    `kdl:"max-batch-per-tick"`
	InboundQueueSize  int    `kdl:"inbound-queue-size"`
	OutboundQueueSize int    `kdl:"outbound-queue-size"`
	SendIntervalMs    int    `kdl:"send-interval-ms"`
}

// Load merges the global config and the project override over defaults.
// Missing files are fine; defaults apply.
func Load(projectDir string) (*Config, error) {
	cfg := DefaultConfig()

	if path := GlobalConfigPath(); path != "" {
		if err := mergeFile(cfg, path); err != nil {
			return nil, fmt.Errorf("global config: %w", err)
		}
	}
	if projectDir != "" {
		if err := mergeFile(cfg, filepath.Join(projectDir, ProjectConfigFile)); err != nil {
			return nil, fmt.Errorf("project config: %w", err)
		}
	}
	return cfg, nil
}

// mergeFile applies one KDL file onto cfg. A missing file is a no-op.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return Merge(cfg, string(data))
}

// Merge parses KDL data and applies the values it sets onto cfg.
func Merge(cfg *Config, data string) error {
	var k kdlConfig
	if err := kdl.Unmarshal([]byte(data), &k); err != nil {
		return err
	}

	if k.Version != "" {
		cfg.Version = k.Version
	}
	if c := k.Controller; c != nil {
		if c.PollInterval > 0 {
			cfg.Controller.PollInterval = time.Duration(c.PollInterval) * time.Second
		}
		if c.FastPollInterval > 0 {
			cfg.Controller.FastPollInterval = time.Duration(c.FastPollInterval) * time.Second
		}
		if c.HandshakeTimeout > 0 {
			cfg.Controller.HandshakeTimeout = time.Duration(c.HandshakeTimeout) * time.Second
		}
		if c.RequestTimeout > 0 {
			cfg.Controller.RequestTimeout = time.Duration(c.RequestTimeout) * time.Second
		}
		if c.ReconnectAttempts > 0 {
			cfg.Controller.ReconnectAttempts = c.ReconnectAttempts
		}
		if c.ReconnectDelay > 0 {
			cfg.Controller.ReconnectDelay = time.Duration(c.ReconnectDelay) * time.Second
		}
		if c.StaleAfter > 0 {
			cfg.Controller.StaleAfter = time.Duration(c.StaleAfter) * time.Second
		}
		if c.DisableProvision {
			cfg.Controller.AutoProvision = false
		}
	}
	if a := k.Agent; a != nil {
		if a.Channel != "" {
			cfg.Agent.Channel = a.Channel
		}
		if a.MaxBatchPerTick > 0 {
			cfg.Agent.MaxBatchPerTick = a.MaxBatchPerTick
		}
		if a.InboundQueueSize > 0 {
			cfg.Agent.InboundQueueSize = a.InboundQueueSize
		}
		if a.OutboundQueueSize > 0 {
			cfg.Agent.OutboundQueueSize = a.OutboundQueueSize
		}
		if a.SendIntervalMs > 0 {
			cfg.Agent.SendInterval = time.Duration(a.SendIntervalMs) * time.Millisecond
		}
	}
	return nil
}

// GlobalConfigPath returns the global config file location, honoring
// XDG_CONFIG_HOME. Empty when no home directory can be determined.
func GlobalConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "scenebridge", GlobalConfigFile)
}

// WriteDefaultConfig writes a documented default config file.
func WriteDefaultConfig(path string) error {
	defaultKDL := `// scenebridge configuration

version "1.0"

controller {
    // Discovery poll interval in seconds
    poll-interval 5
    // Re-poll delay after a failed connection attempt, in seconds
    fast-poll-interval 2
    // WebSocket handshake budget in seconds
    handshake-timeout 5
    // Per-command response budget in seconds
    request-timeout 10
    // Reconnect attempts after a dropped connection
    reconnect-attempts 5
    // Fixed delay between reconnect attempts, in seconds
    reconnect-delay 2
    // Discovery record freshness threshold in seconds
    stale-after 60
    // Uncomment to skip installing the agent plugin on startup
    // disable-provision true
}

agent {
    // Commands executed per engine tick
    max-batch-per-tick 10
    // Queued inbound commands before backpressure responses
    inbound-queue-size 256
    // Queued outbound frames before drops
    outbound-queue-size 256
    // Send loop cadence in milliseconds
    send-interval-ms 16
}
`
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.TrimSpace(defaultKDL)+"\n"), 0644)
}
