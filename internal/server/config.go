package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration
type Config struct {
	Server   Settings
	Defaults RoomDefaults
	AI       AISettings
}

// Settings contains server-level configuration
type Settings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// RoomDefaults supplies values for room creation fields the caller omits
type RoomDefaults struct {
	StartingStack int `hcl:"starting_stack,optional"`
	SmallBlind    int `hcl:"small_blind,optional"`
	BigBlind      int `hcl:"big_blind,optional"`
	MaxRooms      int `hcl:"max_rooms,optional"`
}

// AISettings configures the decision provider for automated seats
type AISettings struct {
	URL       string `hcl:"url,optional"`
	Model     string `hcl:"model,optional"`
	TimeoutMS int    `hcl:"timeout_ms,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: Settings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Defaults: RoomDefaults{
			StartingStack: 1000,
			SmallBlind:    10,
			BigBlind:      20,
			MaxRooms:      100,
		},
		AI: AISettings{
			URL:       "https://api.deepseek.com/chat/completions",
			Model:     "deepseek-chat",
			TimeoutMS: 12000,
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing file is
// not an error: the defaults are returned unchanged.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	// Every block is optional: absent blocks and absent fields fall back
	// to the defaults.
	var raw struct {
		Server   *Settings     `hcl:"server,block"`
		Defaults *RoomDefaults `hcl:"defaults,block"`
		AI       *AISettings   `hcl:"ai,block"`
	}
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config := DefaultConfig()
	if raw.Server != nil {
		if raw.Server.Address != "" {
			config.Server.Address = raw.Server.Address
		}
		if raw.Server.Port != 0 {
			config.Server.Port = raw.Server.Port
		}
		if raw.Server.LogLevel != "" {
			config.Server.LogLevel = raw.Server.LogLevel
		}
	}
	if raw.Defaults != nil {
		if raw.Defaults.StartingStack != 0 {
			config.Defaults.StartingStack = raw.Defaults.StartingStack
		}
		if raw.Defaults.SmallBlind != 0 {
			config.Defaults.SmallBlind = raw.Defaults.SmallBlind
		}
		if raw.Defaults.BigBlind != 0 {
			config.Defaults.BigBlind = raw.Defaults.BigBlind
		}
		if raw.Defaults.MaxRooms != 0 {
			config.Defaults.MaxRooms = raw.Defaults.MaxRooms
		}
	}
	if raw.AI != nil {
		if raw.AI.URL != "" {
			config.AI.URL = raw.AI.URL
		}
		if raw.AI.Model != "" {
			config.AI.Model = raw.AI.Model
		}
		if raw.AI.TimeoutMS != 0 {
			config.AI.TimeoutMS = raw.AI.TimeoutMS
		}
	}

	return config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Defaults.StartingStack <= 0 {
		return fmt.Errorf("starting stack must be positive")
	}
	if c.Defaults.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.Defaults.BigBlind <= c.Defaults.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if c.Defaults.MaxRooms <= 0 {
		return fmt.Errorf("max rooms must be positive")
	}
	if c.AI.TimeoutMS <= 0 {
		return fmt.Errorf("ai timeout must be positive")
	}
	return nil
}

// Addr returns the full listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// AITimeout returns the provider timeout as a duration
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutMS) * time.Millisecond
}
