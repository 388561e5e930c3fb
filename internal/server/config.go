package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zalo/manapotion/internal/listener"
	"github.com/zalo/manapotion/internal/session"
)

// Config holds the server configuration
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// StaticDir serves the page scripts. Empty means search the usual
	// locations.
	StaticDir string `json:"static_dir,omitempty" yaml:"static_dir,omitempty"`

	// ICEServers is a list of STUN/TURN server URLs
	ICEServers []string `json:"ice_servers" yaml:"ice_servers"`

	// TURNUsername for TURN authentication (optional)
	TURNUsername string `json:"turn_username,omitempty" yaml:"turn_username,omitempty"`

	// TURNCredential for TURN authentication (optional)
	TURNCredential string `json:"turn_credential,omitempty" yaml:"turn_credential,omitempty"`

	// MaxSessions caps concurrently connected pages; 0 means no cap.
	MaxSessions int `json:"max_sessions" yaml:"max_sessions"`

	// FrameRate of the live snapshot stream.
	FrameRate int `json:"frame_rate" yaml:"frame_rate"`

	// LiveIntervalMS throttles live snapshots below the frame rate.
	LiveIntervalMS int `json:"live_interval_ms" yaml:"live_interval_ms"`

	// ActionTimeoutMS bounds how long an action waits for the page.
	ActionTimeoutMS int `json:"action_timeout_ms" yaml:"action_timeout_ms"`

	// Listeners holds the default listener timing, in milliseconds.
	Listeners listener.Timing `json:"listeners" yaml:"listeners"`

	// ConfigPath is the file the configuration was loaded from
	ConfigPath string `json:"-" yaml:"-"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		MaxSessions:     64,
		FrameRate:       60,
		ActionTimeoutMS: 5000,
		ICEServers: []string{
			"stun:stun.l.google.com:19302",
		},
	}
}

// LoadConfig reads a JSON or YAML file over the defaults. The format is
// chosen by extension.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ConfigPath = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, including the listener timing.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.MaxSessions < 0 || c.FrameRate < 0 || c.LiveIntervalMS < 0 || c.ActionTimeoutMS < 0 {
		return fmt.Errorf("max_sessions, frame_rate, live_interval_ms and action_timeout_ms must not be negative")
	}
	var lc listener.Config
	c.Listeners.Apply(&lc)
	if err := lc.Validate(); err != nil {
		return fmt.Errorf("listeners: %w", err)
	}
	return nil
}

// SessionConfig derives the per-session configuration.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Timing:        c.Listeners,
		FrameRate:     c.FrameRate,
		LiveInterval:  time.Duration(c.LiveIntervalMS) * time.Millisecond,
		ActionTimeout: time.Duration(c.ActionTimeoutMS) * time.Millisecond,
	}
}
