package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ServerURL     string `toml:"server_url"`
	DataDir       string `toml:"data_dir"`
	DragToConnect bool   `toml:"drag_to_connect"`
	Confirmations bool   `toml:"confirmations"`
	Verbose       bool   `toml:"verbose"`
}

// loadConfig reads ~/.graphalfred.toml, falling back to defaults for
// anything missing or unreadable. Config trouble is never fatal.
func loadConfig() *Config {
	config := &Config{
		ServerURL:     "http://127.0.0.1:8787",
		DragToConnect: true,
		Confirmations: true,
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return config
	}
	config.DataDir = filepath.Join(homeDir, ".graphalfred")

	configPath := filepath.Join(homeDir, ".graphalfred.toml")
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config
	}

	if strings.HasPrefix(config.DataDir, "~") {
		config.DataDir = filepath.Join(homeDir, strings.TrimPrefix(config.DataDir, "~"))
	}
	if config.DataDir != "" && !filepath.IsAbs(config.DataDir) {
		if abs, err := filepath.Abs(config.DataDir); err == nil {
			config.DataDir = abs
		}
	}
	config.ServerURL = strings.TrimRight(config.ServerURL, "/")
	return config
}

// DataPath resolves a filename inside the data directory, creating the
// directory on first use.
func (c *Config) DataPath(filename string) string {
	if c.DataDir == "" {
		return filename
	}
	os.MkdirAll(c.DataDir, 0755)
	return filepath.Join(c.DataDir, filename)
}
