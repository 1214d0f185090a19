package util

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const Name = "kinship"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host           string
		HttpPort       int          `yaml:"httpPort"`
		SshPort        int          `yaml:"sshPort"`
		WithConsole    bool         `yaml:"withConsole"`
		AdminKeys      []string     `yaml:"adminKeys"`
		Database       string       `yaml:"database"`
		EventsFile     string       `yaml:"eventsFile"`
		LogLevel       string       `yaml:"logLevel"`
		LogFile        string       `yaml:"logFile"`
		QuietUserAgent string       `yaml:"quietUserAgent"`
		RateLimit      float64      `yaml:"rateLimit"`
		RateBurst      int          `yaml:"rateBurst"`
		Presence       PresenceConf `yaml:"presence"`
	}
}

// PresenceConf holds the timing knobs of the presence engine.
type PresenceConf struct {
	HeartbeatTimeout time.Duration `yaml:"heartbeatTimeout"`
	SweepInterval    time.Duration `yaml:"sweepInterval"`
	PollTimeout      time.Duration `yaml:"pollTimeout"`
	Retention        time.Duration `yaml:"retention"`
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	buf, err := os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := filepath.Join(configDir, ConfigFileName)
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	// Defaults first so a partial file keeps sane timings.
	if err := yaml.Unmarshal(embeddedConfig, c); err != nil {
		return nil, fmt.Errorf("in embedded config: %w", err)
	}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	if err := applyEnv(c); err != nil {
		return nil, err
	}

	return c, nil
}

func applyEnv(c *AppConfig) error {
	if v := os.Getenv("KINSHIP_HOST"); v != "" {
		c.Conf.Host = v
	}

	if v := os.Getenv("KINSHIP_HTTPPORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KINSHIP_HTTPPORT: %w", err)
		}
		c.Conf.HttpPort = port
	}

	if v := os.Getenv("KINSHIP_SSHPORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KINSHIP_SSHPORT: %w", err)
		}
		c.Conf.SshPort = port
	}

	if v := os.Getenv("KINSHIP_WITH_CONSOLE"); v != "" {
		c.Conf.WithConsole = v == "true"
	}

	if v := os.Getenv("KINSHIP_DATABASE"); v != "" {
		c.Conf.Database = v
	}

	if v := os.Getenv("KINSHIP_EVENTS_FILE"); v != "" {
		c.Conf.EventsFile = v
	}

	if v := os.Getenv("KINSHIP_LOG_LEVEL"); v != "" {
		c.Conf.LogLevel = v
	}

	if v := os.Getenv("KINSHIP_LOG_FILE"); v != "" {
		c.Conf.LogFile = v
	}

	if v := os.Getenv("KINSHIP_POLL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("KINSHIP_POLL_TIMEOUT: %w", err)
		}
		c.Conf.Presence.PollTimeout = d
	}

	if v := os.Getenv("KINSHIP_HEARTBEAT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("KINSHIP_HEARTBEAT_TIMEOUT: %w", err)
		}
		c.Conf.Presence.HeartbeatTimeout = d
	}

	return nil
}
