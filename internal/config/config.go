package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/murrant/snmpsim/internal/record"
	"github.com/murrant/snmpsim/internal/state"
)

// Config is the top-level configuration for a snmpsim session.
type Config struct {
	Server   ServerConfig       `json:"server"`
	Data     DataConfig         `json:"data"`
	Redis    *state.RedisConfig `json:"redis,omitempty"`
	Subtrees []SubtreeConfig    `json:"subtrees"`
}

// ServerConfig holds debug HTTP server settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// DataConfig holds the search roots relative snapshot directories are
// resolved against.
type DataConfig struct {
	Dirs []string `json:"dirs"`
}

// SubtreeConfig binds one monitored subtree to its multiplex settings
// string (dir=...,period=...,wrap=...,control=...).
type SubtreeConfig struct {
	OID      string `json:"oid"`
	Settings string `json:"settings"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8161",
		},
		Data: DataConfig{
			Dirs: []string{"data"},
		},
	}
}

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if len(c.Data.Dirs) == 0 {
		return fmt.Errorf("at least one data dir is required")
	}
	for _, st := range c.Subtrees {
		if err := record.ValidOID(st.OID); err != nil {
			return fmt.Errorf("subtree: %w", err)
		}
		if st.Settings == "" {
			return fmt.Errorf("subtree %s: settings must not be empty", st.OID)
		}
	}
	if c.Redis != nil {
		if c.Redis.Host == "" {
			return fmt.Errorf("redis.host is required when redis is configured")
		}
		if c.Redis.Port <= 0 {
			return fmt.Errorf("redis.port must be positive, got %d", c.Redis.Port)
		}
	}
	return nil
}

// LoadFile reads a JSON config file and merges it with defaults.
// Fields not specified in the file retain their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	var raw Config
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if raw.Server.Addr != "" {
		cfg.Server.Addr = raw.Server.Addr
	}
	if len(raw.Data.Dirs) > 0 {
		cfg.Data.Dirs = raw.Data.Dirs
	}
	cfg.Redis = raw.Redis
	cfg.Subtrees = raw.Subtrees

	return cfg, nil
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	example := `{
  "server": {
    "addr": ":8161"
  },
  "data": {
    "dirs": ["data"]
  },
  "subtrees": [
    {
      "oid": "1.3.6.1.2.1.2.2",
      "settings": "dir=snapshots/ifmib,period=30,wrap=true"
    }
  ]
}
`
	return os.WriteFile(path, []byte(example), 0o644)
}
