package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/murrant/snmpsim/internal/state"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":8161" {
		t.Errorf("Server.Addr = %q, want :8161", cfg.Server.Addr)
	}
	if len(cfg.Data.Dirs) != 1 || cfg.Data.Dirs[0] != "data" {
		t.Errorf("Data.Dirs = %v, want [data]", cfg.Data.Dirs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default ok", func(c *Config) {}, false},
		{"no data dirs", func(c *Config) { c.Data.Dirs = nil }, true},
		{"valid subtree", func(c *Config) {
			c.Subtrees = []SubtreeConfig{{OID: "1.3.6.1.2.1.2.2", Settings: "dir=snapshots"}}
		}, false},
		{"bad subtree oid", func(c *Config) {
			c.Subtrees = []SubtreeConfig{{OID: "not-an-oid", Settings: "dir=snapshots"}}
		}, true},
		{"empty subtree settings", func(c *Config) {
			c.Subtrees = []SubtreeConfig{{OID: "1.3.6", Settings: ""}}
		}, true},
		{"redis ok", func(c *Config) {
			c.Redis = &state.RedisConfig{Host: "localhost", Port: 6379}
		}, false},
		{"redis missing host", func(c *Config) {
			c.Redis = &state.RedisConfig{Port: 6379}
		}, true},
		{"redis bad port", func(c *Config) {
			c.Redis = &state.RedisConfig{Host: "localhost"}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_MergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "data": {"dirs": ["/srv/snapshots"]},
  "subtrees": [{"oid": "1.3.6.1.2.1.2.2", "settings": "dir=ifmib,period=30"}]
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Addr != ":8161" {
		t.Errorf("Server.Addr = %q, want default :8161", cfg.Server.Addr)
	}
	if len(cfg.Data.Dirs) != 1 || cfg.Data.Dirs[0] != "/srv/snapshots" {
		t.Errorf("Data.Dirs = %v", cfg.Data.Dirs)
	}
	if len(cfg.Subtrees) != 1 || cfg.Subtrees[0].OID != "1.3.6.1.2.1.2.2" {
		t.Errorf("Subtrees = %v", cfg.Subtrees)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFile() should fail on a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() should fail on malformed JSON")
	}
}

func TestWriteExample_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.json")
	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample() error = %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile(example) error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("example config should validate: %v", err)
	}
	if len(cfg.Subtrees) != 1 {
		t.Errorf("example should declare one subtree, got %d", len(cfg.Subtrees))
	}
}
