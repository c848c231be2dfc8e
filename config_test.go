package thpool

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.NamePrefix != "thpool" {
		t.Errorf("NamePrefix = %q, want \"thpool\"", cfg.NamePrefix)
	}
	if cfg.NumThreads != 0 {
		t.Errorf("NumThreads = %d, want 0 (must be chosen explicitly)", cfg.NumThreads)
	}
	if err := cfg.validate(); err == nil {
		t.Error("default config validated without a worker count")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) { c.NumThreads = 2 },
			wantErr: false,
		},
		{
			name:    "zero threads",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name:    "negative threads",
			mutate:  func(c *Config) { c.NumThreads = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	data := []byte("name_prefix: ldr\nnum_threads: 3\nqueue_max: 16\npin_os_threads: false\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.NamePrefix != "ldr" {
		t.Errorf("NamePrefix = %q, want \"ldr\"", cfg.NamePrefix)
	}
	if cfg.NumThreads != 3 {
		t.Errorf("NumThreads = %d, want 3", cfg.NumThreads)
	}
	if cfg.QueueMax != 16 {
		t.Errorf("QueueMax = %d, want 16", cfg.QueueMax)
	}

	pool, err := New(WithConfig(cfg))
	if err != nil {
		t.Fatalf("New(WithConfig) error = %v", err)
	}
	defer destroyPool(t, pool)
	if pool.NumWorkers() != 3 {
		t.Errorf("NumWorkers() = %d, want 3", pool.NumWorkers())
	}
	if pool.Name() != "ldr" {
		t.Errorf("Name() = %q, want \"ldr\"", pool.Name())
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() on missing file returned nil error")
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("num_threads: [not a number"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() on malformed yaml returned nil error")
	}
}

func TestOptions_ComposeOverConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumThreads = 2
	cfg.NamePrefix = "base"

	pool, err := New(
		WithConfig(cfg),
		WithNumThreads(4), // options after WithConfig win
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer destroyPool(t, pool)

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}
	if pool.Name() != "base" {
		t.Errorf("Name() = %q, want \"base\"", pool.Name())
	}
}
