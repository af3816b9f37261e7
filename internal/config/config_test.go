package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
embedding:
  provider: "ollama"
  model: "nomic-embed-text"
storage:
  database_path: "/tmp/index.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Storage.DatabasePath != "/tmp/index.db" {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
	if cfg.Index.Table != "code" {
		t.Errorf("index table should default to code, got %s", cfg.Index.Table)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("default provider: got %s", cfg.Embedding.Provider)
	}
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("default limit: got %d", cfg.Search.DefaultLimit)
	}
}

func TestLoad_malformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("embedding: [broken"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed yaml should fail to load")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/index.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "data", "index.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Storage.DatabasePath != ".semindex/index.db" {
		t.Errorf("default database_path: got %s", cfg.Storage.DatabasePath)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("default provider: got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.CacheSize != 10000 {
		t.Errorf("default embedding cache size: got %d", cfg.Embedding.CacheSize)
	}
	if cfg.Index.Table != "code" {
		t.Errorf("default table: got %s", cfg.Index.Table)
	}
	if cfg.Search.CacheTTL() != time.Hour {
		t.Errorf("default search cache ttl: got %s", cfg.Search.CacheTTL())
	}
}

func TestApplyDefaults_keepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Embedding: EmbeddingConfig{Provider: "openai"},
		Index:     IndexConfig{Workers: 4},
	}
	ApplyDefaults(cfg)
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("provider overwritten: got %s", cfg.Embedding.Provider)
	}
	if cfg.Index.Workers != 4 {
		t.Errorf("workers overwritten: got %d", cfg.Index.Workers)
	}
}
