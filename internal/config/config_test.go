package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := &Config{
		DataDir:       "/tmp/test-data",
		LogLevel:      "debug",
		MaxConcurrent: 4,
	}
	original.Store.Driver = "bolt"
	original.Export.DirectoryMode = true
	original.Export.MaxDepth = 50
	original.Capture.OrgID = "org-1"
	original.Capture.SessionKey = "sk-ant-round-trip"
	original.S3.Bucket = "artifacts"
	original.S3.SecretKey = "s3-secret-123"
	original.Telegram.Token = "bot-token-456"
	original.Telegram.ChatID = -100123

	// Save
	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file does not exist after Save: %v", err)
	}

	// Reload
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Compare key fields
	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir mismatch: %v != %v", loaded.DataDir, original.DataDir)
	}
	if loaded.LogLevel != original.LogLevel {
		t.Errorf("LogLevel mismatch: %v != %v", loaded.LogLevel, original.LogLevel)
	}
	if loaded.MaxConcurrent != original.MaxConcurrent {
		t.Errorf("MaxConcurrent mismatch: %v != %v", loaded.MaxConcurrent, original.MaxConcurrent)
	}
	if loaded.Store.Driver != original.Store.Driver {
		t.Errorf("Store.Driver mismatch: %v != %v", loaded.Store.Driver, original.Store.Driver)
	}
	if loaded.Export.DirectoryMode != original.Export.DirectoryMode {
		t.Errorf("Export.DirectoryMode mismatch: %v != %v", loaded.Export.DirectoryMode, original.Export.DirectoryMode)
	}
	if loaded.Export.MaxDepth != original.Export.MaxDepth {
		t.Errorf("Export.MaxDepth mismatch: %v != %v", loaded.Export.MaxDepth, original.Export.MaxDepth)
	}
	if loaded.Capture.SessionKey != original.Capture.SessionKey {
		t.Errorf("Capture.SessionKey mismatch: %v != %v", loaded.Capture.SessionKey, original.Capture.SessionKey)
	}
	if loaded.S3.Bucket != original.S3.Bucket {
		t.Errorf("S3.Bucket mismatch: %v != %v", loaded.S3.Bucket, original.S3.Bucket)
	}
	if loaded.Telegram.ChatID != original.Telegram.ChatID {
		t.Errorf("Telegram.ChatID mismatch: %v != %v", loaded.Telegram.ChatID, original.Telegram.ChatID)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify no temp file left behind
	tmpPath := path + ".tmp"
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	// Verify the file is valid JSON
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.json")

	cfg := &Config{LogLevel: "warn"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save should create parent directory, got: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("ARTIFACTDL_SESSION_KEY", "sk-from-env")
	t.Setenv("ARTIFACTDL_ORG_ID", "org-env")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "aws-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Capture.SessionKey != "sk-from-env" || cfg.Capture.OrgID != "org-env" {
		t.Errorf("env overrides not applied: %+v", cfg.Capture)
	}
	if cfg.S3.SecretKey != "aws-secret" {
		t.Errorf("expected s3 secret from env, got %q", cfg.S3.SecretKey)
	}

	// Env values must not leak into the file.
	v, err := GetValue(path, "capture.session_key")
	if err != nil {
		t.Fatal(err)
	}
	if v != "" {
		t.Errorf("expected file session_key to stay empty, got %v", v)
	}
	fileCfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if fileCfg.Capture.OrgID != "" || fileCfg.S3.SecretKey != "" {
		t.Errorf("LoadFile applied env overrides: %+v %+v", fileCfg.Capture, fileCfg.S3)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(tempConfigPath(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != "file" || cfg.Export.MaxDepth != 100 || cfg.MaxConcurrent != 2 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ARTIFACTDL_ORG_ID=org-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARTIFACTDL_ORG_ID", "")

	LoadEnvFiles(path)

	if got := os.Getenv("ARTIFACTDL_ORG_ID"); got != "org-dotenv" {
		t.Errorf("expected org-dotenv, got %q", got)
	}
}
