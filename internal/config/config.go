package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	Store         struct {
		// Driver is "file" (one JSON file per conversation) or "bolt".
		Driver string `json:"driver"`
	} `json:"store"`
	Export struct {
		DirectoryMode bool   `json:"directory_mode"`
		MaxDepth      int    `json:"max_depth"`
		OutputDir     string `json:"output_dir"`
		Destination   string `json:"destination"`
		TokenModel    string `json:"token_model"`
	} `json:"export"`
	Capture struct {
		BaseURL    string `json:"base_url"`
		OrgID      string `json:"org_id"`
		SessionKey string `json:"session_key"`
		UserAgent  string `json:"user_agent"`
	} `json:"capture"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
	S3 struct {
		Bucket       string `json:"bucket"`
		Region       string `json:"region"`
		Endpoint     string `json:"endpoint"`
		AccessKeyID  string `json:"access_key_id"`
		SecretKey    string `json:"secret_key"`
		Prefix       string `json:"prefix"`
		UsePathStyle bool   `json:"use_path_style"`
	} `json:"s3"`
	Telegram struct {
		Token  string `json:"token"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`
}

// DefaultPath returns ~/.artifactdl/config.json.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".artifactdl", "config.json")
}

func defaults() *Config {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".artifactdl"),
		MaxConcurrent: 2,
	}
	cfg.LogLevel = "info"
	cfg.Store.Driver = "file"
	cfg.Export.MaxDepth = 100
	cfg.Export.OutputDir = "."
	cfg.Export.TokenModel = "gpt-4"
	cfg.Capture.BaseURL = "https://claude.ai"
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = "127.0.0.1:8484"
	cfg.S3.Region = "us-east-1"
	return cfg
}

// Load reads the config at path over the defaults, writing the defaults first
// if the file is missing, then applies env overrides.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadFile is Load without env overrides: what the file itself says.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, defaults()); err != nil {
			return nil, err
		}
	}
	return readFile(path)
}

// readFile decodes the file at path over the defaults without env overrides.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides credentials from the environment (highest precedence).
func applyEnv(cfg *Config) {
	if v := os.Getenv("ARTIFACTDL_SESSION_KEY"); v != "" {
		cfg.Capture.SessionKey = v
	}
	if v := os.Getenv("ARTIFACTDL_ORG_ID"); v != "" {
		cfg.Capture.OrgID = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.S3.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.S3.SecretKey = v
	}
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeRaw(path, data)
}

func writeRaw(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
