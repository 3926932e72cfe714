package config

import (
	"os"
	"strings"
	"testing"
)

func TestKeysMatchConfigFields(t *testing.T) {
	keys := Keys()
	if len(keys) != len(settings) {
		t.Fatalf("expected %d keys, got %d", len(settings), len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("keys not sorted: %s before %s", keys[i-1], keys[i])
		}
	}

	// Every key resolves to a value on a populated config.
	values := ListValues(defaults(), false)
	for _, k := range keys {
		if _, ok := values[k]; !ok {
			t.Errorf("key %s missing from ListValues", k)
		}
	}
	if values["store.driver"] != "file" || values["export.max_depth"] != 100 {
		t.Errorf("unexpected default values: driver=%v max_depth=%v", values["store.driver"], values["export.max_depth"])
	}
}

func TestSetValueTyped(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, defaults())

	cases := []struct {
		key, value string
		want       any
	}{
		{"log_level", "debug", "debug"},
		{"max_concurrent", "16", 16},
		{"store.driver", "bolt", "bolt"},
		{"export.directory_mode", "true", true},
		{"export.max_depth", "250", 250},
		{"export.destination", "s3:archives", "s3:archives"},
		{"capture.base_url", "https://chat.example.com", "https://chat.example.com"},
		{"http.listen", ":9090", ":9090"},
		{"telegram.chat_id", "-100123", int64(-100123)},
	}
	for _, tc := range cases {
		if err := SetValue(path, tc.key, tc.value); err != nil {
			t.Fatalf("SetValue(%s=%s): %v", tc.key, tc.value, err)
		}
		got, err := GetValue(path, tc.key)
		if err != nil {
			t.Fatalf("GetValue(%s): %v", tc.key, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %v (%T), got %v (%T)", tc.key, tc.want, tc.want, got, got)
		}
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != "bolt" || !cfg.Export.DirectoryMode || cfg.Export.MaxDepth != 250 {
		t.Errorf("typed config not updated: %+v", cfg)
	}
	// Untouched settings keep their previous value.
	if cfg.S3.Region != "us-east-1" {
		t.Errorf("expected s3.region preserved, got %q", cfg.S3.Region)
	}
}

func TestSetValueRejects(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, defaults())

	cases := []struct {
		key, value, wantErr string
	}{
		{"export.maxdepth", "5", "unknown config key: export.maxdepth"},
		{"custom.setting", "value", "unknown config key"},
		{"store.driver", "sqlite", "must be one of file, bolt"},
		{"log_level", "verbose", "must be one of"},
		{"export.max_depth", "deep", "expected an integer"},
		{"export.max_depth", "0", "must be at least 1"},
		{"max_concurrent", "-1", "must be at least 1"},
		{"export.directory_mode", "maybe", "expected true or false"},
		{"export.destination", "ftp:host", "must start with one of"},
		{"capture.base_url", "claude.ai", "must be an http(s) URL"},
		{"http.listen", "8484", "must be host:port"},
		{"telegram.chat_id", "@channel", "expected a numeric chat id"},
		{"data_dir", " ", "must not be empty"},
	}
	for _, tc := range cases {
		err := SetValue(path, tc.key, tc.value)
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("SetValue(%s=%q): expected error containing %q, got %v", tc.key, tc.value, tc.wantErr, err)
		}
	}

	// Rejected writes leave the file untouched.
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Driver != "file" || cfg.Export.MaxDepth != 100 || cfg.LogLevel != "info" {
		t.Errorf("rejected values leaked into config: %+v", cfg)
	}
}

func TestSetValueEmptyDestinationAllowed(t *testing.T) {
	path := tempConfigPath(t)
	cfg := defaults()
	cfg.Export.Destination = "file:/tmp/out"
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "export.destination", ""); err != nil {
		t.Fatalf("clearing destination failed: %v", err)
	}
	if v, _ := GetValue(path, "export.destination"); v != "" {
		t.Errorf("expected empty destination, got %v", v)
	}
}

func TestSetValueMissingFile(t *testing.T) {
	path := tempConfigPath(t)
	if err := SetValue(path, "log_level", "debug"); err == nil {
		t.Fatal("expected error for missing config file")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("SetValue must not create the config file")
	}
}

func TestGetValueCreatesDefaults(t *testing.T) {
	path := tempConfigPath(t)
	v, err := GetValue(path, "capture.base_url")
	if err != nil {
		t.Fatal(err)
	}
	if v != "https://claude.ai" {
		t.Errorf("expected default base url, got %v", v)
	}
	if _, err := GetValue(path, "capture.orgid"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSecretsMasked(t *testing.T) {
	cfg := defaults()
	cfg.Capture.SessionKey = "sk-ant-sid01-abcd1234"
	cfg.S3.SecretKey = "abc"
	cfg.Telegram.Token = ""

	masked := ListValues(cfg, true)
	if masked["capture.session_key"] != "***1234" {
		t.Errorf("expected last four characters only, got %v", masked["capture.session_key"])
	}
	if masked["s3.secret_key"] != "***" {
		t.Errorf("short secrets must be fully hidden, got %v", masked["s3.secret_key"])
	}
	if masked["telegram.token"] != "" {
		t.Errorf("unset secret should stay empty, got %v", masked["telegram.token"])
	}
	if masked["capture.org_id"] != cfg.Capture.OrgID {
		t.Error("non-secret values must not be masked")
	}

	plain := ListValues(cfg, false)
	if plain["capture.session_key"] != cfg.Capture.SessionKey {
		t.Error("expected raw secret without masking")
	}

	for _, k := range []string{"capture.session_key", "s3.access_key_id", "s3.secret_key", "telegram.token"} {
		if !IsSecretKey(k) {
			t.Errorf("expected %s to be secret", k)
		}
	}
	if IsSecretKey("s3.bucket") || IsSecretKey("no.such.key") {
		t.Error("unexpected secret key")
	}
}
