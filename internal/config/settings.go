package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DestinationPrefixes are the sink schemes a destination may start with.
var DestinationPrefixes = []string{"file:", "s3:", "telegram:"}

// setting binds a dotted key to one field of Config.
type setting struct {
	secret bool
	get    func(*Config) any
	set    func(*Config, string) error
}

func stringSetting(field func(*Config) *string, check func(string) error) setting {
	return setting{
		get: func(c *Config) any { return *field(c) },
		set: func(c *Config, v string) error {
			if check != nil {
				if err := check(v); err != nil {
					return err
				}
			}
			*field(c) = v
			return nil
		},
	}
}

func secretSetting(field func(*Config) *string) setting {
	s := stringSetting(field, nil)
	s.secret = true
	return s
}

func boolSetting(field func(*Config) *bool) setting {
	return setting{
		get: func(c *Config) any { return *field(c) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", v)
			}
			*field(c) = b
			return nil
		},
	}
}

func intSetting(field func(*Config) *int, min int) setting {
	return setting{
		get: func(c *Config) any { return *field(c) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("expected an integer, got %q", v)
			}
			if n < min {
				return fmt.Errorf("must be at least %d, got %d", min, n)
			}
			*field(c) = n
			return nil
		},
	}
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s, got %q", strings.Join(allowed, ", "), v)
	}
}

func notEmpty(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func validDestination(v string) error {
	if v == "" {
		return nil
	}
	for _, p := range DestinationPrefixes {
		if strings.HasPrefix(v, p) {
			return nil
		}
	}
	return fmt.Errorf("must start with one of %s, got %q", strings.Join(DestinationPrefixes, ", "), v)
}

func validBaseURL(v string) error {
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL, got %q", v)
	}
	return nil
}

func validListen(v string) error {
	if _, _, err := net.SplitHostPort(v); err != nil {
		return fmt.Errorf("must be host:port, got %q", v)
	}
	return nil
}

var settings = map[string]setting{
	"data_dir":       stringSetting(func(c *Config) *string { return &c.DataDir }, notEmpty),
	"log_level":      stringSetting(func(c *Config) *string { return &c.LogLevel }, oneOf("debug", "info", "warn", "error")),
	"max_concurrent": intSetting(func(c *Config) *int { return &c.MaxConcurrent }, 1),

	"store.driver": stringSetting(func(c *Config) *string { return &c.Store.Driver }, oneOf("file", "bolt")),

	"export.directory_mode": boolSetting(func(c *Config) *bool { return &c.Export.DirectoryMode }),
	"export.max_depth":      intSetting(func(c *Config) *int { return &c.Export.MaxDepth }, 1),
	"export.output_dir":     stringSetting(func(c *Config) *string { return &c.Export.OutputDir }, notEmpty),
	"export.destination":    stringSetting(func(c *Config) *string { return &c.Export.Destination }, validDestination),
	"export.token_model":    stringSetting(func(c *Config) *string { return &c.Export.TokenModel }, notEmpty),

	"capture.base_url":    stringSetting(func(c *Config) *string { return &c.Capture.BaseURL }, validBaseURL),
	"capture.org_id":      stringSetting(func(c *Config) *string { return &c.Capture.OrgID }, nil),
	"capture.session_key": secretSetting(func(c *Config) *string { return &c.Capture.SessionKey }),
	"capture.user_agent":  stringSetting(func(c *Config) *string { return &c.Capture.UserAgent }, nil),

	"http.enabled": boolSetting(func(c *Config) *bool { return &c.HTTP.Enabled }),
	"http.listen":  stringSetting(func(c *Config) *string { return &c.HTTP.Listen }, validListen),

	"s3.bucket":         stringSetting(func(c *Config) *string { return &c.S3.Bucket }, nil),
	"s3.region":         stringSetting(func(c *Config) *string { return &c.S3.Region }, notEmpty),
	"s3.endpoint":       stringSetting(func(c *Config) *string { return &c.S3.Endpoint }, nil),
	"s3.access_key_id":  secretSetting(func(c *Config) *string { return &c.S3.AccessKeyID }),
	"s3.secret_key":     secretSetting(func(c *Config) *string { return &c.S3.SecretKey }),
	"s3.prefix":         stringSetting(func(c *Config) *string { return &c.S3.Prefix }, nil),
	"s3.use_path_style": boolSetting(func(c *Config) *bool { return &c.S3.UsePathStyle }),

	"telegram.token": secretSetting(func(c *Config) *string { return &c.Telegram.Token }),
	"telegram.chat_id": {
		get: func(c *Config) any { return c.Telegram.ChatID },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("expected a numeric chat id, got %q", v)
			}
			c.Telegram.ChatID = n
			return nil
		},
	},
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return settings[key].secret
}

func lookup(key string) (setting, error) {
	s, ok := settings[key]
	if !ok {
		return setting{}, fmt.Errorf("unknown config key: %s", key)
	}
	return s, nil
}

// MaskSecret hides all but the last four characters of a credential.
func MaskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return "***" + v[len(v)-4:]
}

// ListValues returns every setting of cfg keyed by its dotted name. With mask
// set, credentials are replaced by MaskSecret.
func ListValues(cfg *Config, mask bool) map[string]any {
	out := make(map[string]any, len(settings))
	for k, s := range settings {
		v := s.get(cfg)
		if mask && s.secret {
			v = MaskSecret(v.(string))
		}
		out[k] = v
	}
	return out
}

// GetValue reads key from the config file at path, creating it with defaults
// if missing. Env overrides are not applied.
func GetValue(path, key string) (any, error) {
	s, err := lookup(key)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return s.get(cfg), nil
}

// SetValue validates value for key and writes it to the existing config file
// at path. Unknown keys and values of the wrong type are rejected.
func SetValue(path, key, value string) error {
	s, err := lookup(key)
	if err != nil {
		return err
	}
	cfg, err := readFile(path)
	if err != nil {
		return err
	}
	if err := s.set(cfg, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return Save(path, cfg)
}
