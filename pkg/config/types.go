package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds runtime key sets for use by other packages.
type RuntimeConfig struct {
	BackendKeys map[string]struct{}
	SigningKeys map[string]struct{}
}

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Community CommunityConfig `yaml:"community"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
	APIKeys     struct {
		Backend  []string `yaml:"backend"`
		Frontend []string `yaml:"frontend"`
		Admin    []string `yaml:"admin"`
	} `yaml:"api_keys"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// AuditDir, when set, receives a JSON audit log of moderation actions.
	AuditDir string `yaml:"audit_dir"`
}

// CommunityConfig holds chat domain settings.
type CommunityConfig struct {
	// DefaultChannel is the fallback active channel id when the requested
	// one does not resolve.
	DefaultChannel string `yaml:"default_channel"`
	// DeletePolicy decides what happens to replies when a parent message is
	// deleted: "orphan" keeps them (they become thread roots), "cascade"
	// deletes them recursively.
	DeletePolicy string `yaml:"delete_policy"`
	// MaxContentBytes caps message content length; 0 means unlimited.
	MaxContentBytes SizeBytes `yaml:"max_content_bytes"`
	// BannedWords are rejected in message content at send/edit time.
	BannedWords []string `yaml:"banned_words"`
	// SeedChannels are created at startup when missing.
	SeedChannels []SeedChannel `yaml:"seed_channels"`
}

// SeedChannel describes a channel provisioned at startup.
type SeedChannel struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Icon     string `yaml:"icon"`
	Category string `yaml:"category"`
}

// DeletePolicyOrphan and DeletePolicyCascade are the accepted values for
// CommunityConfig.DeletePolicy.
const (
	DeletePolicyOrphan  = "orphan"
	DeletePolicyCascade = "cascade"
)

// SweeperConfig holds configuration for the automatic purge runner.
type SweeperConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Cron      string   `yaml:"cron"`
	Period    Duration `yaml:"period"`
	BatchSize int      `yaml:"batch_size"`
	DryRun    bool     `yaml:"dry_run"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly
// strings like "64KB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration wraps time.Duration with YAML parsing from strings like "720h"
// or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
