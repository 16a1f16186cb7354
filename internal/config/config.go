// Package config loads ghgate settings from $GHGATE_HOME/config.yaml with
// GHGATE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/ghgate/internal/auth"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GHGATE_"

// Secret backends.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// MaxTimeout caps the per-request timeout so a misconfiguration cannot hang
// startup indefinitely.
const MaxTimeout = 2 * time.Minute

// Config holds ghgate configuration.
type Config struct {
	APIURL        string        `yaml:"api_url"`
	Timeout       time.Duration `yaml:"timeout"`
	Organization  string        `yaml:"organization"`
	AcceptedRoles []string      `yaml:"accepted_roles"`
	SecretBackend string        `yaml:"secret_backend"`
	StateDir      string        `yaml:"state_dir"`
	ItemsFile     string        `yaml:"items_file"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`

	// AuditLog records session events under StateDir/audit.
	AuditLog bool `yaml:"audit_log"`
}

// Default returns safe defaults. StateDir is filled in by Load.
func Default() Config {
	return Config{
		APIURL:        "https://api.github.com/",
		Timeout:       5 * time.Second,
		AcceptedRoles: []string{string(auth.RoleAdmin), string(auth.RoleMember)},
		SecretBackend: BackendKeyring,
		LogLevel:      "warn",
		LogFormat:     "text",
		AuditLog:      true,
	}
}

// Home returns $GHGATE_HOME, or ~/.ghgate.
func Home() (string, error) {
	if home := os.Getenv(EnvPrefix + "HOME"); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(userHome, ".ghgate"), nil
}

// Load reads the configuration file at path, applies environment overrides,
// and validates the result. An empty path means $GHGATE_HOME/config.yaml,
// which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	home, err := Home()
	if err != nil {
		return cfg, err
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(home, "config.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	cfg = LoadFromEnv(EnvPrefix, cfg)
	if cfg.StateDir == "" {
		cfg.StateDir = home
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv applies environment overrides with a prefix (e.g. GHGATE_).
// Values that fail to parse are ignored and the base value kept.
func LoadFromEnv(prefix string, base Config) Config {
	get := func(key string) string { return os.Getenv(prefix + key) }

	if value := get("API_URL"); value != "" {
		base.APIURL = value
	}
	if value := get("TIMEOUT"); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			base.Timeout = d
		}
	}
	if value := get("ORG"); value != "" {
		base.Organization = value
	}
	if value := get("ACCEPTED_ROLES"); value != "" {
		var roles []string
		for _, r := range strings.Split(value, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}
		base.AcceptedRoles = roles
	}
	if value := get("SECRET_BACKEND"); value != "" {
		base.SecretBackend = value
	}
	if value := get("STATE_DIR"); value != "" {
		base.StateDir = value
	}
	if value := get("ITEMS_FILE"); value != "" {
		base.ItemsFile = value
	}
	if value := get("LOG_LEVEL"); value != "" {
		base.LogLevel = value
	}
	if value := get("LOG_FORMAT"); value != "" {
		base.LogFormat = value
	}
	if value := get("AUDIT_LOG"); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			base.AuditLog = b
		}
	}
	return base
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Timeout > MaxTimeout {
		return fmt.Errorf("timeout %s exceeds maximum %s", c.Timeout, MaxTimeout)
	}
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if _, err := c.Roles(); err != nil {
		return err
	}
	if c.Organization != "" {
		if err := auth.ValidateOrganization(c.Organization); err != nil {
			return fmt.Errorf("organization: %w", err)
		}
	}
	switch c.SecretBackend {
	case BackendKeyring, BackendFile, BackendMemory:
	default:
		return fmt.Errorf("unknown secret_backend %q (want keyring, file or memory)", c.SecretBackend)
	}
	return nil
}

// Roles parses AcceptedRoles. An empty list means the default set.
func (c Config) Roles() ([]auth.Role, error) {
	if len(c.AcceptedRoles) == 0 {
		return auth.DefaultAcceptedRoles(), nil
	}
	roles := make([]auth.Role, 0, len(c.AcceptedRoles))
	for _, s := range c.AcceptedRoles {
		role, err := auth.ParseRole(s)
		if err != nil {
			return nil, fmt.Errorf("accepted_roles: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// ItemsPath returns the item catalog location, defaulting to
// StateDir/items.yaml.
func (c Config) ItemsPath() string {
	if c.ItemsFile != "" {
		return c.ItemsFile
	}
	return filepath.Join(c.StateDir, "items.yaml")
}

// StatePath is the plain session field file used by the file-based backends.
func (c Config) StatePath() string {
	return filepath.Join(c.StateDir, "session.yaml")
}

// SecretsPath is the encrypted token file used by the file secret backend.
func (c Config) SecretsPath() string {
	return filepath.Join(c.StateDir, "secrets.yaml")
}

// AuditDir is where session audit files are written.
func (c Config) AuditDir() string {
	return filepath.Join(c.StateDir, "audit")
}
