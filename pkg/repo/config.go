package repo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/odvcencio/vcs/pkg/object"
	"github.com/odvcencio/vcs/pkg/vcserr"
)

// GlobalConfigName is the per-user configuration file in the home directory.
const GlobalConfigName = ".vcsconfig"

const (
	defaultAuthorName  = "unknown"
	defaultAuthorEmail = "user@example.com"
)

// Config is the TOML document stored in .vcs/config and ~/.vcsconfig.
type Config struct {
	User UserConfig `toml:"user"`
}

// UserConfig identifies the commit author.
type UserConfig struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

// configKeys maps each supported dotted key to its field.
var configKeys = map[string]func(*Config) *string{
	"user.name":  func(c *Config) *string { return &c.User.Name },
	"user.email": func(c *Config) *string { return &c.User.Email },
}

// ConfigItem is one key/value pair reported by List.
type ConfigItem struct {
	Key   string
	Value string
}

// ConfigStore reads and writes the repository and global config files.
// Lookups consult the repository file first, then the global one.
type ConfigStore struct {
	RepoPath   string // "" when there is no repository
	GlobalPath string
}

// NewConfigStore returns a store for r's config file and the user's global
// file. r may be nil, in which case only the global file is used.
func NewConfigStore(r *Repo) *ConfigStore {
	cs := &ConfigStore{GlobalPath: GlobalConfigPath()}
	if r != nil {
		cs.RepoPath = filepath.Join(r.VcsDir, "config")
	}
	return cs
}

// GlobalConfigPath returns ~/.vcsconfig, or .vcsconfig in the current
// directory when the home directory cannot be determined.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return GlobalConfigName
	}
	return filepath.Join(home, GlobalConfigName)
}

func configField(key string) (func(*Config) *string, error) {
	field, ok := configKeys[key]
	if !ok {
		return nil, vcserr.Errorf(vcserr.ErrInvalidInput, "unknown config key %q (known keys: %s)", key, strings.Join(knownConfigKeys(), ", "))
	}
	return field, nil
}

func knownConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key. An unknown key is ErrInvalidInput; a key
// set in neither file is ErrNotFound.
func (cs *ConfigStore) Get(key string) (string, error) {
	field, err := configField(key)
	if err != nil {
		return "", err
	}
	for _, p := range []string{cs.RepoPath, cs.GlobalPath} {
		if p == "" {
			continue
		}
		cfg, err := readConfigFile(p)
		if err != nil {
			return "", err
		}
		if v := *field(cfg); v != "" {
			return v, nil
		}
	}
	return "", vcserr.Errorf(vcserr.ErrNotFound, "config key %q not found", key)
}

// Set stores key in the repository file, or in the global file when global
// is true.
func (cs *ConfigStore) Set(key, value string, global bool) error {
	field, err := configField(key)
	if err != nil {
		return err
	}
	if err := object.ValidateHeaderValue(key, value); err != nil {
		return fmt.Errorf("set config: %w", err)
	}
	p := cs.RepoPath
	if global {
		p = cs.GlobalPath
	}
	if p == "" {
		return vcserr.Errorf(vcserr.ErrNotFound, "set config: not in a vcs repository (use --global)")
	}

	cfg, err := readConfigFile(p)
	if err != nil {
		return err
	}
	*field(cfg) = value

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("write config: mkdir: %w", err)
	}
	if err := writeFileAtomic(p, buf.Bytes(), ".config-tmp-*"); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// List returns the repository keys followed by the global keys, the latter
// prefixed with "global.". Unset keys are omitted.
func (cs *ConfigStore) List() ([]ConfigItem, error) {
	var items []ConfigItem
	add := func(p, prefix string) error {
		if p == "" {
			return nil
		}
		cfg, err := readConfigFile(p)
		if err != nil {
			return err
		}
		for _, k := range knownConfigKeys() {
			if v := *configKeys[k](cfg); v != "" {
				items = append(items, ConfigItem{Key: prefix + k, Value: v})
			}
		}
		return nil
	}
	if err := add(cs.RepoPath, ""); err != nil {
		return nil, err
	}
	if err := add(cs.GlobalPath, "global."); err != nil {
		return nil, err
	}
	return items, nil
}

// Author returns the commit author string "name <email>". A missing name
// falls back to $USER and then "unknown"; a missing email falls back to
// user@example.com.
func (cs *ConfigStore) Author() (string, error) {
	name, err := cs.Get("user.name")
	if err != nil && !vcserr.Is(err, vcserr.ErrNotFound) {
		return "", err
	}
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = defaultAuthorName
	}

	email, err := cs.Get("user.email")
	if err != nil && !vcserr.Is(err, vcserr.ErrNotFound) {
		return "", err
	}
	if email == "" {
		email = defaultAuthorEmail
	}
	return fmt.Sprintf("%s <%s>", name, email), nil
}

// readConfigFile decodes a TOML config file. A missing file is an empty
// config.
func readConfigFile(p string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", p, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, vcserr.Errorf(vcserr.ErrCorrupt, "read config %s: %v", p, err)
	}
	return cfg, nil
}
