// Package jinconfig manages the user-global config file at
// "$JIN_DIR/config": remote URL, fetch-on-init flag, and user
// name/email, per spec.md §6's persisted state layout. Grounded on the
// teacher's internal/config/config.go (Remote/Config structs,
// Load/Write, remote accessors), but swapped from hand-rolled
// section-parsing to github.com/BurntSushi/toml — the teacher's own INI-
// like parser is exactly the kind of hand-rolled format handling this
// codebase otherwise avoids.
package jinconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Remote is a named remote layer store, e.g. "origin".
type Remote struct {
	URL          string            `toml:"url"`
	Auth         string            `toml:"auth,omitempty"`
	ExtraHeaders map[string]string `toml:"headers,omitempty"`
}

// User holds commit authorship info.
type User struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// Config is the full contents of $JIN_DIR/config.
type Config struct {
	User         User              `toml:"user"`
	FetchOnInit  bool              `toml:"fetch_on_init"`
	Remotes      map[string]Remote `toml:"remote"`
	path         string
}

// DefaultRemoteName is the name `link` gives the remote it creates.
const DefaultRemoteName = "origin"

// Load reads path, returning an empty Config if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{Remotes: make(map[string]Remote), path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config at %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]Remote)
	}
	cfg.path = path
	return cfg, nil
}

// Save writes the config via temp-file-and-rename.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create config temp file: %w", err)
	}
	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close config temp file: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// SetRemote adds or replaces a remote entry.
func (c *Config) SetRemote(name string, r Remote) {
	if c.Remotes == nil {
		c.Remotes = make(map[string]Remote)
	}
	c.Remotes[name] = r
}

// GetRemote returns a remote entry by name.
func (c *Config) GetRemote(name string) (Remote, bool) {
	r, ok := c.Remotes[name]
	return r, ok
}

// RemoveRemote deletes a remote entry; absence is not an error.
func (c *Config) RemoveRemote(name string) {
	delete(c.Remotes, name)
}
