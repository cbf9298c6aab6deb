package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glyphvcs/glyph/pkg/object"
)

// Config stores repository-local settings: named remotes (spec's exchange
// collaborator addresses this repo talks to) and the default identity used
// when USER_NAME/USER_EMAIL aren't supplied by the caller. Grounded on the
// teacher's pkg/repo/config.go (ReadConfig/WriteConfig/SetRemote/RemoteURL),
// adapted to the spec 6 control directory and extended with the identity
// block spec 6's environment-variable note implies a repo-local fallback
// for.
type Config struct {
	Remotes     map[string]string `json:"remotes,omitempty"`
	UserName    string            `json:"user_name,omitempty"`
	UserEmail   string            `json:"user_email,omitempty"`
}

func (r *Repo) configPath() string {
	return filepath.Join(r.CtrlDir, "config.json")
}

// ReadConfig reads <ctrl-dir>/config.json. Missing config returns an empty
// config.
func (r *Repo) ReadConfig() (*Config, error) {
	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Remotes: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("read config: unmarshal: %w", err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	return &cfg, nil
}

// WriteConfig atomically writes <ctrl-dir>/config.json.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("write config: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(r.CtrlDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// SetRemote stores/updates a named remote URL in repository config.
func (r *Repo) SetRemote(name, remoteURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("set remote: remote name is required")
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return fmt.Errorf("set remote: remote URL is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	cfg.Remotes[name] = remoteURL
	return r.WriteConfig(cfg)
}

// RemoteURL returns the configured URL for the given remote name.
func (r *Repo) RemoteURL(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("remote name is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	url, ok := cfg.Remotes[name]
	if !ok || strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("remote %q is not configured", name)
	}
	return url, nil
}

// ResolveIdentity builds the author/committer identity for a new commit:
// envName/envEmail are what the caller read from USER_NAME/USER_EMAIL (spec
// 6's "environment variables consumed only when a caller passes them in" —
// this package never reads os.Getenv itself), falling back to the
// repository config, and finally to an anonymous placeholder so Commit
// never fails purely for lack of configured identity.
func (r *Repo) ResolveIdentity(envName, envEmail string) (object.Identity, error) {
	name, email := strings.TrimSpace(envName), strings.TrimSpace(envEmail)
	if name == "" || email == "" {
		cfg, err := r.ReadConfig()
		if err != nil {
			return object.Identity{}, err
		}
		if name == "" {
			name = cfg.UserName
		}
		if email == "" {
			email = cfg.UserEmail
		}
	}
	if name == "" {
		name = "unknown"
	}
	if email == "" {
		email = "unknown@localhost"
	}
	now := time.Now()
	return object.Identity{
		Name:      name,
		Email:     email,
		Timestamp: now.Unix(),
		TZOffset:  formatTZOffset(now),
	}, nil
}

func formatTZOffset(t time.Time) string {
	_, offsetSec := t.Zone()
	sign := "+"
	if offsetSec < 0 {
		sign = "-"
		offsetSec = -offsetSec
	}
	return fmt.Sprintf("%s%02d%02d", sign, offsetSec/3600, (offsetSec/60)%60)
}
