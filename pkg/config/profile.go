package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultBaseURL = "http://localhost:8080"

// Profile is one named CLI target. Tokens are deliberately absent: they are
// supplied per process by flag, environment or prompt.
type Profile struct {
	BaseURL  string `yaml:"baseUrl"`
	PageSize int    `yaml:"pageSize,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`
	LogFile  string `yaml:"logFile,omitempty"`
}

type Profiles struct {
	CurrentProfile string             `yaml:"currentProfile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// ProfilesPath is ~/.taskdeck/config.yaml unless TASKDECK_CONFIG_DIR is set.
func ProfilesPath() string {
	if v := strings.TrimSpace(os.Getenv("TASKDECK_CONFIG_DIR")); v != "" {
		return filepath.Join(v, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".taskdeck", "config.yaml")
}

// LoadProfiles reads path; a missing file yields an empty set.
func LoadProfiles(path string) (Profiles, error) {
	out := Profiles{Profiles: map[string]Profile{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, err
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, err
	}
	if out.Profiles == nil {
		out.Profiles = map[string]Profile{}
	}
	return out, nil
}

func SaveProfiles(p Profiles, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Resolve picks the active profile name: flag, then TASKDECK_PROFILE, then
// the stored current profile, then "default".
func (p Profiles) Resolve(flag string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("TASKDECK_PROFILE")); v != "" {
		return v
	}
	if p.CurrentProfile != "" {
		return p.CurrentProfile
	}
	return "default"
}

// Active returns the resolved profile with defaults filled in.
func (p Profiles) Active(flag string) (string, Profile) {
	name := p.Resolve(flag)
	prof := p.Profiles[name]
	if strings.TrimSpace(prof.BaseURL) == "" {
		prof.BaseURL = DefaultBaseURL
	}
	if prof.LogLevel == "" {
		prof.LogLevel = "info"
	}
	return name, prof
}

func (p *Profiles) Set(name string, prof Profile, makeCurrent bool) {
	if p.Profiles == nil {
		p.Profiles = map[string]Profile{}
	}
	p.Profiles[name] = prof
	if makeCurrent || p.CurrentProfile == "" {
		p.CurrentProfile = name
	}
}
