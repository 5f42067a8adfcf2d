package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Profile is a saved connection target. Passwords are never persisted; the
// client prompts for them at connect time.
type Profile struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
}

// Profiles maps profile names to saved connection targets.
type Profiles map[string]Profile

// LoadProfiles reads a TOML profiles file:
//
//	[staging]
//	host = "10.0.0.5"
//	port = 22
//	username = "alice"
func LoadProfiles(path string) (Profiles, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var profiles Profiles
	if err := toml.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles file %s: %w", path, err)
	}
	return profiles, nil
}

// Lookup returns the named profile.
func (p Profiles) Lookup(name string) (Profile, error) {
	profile, ok := p[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
	return profile, nil
}
