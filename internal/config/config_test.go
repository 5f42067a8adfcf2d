package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termbridge/termbridge/internal/protocol"
)

func TestValidateConnect(t *testing.T) {
	valid := protocol.ConnectConfig{
		Host:     "10.0.0.5",
		Port:     22,
		Username: "alice",
		Password: "x",
	}

	tests := []struct {
		name    string
		mutate  func(*protocol.ConnectConfig)
		missing []string
	}{
		{
			name:   "all fields present",
			mutate: func(c *protocol.ConnectConfig) {},
		},
		{
			name:    "missing host",
			mutate:  func(c *protocol.ConnectConfig) { c.Host = "" },
			missing: []string{"host"},
		},
		{
			name:    "whitespace host",
			mutate:  func(c *protocol.ConnectConfig) { c.Host = "   " },
			missing: []string{"host"},
		},
		{
			name:    "zero port",
			mutate:  func(c *protocol.ConnectConfig) { c.Port = 0 },
			missing: []string{"port"},
		},
		{
			name:    "port out of range",
			mutate:  func(c *protocol.ConnectConfig) { c.Port = 70000 },
			missing: []string{"port"},
		},
		{
			name:    "missing username",
			mutate:  func(c *protocol.ConnectConfig) { c.Username = "" },
			missing: []string{"username"},
		},
		{
			name:    "missing password",
			mutate:  func(c *protocol.ConnectConfig) { c.Password = "" },
			missing: []string{"password"},
		},
		{
			name: "everything missing",
			mutate: func(c *protocol.ConnectConfig) {
				*c = protocol.ConnectConfig{}
			},
			missing: []string{"host", "port", "username", "password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := ValidateConnect(cfg)
			if len(tt.missing) == 0 {
				assert.NoError(t, err)
				return
			}

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.missing, vErr.Missing)
		})
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.toml")

	content := `
[staging]
host = "10.0.0.5"
port = 22
username = "alice"

[prod]
host = "shell.example.com"
port = 2222
username = "deploy"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)

	staging, err := profiles.Lookup("staging")
	require.NoError(t, err)
	assert.Equal(t, Profile{Host: "10.0.0.5", Port: 22, Username: "alice"}, staging)

	prod, err := profiles.Lookup("prod")
	require.NoError(t, err)
	assert.Equal(t, 2222, prod.Port)

	_, err = profiles.Lookup("nope")
	assert.Error(t, err)
}

func TestLoadProfilesErrors(t *testing.T) {
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[broken"), 0o600))
	_, err = LoadProfiles(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "ws://localhost:8080/shell", cfg.Bridge.URL)
	assert.Empty(t, cfg.Diagnostics.Addr)
	assert.Greater(t, cfg.Surface.ReadyFallbackDelay, cfg.Surface.ReadyProbeDelay)
}
