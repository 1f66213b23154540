package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 1027, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Server.MaxPlayers)
	assert.True(t, cfg.Shines.Enabled)
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": 70000}}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedBanListID(t *testing.T) {
	path := writeConfig(t, `{"ban_list": {"players": ["not-a-uuid"]}}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFlipPOVValidation(t *testing.T) {
	path := writeConfig(t, `{"flip": {"enabled": true, "pov": "both"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, FlipBoth, cfg.Flip.POV)

	bad := writeConfig(t, `{"flip": {"enabled": true, "pov": "sideways"}}`)
	_, err = Load(bad)
	assert.Error(t, err)
}
