package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ModeLocal, cfg.Mode)
	assert.False(t, cfg.RemoteEnabled)
	assert.Equal(t, DefaultExecutorAddress, cfg.Local.Address)
	assert.Equal(t, DefaultSendTimeout, cfg.Local.SendTimeout.Std())
	assert.Equal(t, DefaultMaxReconnects, cfg.Remote.MaxReconnects)
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	t.Run("RemoteConfig", func(t *testing.T) {
		cfg, err := Parse([]byte(`
mode: remote
remoteEnabled: true
remote:
  signalUrl: wss://relay.example.org/signal
  vaultId: my-vault
  iceServers:
    - stun:stun.example.org:3478
  sendTimeout: 5s
  handshakeTimeout: 45s
  maxReconnects: 3
`))
		require.NoError(t, err)

		assert.Equal(t, ModeRemote, cfg.Mode)
		assert.True(t, cfg.RemoteEnabled)
		assert.Equal(t, "wss://relay.example.org/signal", cfg.Remote.SignalURL)
		assert.Equal(t, "my-vault", cfg.Remote.VaultID)
		assert.Equal(t, []string{"stun:stun.example.org:3478"}, cfg.Remote.ICEServers)
		assert.Equal(t, 5*time.Second, cfg.Remote.SendTimeout.Std())
		assert.Equal(t, 45*time.Second, cfg.Remote.HandshakeTimeout.Std())
		assert.Equal(t, 3, cfg.Remote.MaxReconnects)
	})

	t.Run("PartialSectionKeepsDefaults", func(t *testing.T) {
		cfg, err := Parse([]byte(`
mode: local
local:
  address: 127.0.0.1:9999
`))
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1:9999", cfg.Local.Address)
		assert.Equal(t, DefaultSendTimeout, cfg.Local.SendTimeout.Std())
	})

	t.Run("InvalidDuration", func(t *testing.T) {
		_, err := Parse([]byte("local:\n  sendTimeout: soon\n"))
		assert.Error(t, err)
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		_, err := Parse([]byte("mode: [unclosed"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("UnknownMode", func(t *testing.T) {
		cfg := Default()
		cfg.Mode = "p2p"
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidMode)
	})

	t.Run("RemoteRequiresVaultID", func(t *testing.T) {
		cfg := Default()
		cfg.Mode = ModeRemote
		cfg.Remote.SignalURL = "wss://relay.example.org"
		assert.ErrorIs(t, cfg.Validate(), ErrMissingVaultID)
	})

	t.Run("RemoteRequiresSignalURL", func(t *testing.T) {
		cfg := Default()
		cfg.Mode = ModeRemote
		cfg.Remote.VaultID = "my-vault"
		assert.ErrorIs(t, cfg.Validate(), ErrMissingSignal)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: local\nlog:\n  verbose: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Log.Verbose)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
