package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrInvalidMode    = errors.New("invalid mode")
	ErrMissingVaultID = errors.New("vault ID is required for remote mode")
	ErrMissingSignal  = errors.New("signaling URL is required for remote mode")
)

// Channel modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Defaults.
const (
	// DefaultExecutorAddress is the loopback address of the vault executor.
	DefaultExecutorAddress = "127.0.0.1:27123"

	// DefaultSendTimeout bounds a single command round-trip.
	DefaultSendTimeout = 10 * time.Second

	// DefaultHandshakeTimeout bounds remote channel establishment,
	// from signaling dial to the authentication probe reply.
	DefaultHandshakeTimeout = 30 * time.Second

	// DefaultMaxReconnects is the remote reconnection attempt budget.
	DefaultMaxReconnects = 5

	// DefaultSTUNServer is used when no ICE servers are configured.
	DefaultSTUNServer = "stun:stun.l.google.com:19302"
)

// Duration wraps time.Duration for YAML fields written in Go duration
// syntax ("10s", "1m30s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Local configures the loopback transport.
type Local struct {
	// Address is the executor host:port.
	Address string `yaml:"address"`

	// SendTimeout bounds a single command round-trip.
	SendTimeout Duration `yaml:"sendTimeout"`
}

// Remote configures the peer-to-peer transport.
type Remote struct {
	// SignalURL is the WebSocket URL of the signaling relay.
	SignalURL string `yaml:"signalUrl"`

	// VaultID identifies the vault; the signaling session ID is
	// derived from it.
	VaultID string `yaml:"vaultId"`

	// ICEServers lists STUN/TURN server URLs.
	ICEServers []string `yaml:"iceServers"`

	// SendTimeout bounds a single command round-trip, including any
	// wait for an in-progress reconnection.
	SendTimeout Duration `yaml:"sendTimeout"`

	// HandshakeTimeout bounds channel establishment.
	HandshakeTimeout Duration `yaml:"handshakeTimeout"`

	// MaxReconnects is the reconnection attempt budget after link loss.
	MaxReconnects int `yaml:"maxReconnects"`
}

// Log configures trace capture and operational logging.
type Log struct {
	// File is the path of the .vlog trace file. Empty disables capture.
	File string `yaml:"file"`

	// Verbose enables debug-level operational logging.
	Verbose bool `yaml:"verbose"`
}

// Config is the full client configuration.
type Config struct {
	// Mode selects the channel: "local" or "remote".
	Mode string `yaml:"mode"`

	// RemoteEnabled gates remote mode. Remote stays off unless
	// explicitly enabled, keeping the default posture loopback-only.
	RemoteEnabled bool `yaml:"remoteEnabled"`

	Local  Local  `yaml:"local"`
	Remote Remote `yaml:"remote"`
	Log    Log    `yaml:"log"`
}

// Default returns a configuration for a standard local setup.
func Default() *Config {
	return &Config{
		Mode: ModeLocal,
		Local: Local{
			Address:     DefaultExecutorAddress,
			SendTimeout: Duration(DefaultSendTimeout),
		},
		Remote: Remote{
			ICEServers:       []string{DefaultSTUNServer},
			SendTimeout:      Duration(DefaultSendTimeout),
			HandshakeTimeout: Duration(DefaultHandshakeTimeout),
			MaxReconnects:    DefaultMaxReconnects,
		},
	}
}

// Parse parses configuration from YAML bytes, applying defaults for
// omitted fields.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// applyDefaults fills zero values that yaml.Unmarshal may have cleared
// when a section was present but a field was omitted.
func (c *Config) applyDefaults() {
	// Local.Address is deliberately not re-filled: writing an empty
	// address opts into mDNS discovery of the executor.
	if c.Local.SendTimeout <= 0 {
		c.Local.SendTimeout = Duration(DefaultSendTimeout)
	}
	if len(c.Remote.ICEServers) == 0 {
		c.Remote.ICEServers = []string{DefaultSTUNServer}
	}
	if c.Remote.SendTimeout <= 0 {
		c.Remote.SendTimeout = Duration(DefaultSendTimeout)
	}
	if c.Remote.HandshakeTimeout <= 0 {
		c.Remote.HandshakeTimeout = Duration(DefaultHandshakeTimeout)
	}
	if c.Remote.MaxReconnects <= 0 {
		c.Remote.MaxReconnects = DefaultMaxReconnects
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLocal:
	case ModeRemote:
		if c.Remote.VaultID == "" {
			return ErrMissingVaultID
		}
		if c.Remote.SignalURL == "" {
			return ErrMissingSignal
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	return nil
}
