package session

import (
	"context"
	"fmt"
	"time"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/config"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/discovery"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/log"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/transport"
)

// discoveryTimeout bounds the mDNS search for an executor when no
// local address is configured.
const discoveryTimeout = 5 * time.Second

// NewChannelFactory returns a factory that builds channels per the
// configuration, capturing protocol trace events on the given logger.
func NewChannelFactory(logger log.Logger) ChannelFactory {
	return func(cfg *config.Config) (transport.Channel, error) {
		switch cfg.Mode {
		case config.ModeLocal:
			address := cfg.Local.Address
			if address == "" {
				ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
				defer cancel()

				ep, err := discovery.FindExecutor(ctx, "")
				if err != nil {
					return nil, fmt.Errorf("no executor address configured and discovery failed: %w", err)
				}
				address = ep.Address
			}
			return transport.NewLocalChannel(transport.LocalConfig{
				Address:     address,
				SendTimeout: cfg.Local.SendTimeout.Std(),
				Logger:      logger,
			}), nil

		case config.ModeRemote:
			if !cfg.RemoteEnabled {
				return nil, ErrRemoteDisabled
			}
			return transport.NewRemoteChannel(transport.RemoteConfig{
				SignalURL:        cfg.Remote.SignalURL,
				VaultID:          cfg.Remote.VaultID,
				ICEServers:       cfg.Remote.ICEServers,
				SendTimeout:      cfg.Remote.SendTimeout.Std(),
				HandshakeTimeout: cfg.Remote.HandshakeTimeout.Std(),
				MaxReconnects:    cfg.Remote.MaxReconnects,
				Logger:           logger,
			}), nil

		default:
			return nil, fmt.Errorf("%w: %q", config.ErrInvalidMode, cfg.Mode)
		}
	}
}

// DefaultChannelFactory builds channels without trace capture.
var DefaultChannelFactory = NewChannelFactory(nil)
