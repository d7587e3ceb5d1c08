package discovery

import (
	"context"

	"github.com/enbility/zeroconf/v3"
)

// Browse searches for vault executors until the context is cancelled.
// Each discovered endpoint is emitted once per instance name.
func Browse(ctx context.Context) (<-chan *Endpoint, error) {
	out := make(chan *Endpoint)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		seen := make(map[string]bool)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				ep := entryToEndpoint(entry.Instance, entry.AddrIPv4, entry.AddrIPv6, entry.Port, entry.Text)
				if ep == nil || seen[ep.Instance] {
					continue
				}
				seen[ep.Instance] = true

				select {
				case out <- ep:
				case <-ctx.Done():
					return
				}

			case <-removed:
				// Removals are irrelevant for one-shot lookup.

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	return out, nil
}

// FindExecutor returns the first executor discovered, optionally
// filtered by vault name. Bound the search with the context; returns
// ErrNotFound when it expires without a match.
func FindExecutor(ctx context.Context, vaultName string) (*Endpoint, error) {
	endpoints, err := Browse(ctx)
	if err != nil {
		return nil, err
	}

	for ep := range endpoints {
		if vaultName == "" || ep.VaultName == vaultName {
			return ep, nil
		}
	}
	return nil, ErrNotFound
}
