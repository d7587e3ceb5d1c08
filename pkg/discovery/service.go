package discovery

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Service constants.
const (
	// ServiceType is the DNS-SD service type for vault executors.
	ServiceType = "_vaultlink._tcp"

	// Domain is the mDNS domain.
	Domain = "local."
)

// TXT record keys.
const (
	// TXTKeyVault names the vault the executor serves.
	TXTKeyVault = "vault"

	// TXTKeyVersion is the executor protocol version.
	TXTKeyVersion = "ver"
)

// ErrNotFound indicates no executor was discovered before the context
// expired.
var ErrNotFound = errors.New("no executor found")

// Endpoint describes a discovered vault executor.
type Endpoint struct {
	// Instance is the mDNS instance name.
	Instance string

	// Address is the executor host:port, preferring an IPv4 address.
	Address string

	// VaultName is the advertised vault name, if present.
	VaultName string

	// Version is the advertised protocol version, if present.
	Version string
}

// EncodeTXT builds the TXT records advertised for a vault.
func EncodeTXT(vaultName, version string) []string {
	txt := []string{TXTKeyVault + "=" + vaultName}
	if version != "" {
		txt = append(txt, TXTKeyVersion+"="+version)
	}
	return txt
}

// parseTXT extracts known keys from TXT records.
func parseTXT(txt []string) (vault, version string) {
	for _, record := range txt {
		key, value, ok := strings.Cut(record, "=")
		if !ok {
			continue
		}
		switch key {
		case TXTKeyVault:
			vault = value
		case TXTKeyVersion:
			version = value
		}
	}
	return vault, version
}

// entryToEndpoint converts a resolved service entry. IPv4 addresses
// are preferred; an entry with no address at all is dropped.
func entryToEndpoint(instance string, ipv4, ipv6 []net.IP, port int, txt []string) *Endpoint {
	var ip net.IP
	switch {
	case len(ipv4) > 0:
		ip = ipv4[0]
	case len(ipv6) > 0:
		ip = ipv6[0]
	default:
		return nil
	}

	vault, version := parseTXT(txt)
	return &Endpoint{
		Instance:  instance,
		Address:   net.JoinHostPort(ip.String(), fmt.Sprintf("%d", port)),
		VaultName: vault,
		Version:   version,
	}
}
