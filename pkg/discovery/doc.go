// Package discovery locates vault executors on the local network via
// mDNS/DNS-SD.
//
// Executors advertise the service type "_vaultlink._tcp" with TXT
// records naming the vault they serve. Clients browse for these
// advertisements to fill in the executor address instead of
// configuring it by hand. Discovery is best-effort; the default
// loopback address works without it.
package discovery
