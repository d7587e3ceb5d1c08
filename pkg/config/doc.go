// Package config loads VaultLink client configuration from YAML.
//
// Configuration selects the channel mode (local or remote) and carries
// the per-transport settings: executor address and timeouts for local,
// signaling URL, vault ID, ICE servers and the reconnection budget for
// remote. Defaults cover a standard local setup so a config file is
// only needed for remote access or non-default endpoints.
package config
