// Package protocol defines the VaultLink command/response vocabulary
// and its JSON wire encoding.
//
// A request is a single flat JSON object: the command name under "cmd",
// the credential token under "authHash", an optional correlation "id",
// and the command payload spread beside them. A response carries a
// "type", a "data" object, optional "meta", and echoes the correlation
// "id" when it answers a specific request. Responses without an "id"
// are unsolicited pushes.
//
// Payload shapes are owned by the executor; this package treats them as
// opaque string-keyed maps.
package protocol
