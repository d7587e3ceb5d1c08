package protocol

// Response types the application dispatches on. Executors may emit
// additional types; they pass through transparently.
const (
	TypeConnected    = "CONNECTED"
	TypeTree         = "TREE"
	TypeFile         = "FILE"
	TypeRenderedFile = "RENDERED_FILE"
)

// Response is a single reply or unsolicited push from the executor.
type Response struct {
	// ID echoes the correlation identifier of the request this answers.
	// Empty for unsolicited pushes.
	ID string `json:"id,omitempty"`

	// Type classifies the response (e.g. CONNECTED, TREE, FILE).
	Type string `json:"type"`

	// Data carries the response body; its shape is owned by the executor.
	Data map[string]any `json:"data,omitempty"`

	// Meta carries optional correlation metadata.
	Meta map[string]any `json:"meta,omitempty"`
}

// IsPush reports whether the response is an unsolicited push rather
// than a reply to a specific request.
func (r *Response) IsPush() bool {
	return r.ID == ""
}
