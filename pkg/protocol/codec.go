package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reserved top-level keys in the request wire form. Payload fields are
// spread beside them, so a payload must not shadow these.
const (
	keyCmd      = "cmd"
	keyAuthHash = "authHash"
	keyID       = "id"
)

// Codec errors.
var (
	ErrEmptyCommand = errors.New("empty command name")
	ErrReservedKey  = errors.New("payload uses reserved key")
	ErrMissingType  = errors.New("response missing type")
)

// Request is the decoded request wire form.
type Request struct {
	// ID is the correlation identifier; empty for uncorrelated
	// (local loopback) requests.
	ID string

	// Cmd is the command name.
	Cmd CommandName

	// AuthHash is the credential token embedded in every request.
	AuthHash string

	// Payload holds all remaining top-level fields.
	Payload map[string]any
}

// EncodeRequest builds the wire form of a command: the payload spread
// at the top level beside cmd and authHash, with id present only for
// correlated requests.
func EncodeRequest(id string, cmd CommandName, authHash string, payload map[string]any) ([]byte, error) {
	if cmd == "" {
		return nil, ErrEmptyCommand
	}

	m := make(map[string]any, len(payload)+3)
	for k, v := range payload {
		switch k {
		case keyCmd, keyAuthHash, keyID:
			return nil, fmt.Errorf("%w: %q", ErrReservedKey, k)
		}
		m[k] = v
	}

	m[keyCmd] = string(cmd)
	m[keyAuthHash] = authHash
	if id != "" {
		m[keyID] = id
	}

	return json.Marshal(m)
}

// DecodeRequest parses the wire form back into a Request. Used by
// executors and by the fakes in this repository's tests.
func DecodeRequest(data []byte) (*Request, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}

	req := &Request{Payload: make(map[string]any)}
	for k, v := range m {
		switch k {
		case keyCmd:
			s, _ := v.(string)
			req.Cmd = CommandName(s)
		case keyAuthHash:
			req.AuthHash, _ = v.(string)
		case keyID:
			req.ID, _ = v.(string)
		default:
			req.Payload[k] = v
		}
	}

	if req.Cmd == "" {
		return nil, ErrEmptyCommand
	}
	if len(req.Payload) == 0 {
		req.Payload = nil
	}
	return req, nil
}

// EncodeResponse encodes a response to its JSON wire form.
func EncodeResponse(resp *Response) ([]byte, error) {
	if resp.Type == "" {
		return nil, ErrMissingType
	}
	return json.Marshal(resp)
}

// DecodeResponse decodes JSON wire bytes into a Response.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Type == "" {
		return nil, ErrMissingType
	}
	return &resp, nil
}
