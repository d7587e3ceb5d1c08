package log

import (
	"time"
)

// Event represents a protocol event captured at the connection layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the channel instance (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Transport identifies the channel kind that produced the event.
	Transport TransportKind `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Type-specific payload (exactly one is set).
	Command     *CommandEvent     `cbor:"10,keyasint,omitempty"`
	Response    *ResponseEvent    `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Signal      *SignalEvent      `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// TransportKind identifies which channel kind produced an event.
type TransportKind uint8

const (
	// TransportLocal is the loopback request/response channel.
	TransportLocal TransportKind = 0
	// TransportRemote is the peer-to-peer data channel.
	TransportRemote TransportKind = 1
	// TransportSession is the session controller itself.
	TransportSession TransportKind = 2
)

// String returns the transport kind name.
func (k TransportKind) String() string {
	switch k {
	case TransportLocal:
		return "LOCAL"
	case TransportRemote:
		return "REMOTE"
	case TransportSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCommand indicates an outbound command.
	CategoryCommand Category = 0
	// CategoryResponse indicates an inbound response or push.
	CategoryResponse Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategorySignal indicates a signaling exchange.
	CategorySignal Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryResponse:
		return "RESPONSE"
	case CategoryState:
		return "STATE"
	case CategorySignal:
		return "SIGNAL"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CommandEvent captures an outbound command. Payloads are recorded by
// size only; vault content never enters the trace.
type CommandEvent struct {
	// Name is the command name (e.g. GET_TREE).
	Name string `cbor:"1,keyasint"`

	// CorrelationID ties the command to its eventual response.
	// Empty for uncorrelated (loopback) requests.
	CorrelationID string `cbor:"2,keyasint,omitempty"`

	// Size is the encoded request size in bytes.
	Size int `cbor:"3,keyasint,omitempty"`
}

// ResponseEvent captures an inbound response or push.
type ResponseEvent struct {
	// Type is the response type (e.g. TREE, FILE).
	Type string `cbor:"1,keyasint"`

	// CorrelationID echoes the request this answers; empty for pushes.
	CorrelationID string `cbor:"2,keyasint,omitempty"`

	// Size is the encoded response size in bytes.
	Size int `cbor:"3,keyasint,omitempty"`

	// Push indicates an unsolicited push.
	Push bool `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures a channel or session state transition.
type StateChangeEvent struct {
	// OldState and NewState are the state names.
	OldState string `cbor:"1,keyasint"`
	NewState string `cbor:"2,keyasint"`

	// Reason describes what triggered the transition, if known.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// SignalEvent captures a signaling envelope exchange.
type SignalEvent struct {
	// Type is the envelope type (register, offer, answer, candidate...).
	Type string `cbor:"1,keyasint"`

	// Peer is the remote peer identifier, if addressed.
	Peer string `cbor:"2,keyasint,omitempty"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Context describes the operation that failed.
	Context string `cbor:"1,keyasint,omitempty"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`
}

// NewCommandEvent builds a command event stamped with the current time.
func NewCommandEvent(connID string, kind TransportKind, name, corrID string, size int) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionOut,
		Transport:    kind,
		Category:     CategoryCommand,
		Command:      &CommandEvent{Name: name, CorrelationID: corrID, Size: size},
	}
}

// NewResponseEvent builds a response event stamped with the current time.
func NewResponseEvent(connID string, kind TransportKind, respType, corrID string, size int) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionIn,
		Transport:    kind,
		Category:     CategoryResponse,
		Response: &ResponseEvent{
			Type:          respType,
			CorrelationID: corrID,
			Size:          size,
			Push:          corrID == "",
		},
	}
}

// NewStateChangeEvent builds a state change event stamped with the
// current time.
func NewStateChangeEvent(connID string, kind TransportKind, oldState, newState, reason string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionOut,
		Transport:    kind,
		Category:     CategoryState,
		StateChange:  &StateChangeEvent{OldState: oldState, NewState: newState, Reason: reason},
	}
}

// NewSignalEvent builds a signaling event stamped with the current time.
func NewSignalEvent(connID string, dir Direction, envType, peer string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Transport:    TransportRemote,
		Category:     CategorySignal,
		Signal:       &SignalEvent{Type: envType, Peer: peer},
	}
}

// NewErrorEvent builds an error event stamped with the current time.
func NewErrorEvent(connID string, kind TransportKind, context string, err error) Event {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionIn,
		Transport:    kind,
		Category:     CategoryError,
		Error:        &ErrorEventData{Context: context, Message: msg},
	}
}
