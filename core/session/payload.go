package session

import "encoding/json"

// Payload is the request body of a session-creation call.
type Payload struct {
	body Resolved
}

// NewPayload wraps a resolved configuration for sending.
func NewPayload(r Resolved) Payload {
	return Payload{body: r}
}

// Name returns the name of the session being created.
func (p Payload) Name() string { return p.body.Name() }

// MarshalJSON encodes the payload as the API expects it.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(Layer(p.body))
}
