package commsutil

import "encoding/json"

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Ack is the reply sent to a request published with a reply subject. It
// carries the bridge's "handled" result; the correlated response itself is
// emitted on the response subject.
type Ack struct {
	Handled bool   `json:"handled"`
	Error   string `json:"error,omitempty"`
}
