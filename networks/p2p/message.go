package p2p

import "encoding/json"

// Request is the wire envelope every action dispatch reads (spec §6):
// {"action": <name>, "params": <positional-list or object>}.
type Request struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// NewRequest builds a Request whose params is the JSON encoding of params.
func NewRequest(action string, params interface{}) (Request, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return Request{}, err
	}
	return Request{Action: action, Params: encoded}, nil
}

// ErrorResponse is the plain-string error frame sent when a handler panics,
// an action is unknown, or the envelope is malformed (spec §6, §7).
type ErrorResponse string

const (
	// BadRequest is returned for an unrecognized action name or a request
	// envelope that cannot be read.
	BadRequest ErrorResponse = "Error: Bad request"
	// InvalidData is returned when the params payload cannot be decoded
	// into the shape a handler expects.
	InvalidData ErrorResponse = "Error: invalid data"
)
