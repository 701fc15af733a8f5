package server

import (
	"fmt"
	"maps"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytbridge/internal/shared"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Payload holds the command-specific fields of a response. Keys become top-level keys of the
// response object.
type Payload map[string]any

// Request is one parsed input line.
//
// Parameters sit next to command and callId at the top level of the object.
type Request struct {
	Command string
	// CallID is the caller's token verbatim; any JSON value is echoed back unchanged.
	CallID json.RawMessage

	raw gjson.Result
}

// ParseRequest parses one input line. It fails unless the line is a JSON object.
func ParseRequest(line []byte) (*Request, error) {
	if !gjson.ValidBytes(line) {
		return nil, fmt.Errorf("%w: invalid JSON", shared.ErrMalformedRequest)
	}

	raw := gjson.ParseBytes(line)
	if !raw.IsObject() {
		return nil, fmt.Errorf("%w: expected an object, got %s", shared.ErrMalformedRequest, raw.Type)
	}

	req := &Request{Command: raw.Get("command").String(), raw: raw}
	if id := raw.Get("callId"); id.Exists() {
		req.CallID = json.RawMessage(id.Raw)
	}
	return req, nil
}

// NewRequest builds a request in-process from a command and its parameters.
func NewRequest(command string, callID any, params map[string]any) (*Request, error) {
	body := maps.Clone(params)
	if body == nil {
		body = map[string]any{}
	}
	body["command"] = command
	if callID != nil {
		body["callId"] = callID
	}

	line, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return ParseRequest(line)
}

// Has reports whether key is present and not null.
func (r *Request) Has(key string) bool {
	v := r.raw.Get(key)
	return v.Exists() && v.Type != gjson.Null
}

// String returns the string parameter key, or "" when absent.
func (r *Request) String(key string) string {
	return r.raw.Get(key).String()
}

// Required returns the string parameter key and fails when it is absent or empty.
func (r *Request) Required(key string) (string, error) {
	v := r.String(key)
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, key)
	}
	return v, nil
}

// Int returns the integer parameter key, or def when absent or not a number.
func (r *Request) Int(key string, def int) int {
	v := r.raw.Get(key)
	if v.Type != gjson.Number {
		return def
	}
	return int(v.Int())
}

// Response is one output line.
type Response struct {
	Status  string
	CallID  json.RawMessage
	Message string
	Payload Payload
}

// OK builds a successful response echoing req's callId.
func OK(req *Request, payload Payload) Response {
	return Response{Status: StatusOK, CallID: req.CallID, Payload: payload}
}

// Fail builds an error response echoing req's callId.
func Fail(req *Request, err error) Response {
	return Response{Status: StatusError, CallID: req.CallID, Message: err.Error()}
}

// MarshalJSON flattens the payload into the response object. A missing callId is encoded as null.
func (r Response) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Payload)+3)
	maps.Copy(out, r.Payload)

	out["status"] = r.Status
	if r.Status == StatusError {
		out["message"] = r.Message
	}
	if len(r.CallID) > 0 {
		out["callId"] = r.CallID
	} else {
		out["callId"] = nil
	}
	return json.Marshal(out)
}
