package bridge

import (
	"encoding/json"
	"errors"

	"github.com/opd-ai/qbridge/permission"
)

// Envelope type tags and permission sub-protocol actions.
const (
	TypeRequest  = "backgroundMessage"
	TypeResponse = "backgroundMessageResponse"

	PermissionRequestAction  = "QORTAL_REQUEST_PERMISSION"
	PermissionResponseAction = "QORTAL_REQUEST_PERMISSION_RESPONSE"
)

// ErrForeignMessage is returned by Decode for traffic that is not part of
// the bridge protocol. Such messages are ignored.
var ErrForeignMessage = errors.New("not a bridge message")

// AppInfo identifies the application that sent a request.
type AppInfo struct {
	Name    string `json:"name"`
	Service string `json:"service,omitempty"`
}

// Message is one decoded protocol message: a *RequestEnvelope,
// *ResponseEnvelope, *PermissionRequest or *PermissionResponse.
type Message interface {
	ID() string
	message()
}

// RequestEnvelope is a capability request from a page.
type RequestEnvelope struct {
	Type        string          `json:"type"`
	Action      Action          `json:"action"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	RequestID   string          `json:"requestId"`
	IsExtension bool            `json:"isExtension,omitempty"`
	AppInfo     *AppInfo        `json:"appInfo,omitempty"`
	SkipAuth    bool            `json:"skipAuth,omitempty"`
}

// ResponseEnvelope answers exactly one request. Payload and Error are
// mutually exclusive.
type ResponseEnvelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	Action    Action          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Failed reports whether the response carries an error.
func (r *ResponseEnvelope) Failed() bool { return r.Error != "" }

// PermissionRequest asks the page to show a consent prompt. RequestID is
// generated by the bridge and unrelated to any request id.
type PermissionRequest struct {
	Action          string            `json:"action"`
	Payload         permission.Prompt `json:"payload"`
	RequestID       string            `json:"requestId"`
	IsFromExtension bool              `json:"isFromExtension"`
}

// PermissionResponse carries the user's answer to a PermissionRequest.
type PermissionResponse struct {
	Action    string            `json:"action"`
	RequestID string            `json:"requestId"`
	Result    permission.Result `json:"result"`
}

func (m *RequestEnvelope) ID() string    { return m.RequestID }
func (m *ResponseEnvelope) ID() string   { return m.RequestID }
func (m *PermissionRequest) ID() string  { return m.RequestID }
func (m *PermissionResponse) ID() string { return m.RequestID }

func (*RequestEnvelope) message()    {}
func (*ResponseEnvelope) message()   {}
func (*PermissionRequest) message()  {}
func (*PermissionResponse) message() {}

// probe holds the fields Decode dispatches on.
type probe struct {
	Type      string `json:"type"`
	Action    string `json:"action"`
	RequestID string `json:"requestId"`
}

// Decode validates raw channel traffic once and returns the typed message.
// Anything that is not a well-formed protocol message, including invalid
// JSON and messages without a request id or action, is ErrForeignMessage.
func Decode(raw []byte) (Message, error) {
	var p probe
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrForeignMessage
	}
	if p.RequestID == "" || p.Action == "" {
		return nil, ErrForeignMessage
	}

	var msg Message
	switch {
	case p.Type == TypeRequest:
		msg = &RequestEnvelope{}
	case p.Type == TypeResponse:
		msg = &ResponseEnvelope{}
	case p.Action == PermissionRequestAction:
		msg = &PermissionRequest{}
	case p.Action == PermissionResponseAction:
		msg = &PermissionResponse{}
	default:
		return nil, ErrForeignMessage
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, ErrForeignMessage
	}
	return msg, nil
}

// Encode marshals a message for a channel.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// NewRequest builds a request envelope, marshalling payload.
func NewRequest(id string, action Action, payload any) (*RequestEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &RequestEnvelope{Type: TypeRequest, Action: action, Payload: data, RequestID: id}, nil
}
