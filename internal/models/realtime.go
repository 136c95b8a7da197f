package models

import "encoding/json"

// Inbound event types (client -> server).
const (
	EventMessageToRelay      = "message-to-relay"
	EventCallOffer           = "call-offer"
	EventCallAnswer          = "call-answer"
	EventRenegotiationNeeded = "renegotiation-needed"
	EventRenegotiationDone   = "renegotiation-done"
	EventUserSkip            = "user-skip"
	EventFindPartner         = "find-partner"
)

// Outbound notification types (server -> client).
const (
	NotifyMatched               = "matched"
	NotifyRelayedMessage        = "relayed-message"
	NotifyIncomingCall          = "incoming-call"
	NotifyCallAnswered          = "call-answered"
	NotifyRenegotiationNeeded   = "renegotiation-needed"
	NotifyRenegotiationComplete = "renegotiation-complete"
	NotifyPeerLeft              = "peer-left"
	NotifyError                 = "error"
)

// Values of PeerLeft.Who.
const (
	WhoPeer = "Peer"
	WhoYou  = "You"
)

// Error codes carried by ErrorNotice.
const (
	ErrCodeBadRequest         = "bad-request"
	ErrCodeRelayTargetInvalid = "relay-target-invalid"
	ErrCodeNotInRoom          = "not-in-room"
	ErrCodeAlreadyInRoom      = "already-in-room"
)

// Envelope is the frame exchanged over the transport in both directions.
// Payload is decoded according to Type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an Envelope of the given type.
func NewEnvelope(kind string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: kind}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: kind, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Payload, v)
}

// Inbound payloads.

type MessageToRelay struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
	To      string `json:"to"`
}

type CallOffer struct {
	RoomID string          `json:"roomId"`
	Offer  json.RawMessage `json:"offer"`
}

type CallAnswer struct {
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

type RenegotiationNeeded struct {
	To    string          `json:"to"`
	Offer json.RawMessage `json:"offer"`
}

type RenegotiationDone struct {
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

// Outbound payloads.

type Matched struct {
	RoomID           string `json:"roomId"`
	PeerConnectionID string `json:"peerConnectionId"`
	Role             Role   `json:"role"`
}

type RelayedMessage struct {
	Text string `json:"text"`
}

type IncomingCall struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

type CallAnswered struct {
	Answer json.RawMessage `json:"answer"`
}

type RenegotiationRequest struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

type RenegotiationComplete struct {
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

type PeerLeft struct {
	Who string `json:"who"`
}

type ErrorNotice struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}
