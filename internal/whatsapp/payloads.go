package whatsapp

import (
	"encoding/json"
	"fmt"
)

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

func newTextMessage(to, body string) textMessage {
	return textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	}
}

// SendResponse is a successful answer from the messages endpoint.
type SendResponse struct {
	StatusCode int
	// Raw is the body exactly as received.
	Raw []byte
	// Payload is Raw decoded as a JSON object.
	Payload map[string]any

	messages []messageRef
}

type messageRef struct {
	ID string `json:"id"`
}

// MessageID returns the id of the first entry in the "messages" list, or ""
// when the list is missing or empty. A missing id is not an error.
func (r *SendResponse) MessageID() string {
	if r == nil || len(r.messages) == 0 {
		return ""
	}
	return r.messages[0].ID
}

func decodeSendResponse(statusCode int, raw []byte) (*SendResponse, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("response body is not a json object")
	}

	var envelope struct {
		Messages []messageRef `json:"messages"`
	}
	// a messages field of an unexpected shape just means no id is available
	_ = json.Unmarshal(raw, &envelope)

	return &SendResponse{
		StatusCode: statusCode,
		Raw:        raw,
		Payload:    payload,
		messages:   envelope.Messages,
	}, nil
}

// RejectedError reports a response outside the 2xx range, or a 2xx response
// whose body could not be decoded (Err set).
type RejectedError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%d - %s", e.StatusCode, e.Body)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// TransportError reports a call that did not complete.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
