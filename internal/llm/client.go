// Package llm defines the chat-completion abstraction the slide pipeline talks
// to, plus an OpenAI-compatible HTTP backend.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role tags a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is an attachment encoded for transport. Data holds standard base64.
type Image struct {
	MIMEType string
	Data     string
}

// Part is one piece of message content: text or an image, never both.
type Part struct {
	Text  string
	Image *Image
}

// TextPart returns a text content part.
func TextPart(text string) Part { return Part{Text: text} }

// ImagePart returns an image content part.
func ImagePart(mimeType, base64Data string) Part {
	return Part{Image: &Image{MIMEType: mimeType, Data: base64Data}}
}

// Message is a role-tagged list of parts.
type Message struct {
	Role  Role
	Parts []Part
}

// System returns a system message holding text.
func System(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart(text)}}
}

// User returns a user message with the given parts.
func User(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// UserText returns a user message holding text.
func UserText(text string) Message {
	return User(TextPart(text))
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Request is one exchange submitted to a model.
type Request struct {
	Messages []Message
	// JSON asks the backend to constrain the response to JSON where it can.
	JSON bool
}

// Client submits a conversation and blocks until the model's text reply is
// available. Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ModelConfig selects and tunes the model behind a Client. It is resolved once
// when the client is built.
type ModelConfig struct {
	Name        string
	MaxTokens   int
	Temperature *float32
}

var (
	// ErrEmptyResponse is returned when a model answers with no text.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrRefusal is returned when a model declines to perform the task.
	ErrRefusal = errors.New("model refused the request")
)

// APIError is a non-success reply from a model endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// Validate checks that a request is well formed: at least one message, known
// roles, and every part carrying exactly one of text or image.
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return errors.New("request has no messages")
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		for j, p := range m.Parts {
			if (p.Image == nil) == (p.Text == "") {
				return fmt.Errorf("message %d part %d: must hold exactly one of text or image", i, j)
			}
		}
	}
	return nil
}
