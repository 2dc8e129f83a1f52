package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"verkoop/internal/core"
)

// RefreshMessage is the wire form of a core.RefreshRequest.
type RefreshMessage struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshMessage creates a message with a fresh ID. An empty source
// means "the configured source".
func NewRefreshMessage(source string) *RefreshMessage {
	return &RefreshMessage{
		ID:          uuid.NewString(),
		Source:      strings.TrimSpace(source),
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Request returns the domain form.
func (m *RefreshMessage) Request() core.RefreshRequest {
	return core.RefreshRequest{ID: m.ID, Source: m.Source, RequestedAt: m.RequestedAt}
}

// RefreshMessageFromJSON decodes and validates a message.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode refresh message: %w", err)
	}
	if msg.ID == "" {
		return nil, errors.New("refresh message without id")
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, fmt.Errorf("refresh message id: %w", err)
	}
	return &msg, nil
}
