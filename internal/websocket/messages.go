package websocket

import (
	"encoding/json"

	"github.com/juju/errors"

	"github.com/satriahrh/pronounce/domain/repositories"
)

// MessageType defines the type of an inbound WebSocket control message
type MessageType string

const (
	// MessageTypeStart carries the audio settings of the recording that follows
	MessageTypeStart MessageType = "start"
)

// StartMessage is the optional text frame sent before the audio frame
type StartMessage struct {
	Type       MessageType `json:"type"`
	SampleRate int         `json:"sample_rate,omitempty"`
	Encoding   string      `json:"encoding,omitempty"`
	Language   string      `json:"language,omitempty"`
}

// ParseStartMessage decodes a control frame
func ParseStartMessage(data []byte) (*StartMessage, error) {
	var msg StartMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.NewNotValid(err, "control message")
	}
	if msg.Type != MessageTypeStart {
		return nil, errors.NotValidf("message type %q", msg.Type)
	}
	if msg.SampleRate < 0 {
		return nil, errors.NotValidf("sample_rate %d", msg.SampleRate)
	}
	return &msg, nil
}

// AudioConfig returns the audio settings carried by the message
func (m *StartMessage) AudioConfig() repositories.AudioConfig {
	if m == nil {
		return repositories.AudioConfig{}
	}
	return repositories.AudioConfig{
		SampleRate: m.SampleRate,
		Encoding:   m.Encoding,
		Language:   m.Language,
	}
}
