package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

var errEmptyKey = errors.New("change message without storage key")

// ChangedMessage announces that the transaction list stored under Key was
// written. Consumers reload; the message carries no transaction data.
type ChangedMessage struct {
	Key       string    `json:"key"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangedMessage(key, origin string) *ChangedMessage {
	return &ChangedMessage{
		Key:       key,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangedMessageFromJSON parses a message body. Messages without a key are
// malformed.
func ChangedMessageFromJSON(data []byte) (*ChangedMessage, error) {
	var msg ChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, errEmptyKey
	}
	return &msg, nil
}
