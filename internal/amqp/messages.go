package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BookingSyncMessage asks the worker to export a stored booking. It carries
// only the id; the worker loads the booking from the database.
type BookingSyncMessage struct {
	MessageID string    `json:"message_id"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBookingSyncMessage(id, version int64) *BookingSyncMessage {
	return &BookingSyncMessage{
		MessageID: uuid.NewString(),
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *BookingSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BookingSyncMessageFromJSON(data []byte) (*BookingSyncMessage, error) {
	var msg BookingSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
