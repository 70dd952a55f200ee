package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ImportRequestMessage asks a worker to import a CSV file that was already
// stored under the shared upload directory. Path is relative to that
// directory.
type ImportRequestMessage struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	FileName  string    `json:"file_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Redelivered is set on consumed messages that already failed once.
	// A failure on a redelivered message drops it.
	Redelivered bool `json:"-"`
}

// NewImportRequestMessage creates a message with a fresh ID
func NewImportRequestMessage(path, fileName string) *ImportRequestMessage {
	return &ImportRequestMessage{
		ID:        uuid.NewString(),
		Path:      path,
		FileName:  fileName,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks the fields a worker needs
func (m *ImportRequestMessage) Validate() error {
	if m.ID == "" {
		return errors.New("import request: missing id")
	}
	if m.Path == "" {
		return errors.New("import request: missing path")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ImportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportRequestMessageFromJSON decodes and validates a message
func ImportRequestMessageFromJSON(data []byte) (*ImportRequestMessage, error) {
	var msg ImportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
