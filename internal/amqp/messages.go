package amqp

import (
	"encoding/json"
	"time"

	"analizador/internal/core"
)

// DatasetLoadedMessage announces a workbook that was uploaded and loaded
// successfully. Consumers re-read the file themselves; only counts travel.
type DatasetLoadedMessage struct {
	File      string    `json:"file"`
	Identity  string    `json:"identity"`
	Entries   int       `json:"entries"`
	Families  int       `json:"families"`
	Joined    int       `json:"joined"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetLoadedMessage describes ds as loaded from file.
func NewDatasetLoadedMessage(file string, ds *core.Dataset) *DatasetLoadedMessage {
	return &DatasetLoadedMessage{
		File:      file,
		Identity:  ds.Identity,
		Entries:   ds.Entries.Len(),
		Families:  ds.Families.Len(),
		Joined:    ds.Joined.Len(),
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetLoadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetLoadedMessageFromJSON creates a message from JSON bytes
func DatasetLoadedMessageFromJSON(data []byte) (*DatasetLoadedMessage, error) {
	var msg DatasetLoadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
