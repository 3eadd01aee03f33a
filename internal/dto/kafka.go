package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// KafkaEvent — обработанное сообщение топика импорта
type KafkaEvent struct {
	MessageID  uuid.UUID       `json:"message_id" bson:"message_id"`
	Topic      string          `json:"topic" bson:"topic"`
	Key        string          `json:"key" bson:"key"`
	Partition  int             `json:"partition" bson:"partition"`
	Offset     int64           `json:"offset" bson:"offset"`
	Payload    json.RawMessage `json:"payload" bson:"payload"`
	ReceivedAt time.Time       `json:"received_at" bson:"received_at"`
}

// KafkaDLQ — сообщение, которое не удалось обработать
type KafkaDLQ struct {
	Topic      string    `json:"topic" bson:"topic"`
	Key        string    `json:"key" bson:"key"`
	Payload    string    `json:"payload" bson:"payload"` // как пришло, может быть не JSON
	Error      string    `json:"error" bson:"error"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}
