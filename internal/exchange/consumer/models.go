package consumer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ImportEnvelope — сообщение топика импорта. Payload содержит тело создания сотрудника, как в POST /employees.
type ImportEnvelope struct {
	Kind       string          `json:"kind"`
	MessageID  uuid.UUID       `json:"message_id"`
	EmployeeID string          `json:"employee_id"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
	Source     string          `json:"source"`
}
