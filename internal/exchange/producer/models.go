package producer

import (
	"time"

	"github.com/google/uuid"

	"github.com/Artexxx/employee-registry/internal/dto"
)

type Kind string

const (
	KindCreated Kind = "employee.created"
	KindUpdated Kind = "employee.updated"
	KindDeleted Kind = "employee.deleted"
)

// UpdatedPayload — изменённые поля; отсутствующие поля не менялись.
type UpdatedPayload struct {
	Name        *string  `json:"name,omitempty" example:"John Doe"`
	Department  *string  `json:"department,omitempty" example:"Engineering"`
	Salary      *float64 `json:"salary,omitempty" example:"80000"`
	JoiningDate *string  `json:"joining_date,omitempty" example:"2023-01-15"`
	Skills      []string `json:"skills,omitempty" example:"Go,MongoDB"`
}

type DeletedPayload struct {
	EmployeeID string `json:"employee_id" example:"E123"`
}

type Envelope[T any] struct {
	Kind       Kind      `json:"kind"        example:"employee.created"`                     // Тип события
	MessageID  uuid.UUID `json:"message_id"  example:"c7e06db5-4b71-4c54-9334-3f9a6e6c5d0e"` // Идентификатор события (UUID v4)
	EmployeeID string    `json:"employee_id" example:"E123"`                                 // Идентификатор сотрудника
	Payload    T         `json:"payload"`                                                    // Полезная нагрузка (структура зависит от kind)
	Timestamp  time.Time `json:"timestamp"   example:"2025-10-19T12:34:56Z"`                 // Время формирования события
	Source     string    `json:"source"      example:"employee-registry"`                    // Сервис-источник
}

func updatedPayload(p dto.EmployeePatch) UpdatedPayload {
	return UpdatedPayload{
		Name:        p.Name,
		Department:  p.Department,
		Salary:      p.Salary,
		JoiningDate: p.JoiningDate,
		Skills:      p.Skills,
	}
}
