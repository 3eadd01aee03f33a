package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type SkillsKind int

const (
	SkillsList SkillsKind = iota + 1
	SkillsCSV
)

// SkillsInput — навыки на входе: массив строк либо строка через запятую.
type SkillsInput struct {
	Kind SkillsKind
	List []string
	CSV  string
}

func SkillsFromList(list ...string) *SkillsInput {
	return &SkillsInput{Kind: SkillsList, List: list}
}

func SkillsFromCSV(s string) *SkillsInput {
	return &SkillsInput{Kind: SkillsCSV, CSV: s}
}

func (s *SkillsInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) > 0 && data[0] == '"':
		s.Kind = SkillsCSV
		return json.Unmarshal(data, &s.CSV)
	case len(data) > 0 && data[0] == '[':
		s.Kind = SkillsList
		if err := json.Unmarshal(data, &s.List); err != nil {
			return fmt.Errorf("expected array of strings")
		}
		return nil
	default:
		return fmt.Errorf("expected array of strings or comma-separated string")
	}
}

func (s SkillsInput) MarshalJSON() ([]byte, error) {
	if s.Kind == SkillsCSV {
		return json.Marshal(s.CSV)
	}
	return json.Marshal(s.List)
}

type DateKind int

const (
	DateText DateKind = iota + 1
	DateNative
)

// DateInput — дата на входе: строка в одном из допустимых форматов либо готовое значение time.Time.
type DateInput struct {
	Kind DateKind
	Text string
	Time time.Time
}

func DateFromText(s string) *DateInput {
	return &DateInput{Kind: DateText, Text: s}
}

func DateFromTime(t time.Time) *DateInput {
	return &DateInput{Kind: DateNative, Time: t}
}

func (d *DateInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return fmt.Errorf("expected date string")
	}

	d.Kind = DateText
	return json.Unmarshal(data, &d.Text)
}

func (d DateInput) MarshalJSON() ([]byte, error) {
	if d.Kind == DateNative {
		return json.Marshal(d.Time.Format(time.DateOnly))
	}
	return json.Marshal(d.Text)
}

// Optional — поле частичного обновления: отсутствует, явно null или задано.
type Optional[T any] struct {
	set   bool
	null  bool
	value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{set: true, value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.null = true
		return nil
	}

	return json.Unmarshal(data, &o.value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// IsSet сообщает, что ключ присутствовал во входных данных, в том числе со значением null.
func (o Optional[T]) IsSet() bool { return o.set }

func (o Optional[T]) IsNull() bool { return o.set && o.null }

// Get возвращает значение, если оно задано и не null.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set && !o.null
}

// EmployeeCreateRequest — тело POST /employees. Указатели отличают отсутствующее поле от пустого значения.
type EmployeeCreateRequest struct {
	EmployeeID  *string      `json:"employee_id" validate:"required" example:"E123"`
	Name        *string      `json:"name" validate:"required" example:"John Doe"`
	Department  *string      `json:"department" validate:"required" example:"Engineering"`
	Salary      *float64     `json:"salary" validate:"required" example:"75000"`
	JoiningDate *DateInput   `json:"joining_date" validate:"required" swaggertype:"string" example:"2023-01-15"`
	Skills      *SkillsInput `json:"skills" validate:"required" swaggertype:"array,string" example:"Python,MongoDB,APIs"`
}

// EmployeeUpdateRequest — тело PUT /employees/{employee_id}.
type EmployeeUpdateRequest struct {
	Name        Optional[string]       `json:"name" swaggertype:"string"`
	Department  Optional[string]       `json:"department" swaggertype:"string"`
	Salary      Optional[float64]      `json:"salary" swaggertype:"number"`
	JoiningDate Optional[*DateInput]   `json:"joining_date" swaggertype:"string"`
	Skills      Optional[*SkillsInput] `json:"skills" swaggertype:"array,string"`
}
