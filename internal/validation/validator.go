package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Artexxx/employee-registry/internal/dto"
)

// ErrMalformedBody — тело запроса не является JSON-объектом.
var ErrMalformedBody = errors.New("request body must be a JSON object")

// Validator проверяет и нормализует входные данные сотрудника.
// Безопасен для конкурентного использования.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{v: v}
}

// DecodeCreate разбирает тело создания. Ошибки типов полей возвращаются как *dto.ValidationError.
func (val *Validator) DecodeCreate(body []byte) (dto.EmployeeCreateRequest, error) {
	var req dto.EmployeeCreateRequest

	raw, err := decodeObject(body)
	if err != nil {
		return req, err
	}

	verr := dto.NewValidationError()
	decodeField(raw, "employee_id", &req.EmployeeID, verr)
	decodeField(raw, "name", &req.Name, verr)
	decodeField(raw, "department", &req.Department, verr)
	decodeField(raw, "salary", &req.Salary, verr)
	decodeField(raw, "joining_date", &req.JoiningDate, verr)
	decodeField(raw, "skills", &req.Skills, verr)

	return req, verr.OrNil()
}

// DecodeUpdate разбирает тело частичного обновления.
func (val *Validator) DecodeUpdate(body []byte) (dto.EmployeeUpdateRequest, error) {
	var req dto.EmployeeUpdateRequest

	raw, err := decodeObject(body)
	if err != nil {
		return req, err
	}

	verr := dto.NewValidationError()
	decodeField(raw, "name", &req.Name, verr)
	decodeField(raw, "department", &req.Department, verr)
	decodeField(raw, "salary", &req.Salary, verr)
	decodeField(raw, "joining_date", &req.JoiningDate, verr)
	decodeField(raw, "skills", &req.Skills, verr)

	return req, verr.OrNil()
}

// ValidateCreate проверяет наличие обязательных полей и нормализует запись.
// Строки сохраняются как пришли: пустая строка допустима, employee_id не переписывается.
func (val *Validator) ValidateCreate(req dto.EmployeeCreateRequest) (dto.Employee, error) {
	verr := dto.NewValidationError()
	val.structErrors(req, verr)

	out := dto.Employee{
		EmployeeID: deref(req.EmployeeID),
		Name:       deref(req.Name),
		Department: deref(req.Department),
		Salary:     deref(req.Salary),
	}

	if req.JoiningDate != nil {
		date, err := NormalizeDate(*req.JoiningDate)
		if err != nil {
			verr.Add("joining_date", err.Error())
		}
		out.JoiningDate = date
	}

	if req.Skills != nil {
		skills, err := NormalizeSkills(*req.Skills)
		if err != nil {
			verr.Add("skills", err.Error())
		}
		out.Skills = skills
	}

	if err := verr.OrNil(); err != nil {
		return dto.Employee{}, err
	}

	return out, nil
}

// ValidateUpdate строит набор изменений: в него попадают только заданные и непустые поля.
func (val *Validator) ValidateUpdate(req dto.EmployeeUpdateRequest) (dto.EmployeePatch, error) {
	var patch dto.EmployeePatch
	verr := dto.NewValidationError()

	if v, ok := req.Name.Get(); ok && strings.TrimSpace(v) != "" {
		patch.Name = &v
	}

	if v, ok := req.Department.Get(); ok && strings.TrimSpace(v) != "" {
		patch.Department = &v
	}

	if v, ok := req.Salary.Get(); ok {
		patch.Salary = &v
	}

	if v, ok := req.JoiningDate.Get(); ok && v != nil && !isBlankDate(*v) {
		date, err := NormalizeDate(*v)
		if err != nil {
			verr.Add("joining_date", err.Error())
		} else {
			patch.JoiningDate = &date
		}
	}

	if v, ok := req.Skills.Get(); ok && v != nil {
		skills, err := NormalizeSkills(*v)
		if err != nil {
			verr.Add("skills", err.Error())
		} else if len(skills) > 0 {
			patch.Skills = skills
		}
	}

	if err := verr.OrNil(); err != nil {
		return dto.EmployeePatch{}, err
	}

	return patch, nil
}

func (val *Validator) structErrors(s any, verr *dto.ValidationError) {
	err := val.v.Struct(s)
	if err == nil {
		return
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		verr.Add("body", err.Error())
		return
	}

	for _, fe := range vErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	default:
		return fmt.Sprintf("failed on '%s'", fe.Tag())
	}
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, ErrMalformedBody
	}
	return raw, nil
}

func decodeField(raw map[string]json.RawMessage, name string, dst any, verr *dto.ValidationError) {
	data, ok := raw[name]
	if !ok {
		return
	}

	if err := json.Unmarshal(data, dst); err != nil {
		verr.Add(name, typeMessage(err))
	}
}

func typeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("invalid type: expected %s, got %s", typeErr.Type.String(), typeErr.Value)
	}
	return err.Error()
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func isBlankDate(d dto.DateInput) bool {
	return d.Kind == dto.DateText && strings.TrimSpace(d.Text) == ""
}
