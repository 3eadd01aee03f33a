package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/Artexxx/employee-registry/internal/dto"
	"github.com/Artexxx/employee-registry/internal/validation"
)

// @Summary Создать сотрудника
// @Tags    Employees
// @Accept  json
// @Produce json
// @Param   request body dto.EmployeeCreateRequest true "Сотрудник"
// @Success 200 {object} messageResponse
// @Failure 400 {object} errorResponse "тело не является JSON-объектом"
// @Failure 422 {object} errorResponse "ошибки по полям в details"
// @Failure 409 {object} errorResponse "employee_id уже существует"
// @Failure 500 {object} errorResponse "Внутренняя ошибка"
// @Router  /employees [post]
func (s *Service) createEmployee(ctx *fasthttp.RequestCtx) {
	req, err := s.validator.DecodeCreate(ctx.PostBody())
	if err != nil {
		s.writeInputError(ctx, err)
		return
	}

	employee, err := s.validator.ValidateCreate(req)
	if err != nil {
		s.writeInputError(ctx, err)
		return
	}

	rctx := requestContext(ctx)

	if err := s.employees.Insert(rctx, employee); err != nil {
		if errors.Is(err, dto.ErrAlreadyExists) {
			writeError(ctx, fasthttp.StatusConflict, ErrEmployeeAlreadyExists)
			return
		}

		serverError(ctx, fmt.Errorf("employeeRepository.Insert: %w", err))
		return
	}

	s.publish(rctx, "created", func(p Publisher) error { return p.PublishCreated(rctx, employee) })

	message(ctx, "Employee added successfully")
}

// @Summary Список сотрудников, опционально по отделу
// @Tags    Employees
// @Produce json
// @Param   department query string false "Отдел (точное совпадение)"
// @Success 200 {array} dto.Employee
// @Failure 500 {object} errorResponse "Внутренняя ошибка"
// @Router  /employees [get]
func (s *Service) listEmployees(ctx *fasthttp.RequestCtx) {
	department := string(ctx.QueryArgs().Peek("department"))

	rows, err := s.employees.ListByDepartment(requestContext(ctx), department)
	if err != nil {
		serverError(ctx, fmt.Errorf("employeeRepository.ListByDepartment: %w", err))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, rows)
}

// @Summary Средняя зарплата по отделам
// @Tags    Employees
// @Produce json
// @Success 200 {array} dto.DepartmentSalary
// @Failure 500 {object} errorResponse "Внутренняя ошибка"
// @Router  /employees/avg-salary [get]
func (s *Service) averageSalary(ctx *fasthttp.RequestCtx) {
	rows, err := s.employees.AverageSalaryByDepartment(requestContext(ctx))
	if err != nil {
		serverError(ctx, fmt.Errorf("employeeRepository.AverageSalaryByDepartment: %w", err))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, rows)
}

// @Summary Поиск сотрудников по навыку
// @Tags    Employees
// @Produce json
// @Param   skill query string true "Навык (точное совпадение, с учётом регистра)"
// @Success 200 {array} dto.Employee
// @Failure 404 {object} errorResponse "никто не владеет навыком"
// @Failure 422 {object} errorResponse "skill не передан"
// @Failure 500 {object} errorResponse "Внутренняя ошибка"
// @Router  /employees/search [get]
func (s *Service) searchEmployees(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	if !args.Has("skill") {
		verr := dto.NewValidationError()
		verr.Add("skill", ErrSkillRequired.Error())
		validationError(ctx, verr)
		return
	}

	rows, err := s.employees.SearchBySkill(requestContext(ctx), string(args.Peek("skill")))
	if err != nil {
		if errors.Is(err, dto.ErrNotFound) {
			writeError(ctx, fasthttp.StatusNotFound, ErrSkillNotFound)
			return
		}

		serverError(ctx, fmt.Errorf("employeeRepository.SearchBySkill: %w", err))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, rows)
}

// @Summary Получить сотрудника по employee_id
// @Tags    Employees
// @Produce json
// @Param   employee_id path string true "Идентификатор сотрудника"
// @Success 200 {object} dto.Employee
// @Failure 404 {object} errorResponse "employee not found"
// @Failure 500 {object} errorResponse "Внутренняя ошибка"
// @Router  /employees/{employee_id} [get]
func (s *Service) getEmployee(ctx *fasthttp.RequestCtx) {
	employeeID, ok := employeeIDParam(ctx)
	if !ok {
		writeError(ctx, fasthttp.StatusBadRequest, ErrEmployeeIDRequired)
		return
	}

	row, err := s.employees.FindByID(requestContext(ctx), employeeID)
	if err != nil {
		if errors.Is(err, dto.ErrNotFound) {
			writeError(ctx, fasthttp.StatusNotFound, ErrEmployeeNotFound)
			return
		}

		serverError(ctx, fmt.Errorf("employeeRepository.FindByID: %w", err))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, row)
}

// @Summary Частично обновить сотрудника
// @Tags    Employees
// @Accept  json
// @Produce json
// @Param   employee_id path string true "Идентификатор сотрудника"
// @Param   request body dto.EmployeeUpdateRequest true "Изменяемые поля; null и пустые значения игнорируются"
// @Success 200 {object} messageResponse
// @Failure 400 {object} errorResponse "тело не является JSON-объектом"
// @Failure 404 {object} errorResponse "employee not found"
// @Failure 422 {object} errorResponse "ошибки по полям в details"
// @Failure 500 {object} errorResponse "Внутренняя ошибка"
// @Router  /employees/{employee_id} [put]
func (s *Service) updateEmployee(ctx *fasthttp.RequestCtx) {
	employeeID, ok := employeeIDParam(ctx)
	if !ok {
		writeError(ctx, fasthttp.StatusBadRequest, ErrEmployeeIDRequired)
		return
	}

	req, err := s.validator.DecodeUpdate(ctx.PostBody())
	if err != nil {
		s.writeInputError(ctx, err)
		return
	}

	patch, err := s.validator.ValidateUpdate(req)
	if err != nil {
		s.writeInputError(ctx, err)
		return
	}

	rctx := requestContext(ctx)

	if err := s.employees.Update(rctx, employeeID, patch); err != nil {
		if errors.Is(err, dto.ErrNotFound) {
			writeError(ctx, fasthttp.StatusNotFound, ErrEmployeeNotFound)
			return
		}

		serverError(ctx, fmt.Errorf("employeeRepository.Update: %w", err))
		return
	}

	if !patch.IsEmpty() {
		s.publish(rctx, "updated", func(p Publisher) error { return p.PublishUpdated(rctx, employeeID, patch) })
	}

	message(ctx, "Employee updated successfully")
}

// @Summary Удалить сотрудника
// @Tags    Employees
// @Produce json
// @Param   employee_id path string true "Идентификатор сотрудника"
// @Success 200 {object} messageResponse
// @Failure 404 {object} errorResponse "employee not found"
// @Failure 500 {object} errorResponse "Внутренняя ошибка"
// @Router  /employees/{employee_id} [delete]
func (s *Service) deleteEmployee(ctx *fasthttp.RequestCtx) {
	employeeID, ok := employeeIDParam(ctx)
	if !ok {
		writeError(ctx, fasthttp.StatusBadRequest, ErrEmployeeIDRequired)
		return
	}

	rctx := requestContext(ctx)

	if err := s.employees.Delete(rctx, employeeID); err != nil {
		if errors.Is(err, dto.ErrNotFound) {
			writeError(ctx, fasthttp.StatusNotFound, ErrEmployeeNotFound)
			return
		}

		serverError(ctx, fmt.Errorf("employeeRepository.Delete: %w", err))
		return
	}

	s.publish(rctx, "deleted", func(p Publisher) error { return p.PublishDeleted(rctx, employeeID) })

	message(ctx, "Employee deleted successfully")
}

func (s *Service) writeInputError(ctx *fasthttp.RequestCtx, err error) {
	var verr *dto.ValidationError

	switch {
	case errors.As(err, &verr):
		validationError(ctx, verr)
	case errors.Is(err, validation.ErrMalformedBody):
		writeError(ctx, fasthttp.StatusBadRequest, err)
	default:
		serverError(ctx, err)
	}
}

// publish отправляет событие после успешной записи. Ошибка отправки не влияет на ответ.
func (s *Service) publish(ctx context.Context, kind string, send func(Publisher) error) {
	if s.publisher == nil {
		return
	}

	if err := send(s.publisher); err != nil {
		publishFailures.WithLabelValues(kind).Inc()
		log.Warn().
			Err(err).
			Interface("request_id", ctx.Value(ctxKeyRequestID)).
			Str("kind", kind).
			Msg("employee event not published")
	}
}

func employeeIDParam(ctx *fasthttp.RequestCtx) (string, bool) {
	employeeID, _ := ctx.UserValue("employee_id").(string)
	if strings.TrimSpace(employeeID) == "" {
		return "", false
	}
	return employeeID, true
}
