package api

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/Artexxx/employee-registry/internal/dto"
)

var (
	ErrEmployeeIDRequired    = errors.New("path parameter employee_id is required")
	ErrSkillRequired         = errors.New("query parameter skill is required")
	ErrEmployeeNotFound      = errors.New("Employee not found")
	ErrSkillNotFound         = errors.New("No employees found with that skill")
	ErrEmployeeAlreadyExists = errors.New("Employee with this employee_id already exists")

	errInternal = errors.New("Internal Server Error")
)

type messageResponse struct {
	Message string `json:"message" example:"Employee added successfully"`
}

type errorResponse struct {
	Code    string            `json:"code" example:"Not Found"`
	Message string            `json:"message" example:"Employee not found"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(ctx *fasthttp.RequestCtx, statusCode int, body any) {
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.SetStatusCode(statusCode)

	_ = json.NewEncoder(ctx).Encode(body)
}

func message(ctx *fasthttp.RequestCtx, msg string) {
	writeJSON(ctx, fasthttp.StatusOK, messageResponse{Message: msg})
}

func writeError(ctx *fasthttp.RequestCtx, httpStatus int, err error) {
	writeJSON(ctx, httpStatus, errorResponse{Code: fasthttp.StatusMessage(httpStatus), Message: err.Error()})
}

func validationError(ctx *fasthttp.RequestCtx, verr *dto.ValidationError) {
	writeJSON(ctx, fasthttp.StatusUnprocessableEntity, errorResponse{
		Code:    fasthttp.StatusMessage(fasthttp.StatusUnprocessableEntity),
		Message: "validation failed",
		Details: verr.Fields,
	})
}

// serverError пишет 500 без деталей в теле; причина уходит в лог.
func serverError(ctx *fasthttp.RequestCtx, err error) {
	log.Error().
		Err(err).
		Interface("request_id", ctx.UserValue(requestIDKey)).
		Str("url", ctx.URI().String()).
		Msg("request failed")

	writeError(ctx, fasthttp.StatusInternalServerError, errInternal)
}
