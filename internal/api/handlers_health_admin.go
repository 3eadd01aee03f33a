package api

import (
	"fmt"

	"github.com/valyala/fasthttp"
)

// @Summary Проверка здоровья сервиса
// @Tags    Admin
// @Success 200 {object} messageResponse
// @Router  /health [get]
func (s *Service) healthHandler(ctx *fasthttp.RequestCtx) {
	message(ctx, "OK")
}

// @Summary Обработанные сообщения топика импорта
// @Tags    Import
// @Produce json
// @Success 200 {array} dto.KafkaEvent
// @Failure 500 {object} errorResponse
// @Router  /events [get]
func (s *Service) listEvents(ctx *fasthttp.RequestCtx) {
	rows, err := s.events.ListEvents(requestContext(ctx))
	if err != nil {
		serverError(ctx, fmt.Errorf("eventsRepository.ListEvents: %w", err))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, rows)
}

// @Summary Сообщения DLQ топика импорта
// @Tags    Import
// @Produce json
// @Success 200 {array} dto.KafkaDLQ
// @Failure 500 {object} errorResponse
// @Router  /dlq [get]
func (s *Service) listDLQ(ctx *fasthttp.RequestCtx) {
	rows, err := s.events.ListDLQ(requestContext(ctx))
	if err != nil {
		serverError(ctx, fmt.Errorf("eventsRepository.ListDLQ: %w", err))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, rows)
}

// @Summary Очистка журнала импорта и DLQ
// @Tags    Admin
// @Success 200 {object} messageResponse
// @Failure 500 {object} errorResponse
// @Router  /admin/reset [post]
func (s *Service) resetHandler(ctx *fasthttp.RequestCtx) {
	if err := s.events.ResetAll(requestContext(ctx)); err != nil {
		serverError(ctx, fmt.Errorf("eventsRepository.ResetAll: %w", err))
		return
	}

	message(ctx, "Import log cleared")
}
