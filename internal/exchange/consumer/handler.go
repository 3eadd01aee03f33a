package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Artexxx/employee-registry/internal/dto"
)

type EventsRepository interface {
	ExistsMessage(ctx context.Context, messageID uuid.UUID) (bool, error)
	InsertEvent(ctx context.Context, ev dto.KafkaEvent) error
	InsertDLQ(ctx context.Context, dlq dto.KafkaDLQ) error
}

type EmployeeRepository interface {
	Insert(ctx context.Context, e dto.Employee) error
}

type Validator interface {
	DecodeCreate(body []byte) (dto.EmployeeCreateRequest, error)
	ValidateCreate(req dto.EmployeeCreateRequest) (dto.Employee, error)
}

type handler struct {
	events     EventsRepository
	employees  EmployeeRepository
	validator  Validator
	log        zerolog.Logger
	retryDelay time.Duration
}

// NewImportRunner создаёт consumer топика импорта. Каждое сообщение создаёт сотрудника.
func NewImportRunner(
	rc RunnerConfig,
	events EventsRepository,
	employees EmployeeRepository,
	validator Validator,
	log zerolog.Logger,
) *Runner {
	h := &handler{
		events:     events,
		employees:  employees,
		validator:  validator,
		log:        log.With().Str("consumer", "import").Logger(),
		retryDelay: minRetryBackoff,
	}

	return newRunner(rc, h, log)
}

func (h *handler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *handler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim коммитит offset только после того, как сообщение записано в коллекции.
// При ошибке хранилища claim завершается: сессия перезапустится с последнего закоммиченного offset.
func (h *handler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.process(sess.Context(), msg); err != nil {
			h.log.Error().
				Err(err).
				Int32("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("message not processed, will be redelivered")

			select {
			case <-sess.Context().Done():
			case <-time.After(h.retryDelay):
			}

			return err
		}

		sess.MarkMessage(msg, "")
	}
	return nil
}

// process возвращает nil, если offset можно коммитить: сообщение импортировано,
// уже было обработано или сохранено в DLQ. Ошибка означает временный сбой хранилища.
func (h *handler) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var env ImportEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return h.toDLQ(ctx, msg, fmt.Sprintf("invalid_json: %v", err))
	}

	if env.MessageID == uuid.Nil {
		return h.toDLQ(ctx, msg, "missing required field message_id")
	}

	exists, err := h.events.ExistsMessage(ctx, env.MessageID)
	if err != nil {
		return fmt.Errorf("events.ExistsMessage: %w", err)
	}

	if exists {
		h.log.Info().
			Str("message_id", env.MessageID.String()).
			Str("employee_id", env.EmployeeID).
			Msg("duplicate message, skip (idempotency)")
		return nil
	}

	req, err := h.validator.DecodeCreate(env.Payload)
	if err != nil {
		return h.toDLQ(ctx, msg, fmt.Sprintf("invalid payload: %v", err))
	}

	employee, err := h.validator.ValidateCreate(req)
	if err != nil {
		return h.toDLQ(ctx, msg, err.Error())
	}

	if err := h.employees.Insert(ctx, employee); err != nil {
		if errors.Is(err, dto.ErrAlreadyExists) {
			return h.toDLQ(ctx, msg, fmt.Sprintf("employee %s already exists", employee.EmployeeID))
		}

		return fmt.Errorf("employees.Insert: %w", err)
	}

	if err := h.events.InsertEvent(ctx, dto.KafkaEvent{
		MessageID: env.MessageID,
		Topic:     msg.Topic,
		Key:       string(msg.Key),
		Partition: int(msg.Partition),
		Offset:    msg.Offset,
		Payload:   append([]byte(nil), msg.Value...),
	}); err != nil {
		// сотрудник уже создан: повтор сообщения упадёт на уникальном индексе и уйдёт в DLQ
		h.log.Error().
			Err(err).
			Str("message_id", env.MessageID.String()).
			Msg("events.InsertEvent failed")
	}

	h.log.Info().
		Str("message_id", env.MessageID.String()).
		Str("employee_id", employee.EmployeeID).
		Msg("employee imported")

	return nil
}

// toDLQ сохраняет сообщение, которое нельзя импортировать. Ошибка записи в DLQ
// возвращается, чтобы offset не был закоммичен.
func (h *handler) toDLQ(ctx context.Context, msg *sarama.ConsumerMessage, reason string) error {
	if err := h.events.InsertDLQ(ctx, dto.KafkaDLQ{
		Topic:   msg.Topic,
		Key:     string(msg.Key),
		Payload: string(msg.Value),
		Error:   reason,
	}); err != nil {
		return fmt.Errorf("events.InsertDLQ: %w", err)
	}

	h.log.Warn().
		Str("topic", msg.Topic).
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("reason", reason).
		Msg("message sent to DLQ")

	return nil
}
