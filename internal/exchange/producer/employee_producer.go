package producer

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

type EmployeeProducer struct {
	sp     sarama.SyncProducer
	topic  string
	source string
	log    zerolog.Logger
	now    func() time.Time
}

type Config struct {
	Topic  string
	Source string
}

func NewEmployeeProducer(sp sarama.SyncProducer, cfg Config, log zerolog.Logger) *EmployeeProducer {
	return &EmployeeProducer{
		sp:     sp,
		topic:  cfg.Topic,
		source: cfg.Source,
		log:    log.With().Str("component", "EmployeeProducer").Logger(),
		now:    time.Now,
	}
}

func (p *EmployeeProducer) Close() error {
	if p == nil || p.sp == nil {
		return nil
	}
	return p.sp.Close()
}

func (p *EmployeeProducer) PublishCreated(ctx context.Context, e dto.Employee) error {
	return publish(ctx, p, KindCreated, e.EmployeeID, e)
}

func (p *EmployeeProducer) PublishUpdated(ctx context.Context, employeeID string, patch dto.EmployeePatch) error {
	return publish(ctx, p, KindUpdated, employeeID, updatedPayload(patch))
}

func (p *EmployeeProducer) PublishDeleted(ctx context.Context, employeeID string) error {
	return publish(ctx, p, KindDeleted, employeeID, DeletedPayload{EmployeeID: employeeID})
}

func publish[T any](ctx context.Context, p *EmployeeProducer, kind Kind, employeeID string, payload T) error {
	env := Envelope[T]{
		Kind:       kind,
		MessageID:  uuid.New(),
		EmployeeID: employeeID,
		Payload:    payload,
		Timestamp:  p.now().UTC(),
		Source:     p.source,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	return p.send(ctx, employeeID, body, map[string]string{
		"event-kind":   string(kind),
		"message-id":   env.MessageID.String(),
		"source":       p.source,
		"content-type": "application/json",
	})
}

func (p *EmployeeProducer) send(_ context.Context, key string, value []byte, headers map[string]string) error {
	if p == nil || p.sp == nil {
		return errors.New("sync producer is not initialized")
	}

	var hs []sarama.RecordHeader
	for k, v := range headers {
		hs = append(hs, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(value),
		Headers: hs,
	}

	part, off, err := p.sp.SendMessage(msg)
	if err != nil {
		p.log.Error().
			Err(err).
			Str("topic", p.topic).
			Str("key", key).
			Int("bytes", len(value)).
			Msg("failed to send kafka message")
		return fmt.Errorf("send kafka message: %w", err)
	}

	p.log.Debug().
		Str("topic", p.topic).
		Str("key", key).
		Int32("partition", part).
		Int64("offset", off).
		Int("bytes", len(value)).
		Msg("kafka message sent")

	return nil
}
