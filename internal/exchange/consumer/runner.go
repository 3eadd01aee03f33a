package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

const (
	minRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff = 30 * time.Second
)

// RunnerConfig задаёт параметры consumer group.
type RunnerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	ClientID string
}

// Runner держит consumer group на одном топике и переподключается после ошибок Consume.
type Runner struct {
	brokers []string
	groupID string
	topic   string
	handler sarama.ConsumerGroupHandler
	log     zerolog.Logger
	cfg     *sarama.Config
}

func newRunner(rc RunnerConfig, h sarama.ConsumerGroupHandler, log zerolog.Logger) *Runner {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_3_2_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true
	if rc.ClientID != "" {
		cfg.ClientID = rc.ClientID
	}

	return &Runner{
		brokers: rc.Brokers,
		groupID: rc.GroupID,
		topic:   rc.Topic,
		handler: h,
		log:     log.With().Str("topic", rc.Topic).Str("group", rc.GroupID).Logger(),
		cfg:     cfg,
	}
}

func (r *Runner) Start(ctx context.Context) error {
	group, err := sarama.NewConsumerGroup(r.brokers, r.groupID, r.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = group.Close() }()

	go r.drainErrors(group.Errors())

	r.log.Info().Strs("brokers", r.brokers).Msg("consumer started")
	defer r.log.Info().Msg("consumer stopped")

	backoff := minRetryBackoff

	for ctx.Err() == nil {
		err := group.Consume(ctx, []string{r.topic}, r.handler)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil
		}

		if err == nil {
			// ребалансировка: сессия закрылась штатно
			backoff = minRetryBackoff
			continue
		}

		r.log.Error().Err(err).Dur("retry_in", backoff).Msg("consume error")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}

	return nil
}

func (r *Runner) drainErrors(errs <-chan error) {
	for err := range errs {
		if err == nil || errors.Is(err, context.Canceled) {
			continue
		}

		r.log.Error().Err(err).Msg("consumer group error")
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxRetryBackoff {
		return maxRetryBackoff
	}
	return d
}
