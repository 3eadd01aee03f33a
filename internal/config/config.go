package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Artexxx/employee-registry/library/mongodb"
	"github.com/Artexxx/employee-registry/library/yamlenv"
)

type Config struct {
	Mongo   mongodb.MongoConfig `yaml:"mongo"`
	Kafka   KafkaConfig         `yaml:"kafka"`
	UserAPI ApiConfig           `yaml:"userAPI"`
	Log     LogConfig           `yaml:"log"`
}

type KafkaConfig struct {
	Enabled          *yamlenv.Env[bool]   `yaml:"enabled"`
	Bootstrap        *yamlenv.Env[string] `yaml:"bootstrap"`
	ProducerClientID *yamlenv.Env[string] `yaml:"producer_client_id"`
	ImportGroup      *yamlenv.Env[string] `yaml:"import_group"`
	Topics           struct {
		Changes *yamlenv.Env[string] `yaml:"changes"`
		Import  *yamlenv.Env[string] `yaml:"import"`
	} `yaml:"topics"`
}

type ApiConfig struct {
	Port *yamlenv.Env[int] `yaml:"port" validate:"required"`
}

type LogConfig struct {
	Level *yamlenv.Env[string] `yaml:"level"`
}

// IsEnabled: Kafka выключена, если секция не задана.
func (k KafkaConfig) IsEnabled() bool {
	return k.Enabled != nil && k.Enabled.Value
}

// Brokers разбивает kafka.bootstrap по запятой.
func (k KafkaConfig) Brokers() []string {
	if k.Bootstrap == nil {
		return nil
	}

	var out []string
	for _, b := range strings.Split(k.Bootstrap.Value, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ClientID используется producer и consumer group. Пустая строка оставляет значение sarama по умолчанию.
func (k KafkaConfig) ClientID() string {
	if k.ProducerClientID == nil {
		return ""
	}
	return k.ProducerClientID.Value
}

func (l LogConfig) LevelOrDefault() string {
	if l.Level == nil || l.Level.Value == "" {
		return "info"
	}

	return l.Level.Value
}

// Validate проверяет обязательные поля. Поля Kafka обязательны только при kafka.enabled=true.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validator.Struct: %w", err)
	}

	var errs []error
	if err := c.Mongo.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.UserAPI.Port.Value <= 0 || c.UserAPI.Port.Value > 65535 {
		errs = append(errs, fmt.Errorf("field 'userAPI.port' out of range: %d", c.UserAPI.Port.Value))
	}

	if !c.Kafka.IsEnabled() {
		return errors.Join(errs...)
	}

	if len(c.Kafka.Brokers()) == 0 {
		errs = append(errs, errors.New("required field 'kafka.bootstrap'"))
	}
	if c.Kafka.Topics.Changes == nil || c.Kafka.Topics.Changes.Value == "" {
		errs = append(errs, errors.New("required field 'kafka.topics.changes'"))
	}
	if c.Kafka.Topics.Import == nil || c.Kafka.Topics.Import.Value == "" {
		errs = append(errs, errors.New("required field 'kafka.topics.import'"))
	}
	if c.Kafka.ImportGroup == nil || c.Kafka.ImportGroup.Value == "" {
		errs = append(errs, errors.New("required field 'kafka.import_group'"))
	}

	return errors.Join(errs...)
}
