package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Artexxx/employee-registry/library/yamlenv"
)

type MongoConfig struct {
	URI        *yamlenv.Env[string] `yaml:"uri" validate:"required"`
	Database   *yamlenv.Env[string] `yaml:"database" validate:"required"`
	Collection *yamlenv.Env[string] `yaml:"collection" validate:"required"`
}

// Validate проверяет значения после подстановки переменных окружения:
// тег required видит только наличие ключа в yaml.
func (c MongoConfig) Validate() error {
	leaves := []struct {
		name string
		env  *yamlenv.Env[string]
	}{
		{"mongo.uri", c.URI},
		{"mongo.database", c.Database},
		{"mongo.collection", c.Collection},
	}

	var errs []error
	for _, l := range leaves {
		if l.env == nil || strings.TrimSpace(l.env.Value) == "" {
			errs = append(errs, fmt.Errorf("required field '%s' is empty", l.name))
		}
	}

	return errors.Join(errs...)
}

// Mongo — пул соединений, открывается один раз на процесс.
type Mongo struct {
	client *mongo.Client
	log    zerolog.Logger
}

func NewMongo(ctx context.Context, uri string, log zerolog.Logger) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("client.Ping: %w", err)
	}

	m := &Mongo{
		client: client,
		log:    log.With().Str("component", "mongo").Logger(),
	}

	m.log.Info().Msg("mongo connected")

	return m, nil
}

func (m *Mongo) Database(name string) *mongo.Database {
	return m.client.Database(name)
}

func (m *Mongo) Close(ctx context.Context) {
	if err := m.client.Disconnect(ctx); err != nil {
		m.log.Error().Err(err).Msg("mongo disconnect failed")
		return
	}

	m.log.Info().Msg("mongo disconnected")
}
