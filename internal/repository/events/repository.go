package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Artexxx/employee-registry/internal/dto"
)

const (
	EventsCollection = "kafka_events"
	DLQCollection    = "kafka_dlq"
)

type CollectionIface interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type Repository struct {
	events CollectionIface
	dlq    CollectionIface
	now    func() time.Time
}

func NewRepository(events, dlq CollectionIface) *Repository {
	return &Repository{events: events, dlq: dlq, now: time.Now}
}

func (r *Repository) ExistsMessage(ctx context.Context, messageID uuid.UUID) (bool, error) {
	n, err := r.events.CountDocuments(ctx, bson.M{"message_id": messageID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("events.CountDocuments: %w", err)
	}

	return n > 0, nil
}

func (r *Repository) InsertEvent(ctx context.Context, event dto.KafkaEvent) error {
	event.ReceivedAt = r.now().UTC()

	if _, err := r.events.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("events.InsertOne: %w", err)
	}

	return nil
}

func (r *Repository) InsertDLQ(ctx context.Context, dlq dto.KafkaDLQ) error {
	dlq.ReceivedAt = r.now().UTC()

	if _, err := r.dlq.InsertOne(ctx, dlq); err != nil {
		return fmt.Errorf("dlq.InsertOne: %w", err)
	}

	return nil
}

func (r *Repository) ListEvents(ctx context.Context) ([]dto.KafkaEvent, error) {
	out := make([]dto.KafkaEvent, 0)
	if err := listNewestFirst(ctx, r.events, &out); err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}

	return out, nil
}

func (r *Repository) ListDLQ(ctx context.Context) ([]dto.KafkaDLQ, error) {
	out := make([]dto.KafkaDLQ, 0)
	if err := listNewestFirst(ctx, r.dlq, &out); err != nil {
		return nil, fmt.Errorf("dlq: %w", err)
	}

	return out, nil
}

// ResetAll очищает журнал событий и DLQ. Коллекцию сотрудников не трогает.
func (r *Repository) ResetAll(ctx context.Context) error {
	if _, err := r.events.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("events.DeleteMany: %w", err)
	}

	if _, err := r.dlq.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("dlq.DeleteMany: %w", err)
	}

	return nil
}

func listNewestFirst(ctx context.Context, coll CollectionIface, out interface{}) error {
	opts := options.Find().
		SetProjection(bson.M{"_id": 0}).
		SetSort(bson.D{{Key: "received_at", Value: -1}})

	cur, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("Find: %w", err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("cursor.All: %w", err)
	}

	return nil
}
