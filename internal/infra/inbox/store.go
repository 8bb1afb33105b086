package inbox

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Deduper remembers which event ids a consumer already processed.
type Deduper interface {
	// Seen records eventID and reports whether it had been recorded before.
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Store keeps processed event ids in Mongo, unique per consumer.
type Store struct {
	col      *mongo.Collection
	consumer string
	ttl      time.Duration
}

func NewStore(db *mongo.Database, consumer string, ttl time.Duration) *Store {
	col := db.Collection("app_inbox")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if ttl > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
		})
	}
	_, _ = col.Indexes().CreateMany(ctx, models)
	return &Store{col: col, consumer: consumer, ttl: ttl}
}

func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	doc := bson.M{"event_id": eventID, "consumer": s.consumer, "received_at": time.Now().UTC()}
	_, err := s.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, err
}

var _ Deduper = (*Store)(nil)
