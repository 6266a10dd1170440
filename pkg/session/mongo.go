package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/flowscope/pkg/cache"
)

// MongoConfig configures a [MongoStore].
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	TTL        time.Duration
}

// MongoStore keeps records in a MongoDB collection. A TTL index on
// expires_at lets the server drop stale snapshots.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	ttl    time.Duration
}

type mongoRecord struct {
	ID        string    `bson:"_id"`
	Engine    string    `bson:"engine"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// NewMongoStore connects to MongoDB and ensures the expiry index.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "flowscope"
	}
	if cfg.Collection == "" {
		cfg.Collection = "sessions"
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create ttl index: %w", err)
	}
	return &MongoStore{client: client, coll: coll, ttl: cfg.TTL}, nil
}

func mongoErr(err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	return err
}

// Load implements Store.
func (s *MongoStore) Load(ctx context.Context, id string) (*Record, error) {
	var doc mongoRecord
	err := cache.RetryWithBackoff(ctx, func() error {
		return mongoErr(s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc))
	})
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	rec, err := decode(doc.Data)
	if err != nil {
		return nil, err
	}
	// The TTL monitor runs about once a minute.
	if rec.IsExpired() {
		return nil, notFound(id)
	}
	return rec, nil
}

// Save implements Store.
func (s *MongoStore) Save(ctx context.Context, rec *Record) error {
	stamp(rec, s.ttl)
	data, err := encode(rec)
	if err != nil {
		return err
	}
	doc := mongoRecord{
		ID:        rec.ID,
		Engine:    rec.Engine,
		Data:      data,
		UpdatedAt: rec.UpdatedAt,
		ExpiresAt: rec.ExpiresAt,
	}
	return cache.RetryWithBackoff(ctx, func() error {
		_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc, options.Replace().SetUpsert(true))
		return mongoErr(err)
	})
}

// Delete implements Store.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	return cache.RetryWithBackoff(ctx, func() error {
		_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
		return mongoErr(err)
	})
}

// List implements Store.
func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	filter := bson.M{"expires_at": bson.M{"$gt": time.Now()}}
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo cursor: %w", err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// Close implements Store.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
