package cache

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCache implements a MongoDB-backed cache with TTL-based expiry.
// A TTL index on the expires_at field lets the server reap expired entries;
// Get also treats an expired entry as a miss and deletes it.
type MongoCache struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoOptions configures the MongoDB connection.
type MongoOptions struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database name. Defaults to "placer".
	Database string

	// Collection is the collection name. Defaults to "cache".
	Collection string
}

// mongoEntry is the stored document shape.
type mongoEntry struct {
	Key       string     `bson:"_id"`
	Data      []byte     `bson:"data"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// NewMongoCache creates a MongoDB-backed cache and ensures the TTL index
// exists.
func NewMongoCache(ctx context.Context, opts MongoOptions) (Cache, error) {
	if opts.Database == "" {
		opts.Database = "placer"
	}
	if opts.Collection == "" {
		opts.Collection = "cache"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, Retryable(ErrNetwork)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, Retryable(ErrNetwork)
	}

	coll := client.Database(opts.Database).Collection(opts.Collection)

	// ExpireAfterSeconds of 0 means documents expire at the time stored in
	// expires_at. Documents without the field never expire.
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &MongoCache{client: client, collection: coll}, nil
}

// Get retrieves a value from MongoDB. A missing document is a miss, not an
// error. The TTL monitor only runs periodically, so expiry is also checked
// here.
func (c *MongoCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry mongoEntry
	err := c.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Retryable(err)
	}

	if entry.ExpiresAt != nil && time.Now().After(*entry.ExpiresAt) {
		_, _ = c.collection.DeleteOne(ctx, bson.M{"_id": key})
		return nil, false, nil
	}

	return entry.Data, true, nil
}

// Set stores a value in MongoDB. A ttl <= 0 stores without expiration.
func (c *MongoCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := mongoEntry{
		Key:  key,
		Data: data,
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		entry.ExpiresAt = &expires
	}

	_, err := c.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return Retryable(err)
	}
	return nil
}

// Delete removes a value from MongoDB.
func (c *MongoCache) Delete(ctx context.Context, key string) error {
	if _, err := c.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return Retryable(err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (c *MongoCache) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Ensure MongoCache implements Cache.
var _ Cache = (*MongoCache)(nil)
