package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Ash-333/nepse-data/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB database and collection names
const (
	MongoDBName          = "nepse_data"
	MongoCacheCollection = "cache"
)

type mongoCacheDoc struct {
	Key       string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	FetchedAt time.Time `bson:"fetched_at"`
}

// MongoCacheStore keeps cached feed snapshots in MongoDB Atlas so the last
// good payloads survive a process restart.
type MongoCacheStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoCacheStore connects to MongoDB and verifies the connection
func NewMongoCacheStore(ctx context.Context, uri string) (*MongoCacheStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Println("MongoDB cache store connected successfully")
	return &MongoCacheStore{
		client:     client,
		collection: client.Database(MongoDBName).Collection(MongoCacheCollection),
	}, nil
}

func (m *MongoCacheStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	var doc mongoCacheDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get %s: %w", key, err)
	}
	return &models.CacheEntry{
		Key:       doc.Key,
		Payload:   json.RawMessage(doc.Payload),
		FetchedAt: doc.FetchedAt,
	}, nil
}

func (m *MongoCacheStore) Upsert(ctx context.Context, key string, payload json.RawMessage, fetchedAt time.Time) error {
	doc := mongoCacheDoc{
		Key:       key,
		Payload:   payload,
		FetchedAt: fetchedAt,
	}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", key, err)
	}
	return nil
}

// Close disconnects from MongoDB
func (m *MongoCacheStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
