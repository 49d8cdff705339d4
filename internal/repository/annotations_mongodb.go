package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"guardian-inventory/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAnnotationRepository implements AnnotationRepository using MongoDB.
type MongoAnnotationRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// AnnotationDocument represents a document in MongoDB.
type AnnotationDocument struct {
	MembershipID string            `bson:"membership_id"`
	Tags         map[string]string `bson:"tags"`
	Notes        map[string]string `bson:"notes"`
	UpdatedAt    time.Time         `bson:"updated_at"`
}

// NewMongoAnnotationRepository connects to MongoDB.
func NewMongoAnnotationRepository(uri, database, collection string) (*MongoAnnotationRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "membership_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		log.Printf("[MongoDB] Warning: failed to create index: %v", err)
	}

	log.Printf("[MongoDB] Connected to %s/%s", database, collection)
	return &MongoAnnotationRepository{client: client, collection: coll}, nil
}

// GetAnnotations returns the account's record.
func (r *MongoAnnotationRepository) GetAnnotations(ctx context.Context, membershipID string) (model.AnnotationRecord, error) {
	var doc AnnotationDocument
	err := r.collection.FindOne(ctx, bson.M{"membership_id": membershipID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.NewAnnotationRecord(), nil
	}
	if err != nil {
		return model.AnnotationRecord{}, fmt.Errorf("failed to get annotations: %w", err)
	}

	rec := model.AnnotationRecord{Tags: doc.Tags, Notes: doc.Notes}
	if rec.Tags == nil {
		rec.Tags = map[string]string{}
	}
	if rec.Notes == nil {
		rec.Notes = map[string]string{}
	}
	return rec, nil
}

// PutAnnotations replaces the account's record.
func (r *MongoAnnotationRepository) PutAnnotations(ctx context.Context, membershipID string, record model.AnnotationRecord) error {
	filter := bson.M{"membership_id": membershipID}
	update := bson.M{
		"$set": bson.M{
			"tags":       nonNil(record.Tags),
			"notes":      nonNil(record.Notes),
			"updated_at": time.Now().UTC(),
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to put annotations: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoAnnotationRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

var _ AnnotationRepository = (*MongoAnnotationRepository)(nil)
