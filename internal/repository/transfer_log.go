package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"guardian-inventory/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TransferLogRepository defines the interface for the transfer journal.
type TransferLogRepository interface {
	InsertTransferLog(ctx context.Context, entry *model.TransferLog) error
	GetTransferLogs(ctx context.Context, limit, offset int) ([]model.TransferLog, int64, error)
	Close() error
}

// SQLiteTransferLogRepository implements TransferLogRepository on the local
// SQLite database.
type SQLiteTransferLogRepository struct {
	db *sql.DB
}

// NewSQLiteTransferLogRepository opens the journal database, which may be the
// same file as the catalog store.
func NewSQLiteTransferLogRepository(dbPath string) (*SQLiteTransferLogRepository, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	log.Printf("[SQLiteTransferLogRepository] Initialized with database: %s", dbPath)
	return &SQLiteTransferLogRepository{db: db}, nil
}

// InsertTransferLog appends an entry.
func (r *SQLiteTransferLogRepository) InsertTransferLog(ctx context.Context, entry *model.TransferLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transfer_logs (request_id, instance_id, item_hash, source, target, status, error_message, execution_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		entry.RequestID, entry.InstanceID, entry.ItemHash, entry.Source, entry.Target,
		string(entry.Status), entry.ErrorMessage, entry.ExecutionTimeMs, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transfer log: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// GetTransferLogs returns entries newest first with the total count.
func (r *SQLiteTransferLogRepository) GetTransferLogs(ctx context.Context, limit, offset int) ([]model.TransferLog, int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, instance_id, item_hash, source, target, status, error_message, execution_time_ms, created_at
		FROM transfer_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transfer logs: %w", err)
	}
	defer rows.Close()

	logs := []model.TransferLog{}
	for rows.Next() {
		var entry model.TransferLog
		var status string
		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.InstanceID, &entry.ItemHash,
			&entry.Source, &entry.Target, &status, &entry.ErrorMessage,
			&entry.ExecutionTimeMs, &entry.CreatedAt); err != nil {
			return nil, 0, err
		}
		entry.Status = model.TransferState(status)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfer_logs`).Scan(&count); err != nil {
		return nil, 0, err
	}
	return logs, count, nil
}

// Close closes the database connection.
func (r *SQLiteTransferLogRepository) Close() error {
	return r.db.Close()
}

// MongoTransferLogRepository implements TransferLogRepository for MongoDB.
type MongoTransferLogRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoTransferLogRepository creates a new MongoDB transfer journal.
func NewMongoTransferLogRepository(uri, dbName, collectionName string) (*MongoTransferLogRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoTransferLogRepository{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
	}, nil
}

// InsertTransferLog appends an entry.
func (r *MongoTransferLogRepository) InsertTransferLog(ctx context.Context, entry *model.TransferLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// GetTransferLogs returns entries newest first with the total count.
func (r *MongoTransferLogRepository) GetTransferLogs(ctx context.Context, limit, offset int) ([]model.TransferLog, int64, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}})
	findOptions.SetLimit(int64(limit))
	findOptions.SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var logs []model.TransferLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, err
	}

	// Ensure not nil slice for JSON
	if logs == nil {
		logs = []model.TransferLog{}
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	return logs, count, nil
}

// Close closes the MongoDB connection.
func (r *MongoTransferLogRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var (
	_ TransferLogRepository = (*SQLiteTransferLogRepository)(nil)
	_ TransferLogRepository = (*MongoTransferLogRepository)(nil)
)
