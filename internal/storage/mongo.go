package storage

import (
	"context"
	"errors"
	"fluxe/backend/internal/models"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	RoomsCollection = "rooms"

	DefaultMongoDatabase     = "fluxe"
	DefaultConnectionTimeout = 20 * time.Second
)

// MongoStore keeps each room as one document with its chat log embedded.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// NewMongoClient connects and pings the primary.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, DefaultConnectionTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(DefaultConnectionTimeout).
		SetConnectTimeout(DefaultConnectionTimeout)

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, DefaultConnectionTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique id index and the participant lookup index.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.rooms().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

func (m *MongoStore) rooms() *mongo.Collection {
	return m.db.Collection(RoomsCollection)
}

func (m *MongoStore) SaveRoom(ctx context.Context, room *models.Room) error {
	_, err := m.rooms().ReplaceOne(ctx, bson.M{"id": room.ID}, room, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	return nil
}

func (m *MongoStore) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	return m.findOne(ctx, bson.M{"id": roomID}, options.FindOne())
}

func (m *MongoStore) FindRoomByParticipant(ctx context.Context, connectionID string) (*models.Room, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return m.findOne(ctx, bson.M{"participants": connectionID}, opts)
}

func (m *MongoStore) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.Room, error) {
	var room models.Room
	err := m.rooms().FindOne(ctx, filter, opts).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// CloseRoom filters on status so the update is a compare-and-set on the document.
func (m *MongoStore) CloseRoom(ctx context.Context, roomID string) (bool, error) {
	res, err := m.rooms().UpdateOne(ctx,
		bson.M{"id": roomID, "status": models.RoomOpen},
		bson.M{"$set": bson.M{"status": models.RoomClosed, "closed_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("close room %s: %w", roomID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (m *MongoStore) AppendChat(ctx context.Context, roomID string, msg models.ChatMessage) error {
	res, err := m.rooms().UpdateOne(ctx,
		bson.M{"id": roomID},
		bson.M{"$push": bson.M{"chat_log": msg}},
	)
	if err != nil {
		return fmt.Errorf("append chat to room %s: %w", roomID, err)
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (m *MongoStore) GetOpenRoomIDs(ctx context.Context) ([]string, error) {
	cursor, err := m.rooms().Find(ctx,
		bson.M{"status": models.RoomOpen},
		options.Find().SetProjection(bson.M{"id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("list open rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID string `bson:"id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
