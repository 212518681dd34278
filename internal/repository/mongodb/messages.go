package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"realtime_chat/internal/models"
	"realtime_chat/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// messageDoc is one document of the messages collection. userId holds either
// a user ObjectID hex or a guest id; username is only present for guests.
type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Username  string             `bson:"username,omitempty"`
	Text      string             `bson:"text"`
	Timestamp time.Time          `bson:"timestamp"`
}

type MessageStore struct {
	messages *mongo.Collection
	users    *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{
		messages: db.Collection(messagesCollection),
		users:    db.Collection(usersCollection),
	}
}

var _ repository.MessageRepo = (*MessageStore)(nil)

func (s *MessageStore) Append(ctx context.Context, m models.Message) (models.Message, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	// BSON dates carry millisecond precision.
	m.Timestamp = m.Timestamp.UTC().Truncate(time.Millisecond)

	doc := messageDoc{
		ID:        primitive.NewObjectID(),
		UserID:    m.UserID,
		Username:  strings.TrimSpace(m.Username),
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	m.ID = doc.ID.Hex()
	return m, nil
}

func (s *MessageStore) Recent(ctx context.Context, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > repository.MaxHistory {
		limit = repository.MaxHistory
	}
	filter := bson.M{}
	if !before.IsZero() {
		filter["timestamp"] = bson.M{"$lt": before.UTC()}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	names, err := s.usernames(ctx, docs)
	if err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(docs))
	for _, d := range docs {
		name := d.Username
		if resolved, ok := names[d.UserID]; ok {
			name = resolved
		}
		out = append(out, models.Message{
			ID:        d.ID.Hex(),
			UserID:    d.UserID,
			Username:  name,
			Text:      d.Text,
			Timestamp: d.Timestamp.UTC(),
		})
	}
	return out, nil
}

// usernames resolves the registered authors among docs in a single query.
func (s *MessageStore) usernames(ctx context.Context, docs []messageDoc) (map[string]string, error) {
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		if d.Username != "" {
			continue
		}
		oid, err := primitive.ObjectIDFromHex(d.UserID)
		if err != nil {
			continue
		}
		if _, dup := seen[oid]; dup {
			continue
		}
		seen[oid] = struct{}{}
		ids = append(ids, oid)
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find message authors: %w", err)
	}
	var users []userDoc
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode message authors: %w", err)
	}
	for _, u := range users {
		names[u.ID.Hex()] = u.Username
	}
	return names, nil
}
