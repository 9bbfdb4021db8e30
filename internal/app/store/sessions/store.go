// internal/app/store/sessions/store.go
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document is the server-side state of one console session. The _id is
// the session id carried in the browser cookie.
type Document struct {
	ID           string    `bson:"_id"`
	AccessToken  string    `bson:"access_token,omitempty"`
	RefreshToken string    `bson:"refresh_token,omitempty"`
	UserProfile  string    `bson:"user_profile,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

var fields = map[sessionstore.Key]string{
	sessionstore.AccessToken:  "access_token",
	sessionstore.RefreshToken: "refresh_token",
	sessionstore.UserProfile:  "user_profile",
}

// Store keeps console sessions in MongoDB. Sessions idle for longer than
// the idle TTL are treated as gone and later removed by a TTL index.
type Store struct {
	c       *mongo.Collection
	idleTTL time.Duration
}

// New creates a sessions Store.
func New(db *mongo.Database, idleTTL time.Duration) *Store {
	return &Store{c: db.Collection("console_sessions"), idleTTL: idleTTL}
}

// EnsureIndexes creates the TTL index that expires idle sessions.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	opts := options.Index().SetName("idx_console_sessions_idle")
	if s.idleTTL > 0 {
		opts.SetExpireAfterSeconds(int32(s.idleTTL / time.Second))
	}
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: 1}},
		Options: opts,
	})
	return err
}

// Scoped returns the three-key session store for sid.
func (s *Store) Scoped(sid string) sessionstore.Store {
	return &scoped{s: s, sid: sid}
}

// GetByID loads a session document. Idle sessions yield mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, sid string) (Document, error) {
	var doc Document
	if err := s.c.FindOne(ctx, bson.M{"_id": sid}).Decode(&doc); err != nil {
		return Document{}, err
	}
	if s.expired(doc) {
		return Document{}, mongo.ErrNoDocuments
	}
	return doc, nil
}

// Touch extends an existing session's idle window.
func (s *Store) Touch(ctx context.Context, sid string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": sid}, bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}})
	return err
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, sid string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": sid})
	return err
}

// PurgeIdle deletes sessions idle for longer than the idle TTL and returns
// how many were removed. It is a no-op when no idle TTL is configured.
func (s *Store) PurgeIdle(ctx context.Context) (int64, error) {
	if s.idleTTL <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-s.idleTTL)
	res, err := s.c.DeleteMany(ctx, bson.M{"updated_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountActive counts sessions still inside their idle window.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	filter := bson.M{}
	if s.idleTTL > 0 {
		filter["updated_at"] = bson.M{"$gte": time.Now().UTC().Add(-s.idleTTL)}
	}
	return s.c.CountDocuments(ctx, filter)
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.c.Database().Client().Ping(ctx, nil)
}

func (s *Store) expired(doc Document) bool {
	return s.idleTTL > 0 && time.Since(doc.UpdatedAt) > s.idleTTL
}

type scoped struct {
	s   *Store
	sid string
}

func (sc *scoped) Get(ctx context.Context, key sessionstore.Key) (string, bool, error) {
	field, ok := fields[key]
	if !ok {
		return "", false, fmt.Errorf("sessions: unknown key %q", key)
	}
	doc, err := sc.s.GetByID(ctx, sc.sid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var v string
	switch field {
	case "access_token":
		v = doc.AccessToken
	case "refresh_token":
		v = doc.RefreshToken
	case "user_profile":
		v = doc.UserProfile
	}
	return v, v != "", nil
}

func (sc *scoped) Set(ctx context.Context, key sessionstore.Key, value string) error {
	field, ok := fields[key]
	if !ok {
		return fmt.Errorf("sessions: unknown key %q", key)
	}
	now := time.Now().UTC()
	_, err := sc.s.c.UpdateOne(ctx,
		bson.M{"_id": sc.sid},
		bson.M{
			"$set":         bson.M{field: value, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (sc *scoped) Clear(ctx context.Context, keys ...sessionstore.Key) error {
	if len(keys) == 0 {
		keys = sessionstore.AllKeys
	}
	unset := bson.M{}
	for _, k := range keys {
		if field, ok := fields[k]; ok {
			unset[field] = ""
		}
	}
	if len(unset) == 0 {
		return nil
	}
	_, err := sc.s.c.UpdateOne(ctx,
		bson.M{"_id": sc.sid},
		bson.M{"$unset": unset, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	return err
}
