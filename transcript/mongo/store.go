// Package mongo implements transcript.Store backed by MongoDB, ported
// from the teacher's features/*/mongo/clients/mongo client.go pattern: a
// narrow collection interface wrapping the real driver so tests can stub
// it, an upsert-by-id write path, and typed bson documents that convert
// to/from the public package's domain types at the edges.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/loopstack/loopstack/content"
	"github.com/loopstack/loopstack/transcript"
)

const (
	defaultCollection = "agent_transcripts"
	defaultOpTimeout   = 5 * time.Second
)

// Options configures the Mongo-backed Store.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store implements transcript.Store against a MongoDB collection.
type Store struct {
	coll    collection
	timeout time.Duration
}

// NewStore returns a Store, creating the unique index on agent_id if
// absent.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("transcript/mongo: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("transcript/mongo: database name is required")
	}
	collectionName := opts.Collection
	if collectionName == "" {
		collectionName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	mcoll := opts.Client.Database(opts.Database).Collection(collectionName)
	wrapper := mongoCollection{coll: mcoll}

	indexCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ensureIndexes(indexCtx, wrapper); err != nil {
		return nil, fmt.Errorf("transcript/mongo: ensure indexes: %w", err)
	}

	return &Store{coll: wrapper, timeout: timeout}, nil
}

// Save implements transcript.Store.
func (s *Store) Save(ctx context.Context, agentID string, messages []content.Message, updatedAt time.Time) error {
	if agentID == "" {
		return errors.New("transcript/mongo: agent id is required")
	}
	doc, err := toDocument(agentID, messages, updatedAt)
	if err != nil {
		return fmt.Errorf("transcript/mongo: encode transcript for %q: %w", agentID, err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"agent_id": agentID}
	update := bson.M{"$set": doc}
	_, err = s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

// Load implements transcript.Store.
func (s *Store) Load(ctx context.Context, agentID string) (transcript.Record, error) {
	if agentID == "" {
		return transcript.Record{}, errors.New("transcript/mongo: agent id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc transcriptDocument
	if err := s.coll.FindOne(ctx, bson.M{"agent_id": agentID}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return transcript.Record{}, transcript.ErrNotFound
		}
		return transcript.Record{}, err
	}
	rec, err := doc.toRecord()
	if err != nil {
		return transcript.Record{}, fmt.Errorf("transcript/mongo: decode transcript for %q: %w", agentID, err)
	}
	return rec, nil
}

// Delete implements transcript.Store.
func (s *Store) Delete(ctx context.Context, agentID string) error {
	if agentID == "" {
		return errors.New("transcript/mongo: agent id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.DeleteOne(ctx, bson.M{"agent_id": agentID})
	return err
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func ensureIndexes(ctx context.Context, coll collection) error {
	index := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "agent_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := coll.Indexes().CreateOne(ctx, index)
	return err
}

// collection narrows *mongodriver.Collection to what Store needs, so
// tests can substitute a fake (teacher pattern from features/*/mongo).
type collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult
	UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongodriver.DeleteResult, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	return c.coll.FindOne(ctx, filter, opts...)
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update, opts...)
}

func (c mongoCollection) DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongodriver.DeleteResult, error) {
	return c.coll.DeleteOne(ctx, filter, opts...)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
