package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/report"
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI      string
	Database string

	// Collection defaults to "reports".
	Collection string
}

// MongoStore keeps reports in a MongoDB collection keyed by report ID.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "ping mongodb")
	}
	if cfg.Collection == "" {
		cfg.Collection = "reports"
	}
	return &MongoStore{client: client, coll: client.Database(cfg.Database).Collection(cfg.Collection)}, nil
}

// Save implements Store.
func (s *MongoStore) Save(ctx context.Context, r *report.Report) error {
	_, err := s.coll.ReplaceOne(ctx, byID(r.ID), r, options.Replace().SetUpsert(true))
	if err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "save report %s", r.ID)
	}
	return nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, id string) (*report.Report, error) {
	var r report.Report
	err := s.coll.FindOne(ctx, byID(id)).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "get report %s", id)
	}
	return &r, nil
}

// List implements Store.
func (s *MongoStore) List(ctx context.Context, limit int) ([]Entry, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, listOptions(limit))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "list reports")
	}
	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "decode reports")
	}
	return entries, nil
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// listOptions sorts newest first and projects the Entry fields only.
func listOptions(limit int) *options.FindOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.D{
			{Key: "_id", Value: 1},
			{Key: "root", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "summary", Value: 1},
		})
}
