package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/complykit/complykit/pkg/errors"
)

const (
	mongoDatabase   = "complykit"
	mongoCollection = "results"

	mongoConnectTimeout = 5 * time.Second
)

// MongoStore keeps run results in a MongoDB collection, one document per run
// name. Suited for teams sharing results across machines.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to the MongoDB instance at uri and pings it before
// returning.
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(mongoConnectTimeout).
		SetServerSelectionTimeout(mongoConnectTimeout))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "invalid MongoDB URI")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "MongoDB unreachable")
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(mongoDatabase).Collection(mongoCollection),
	}, nil
}

func (s *MongoStore) Save(ctx context.Context, result *RunResult) error {
	result.Normalize()
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"name": result.Name},
		result,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert result %q: %w", result.Name, err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, name string) (*RunResult, error) {
	var result RunResult
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeResultNotFound, "no stored result for %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("load result %q: %w", name, err)
	}
	if result.Analyzer != nil && result.Analyzer.Graph != nil {
		if err := result.Analyzer.Graph.Restore(); err != nil {
			return nil, fmt.Errorf("restore graph for %q: %w", name, err)
		}
	}
	return &result, nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	cursor, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer cursor.Close(ctx)

	var names []string
	for cursor.Next(ctx) {
		var doc struct {
			Name string `bson:"name"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode result name: %w", err)
		}
		names = append(names, doc.Name)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"name": name}); err != nil {
		return fmt.Errorf("delete result %q: %w", name, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
