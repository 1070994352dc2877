// Package store persists network models and solve runs in MongoDB. It
// is used by the API server so that converted feeders and their
// evaluation history survive restarts; the CLI works without it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voltlab/distflow/pkg/network"
	"github.com/voltlab/distflow/pkg/phase"
	"github.com/voltlab/distflow/pkg/pipeline"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

const (
	modelsCollection = "models"
	runsCollection   = "runs"
)

// Store wraps the two collections used by distflow.
type Store struct {
	client *mongo.Client
	models *mongo.Collection
	runs   *mongo.Collection
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(database)
	return &Store{
		client: client,
		models: db.Collection(modelsCollection),
		runs:   db.Collection(runsCollection),
	}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// modelDoc wraps a model with its lookup name.
type modelDoc struct {
	Name      string         `bson:"name"`
	Model     *network.Model `bson:"model"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

// RunRecord is the persisted form of one solve run.
type RunRecord struct {
	RunID     string          `bson:"run_id" json:"run_id"`
	Root      string          `bson:"root" json:"root"`
	RootFound bool            `bson:"root_found" json:"root_found"`
	Nodes     []string        `bson:"nodes" json:"nodes"`
	Voltages  []phase.Vector3 `bson:"voltages" json:"voltages"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
}

// SaveModel upserts a model under a name.
func (s *Store) SaveModel(ctx context.Context, name string, m *network.Model) error {
	doc := modelDoc{Name: name, Model: m, UpdatedAt: time.Now().UTC()}
	_, err := s.models.ReplaceOne(ctx, bson.M{"name": name}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save model %q: %w", name, err)
	}
	return nil
}

// Model loads a model by name.
func (s *Store) Model(ctx context.Context, name string) (*network.Model, error) {
	var doc modelDoc
	err := s.models.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("model %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", name, err)
	}
	return doc.Model, nil
}

// SaveRun records a solve result.
func (s *Store) SaveRun(ctx context.Context, res *pipeline.Result) error {
	rec := RunRecord{
		RunID:     res.RunID,
		Root:      res.Root,
		RootFound: res.RootFound,
		Nodes:     res.Nodes,
		Voltages:  res.Voltages,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.runs.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("save run %s: %w", res.RunID, err)
	}
	return nil
}

// Runs returns the most recent solve runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int64) ([]RunRecord, error) {
	cur, err := s.runs.Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer cur.Close(ctx)

	var out []RunRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}
	return out, nil
}
