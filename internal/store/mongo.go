package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dealready/internal/assessment"
)

const runsCollection = "runs"

type runDocument struct {
	Key       string    `bson:"_id"`
	ModuleID  string    `bson:"module_id"`
	Payload   string    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo stores runs in the runs collection, one document per key.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// OpenMongo connects to uri and checks the connection.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, storageError("open", "", err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, storageError("open", "", err, "ping mongo")
	}
	return &Mongo{
		client:     client,
		collection: client.Database(database).Collection(runsCollection),
	}, nil
}

func (m *Mongo) Load(ctx context.Context, key string) (*assessment.Run, error) {
	var doc runDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("load", key, err, "mongo find")
	}
	run, err := decodeRun([]byte(doc.Payload))
	if err != nil {
		return nil, storageError("load", key, err, "mongo")
	}
	return run, nil
}

func (m *Mongo) Save(ctx context.Context, key string, run *assessment.Run) error {
	data, err := encodeRun(run)
	if err != nil {
		return storageError("save", key, err, "mongo")
	}
	doc := runDocument{
		Key:       key,
		ModuleID:  run.ModuleID,
		Payload:   string(data),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return storageError("save", key, err, "mongo replace")
	}
	return nil
}

func (m *Mongo) LoadAll(ctx context.Context) ([]Record, error) {
	cursor, err := m.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, storageError("load_all", "", err, "mongo find")
	}
	var docs []runDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageError("load_all", "", err, "mongo cursor")
	}
	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		run, err := decodeRun([]byte(doc.Payload))
		if err != nil {
			return nil, storageError("load_all", doc.Key, err, "mongo")
		}
		records = append(records, Record{Key: doc.Key, Run: run})
	}
	return records, nil
}

func (m *Mongo) Close() error {
	return m.client.Disconnect(context.Background())
}
