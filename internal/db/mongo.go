package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-mask-pipeline/internal/model"
)

// Connect opens and pings a mongo client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// MongoCollection adapts a mongo collection to the Collection interface.
type MongoCollection struct {
	coll *mongo.Collection
}

// NewMongoCollection wraps client[db][name].
func NewMongoCollection(client *mongo.Client, dbName, name string) *MongoCollection {
	return &MongoCollection{coll: client.Database(dbName).Collection(name)}
}

func (c *MongoCollection) Count(ctx context.Context, q Query) (int64, error) {
	return c.coll.CountDocuments(ctx, toBSON(q))
}

func (c *MongoCollection) Find(ctx context.Context, q Query, batchSize int32) (Cursor, error) {
	opts := options.Find().
		SetBatchSize(batchSize).
		SetSort(bson.D{{Key: model.KeyField, Value: 1}})
	cur, err := c.coll.Find(ctx, toBSON(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor: %w", err)
	}
	return &mongoCursor{cur: cur}, nil
}

func (c *MongoCollection) FindByKey(ctx context.Context, key interface{}) (model.Document, error) {
	var doc bson.M
	err := c.coll.FindOne(ctx, bson.M{model.KeyField: key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.Document(doc), nil
}

func (c *MongoCollection) BulkReplace(ctx context.Context, docs []model.Document) (BulkResult, error) {
	if len(docs) == 0 {
		return BulkResult{}, nil
	}
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{model.KeyField: doc.Key()}).
			SetReplacement(bson.M(doc)).
			SetUpsert(true))
	}
	res, err := c.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{Matched: res.MatchedCount, Modified: res.ModifiedCount, Upserted: res.UpsertedCount}, nil
}

func (c *MongoCollection) InsertMany(ctx context.Context, docs []model.Document) (BulkResult, error) {
	if len(docs) == 0 {
		return BulkResult{}, nil
	}
	payload := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		payload = append(payload, bson.M(doc))
	}
	res, err := c.coll.InsertMany(ctx, payload, options.InsertMany().SetOrdered(false))
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{Inserted: int64(len(res.InsertedIDs))}, nil
}

type mongoCursor struct {
	cur *mongo.Cursor
	doc model.Document
	err error
}

func (m *mongoCursor) Next(ctx context.Context) bool {
	if !m.cur.Next(ctx) {
		m.err = m.cur.Err()
		return false
	}
	var doc bson.M
	if err := m.cur.Decode(&doc); err != nil {
		m.err = err
		return false
	}
	m.doc = model.Document(doc)
	return true
}

func (m *mongoCursor) Document() model.Document { return m.doc }

func (m *mongoCursor) Err() error { return m.err }

func (m *mongoCursor) Close(ctx context.Context) error { return m.cur.Close(ctx) }

func toBSON(q Query) bson.M {
	if q == nil {
		return bson.M{}
	}
	return bson.M(q)
}
