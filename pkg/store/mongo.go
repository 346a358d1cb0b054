package store

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/shashiranjanraj/kirana/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the document-store driver. Each table is a collection; entity
// structs carry `bson` tags matching their column names.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

// ConnectMongo dials uri and returns a driver bound to database name.
func ConnectMongo(ctx context.Context, uri, name string) (*Mongo, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("store/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("store/mongo: ping: %w", err)
	}
	return NewMongo(client.Database(name)), client, nil
}

var mongoOps = map[Cmp]string{
	CmpEq:  "$eq",
	CmpNeq: "$ne",
	CmpGt:  "$gt",
	CmpGte: "$gte",
	CmpLt:  "$lt",
	CmpLte: "$lte",
	CmpIn:  "$in",
}

// filter merges conditions per column so range pairs (gte+lte) share a key.
func (m *Mongo) filter(q Query) bson.M {
	out := bson.M{}
	for _, f := range q.Filters {
		cond, _ := out[f.Column].(bson.M)
		if cond == nil {
			cond = bson.M{}
		}
		if f.Cmp == CmpIsNull {
			cond["$eq"] = nil
		} else {
			cond[mongoOps[f.Cmp]] = f.Value
		}
		out[f.Column] = cond
	}
	return out
}

func (m *Mongo) Select(ctx context.Context, table string, q Query, dest any) error {
	defer metrics.ObserveDBQuery(string(OpSelect), time.Now())

	opts := options.Find()
	if q.Order != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.Order, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := m.db.Collection(table).Find(ctx, m.filter(q), opts)
	if err != nil {
		return fmt.Errorf("store/mongo: find %s: %w", table, err)
	}
	if err := cur.All(ctx, dest); err != nil {
		return fmt.Errorf("store/mongo: decode %s: %w", table, err)
	}
	return nil
}

func (m *Mongo) Insert(ctx context.Context, table string, rows any) error {
	defer metrics.ObserveDBQuery(string(OpInsert), time.Now())

	col := m.db.Collection(table)
	rv := reflect.ValueOf(rows)
	if rv.Kind() == reflect.Slice {
		docs := make([]interface{}, rv.Len())
		for i := range docs {
			docs[i] = rv.Index(i).Interface()
		}
		if len(docs) == 0 {
			return nil
		}
		if _, err := col.InsertMany(ctx, docs); err != nil {
			return m.insertErr(table, err)
		}
		return nil
	}

	if _, err := col.InsertOne(ctx, rows); err != nil {
		return m.insertErr(table, err)
	}
	return nil
}

func (m *Mongo) insertErr(table string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("store/mongo: insert %s: %w", table, ErrDuplicate)
	}
	return fmt.Errorf("store/mongo: insert %s: %w", table, err)
}

func (m *Mongo) Update(ctx context.Context, table string, q Query, fields map[string]any) (int64, error) {
	defer metrics.ObserveDBQuery(string(OpUpdate), time.Now())

	if len(q.Filters) == 0 {
		return 0, ErrUnfiltered
	}
	res, err := m.db.Collection(table).UpdateMany(ctx, m.filter(q), bson.M{"$set": fields})
	if err != nil {
		return 0, fmt.Errorf("store/mongo: update %s: %w", table, err)
	}
	return res.MatchedCount, nil
}

func (m *Mongo) Delete(ctx context.Context, table string, q Query) (int64, error) {
	defer metrics.ObserveDBQuery(string(OpDelete), time.Now())

	if len(q.Filters) == 0 {
		return 0, ErrUnfiltered
	}
	res, err := m.db.Collection(table).DeleteMany(ctx, m.filter(q))
	if err != nil {
		return 0, fmt.Errorf("store/mongo: delete %s: %w", table, err)
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates a unique index on "id" for each collection.
func (m *Mongo) EnsureIndexes(ctx context.Context, tables ...string) error {
	for _, t := range tables {
		_, err := m.db.Collection(t).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("store/mongo: index %s: %w", t, err)
		}
	}
	return nil
}
