package audit

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultMongoCollection is the collection used when none is given.
const DefaultMongoCollection = "audit_log"

// MongoStorage keeps entries in an insert-only MongoDB collection.
type MongoStorage struct {
	coll *mongo.Collection
}

var _ Storage = (*MongoStorage)(nil)

// NewMongoStorage uses DefaultMongoCollection when collection is empty.
func NewMongoStorage(db *mongo.Database, collection string) *MongoStorage {
	if db == nil {
		panic("audit: nil mongo database")
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoStorage{coll: db.Collection(collection)}
}

// EnsureIndexes creates the indexes listings rely on.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "actor_user_id", Value: 1}}},
		{Keys: bson.D{{Key: "target_user_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("audit: create mongo indexes: %w", err)
	}
	return nil
}

func (s *MongoStorage) Store(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]any, 0, len(entries))
	for _, e := range entries {
		r, err := toRecord(e)
		if err != nil {
			return err
		}
		docs = append(docs, r)
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("audit: insert mongo entries: %w", err)
	}
	return nil
}

func (s *MongoStorage) Query(ctx context.Context, c Criteria) ([]Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(c.EffectiveLimit()))

	cur, err := s.coll.Find(ctx, mongoFilter(c), opts)
	if err != nil {
		return nil, fmt.Errorf("audit: find mongo entries: %w", err)
	}
	var records []record
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("audit: decode mongo entries: %w", err)
	}

	out := make([]Entry, 0, len(records))
	for _, r := range records {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// mongoFilter translates c. A nil company matches documents where the field
// is absent or null.
func mongoFilter(c Criteria) bson.D {
	var filter bson.D
	if c.CompanyID != nil {
		filter = bson.D{{Key: "company_id", Value: *c.CompanyID}}
	} else {
		filter = bson.D{{Key: "company_id", Value: nil}}
	}
	if c.Involving == nil {
		return filter
	}

	terms := involvementTerms(c.Involving)
	or := bson.A{}
	for _, field := range slices.Sorted(maps.Keys(terms)) {
		ids := terms[field]
		if len(ids) == 1 {
			or = append(or, bson.D{{Key: field, Value: ids[0]}})
			continue
		}
		or = append(or, bson.D{{Key: field, Value: bson.D{{Key: "$in", Value: ids}}}})
	}
	return append(filter, bson.E{Key: "$or", Value: or})
}
