package auditsink

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mg "sales_import/internal/config/connections/mongo"
	"sales_import/internal/models"
)

const DuplicateAuditCollection = "duplicate_audit"

type Mongo struct {
	m *mg.Mongo
}

func NewMongo(m *mg.Mongo) *Mongo {
	return &Mongo{m: m}
}

func (s *Mongo) collection() (*mongo.Collection, error) {
	if s.m == nil || s.m.Database == nil {
		return nil, mongo.ErrClientDisconnected
	}
	return s.m.Database.Collection(DuplicateAuditCollection), nil
}

func (s *Mongo) Append(ctx context.Context, e models.DuplicateAuditEntry) error {
	coll, err := s.collection()
	if err != nil {
		return err
	}
	_, err = coll.InsertOne(ctx, e, options.InsertOne())
	return err
}

func (s *Mongo) ReadAll(ctx context.Context) ([]models.DuplicateAuditEntry, error) {
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.DuplicateAuditEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
