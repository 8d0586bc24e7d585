// Package imports keeps import runs and their refused rows in MongoDB.
package imports

import (
	"context"
	"fmt"
	"time"

	mg "sales_import/internal/config/connections/mongo"
	"sales_import/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ImportRecordsCollection = "import_records"

const RecordTypeSales = "sales"

type Record struct {
	ID         any              `bson:"_id" json:"id"`
	Type       string           `bson:"type" json:"type"`
	Status     string           `bson:"status" json:"status"`
	Source     string           `bson:"source,omitempty" json:"source,omitempty"`
	Path       *string          `bson:"path,omitempty" json:"path,omitempty"`
	Bucket     *string          `bson:"bucket,omitempty" json:"bucket,omitempty"`
	Key        *string          `bson:"key,omitempty" json:"key,omitempty"`
	SizeBytes  *int64           `bson:"size_bytes,omitempty" json:"size_bytes,omitempty"`
	Counts     models.RunCounts `bson:"counts" json:"counts"`
	Errors     *string          `bson:"errors,omitempty" json:"errors,omitempty"`
	StartedAt  *time.Time       `bson:"started_at,omitempty" json:"started_at,omitempty"`
	FinishedAt *time.Time       `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	CreatedAt  time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `bson:"updated_at" json:"updated_at"`
}

// recordFilter matches a record created elsewhere with an ObjectId _id, or one
// this service created with the plain string id.
func recordFilter(ctx context.Context, coll *mongo.Collection, id string) (bson.M, error) {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		n, err := coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return bson.M{"_id": oid}, nil
		}
	}
	return bson.M{"_id": id}, nil
}

// UpsertImportRecord marks the run as processing, creating the record when
// nobody registered it before the upload.
func UpsertImportRecord(ctx context.Context, m *mg.Mongo, run models.ImportRun) error {
	if m == nil || m.Client == nil || m.Database == nil {
		return mongo.ErrClientDisconnected
	}
	if run.ID == "" {
		return fmt.Errorf("empty importRecordID")
	}
	coll := m.Database.Collection(ImportRecordsCollection)

	filter, err := recordFilter(ctx, coll, run.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	started := run.StartedAt.UTC()
	if run.StartedAt.IsZero() {
		started = now
	}
	set := bson.M{
		"type":       RecordTypeSales,
		"status":     models.RunStatusProcessing,
		"source":     run.Source,
		"started_at": started,
		"updated_at": now,
	}
	if run.Path != "" {
		set["path"] = run.Path
	}
	if run.Bucket != "" {
		set["bucket"] = run.Bucket
	}
	if run.Key != "" {
		set["key"] = run.Key
	}
	if run.SizeBytes > 0 {
		set["size_bytes"] = run.SizeBytes
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err = coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func UpdateImportRecordStatus(ctx context.Context, m *mg.Mongo, importRecordID, status string, counts models.RunCounts, errMsg string) error {
	if m == nil || m.Database == nil {
		return mongo.ErrClientDisconnected
	}
	if importRecordID == "" {
		return fmt.Errorf("empty importRecordID")
	}
	if status == "" {
		return fmt.Errorf("empty status")
	}
	coll := m.Database.Collection(ImportRecordsCollection)

	filter, err := recordFilter(ctx, coll, importRecordID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	set := bson.M{
		"status":      status,
		"counts":      counts,
		"finished_at": now,
		"updated_at":  now,
	}
	if errMsg != "" {
		set["errors"] = errMsg
	}

	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("no import_record found with id %s (tried ObjectId and string)", importRecordID)
	}
	return nil
}

func FindImportRecordByID(ctx context.Context, m *mg.Mongo, id string) (Record, error) {
	var out Record
	if m == nil || m.Database == nil {
		return out, mongo.ErrClientDisconnected
	}
	coll := m.Database.Collection(ImportRecordsCollection)

	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&out); err == nil {
			out.ID = oid.Hex()
			return out, nil
		}
	}

	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		return out, fmt.Errorf("not found: %w", err)
	}
	out.ID = id
	return out, nil
}

func ListImportRecords(ctx context.Context, m *mg.Mongo, filter bson.M, limit, skip int64) ([]Record, int64, error) {
	if m == nil || m.Database == nil {
		return nil, 0, mongo.ErrClientDisconnected
	}
	coll := m.Database.Collection(ImportRecordsCollection)
	if filter == nil {
		filter = bson.M{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if skip > 0 {
		opts.SetSkip(skip)
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	recs := make([]Record, 0)
	for cur.Next(ctx) {
		var r Record
		if err := cur.Decode(&r); err != nil {
			continue
		}
		if oid, ok := r.ID.(primitive.ObjectID); ok {
			r.ID = oid.Hex()
		}
		recs = append(recs, r)
	}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		total = int64(len(recs))
	}
	return recs, total, nil
}
