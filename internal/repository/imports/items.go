package imports

import (
	"context"
	"encoding/json"
	"time"

	mg "sales_import/internal/config/connections/mongo"
	"sales_import/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ImportRecordItemsCollection = "import_record_items"

const ModelTypeSale = "sale"

type Item struct {
	ImportRecordID string    `bson:"import_record_id" json:"import_record_id"`
	ModelType      string    `bson:"model_type" json:"model_type"`
	ModelID        string    `bson:"model_id" json:"model_id"`
	Payload        string    `bson:"payload" json:"payload"`
	Status         string    `bson:"status" json:"status"`
	Errors         string    `bson:"errors" json:"errors"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

func InsertItem(ctx context.Context, m *mg.Mongo, item Item) (*mongo.InsertOneResult, error) {
	if m == nil || m.Client == nil || m.Database == nil {
		return nil, mongo.ErrClientDisconnected
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	doc := bson.D{
		{Key: "import_record_id", Value: item.ImportRecordID},
		{Key: "model_type", Value: item.ModelType},
		{Key: "model_id", Value: item.ModelID},
		{Key: "payload", Value: item.Payload},
		{Key: "status", Value: item.Status},
		{Key: "errors", Value: item.Errors},
		{Key: "created_at", Value: item.CreatedAt},
		{Key: "updated_at", Value: item.UpdatedAt},
	}

	return m.Database.Collection(ImportRecordItemsCollection).InsertOne(ctx, doc, options.InsertOne())
}

// SaleItem builds the item for a refused sales row, keyed by its raw cpf.
func SaleItem(runID string, row map[string]string, status, reason string) Item {
	b, _ := json.Marshal(row)
	return Item{
		ImportRecordID: runID,
		ModelType:      ModelTypeSale,
		ModelID:        row[models.ColTaxID],
		Payload:        string(b),
		Status:         status,
		Errors:         reason,
	}
}

func ListItems(ctx context.Context, m *mg.Mongo, importRecordID string, limit int64) ([]Item, error) {
	if m == nil || m.Database == nil {
		return nil, mongo.ErrClientDisconnected
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := m.Database.Collection(ImportRecordItemsCollection).
		Find(ctx, bson.M{"import_record_id": importRecordID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Item
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
