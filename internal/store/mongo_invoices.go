package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vaultledger/server/pkg/models"
)

type mongoInvoices struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func (s *mongoInvoices) Insert(ctx context.Context, inv *models.Invoice) (primitive.ObjectID, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, inv)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert invoice: %w", err)
	}
	id := res.InsertedID.(primitive.ObjectID)
	inv.ID = id
	return id, nil
}

func (s *mongoInvoices) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoInvoices) FindByNumber(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	return s.findOne(ctx, bson.M{"invoiceId": invoiceID})
}

func (s *mongoInvoices) findOne(ctx context.Context, filter bson.M) (*models.Invoice, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	var inv models.Invoice
	err := s.coll.FindOne(ctx, filter).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return &inv, nil
}

func (s *mongoInvoices) List(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	filter := bson.M{}
	if f.AdminEmail != "" {
		filter["adminEmail"] = f.AdminEmail
	}
	if f.ClientEmail != "" {
		filter["clientEmail"] = f.ClientEmail
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"invoiceId": bson.M{"$regex": f.Search, "$options": "i"}},
			bson.M{"clientName": bson.M{"$regex": f.Search, "$options": "i"}},
			bson.M{"projectTitle": bson.M{"$regex": f.Search, "$options": "i"}},
		}
	}
	if f.Status != "" && f.Status != "All" {
		filter["status"] = f.Status
	}
	return s.find(ctx, filter)
}

func (s *mongoInvoices) ListAll(ctx context.Context) ([]models.Invoice, error) {
	return s.find(ctx, bson.M{})
}

func (s *mongoInvoices) find(ctx context.Context, filter bson.M) ([]models.Invoice, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	var out []models.Invoice
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode invoices: %w", err)
	}
	return out, nil
}

func (s *mongoInvoices) Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("update invoice: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoInvoices) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}
