package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vaultledger/server/pkg/models"
)

type mongoUsers struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func (s *mongoUsers) Insert(ctx context.Context, u *models.User) (primitive.ObjectID, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, u)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert user: %w", err)
	}
	id := res.InsertedID.(primitive.ObjectID)
	u.ID = id
	return id, nil
}

func (s *mongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	var u models.User
	err := s.coll.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *mongoUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, about string) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":      name,
		"about":     about,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return false, fmt.Errorf("update user profile: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoUsers) DeleteByClientID(ctx context.Context, clientID primitive.ObjectID) error {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	if _, err := s.coll.DeleteOne(ctx, bson.M{"clientId": clientID}); err != nil {
		return fmt.Errorf("delete portal user: %w", err)
	}
	return nil
}

func (s *mongoUsers) PushSummary(ctx context.Context, ownerEmail, list string, sum models.InvoiceSummary) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"email": ownerEmail},
		bson.M{"$push": bson.M{list: sum}},
	)
	if err != nil {
		return false, fmt.Errorf("push summary: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoUsers) PatchSummary(ctx context.Context, ownerEmail, list string, invoiceID primitive.ObjectID, p SummaryPatch) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"email": ownerEmail, list + "._id": invoiceID},
		bson.M{"$set": bson.M{
			list + ".$.status":       p.Status,
			list + ".$.grandTotal":   p.GrandTotal,
			list + ".$.projectTitle": p.ProjectTitle,
			list + ".$.clientName":   p.ClientName,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("patch summary: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoUsers) PullSummary(ctx context.Context, ownerEmail, list string, invoiceID primitive.ObjectID) error {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"email": ownerEmail},
		bson.M{"$pull": bson.M{list: bson.M{"_id": invoiceID}}},
	)
	if err != nil {
		return fmt.Errorf("pull summary: %w", err)
	}
	return nil
}

func (s *mongoUsers) ReplaceSummaries(ctx context.Context, ownerEmail, list string, summaries []models.InvoiceSummary) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"email": ownerEmail},
		bson.M{"$set": bson.M{list: summaries}},
	)
	if err != nil {
		return false, fmt.Errorf("replace summaries: %w", err)
	}
	return res.MatchedCount > 0, nil
}
