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

type mongoClients struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func (s *mongoClients) Insert(ctx context.Context, c *models.Client) (primitive.ObjectID, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, c)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert client: %w", err)
	}
	id := res.InsertedID.(primitive.ObjectID)
	c.ID = id
	return id, nil
}

func (s *mongoClients) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Client, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoClients) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"portalEmail": email},
	}})
}

func (s *mongoClients) FindByProjectID(ctx context.Context, projectID string) (*models.Client, error) {
	return s.findOne(ctx, bson.M{"projects._id": projectID})
}

func (s *mongoClients) findOne(ctx context.Context, filter bson.M) (*models.Client, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	var c models.Client
	err := s.coll.FindOne(ctx, filter).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}
	return &c, nil
}

func (s *mongoClients) List(ctx context.Context, f ClientFilter) ([]models.Client, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	filter := bson.M{}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": f.Search, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": f.Search, "$options": "i"}},
			bson.M{"companyName": bson.M{"$regex": f.Search, "$options": "i"}},
		}
	}
	if f.Status != "" && f.Status != "All" {
		filter["status"] = f.Status
	}

	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	var out []models.Client
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode clients: %w", err)
	}
	return out, nil
}

func (s *mongoClients) Count(ctx context.Context) (int64, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return n, nil
}

func (s *mongoClients) Update(ctx context.Context, id primitive.ObjectID, patch ClientPatch) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	set := bson.M{"updatedAt": time.Now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.PortalEmail != nil {
		set["portalEmail"] = *patch.PortalEmail
	}
	if patch.Password != nil {
		set["password"] = *patch.Password
	}
	if patch.CompanyName != nil {
		set["companyName"] = *patch.CompanyName
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Projects != nil {
		set["projects"] = *patch.Projects
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("update client: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoClients) AppendProject(ctx context.Context, id primitive.ObjectID, p models.Project) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"projects": p}})
	if err != nil {
		return false, fmt.Errorf("append project: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// MarkMilestonePaid addresses the milestone through array filters rather
// than positional indices, so concurrent project edits cannot redirect the
// write to a different element.
func (s *mongoClients) MarkMilestonePaid(ctx context.Context, mp MilestonePayment) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"projects.$[proj].milestones.$[mile].status":        models.MilestonePaid,
			"projects.$[proj].milestones.$[mile].paidDate":      mp.Date,
			"projects.$[proj].milestones.$[mile].paymentMethod": mp.Method,
		},
		"$inc": bson.M{"totalPaid": mp.Amount},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"proj._id": mp.ProjectID},
			bson.M{"mile._id": mp.MilestoneID},
		},
	})

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": mp.ClientID}, update, opts)
	if err != nil {
		return false, fmt.Errorf("mark milestone paid: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *mongoClients) SetProjectStep(ctx context.Context, id primitive.ObjectID, projectID string, step int) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "projects._id": projectID},
		bson.M{"$set": bson.M{"projects.$.currentStep": step}},
	)
	if err != nil {
		return false, fmt.Errorf("set project step: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoClients) SetProjectStatus(ctx context.Context, projectID, status string) (bool, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"projects._id": projectID},
		bson.M{"$set": bson.M{"projects.$.status": status}},
	)
	if err != nil {
		return false, fmt.Errorf("set project status: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoClients) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}
