package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vaultledger/server/pkg/models"
)

type mongoSettings struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func (s *mongoSettings) Get(ctx context.Context) (*models.Settings, error) {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	var out models.Settings
	err := s.coll.FindOne(ctx, bson.M{"id": models.SettingsKey}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	return &out, nil
}

func (s *mongoSettings) Upsert(ctx context.Context, in models.Settings) error {
	ctx, cancel := opCtx(ctx, s.timeout)
	defer cancel()

	in.Key = models.SettingsKey
	in.LastUpdated = time.Now()

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"id": models.SettingsKey},
		bson.M{"$set": in},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
