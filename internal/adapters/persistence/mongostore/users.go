package mongostore

import (
	"context"
	"time"

	"btg-funds/internal/core/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// UserStore implements services.UserStore; refresh tokens are embedded in the user document
type UserStore struct {
	coll *mongo.Collection
}

// Users returns the user store
func (s *Store) Users() *UserStore {
	return &UserStore{coll: s.db.Collection(usersCollection)}
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toDomain(), nil
}

// GetByID gets a user by ID
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByUsername gets a user by username
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

// GetByRefreshToken gets the owner of a refresh token digest
func (s *UserStore) GetByRefreshToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"refreshTokens.tokenHash": tokenHash})
}

// Add creates a user document with version 1
func (s *UserStore) Add(ctx context.Context, user *domain.User) error {
	if _, err := s.coll.InsertOne(ctx, newUserDoc(user, 1)); err != nil {
		return translate(err)
	}
	user.Version = 1
	return nil
}

// Update replaces the user document, token set included, when the version matches
func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	if err := replaceVersioned(ctx, s.coll, user.ID, user.Version, newUserDoc(user, user.Version+1)); err != nil {
		return err
	}
	user.Version++
	return nil
}

// DeleteExpiredRefreshTokens pulls tokens that expired before the given time out of every user and
// returns how many tokens were removed
func (s *UserStore) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	cursor, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$unwind", Value: "$refreshTokens"}},
		{{Key: "$match", Value: bson.M{"refreshTokens.expiresAt": bson.M{"$lt": before}}}},
		{{Key: "$count", Value: "n"}},
	})
	if err != nil {
		return 0, err
	}
	var counted []struct {
		N int64 `bson:"n"`
	}
	if err := cursor.All(ctx, &counted); err != nil {
		return 0, err
	}
	if len(counted) == 0 || counted[0].N == 0 {
		return 0, nil
	}

	expired := bson.M{"expiresAt": bson.M{"$lt": before}}
	_, err = s.coll.UpdateMany(ctx,
		bson.M{"refreshTokens": bson.M{"$elemMatch": expired}},
		bson.M{
			"$pull": bson.M{"refreshTokens": expired},
			"$inc":  bson.M{"version": 1},
		},
	)
	if err != nil {
		return 0, err
	}
	return counted[0].N, nil
}
