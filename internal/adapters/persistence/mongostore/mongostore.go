// Package mongostore persists users, clients, funds and the ledger in MongoDB.
// Multi-document units need a replica set for session transactions.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"btg-funds/internal/core/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersCollection        = "users"
	clientsCollection      = "clients"
	fundsCollection        = "funds"
	transactionsCollection = "transactions"
)

// Store wraps a connected client and the application database
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	indexOnce sync.Once
	indexErr  error
}

// New connects to uri, pings the primary and ensures indexes
func New(ctx context.Context, uri, database string) (*Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks the primary is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the unique and lookup indexes once per Store
func (s *Store) EnsureIndexes(ctx context.Context) error {
	s.indexOnce.Do(func() {
		s.indexErr = s.createIndexes(ctx)
	})
	return s.indexErr
}

// indexModels lists the indexes per collection. The digest index only covers
// users holding tokens, since empty arrays would collide on a unique multikey index.
func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "refreshTokens.tokenHash", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"refreshTokens.tokenHash": bson.M{"$exists": true}}),
			},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
}

func (s *Store) createIndexes(ctx context.Context) error {
	for name, models := range indexModels() {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Transactor implements services.Transactor with session transactions
type Transactor struct {
	client *mongo.Client
}

// Transactor returns a transactor bound to the store's client
func (s *Store) Transactor() *Transactor {
	return &Transactor{client: s.client}
}

// WithinTransaction runs fn in a session transaction. Nested calls join the outer one.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// translate maps driver errors onto domain errors
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return domain.ErrDuplicate
	default:
		return err
	}
}

// replaceVersioned swaps the document with _id id when its version matches
func replaceVersioned(ctx context.Context, coll *mongo.Collection, id string, version int64, doc any) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id, "version": version}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrVersionConflict
}

func toDecimal128(d decimal.Decimal) bson.Decimal128 {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		// out of Decimal128 range; money is bounded by domain.IsMoney
		panic(fmt.Sprintf("mongostore: decimal %s not representable: %v", d, err))
	}
	return v
}

func fromDecimal128(v bson.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
