package mongostore

import (
	"context"

	"btg-funds/internal/core/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ClientStore implements services.ClientStore; allocations are embedded
type ClientStore struct {
	coll *mongo.Collection
}

// Clients returns the client store
func (s *Store) Clients() *ClientStore {
	return &ClientStore{coll: s.db.Collection(clientsCollection)}
}

// GetByID gets a client by ID
func (s *ClientStore) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	var doc clientDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toDomain(), nil
}

// Add creates a client document with version 1
func (s *ClientStore) Add(ctx context.Context, client *domain.Client) error {
	if _, err := s.coll.InsertOne(ctx, newClientDoc(client, 1)); err != nil {
		return translate(err)
	}
	client.Version = 1
	return nil
}

// Update replaces the client document when the version matches
func (s *ClientStore) Update(ctx context.Context, client *domain.Client) error {
	if err := replaceVersioned(ctx, s.coll, client.ID, client.Version, newClientDoc(client, client.Version+1)); err != nil {
		return err
	}
	client.Version++
	return nil
}
