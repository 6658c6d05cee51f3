package mongostore

import (
	"context"

	"btg-funds/internal/core/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// FundCatalog implements services.FundCatalog
type FundCatalog struct {
	coll *mongo.Collection
}

// Funds returns the fund catalog
func (s *Store) Funds() *FundCatalog {
	return &FundCatalog{coll: s.db.Collection(fundsCollection)}
}

// GetByID gets a fund by ID
func (c *FundCatalog) GetByID(ctx context.Context, id string) (*domain.Fund, error) {
	var doc fundDoc
	if err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toDomain(), nil
}

// GetAll gets every fund ordered by ID
func (c *FundCatalog) GetAll(ctx context.Context) ([]domain.Fund, error) {
	cursor, err := c.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []fundDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	funds := make([]domain.Fund, 0, len(docs))
	for i := range docs {
		funds = append(funds, *docs[i].toDomain())
	}
	return funds, nil
}

// Upsert inserts or replaces a catalog entry
func (c *FundCatalog) Upsert(ctx context.Context, fund *domain.Fund) error {
	doc := fundDoc{
		ID:            fund.ID,
		Name:          fund.Name,
		MinimumAmount: toDecimal128(fund.MinimumAmount),
		Category:      fund.Category,
	}
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": fund.ID}, doc, options.Replace().SetUpsert(true))
	return translate(err)
}
