package mongostore

import (
	"context"

	"btg-funds/internal/core/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// TransactionLog implements services.TransactionLog
type TransactionLog struct {
	coll *mongo.Collection
}

// Transactions returns the ledger
func (s *Store) Transactions() *TransactionLog {
	return &TransactionLog{coll: s.db.Collection(transactionsCollection)}
}

// Append inserts a transaction record
func (l *TransactionLog) Append(ctx context.Context, tx *domain.Transaction) error {
	_, err := l.coll.InsertOne(ctx, transactionDoc{
		ID:        tx.ID,
		ClientID:  tx.ClientID,
		FundID:    tx.FundID,
		Type:      string(tx.Type),
		Amount:    toDecimal128(tx.Amount),
		Status:    string(tx.Status),
		CreatedAt: tx.CreatedAt,
	})
	return translate(err)
}

// ListByClient gets a client's transactions, newest first
func (l *TransactionLog) ListByClient(ctx context.Context, clientID string) ([]domain.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := l.coll.Find(ctx, bson.M{"clientId": clientID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []transactionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, 0, len(docs))
	for i := range docs {
		txs = append(txs, docs[i].toDomain())
	}
	return txs, nil
}
