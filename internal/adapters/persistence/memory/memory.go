// Package memory is an in-process store used for local runs and tests.
// Writes are serialized; WithinTransaction journals undo steps and replays them on failure.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"btg-funds/internal/core/domain"
)

// DB holds all in-memory state shared by the stores in this package
type DB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users       map[string]*domain.User
	tokenOwners map[string]string
	clients     map[string]*domain.Client
	funds       map[string]domain.Fund
	txs         []domain.Transaction
}

// NewDB creates an empty database
func NewDB() *DB {
	return &DB{
		users:       make(map[string]*domain.User),
		tokenOwners: make(map[string]string),
		clients:     make(map[string]*domain.Client),
		funds:       make(map[string]domain.Fund),
	}
}

type journalKey struct{}

type journal struct {
	undo []func()
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

// exec runs fn with exclusive access. Outside a transaction it also waits for
// any running transaction; inside one, undo steps fn records are journaled.
func (db *DB) exec(ctx context.Context, fn func(record func(undo func())) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j := journalFrom(ctx)
	if j == nil {
		db.txMu.Lock()
		defer db.txMu.Unlock()
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(func(undo func()) {
		if j != nil {
			j.undo = append(j.undo, undo)
		}
	})
}

// Transactor implements services.Transactor for the memory store
type Transactor struct {
	db *DB
}

// NewTransactor creates a transactor bound to db
func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction runs fn atomically. Nested calls join the outer transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		t.db.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		t.db.mu.Unlock()
		return err
	}
	return nil
}

// UserStore implements services.UserStore
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	cp.RefreshTokens = append(domain.TokenSet(nil), u.RefreshTokens...)
	return &cp
}

// GetByUsername gets a user by username
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var out *domain.User
	err := s.db.exec(ctx, func(func(func())) error {
		for _, u := range s.db.users {
			if u.Username == username {
				out = cloneUser(u)
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

// GetByID gets a user by ID
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := s.db.exec(ctx, func(func(func())) error {
		u, ok := s.db.users[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = cloneUser(u)
		return nil
	})
	return out, err
}

// GetByRefreshToken resolves the owner of a refresh token digest
func (s *UserStore) GetByRefreshToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	var out *domain.User
	err := s.db.exec(ctx, func(func(func())) error {
		id, ok := s.db.tokenOwners[tokenHash]
		if !ok {
			return domain.ErrNotFound
		}
		out = cloneUser(s.db.users[id])
		return nil
	})
	return out, err
}

// Add inserts a new user; the username and token digests must be unique
func (s *UserStore) Add(ctx context.Context, user *domain.User) error {
	return s.db.exec(ctx, func(record func(func())) error {
		if _, ok := s.db.users[user.ID]; ok {
			return domain.ErrDuplicate
		}
		for _, u := range s.db.users {
			if u.Username == user.Username {
				return domain.ErrDuplicate
			}
		}
		for _, t := range user.RefreshTokens {
			if _, ok := s.db.tokenOwners[t.TokenHash]; ok {
				return domain.ErrDuplicate
			}
		}

		user.Version = 1
		added := cloneUser(user)
		s.db.users[added.ID] = added
		s.db.indexTokens(added.ID, nil, added.RefreshTokens)
		record(func() {
			s.db.indexTokens(added.ID, added.RefreshTokens, nil)
			delete(s.db.users, added.ID)
		})
		return nil
	})
}

// Update replaces a user if its version matches and bumps the version
func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	return s.db.exec(ctx, func(record func(func())) error {
		prev, ok := s.db.users[user.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if prev.Version != user.Version {
			return domain.ErrVersionConflict
		}
		for _, t := range user.RefreshTokens {
			if owner, ok := s.db.tokenOwners[t.TokenHash]; ok && owner != user.ID {
				return domain.ErrDuplicate
			}
		}

		next := cloneUser(user)
		next.Version++
		s.db.indexTokens(user.ID, prev.RefreshTokens, next.RefreshTokens)
		s.db.users[user.ID] = next
		user.Version = next.Version
		record(func() {
			s.db.indexTokens(prev.ID, next.RefreshTokens, prev.RefreshTokens)
			s.db.users[prev.ID] = prev
		})
		return nil
	})
}

// DeleteExpiredRefreshTokens removes token records that expired before the given time from every user
func (s *UserStore) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := s.db.exec(ctx, func(func(func())) error {
		for id, u := range s.db.users {
			kept := make(domain.TokenSet, 0, len(u.RefreshTokens))
			for _, t := range u.RefreshTokens {
				if t.IsExpired(before) {
					delete(s.db.tokenOwners, t.TokenHash)
					removed++
					continue
				}
				kept = append(kept, t)
			}
			if len(kept) != len(u.RefreshTokens) {
				cp := cloneUser(u)
				cp.RefreshTokens = kept
				s.db.users[id] = cp
			}
		}
		return nil
	})
	return removed, err
}

// indexTokens re-points the digest index of userID from one token set to another. Caller holds mu.
func (db *DB) indexTokens(userID string, from, to domain.TokenSet) {
	for _, t := range from {
		if db.tokenOwners[t.TokenHash] == userID {
			delete(db.tokenOwners, t.TokenHash)
		}
	}
	for _, t := range to {
		db.tokenOwners[t.TokenHash] = userID
	}
}

// ClientStore implements services.ClientStore
type ClientStore struct {
	db *DB
}

// NewClientStore creates a client store
func NewClientStore(db *DB) *ClientStore {
	return &ClientStore{db: db}
}

// GetByID gets a client by ID
func (s *ClientStore) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	var out *domain.Client
	err := s.db.exec(ctx, func(func(func())) error {
		c, ok := s.db.clients[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

// Add inserts a new client
func (s *ClientStore) Add(ctx context.Context, client *domain.Client) error {
	return s.db.exec(ctx, func(record func(func())) error {
		if _, ok := s.db.clients[client.ID]; ok {
			return domain.ErrDuplicate
		}
		client.Version = 1
		id := client.ID
		s.db.clients[id] = client.Clone()
		record(func() { delete(s.db.clients, id) })
		return nil
	})
}

// Update replaces a client if its version matches and bumps the version
func (s *ClientStore) Update(ctx context.Context, client *domain.Client) error {
	return s.db.exec(ctx, func(record func(func())) error {
		prev, ok := s.db.clients[client.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if prev.Version != client.Version {
			return domain.ErrVersionConflict
		}
		next := client.Clone()
		next.Version++
		s.db.clients[client.ID] = next
		client.Version = next.Version
		record(func() { s.db.clients[prev.ID] = prev })
		return nil
	})
}

// FundCatalog implements services.FundCatalog
type FundCatalog struct {
	db *DB
}

// NewFundCatalog creates a fund catalog
func NewFundCatalog(db *DB) *FundCatalog {
	return &FundCatalog{db: db}
}

// GetByID gets a fund by ID
func (s *FundCatalog) GetByID(ctx context.Context, id string) (*domain.Fund, error) {
	var out *domain.Fund
	err := s.db.exec(ctx, func(func(func())) error {
		f, ok := s.db.funds[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &f
		return nil
	})
	return out, err
}

// GetAll lists funds ordered by ID
func (s *FundCatalog) GetAll(ctx context.Context) ([]domain.Fund, error) {
	var out []domain.Fund
	err := s.db.exec(ctx, func(func(func())) error {
		out = make([]domain.Fund, 0, len(s.db.funds))
		for _, f := range s.db.funds {
			out = append(out, f)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// Upsert inserts or replaces a catalog entry
func (s *FundCatalog) Upsert(ctx context.Context, fund *domain.Fund) error {
	return s.db.exec(ctx, func(record func(func())) error {
		prev, existed := s.db.funds[fund.ID]
		s.db.funds[fund.ID] = *fund
		record(func() {
			if existed {
				s.db.funds[fund.ID] = prev
			} else {
				delete(s.db.funds, fund.ID)
			}
		})
		return nil
	})
}

// TransactionLog implements services.TransactionLog
type TransactionLog struct {
	db *DB
}

// NewTransactionLog creates a transaction log
func NewTransactionLog(db *DB) *TransactionLog {
	return &TransactionLog{db: db}
}

// Append adds a transaction to the log
func (s *TransactionLog) Append(ctx context.Context, tx *domain.Transaction) error {
	return s.db.exec(ctx, func(record func(func())) error {
		for _, t := range s.db.txs {
			if t.ID == tx.ID {
				return domain.ErrDuplicate
			}
		}
		s.db.txs = append(s.db.txs, *tx)
		id := tx.ID
		record(func() {
			for i := len(s.db.txs) - 1; i >= 0; i-- {
				if s.db.txs[i].ID == id {
					s.db.txs = append(s.db.txs[:i:i], s.db.txs[i+1:]...)
					return
				}
			}
		})
		return nil
	})
}

// ListByClient returns the client's transactions newest first
func (s *TransactionLog) ListByClient(ctx context.Context, clientID string) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	err := s.db.exec(ctx, func(func(func())) error {
		for i := len(s.db.txs) - 1; i >= 0; i-- {
			if s.db.txs[i].ClientID == clientID {
				out = append(out, s.db.txs[i])
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}
