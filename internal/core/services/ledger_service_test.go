package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"btg-funds/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSubscribeThenCancel(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 2000)
	f.addFund(t, "F1", 1000)
	ctx := context.Background()

	tx, err := f.ledger.Subscribe(ctx, "c1", "F1", amount(1500))
	require.NoError(t, err)
	assert.Equal(t, domain.TxSubscribe, tx.Type)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, domain.TxStatusCompleted, tx.Status)

	c := f.client(t, "c1")
	assert.True(t, c.Balance.Equal(decimal.NewFromInt(500)))
	require.Len(t, c.Allocations, 1)
	assert.Equal(t, "F1", c.Allocations[0].FundID)
	assert.Equal(t, "Fund F1", c.Allocations[0].FundName)
	assert.True(t, c.Allocations[0].Amount.Equal(decimal.NewFromInt(1500)))
	require.Len(t, f.history(t, "c1"), 1)

	tx, err = f.ledger.Cancel(ctx, "c1", "F1")
	require.NoError(t, err)
	assert.Equal(t, domain.TxCancel, tx.Type)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(-1500)))

	c = f.client(t, "c1")
	assert.True(t, c.Balance.Equal(decimal.NewFromInt(2000)))
	assert.Empty(t, c.Allocations)

	history := f.history(t, "c1")
	require.Len(t, history, 2)
	assert.Equal(t, domain.TxCancel, history[0].Type)
	assert.Equal(t, domain.TxSubscribe, history[1].Type)

	sent := f.notifier.Sent()
	require.Len(t, sent, 2)
	assert.True(t, sent[0].Amount.Equal(decimal.NewFromInt(1500)))
	assert.True(t, sent[1].Amount.Equal(decimal.NewFromInt(-1500)))
}

func TestSubscribe_DefaultsToFundMinimum(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 2000)
	f.addFund(t, "F1", 1000)

	tx, err := f.ledger.Subscribe(context.Background(), "c1", "F1", nil)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.client(t, "c1").Balance.Equal(decimal.NewFromInt(1000)))
}

func TestSubscribe_InsufficientBalance(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 500)
	f.addFund(t, "F1", 1000)

	_, err := f.ledger.Subscribe(context.Background(), "c1", "F1", amount(1500))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))
	assert.Contains(t, err.Error(), "insufficient balance")
	assert.Contains(t, err.Error(), "Fund F1")

	assert.Empty(t, f.history(t, "c1"))
	assert.Empty(t, f.notifier.Sent())
	assert.True(t, f.client(t, "c1").Balance.Equal(decimal.NewFromInt(500)))
}

func TestSubscribe_BelowMinimum(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 5000)
	f.addFund(t, "F1", 1000)

	_, err := f.ledger.Subscribe(context.Background(), "c1", "F1", amount(999))
	require.ErrorIs(t, err, domain.ErrBelowMinimum)
	assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))
	assert.Contains(t, err.Error(), "1000.00")
	assert.Empty(t, f.history(t, "c1"))
}

func TestSubscribe_NonPositiveAmount(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 5000)
	f.addFund(t, "F1", 0)

	for _, v := range []int64{0, -10} {
		_, err := f.ledger.Subscribe(context.Background(), "c1", "F1", amount(v))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
}

func TestSubscribe_Twice(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 5000)
	f.addFund(t, "F1", 1000)
	ctx := context.Background()

	_, err := f.ledger.Subscribe(ctx, "c1", "F1", nil)
	require.NoError(t, err)

	_, err = f.ledger.Subscribe(ctx, "c1", "F1", nil)
	require.ErrorIs(t, err, domain.ErrAlreadySubscribed)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Len(t, f.history(t, "c1"), 1)
}

func TestSubscribe_TwiceConflictsBeforeAmountChecks(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 2000)
	f.addFund(t, "F1", 1000)
	ctx := context.Background()

	_, err := f.ledger.Subscribe(ctx, "c1", "F1", amount(1500))
	require.NoError(t, err)

	// remaining balance 500 cannot cover either request, the held allocation still wins
	for _, v := range []int64{1500, 10} {
		_, err = f.ledger.Subscribe(ctx, "c1", "F1", amount(v))
		require.ErrorIs(t, err, domain.ErrAlreadySubscribed)
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	}
	_, err = f.ledger.Subscribe(ctx, "c1", "F1", nil)
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)

	assert.True(t, f.client(t, "c1").Balance.Equal(decimal.NewFromInt(500)))
	assert.Len(t, f.history(t, "c1"), 1)
}

func TestSubscribe_RejectsAmountsNotStorableAsMoney(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 2000)
	f.addFund(t, "F1", 1000)
	ctx := context.Background()

	for _, raw := range []string{"1000.005", "1000.001", "99999999999999999.00"} {
		v := decimal.RequireFromString(raw)
		_, err := f.ledger.Subscribe(ctx, "c1", "F1", &v)
		require.ErrorIs(t, err, domain.ErrAmountPrecision, raw)
		assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))
	}
	assert.True(t, f.client(t, "c1").Balance.Equal(decimal.NewFromInt(2000)))
	assert.Empty(t, f.history(t, "c1"))

	// trailing zeros are still cents
	v := decimal.RequireFromString("1000.100")
	tx, err := f.ledger.Subscribe(ctx, "c1", "F1", &v)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("1000.10")))
}

func TestSubscribe_NotFound(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 5000)
	f.addFund(t, "F1", 1000)
	ctx := context.Background()

	_, err := f.ledger.Subscribe(ctx, "missing", "F1", nil)
	assert.ErrorIs(t, err, domain.ErrClientNotFound)

	_, err = f.ledger.Subscribe(ctx, "c1", "missing", nil)
	assert.ErrorIs(t, err, domain.ErrFundNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCancel_WithoutAllocation(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 5000)
	f.addFund(t, "F1", 1000)

	_, err := f.ledger.Cancel(context.Background(), "c1", "F1")
	require.ErrorIs(t, err, domain.ErrNoActiveSubscription)
	assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))

	_, err = f.ledger.Cancel(context.Background(), "missing", "F1")
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
	assert.Empty(t, f.history(t, "c1"))
}

func TestSubscribe_RollsBackWhenAppendFails(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 2000)
	f.addFund(t, "F1", 1000)
	f.withLog(failingLog{f.txlog})

	_, err := f.ledger.Subscribe(context.Background(), "c1", "F1", amount(1500))
	require.Error(t, err)
	assert.Equal(t, domain.KindUnknown, domain.KindOf(err))

	c := f.client(t, "c1")
	assert.True(t, c.Balance.Equal(decimal.NewFromInt(2000)))
	assert.Empty(t, c.Allocations)
	assert.Empty(t, f.notifier.Sent())
}

func TestCancel_RollsBackWhenAppendFails(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 2000)
	f.addFund(t, "F1", 1000)
	_, err := f.ledger.Subscribe(context.Background(), "c1", "F1", amount(1500))
	require.NoError(t, err)

	f.withLog(failingLog{f.txlog})
	_, err = f.ledger.Cancel(context.Background(), "c1", "F1")
	require.Error(t, err)

	c := f.client(t, "c1")
	assert.True(t, c.Balance.Equal(decimal.NewFromInt(500)))
	assert.Len(t, c.Allocations, 1)
	assert.Len(t, f.history(t, "c1"), 1)
}

func TestSubscribe_CancelledContextDoesNotCommit(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 2000)
	f.addFund(t, "F1", 1000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.withLog(cancellingLog{TransactionLog: f.txlog, cancel: cancel})

	_, err := f.ledger.Subscribe(ctx, "c1", "F1", amount(1500))
	require.ErrorIs(t, err, context.Canceled)

	c := f.client(t, "c1")
	assert.True(t, c.Balance.Equal(decimal.NewFromInt(2000)))
	assert.Empty(t, c.Allocations)
	assert.Empty(t, f.history(t, "c1"))
	assert.Empty(t, f.notifier.Sent())
}

func TestSubscribe_RetriesOnVersionConflict(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 2000)
	f.addFund(t, "F1", 1000)

	f.withClients(&conflictingClients{ClientStore: f.clients, n: 2})
	_, err := f.ledger.Subscribe(context.Background(), "c1", "F1", nil)
	require.NoError(t, err)
	assert.Len(t, f.history(t, "c1"), 1)

	f.withClients(&conflictingClients{ClientStore: f.clients, n: 3})
	_, err = f.ledger.Cancel(context.Background(), "c1", "F1")
	require.ErrorIs(t, err, domain.ErrConcurrentWrite)
	assert.Len(t, f.history(t, "c1"), 1)
}

func TestSubscribe_ConcurrentDuplicates(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 100000)
	f.addFund(t, "F1", 1000)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Subscribe(context.Background(), "c1", "F1", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrAlreadySubscribed):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.True(t, f.client(t, "c1").Balance.Equal(decimal.NewFromInt(99000)))
	assert.Len(t, f.history(t, "c1"), 1)
}

func TestHistory_NewestFirst(t *testing.T) {
	f := newLedgerFixture(t)
	f.addClient(t, "c1", 100000)
	f.addClient(t, "c2", 100000)
	for _, id := range []string{"F1", "F2", "F3"} {
		f.addFund(t, id, 1000)
	}
	ctx := context.Background()

	for _, id := range []string{"F1", "F2", "F3"} {
		_, err := f.ledger.Subscribe(ctx, "c1", id, nil)
		require.NoError(t, err)
	}
	_, err := f.ledger.Cancel(ctx, "c1", "F2")
	require.NoError(t, err)
	_, err = f.ledger.Subscribe(ctx, "c2", "F1", nil)
	require.NoError(t, err)

	history := f.history(t, "c1")
	require.Len(t, history, 4)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].CreatedAt.After(history[i-1].CreatedAt))
	}
	assert.Equal(t, domain.TxCancel, history[0].Type)
	for _, tx := range history {
		assert.Equal(t, "c1", tx.ClientID)
	}

	assert.Empty(t, f.history(t, "nobody"))
}

func TestLedger_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newLedgerFixture(rt)
		fundIDs := []string{"F1", "F2", "F3"}
		for i, id := range fundIDs {
			f.addFund(rt, id, int64(500*(i+1)))
		}
		start := rapid.Int64Range(0, 10000).Draw(rt, "balance")
		f.addClient(rt, "c1", start)
		initial := decimal.NewFromInt(start)
		ctx := context.Background()

		ops := rapid.IntRange(1, 30).Draw(rt, "ops")
		successes := 0
		for i := 0; i < ops; i++ {
			fundID := rapid.SampledFrom(fundIDs).Draw(rt, "fund")
			before := f.client(rt, "c1")

			if rapid.Bool().Draw(rt, "subscribe") {
				var amt *decimal.Decimal
				if rapid.Bool().Draw(rt, "explicit") {
					amt = amount(rapid.Int64Range(1, 5000).Draw(rt, "amount"))
				}
				tx, err := f.ledger.Subscribe(ctx, "c1", fundID, amt)
				_, held := before.Allocation(fundID)
				if held && !errors.Is(err, domain.ErrAlreadySubscribed) {
					rt.Fatalf("subscribe to held fund %s returned %v, want conflict", fundID, err)
				}
				if err == nil {
					successes++
					if !tx.Amount.IsPositive() {
						rt.Fatalf("subscribe recorded non-positive amount %s", tx.Amount)
					}
					after := f.client(rt, "c1")
					if !before.Balance.Sub(after.Balance).Equal(tx.Amount) {
						rt.Fatalf("balance moved by %s, transaction says %s", before.Balance.Sub(after.Balance), tx.Amount)
					}
				} else if domain.KindOf(err) == domain.KindUnknown {
					rt.Fatalf("unclassified subscribe failure: %v", err)
				}
			} else {
				tx, err := f.ledger.Cancel(ctx, "c1", fundID)
				alloc, held := before.Allocation(fundID)
				switch {
				case held && err != nil:
					rt.Fatalf("cancel of held fund failed: %v", err)
				case !held && !errors.Is(err, domain.ErrNoActiveSubscription):
					rt.Fatalf("cancel without allocation returned %v", err)
				case held:
					successes++
					if !tx.Amount.Equal(alloc.Amount.Neg()) {
						rt.Fatalf("cancel recorded %s for allocation %s", tx.Amount, alloc.Amount)
					}
				}
			}

			c := f.client(rt, "c1")
			if c.Balance.IsNegative() {
				rt.Fatalf("negative balance %s", c.Balance)
			}
			if !c.Balance.Add(c.Committed()).Equal(initial) {
				rt.Fatalf("balance %s + committed %s != %s", c.Balance, c.Committed(), initial)
			}
		}

		if n := len(f.history(rt, "c1")); n != successes {
			rt.Fatalf("%d transactions for %d successful operations", n, successes)
		}
	})
}
