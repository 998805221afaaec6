package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weissv/olymp-pay/internal/models"
	"github.com/weissv/olymp-pay/internal/repository"
)

func seed(t *testing.T, s *Store, chargeID string, amount int64) {
	t.Helper()
	_, err := s.Create(context.Background(), &models.Registration{ChargeID: chargeID, ExpectedAmount: amount})
	require.NoError(t, err)
}

func TestStore_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "abc123", 5000000)
	seed(t, s, "other", 100)

	first, err := s.CreateIfAbsent(ctx, &models.Transaction{TransactionID: "t1", ChargeID: "abc123", Amount: 5000000, CreateTime: 1000})
	require.NoError(t, err)
	assert.Equal(t, models.StateCreated, first.State)

	t.Run("same id returns stored record", func(t *testing.T) {
		again, err := s.CreateIfAbsent(ctx, &models.Transaction{TransactionID: "t1", ChargeID: "abc123", Amount: 5000000, CreateTime: 2000})
		require.NoError(t, err)
		assert.Equal(t, int64(1000), again.CreateTime)
	})

	t.Run("same id on another charge conflicts", func(t *testing.T) {
		_, err := s.CreateIfAbsent(ctx, &models.Transaction{TransactionID: "t1", ChargeID: "other", Amount: 100, CreateTime: 1000})
		require.ErrorIs(t, err, repository.ErrChargeMismatch)
	})

	t.Run("second active transaction on a charge is refused", func(t *testing.T) {
		_, err := s.CreateIfAbsent(ctx, &models.Transaction{TransactionID: "t2", ChargeID: "abc123", Amount: 5000000, CreateTime: 1500})
		require.ErrorIs(t, err, repository.ErrChargeBusy)
	})
}

func TestStore_CompareAndTransition(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "abc123", 5000000)

	_, err := s.CreateIfAbsent(ctx, &models.Transaction{TransactionID: "t1", ChargeID: "abc123", Amount: 5000000, CreateTime: 1000})
	require.NoError(t, err)

	confirmed := true
	performed, err := s.CompareAndTransition(ctx, repository.Transition{
		TransactionID: "t1", From: models.StateCreated, To: models.StatePerformed, At: 2000, PaymentStatus: &confirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatePerformed, performed.State)
	assert.Equal(t, int64(2000), performed.PerformTime)

	reg, err := s.GetByChargeID(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, reg.PaymentStatus)

	_, err = s.CompareAndTransition(ctx, repository.Transition{
		TransactionID: "t1", From: models.StateCreated, To: models.StatePerformed, At: 3000, PaymentStatus: &confirmed,
	})
	require.ErrorIs(t, err, repository.ErrStateConflict)

	_, err = s.CompareAndTransition(ctx, repository.Transition{TransactionID: "missing", From: models.StateCreated, To: models.StatePerformed})
	require.ErrorIs(t, err, repository.ErrNotFound)

	reverted := false
	reason := 3
	cancelled, err := s.CompareAndTransition(ctx, repository.Transition{
		TransactionID: "t1", From: models.StatePerformed, To: models.StateCancelledAfterPerform, At: 4000, Reason: &reason, PaymentStatus: &reverted,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelledAfterPerform, cancelled.State)
	assert.Equal(t, int64(4000), cancelled.CancelTime)
	assert.Equal(t, int64(2000), cancelled.PerformTime)
	require.NotNil(t, cancelled.Reason)
	assert.Equal(t, 3, *cancelled.Reason)

	reg, err = s.GetByChargeID(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, reg.PaymentStatus)

	// A cancelled transaction frees the charge for a new one.
	_, err = s.CreateIfAbsent(ctx, &models.Transaction{TransactionID: "t2", ChargeID: "abc123", Amount: 5000000, CreateTime: 5000})
	require.NoError(t, err)
}

func TestStore_ConcurrentTransitionHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "abc123", 5000000)
	_, err := s.CreateIfAbsent(ctx, &models.Transaction{TransactionID: "t1", ChargeID: "abc123", Amount: 5000000, CreateTime: 1000})
	require.NoError(t, err)

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	confirmed := true
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(at int64) {
			defer wg.Done()
			_, err := s.CompareAndTransition(ctx, repository.Transition{
				TransactionID: "t1", From: models.StateCreated, To: models.StatePerformed, At: at, PaymentStatus: &confirmed,
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, repository.ErrStateConflict)
		}(int64(2000 + i))
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestStore_ListByCreateTime(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, c := range []struct {
		charge string
		id     string
		time   int64
	}{
		{"c1", "t3", 3000},
		{"c2", "t1", 1000},
		{"c3", "t2", 2000},
		{"c4", "t4", 9000},
	} {
		seed(t, s, c.charge, 100)
		_, err := s.CreateIfAbsent(ctx, &models.Transaction{TransactionID: c.id, ChargeID: c.charge, Amount: 100, CreateTime: c.time})
		require.NoError(t, err)
	}

	list, err := s.ListByCreateTime(ctx, 1000, 3000)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "t1", list[0].TransactionID)
	assert.Equal(t, "t2", list[1].TransactionID)
	assert.Equal(t, "t3", list[2].TransactionID)

	empty, err := s.ListByCreateTime(ctx, 10000, 20000)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStore_TransitionWithoutRegistrationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	// Inserted directly: the charge has no registration behind it.
	_, err := s.CreateIfAbsent(ctx, &models.Transaction{TransactionID: "orphan", ChargeID: "gone", Amount: 1, CreateTime: 1000})
	require.NoError(t, err)

	confirmed := true
	_, err = s.CompareAndTransition(ctx, repository.Transition{
		TransactionID: "orphan", From: models.StateCreated, To: models.StatePerformed, At: 2000, PaymentStatus: &confirmed,
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)

	got, err := s.GetByTransactionID(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, models.StateCreated, got.State)
	assert.Zero(t, got.PerformTime)
}
