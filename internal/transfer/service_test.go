package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zjoart/go-intouch-transfer/internal/provider"
	"github.com/zjoart/go-intouch-transfer/pkg/apperr"
	"github.com/zjoart/go-intouch-transfer/pkg/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TransactionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) named(name string) []events.TransactionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.TransactionEvent
	for _, ev := range p.events {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

type failingRepo struct {
	*MemoryRepository
}

func (failingRepo) CreateTransaction(ctx context.Context, tx *Transaction) error {
	return errors.New("connection reset")
}

type testEnv struct {
	svc  *Service
	repo *MemoryRepository
	stub *provider.Stub
	pub  *recordingPublisher

	mu    sync.Mutex
	clock time.Time
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = e.clock.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:  NewMemoryRepository(),
		stub:  provider.NewStub(),
		pub:   &recordingPublisher{},
		clock: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(env.repo, env.stub, env.pub, Options{
		ProviderTimeout: time.Second,
		PhonePrefix:     "221",
		MaxPageSize:     100,
	})
	// every call advances the clock so creation order is strict
	env.svc.now = func() time.Time {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.clock = env.clock.Add(time.Second)
		return env.clock
	}
	return env
}

func validTransfer() CreateTransferInput {
	return CreateTransferInput{
		SourceWallet:      WalletWave,
		DestinationWallet: WalletOrange,
		DestinationPhone:  "221771234567",
		Amount:            5000,
	}
}

func TestCreateTransfer_RecordsProviderStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)
	assert.Equal(t, TransactionPending, tx.Status)
	assert.Equal(t, "INT000001", tx.ProviderTransactionID)
	assert.Nil(t, tx.ErrorMessage)

	stored, err := env.repo.GetTransactionByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, int64(5000), stored.Amount)
	assert.Len(t, env.pub.named(events.TransferCreated), 1)
}

func TestCreateTransfer_ImmediateOutcome(t *testing.T) {
	env := newTestEnv(t)
	env.stub.InitialStatus = provider.StatusFailed

	tx, err := env.svc.CreateTransfer(context.Background(), "user-1", validTransfer())
	require.NoError(t, err)
	assert.Equal(t, TransactionFailed, tx.Status)
	require.NotNil(t, tx.ErrorMessage)
	assert.Equal(t, "Insufficient balance", *tx.ErrorMessage)
}

func TestCreateTransfer_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateTransferInput)
		field  string
	}{
		{"zero amount", func(in *CreateTransferInput) { in.Amount = 0 }, "amount"},
		{"negative amount", func(in *CreateTransferInput) { in.Amount = -1 }, "amount"},
		{"unknown source wallet", func(in *CreateTransferInput) { in.SourceWallet = "PAYPAL" }, "sourceWallet"},
		{"unknown destination wallet", func(in *CreateTransferInput) { in.DestinationWallet = "" }, "destinationWallet"},
		{"short phone", func(in *CreateTransferInput) { in.DestinationPhone = "77123456" }, "destinationPhone"},
		{"foreign prefix", func(in *CreateTransferInput) { in.DestinationPhone = "225771234567" }, "destinationPhone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			in := validTransfer()
			tt.mutate(&in)

			_, err := env.svc.CreateTransfer(context.Background(), "user-1", in)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))

			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			details := appErr.Details.([]FieldError)
			require.Len(t, details, 1)
			assert.Equal(t, tt.field, details[0].Field)

			assert.Equal(t, 0, env.stub.Calls(), "provider must not be contacted")
		})
	}
}

func TestCreateTransfer_ProviderFailurePersistsNothing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
	}{
		{"unavailable", provider.ErrUnavailable, apperr.KindProviderUnavailable},
		{"rejected", provider.ErrRejected, apperr.KindProviderRejected},
		{"unknown destination", provider.ErrNotFound, apperr.KindProviderRejected},
		{"deadline", context.DeadlineExceeded, apperr.KindProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.stub.InitiateErr = tt.err

			_, err := env.svc.CreateTransfer(context.Background(), "user-1", validTransfer())
			assert.True(t, apperr.Is(err, tt.kind))

			_, total, err := env.repo.ListUserTransactions(context.Background(), "user-1", ListFilter{Limit: 10})
			require.NoError(t, err)
			assert.Zero(t, total)
			assert.Empty(t, env.pub.named(events.TransferCreated))
		})
	}
}

func TestCreateTransfer_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := NewService(failingRepo{env.repo}, env.stub, env.pub, Options{PhonePrefix: "221"})

	_, err := svc.CreateTransfer(context.Background(), "user-1", validTransfer())
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Equal(t, 1, env.stub.Calls())
}

func TestGetTransactionStatus_Ownership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)

	_, err = env.svc.GetTransactionStatus(ctx, "user-2", tx.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = env.svc.GetTransactionStatus(ctx, "user-1", "not-a-uuid")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = env.svc.GetTransactionStatus(ctx, "user-1", "6f1c2b7e-0000-4000-8000-000000000000")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetTransactionStatus_ReconcilesPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)

	got, err := env.svc.GetTransactionStatus(ctx, "user-1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, TransactionPending, got.Status)

	env.stub.Resolve(tx.ProviderTransactionID, provider.StatusFailed, "Insufficient balance")

	got, err = env.svc.GetTransactionStatus(ctx, "user-1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, TransactionFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "Insufficient balance", *got.ErrorMessage)

	changed := env.pub.named(events.TransferStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, string(SourcePoll), changed[0].Source)
	assert.Equal(t, "PENDING", changed[0].PreviousStatus)

	// terminal rows are served without asking the provider again
	env.stub.Resolve(tx.ProviderTransactionID, provider.StatusSuccess, "")
	got, err = env.svc.GetTransactionStatus(ctx, "user-1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, TransactionFailed, got.Status)
}

func TestGetTransactionStatus_ProviderErrorServesStored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)

	env.stub.QueryErr = provider.ErrUnavailable
	got, err := env.svc.GetTransactionStatus(ctx, "user-1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, TransactionPending, got.Status)
}

func TestApplyProviderUpdate_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)

	update := ProviderUpdate{ProviderTransactionID: tx.ProviderTransactionID, Status: TransactionSuccess, Source: SourceWebhook}
	first, err := env.svc.ApplyProviderUpdate(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, TransactionSuccess, first.Status)
	assert.Nil(t, first.ErrorMessage)

	second, err := env.svc.ApplyProviderUpdate(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, TransactionSuccess, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)

	// a contradicting late update cannot leave a terminal state
	late, err := env.svc.ApplyProviderUpdate(ctx, ProviderUpdate{ProviderTransactionID: tx.ProviderTransactionID, Status: TransactionFailed, Source: SourceWebhook})
	require.NoError(t, err)
	assert.Equal(t, TransactionSuccess, late.Status)

	assert.Len(t, env.pub.named(events.TransferStatusChanged), 1)
}

func TestApplyProviderUpdate_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)

	_, err = env.svc.ApplyProviderUpdate(ctx, ProviderUpdate{ProviderTransactionID: "INT999999", Status: TransactionSuccess})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = env.svc.ApplyProviderUpdate(ctx, ProviderUpdate{ProviderTransactionID: tx.ProviderTransactionID, Status: "DONE"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	pending, err := env.svc.ApplyProviderUpdate(ctx, ProviderUpdate{ProviderTransactionID: tx.ProviderTransactionID, Status: TransactionPending})
	require.NoError(t, err)
	assert.Equal(t, TransactionPending, pending.Status)
	assert.Empty(t, env.pub.named(events.TransferStatusChanged))
}

func TestApplyProviderUpdate_ConcurrentSingleTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]TransactionStatus, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := TransactionSuccess
			if i%2 == 1 {
				status = TransactionFailed
			}
			got, err := env.svc.ApplyProviderUpdate(ctx, ProviderUpdate{
				ProviderTransactionID: tx.ProviderTransactionID,
				Status:                status,
				Source:                SourceWebhook,
			})
			if assert.NoError(t, err) {
				results[i] = got.Status
			}
		}(i)
	}
	wg.Wait()

	stored, err := env.repo.GetTransactionByID(ctx, tx.ID)
	require.NoError(t, err)
	require.True(t, stored.Status.IsTerminal())

	for _, status := range results {
		assert.Equal(t, stored.Status, status, "every caller observes the winning status")
	}
	assert.Len(t, env.pub.named(events.TransferStatusChanged), 1)
}

func TestListUserTransactions_Pagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var created []*Transaction
	for i := 0; i < 25; i++ {
		tx, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
		require.NoError(t, err)
		created = append(created, tx)
	}
	_, err := env.svc.CreateTransfer(ctx, "user-2", validTransfer())
	require.NoError(t, err)

	page, err := env.svc.ListUserTransactions(ctx, "user-1", ListParams{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 10)

	// newest first: the second page holds the 11th through 20th newest
	for i, item := range page.Items {
		assert.Equal(t, created[24-10-i].ID, item.ID)
	}

	last, err := env.svc.ListUserTransactions(ctx, "user-1", ListParams{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)

	beyond, err := env.svc.ListUserTransactions(ctx, "user-1", ListParams{Page: 9, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, int64(25), beyond.Total)
}

func TestListUserTransactions_StatusFilterAndLimits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
		require.NoError(t, err)
	}
	_, err := env.svc.ApplyProviderUpdate(ctx, ProviderUpdate{ProviderTransactionID: "INT000002", Status: TransactionSuccess})
	require.NoError(t, err)

	success := TransactionSuccess
	page, err := env.svc.ListUserTransactions(ctx, "user-1", ListParams{Page: 1, PageSize: 500, Status: &success})
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "INT000002", page.Items[0].ProviderTransactionID)

	bogus := TransactionStatus("LOST")
	_, err = env.svc.ListUserTransactions(ctx, "user-1", ListParams{Page: 1, PageSize: 10, Status: &bogus})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = env.svc.ListUserTransactions(ctx, "user-1", ListParams{Page: 0, PageSize: 10})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestReconcilePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)
	stuck, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)

	env.stub.Resolve(old.ProviderTransactionID, provider.StatusSuccess, "")
	env.advance(10 * time.Minute)

	settled, err := env.svc.ReconcilePending(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	got, err := env.repo.GetTransactionByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, TransactionPending, got.Status)

	changed := env.pub.named(events.TransferStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, string(SourceReconcile), changed[0].Source)
}

func TestReconciler_RejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t)
	r := NewReconciler(env.svc, time.Minute, 10)
	assert.Error(t, r.Start("every tuesday"))
}

func TestApplyProviderUpdate_DefaultFailureMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tx, err := env.svc.CreateTransfer(ctx, "user-1", validTransfer())
	require.NoError(t, err)

	got, err := env.svc.ApplyProviderUpdate(ctx, ProviderUpdate{ProviderTransactionID: tx.ProviderTransactionID, Status: TransactionFailed})
	require.NoError(t, err)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "Transaction failed", *got.ErrorMessage)
}

func TestListUserTransactions_PageBeyondOffsetRange(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
			for i := 0; i < 3; i++ {
				require.NoError(t, repo.CreateTransaction(ctx, seedTransaction("u", fmt.Sprintf("INT%06d", i), base.Add(time.Duration(i)*time.Minute))))
			}
			svc := NewService(repo, provider.NewStub(), nil, Options{PhonePrefix: "221"})

			_, err := svc.ListUserTransactions(ctx, "u", ListParams{Page: math.MaxInt/20 + 2, PageSize: 20})
			assert.True(t, apperr.Is(err, apperr.KindValidation))

			// the largest accepted page is simply empty
			page, err := svc.ListUserTransactions(ctx, "u", ListParams{Page: math.MaxInt / 20, PageSize: 20})
			require.NoError(t, err)
			assert.Empty(t, page.Items)
			assert.Equal(t, int64(3), page.Total)
		})
	}
}

func TestMemoryRepository_NegativeOffset(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateTransaction(ctx, seedTransaction("u", "INT000001", time.Now().UTC())))

	items, total, err := repo.ListUserTransactions(ctx, "u", ListFilter{Limit: 20, Offset: -40})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)
}
