// Package testutil provides in-memory test doubles for the store, the unit
// of work and the message bus.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultpay/internal/events"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
)

// MemStore is an in-memory repositories.Store.
type MemStore struct {
	WalletRows      map[uuid.UUID]*models.Wallet
	TransactionRows map[uuid.UUID]*models.Transaction
	SnapshotRows    []*models.AccountBalanceSnapshot
	UserRows        map[uuid.UUID]*models.User

	// SaveHook runs before every wallet save; tests use it to inject
	// optimistic-lock conflicts.
	SaveHook func(w *models.Wallet) error

	// SnapshotHook runs before every snapshot insert; tests use it to fail
	// selected accounts.
	SnapshotHook func(snap *models.AccountBalanceSnapshot) error

	tracked []events.Source
}

func NewMemStore() *MemStore {
	return &MemStore{
		WalletRows:      make(map[uuid.UUID]*models.Wallet),
		TransactionRows: make(map[uuid.UUID]*models.Transaction),
		UserRows:        make(map[uuid.UUID]*models.User),
	}
}

func (s *MemStore) Track(src events.Source) {
	for _, t := range s.tracked {
		if t == src {
			return
		}
	}
	s.tracked = append(s.tracked, src)
}

func (s *MemStore) Wallets() repositories.WalletRepository           { return &memWalletRepo{s} }
func (s *MemStore) Transactions() repositories.TransactionRepository { return &memTxRepo{s} }
func (s *MemStore) Snapshots() repositories.SnapshotRepository       { return &memSnapshotRepo{s} }
func (s *MemStore) Users() repositories.UserRepository               { return &memUserRepo{s} }

type memWalletRepo struct{ s *MemStore }

func (r *memWalletRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	if w, ok := r.s.WalletRows[id]; ok && w.Lifecycle != models.LifecycleDeleted {
		return w, nil
	}
	return nil, repositories.ErrWalletNotFound
}

func (r *memWalletRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Wallet, error) {
	for _, w := range r.s.WalletRows {
		if w.UserID == userID && w.Lifecycle != models.LifecycleDeleted {
			return w, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (r *memWalletRepo) Create(_ context.Context, w *models.Wallet) error {
	w.Version = 1
	r.s.WalletRows[w.ID] = w
	if err := r.persistPending(w); err != nil {
		return err
	}
	r.s.Track(w)
	return nil
}

func (r *memWalletRepo) Save(_ context.Context, w *models.Wallet) error {
	if r.s.SaveHook != nil {
		if err := r.s.SaveHook(w); err != nil {
			return err
		}
	}
	w.Version++
	r.s.WalletRows[w.ID] = w
	if err := r.persistPending(w); err != nil {
		return err
	}
	r.s.Track(w)
	return nil
}

// persistPending mirrors the unique index on payment_reference_id: a second
// entry for the same gateway reference is rejected.
func (r *memWalletRepo) persistPending(w *models.Wallet) error {
	for _, a := range w.Accounts {
		for _, tx := range a.PendingTransactions() {
			if tx.PaymentReferenceID != nil {
				for _, row := range r.s.TransactionRows {
					if row.ID != tx.ID && row.PaymentReferenceID != nil &&
						*row.PaymentReferenceID == *tx.PaymentReferenceID {
						return repositories.ErrDuplicateReference
					}
				}
			}
			r.s.TransactionRows[tx.ID] = tx
		}
		a.ClearPending()
	}
	return nil
}

func (r *memWalletRepo) ListWithDueCredit(_ context.Context, before time.Time, limit int) ([]*models.Wallet, error) {
	var out []*models.Wallet
	for _, w := range r.s.WalletRows {
		if w.CreditDueDate != nil && w.CreditDueDate.Before(before) &&
			w.CreditBalance.GreaterThan(decimal.Zero) && w.Lifecycle != models.LifecycleDeleted {
			out = append(out, w)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memWalletRepo) ListActiveAccounts(_ context.Context) ([]*models.CurrencyAccount, error) {
	var out []*models.CurrencyAccount
	for _, w := range r.s.WalletRows {
		for _, a := range w.Accounts {
			if a.IsActive && a.Lifecycle != models.LifecycleDeleted {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (r *memWalletRepo) GetAccountByID(_ context.Context, id uuid.UUID) (*models.CurrencyAccount, error) {
	for _, w := range r.s.WalletRows {
		for _, a := range w.Accounts {
			if a.ID == id && a.Lifecycle != models.LifecycleDeleted {
				return a, nil
			}
		}
	}
	return nil, repositories.ErrAccountNotFound
}

type memTxRepo struct{ s *MemStore }

func (r *memTxRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	if tx, ok := r.s.TransactionRows[id]; ok {
		return tx, nil
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *memTxRepo) GetByPaymentReference(_ context.Context, referenceID string) (*models.Transaction, error) {
	for _, tx := range r.s.TransactionRows {
		if tx.PaymentReferenceID != nil && *tx.PaymentReferenceID == referenceID {
			return tx, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *memTxRepo) List(_ context.Context, filter repositories.TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tx := range r.s.TransactionRows {
		if filter.WalletID != nil && tx.WalletID != *filter.WalletID {
			continue
		}
		if filter.AccountID != nil && tx.AccountID != *filter.AccountID {
			continue
		}
		if filter.Type != nil && tx.Type != *filter.Type {
			continue
		}
		out = append(out, *tx)
	}
	return out, nil
}

func (r *memTxRepo) SumRefunded(_ context.Context, originalID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range r.s.TransactionRows {
		if tx.Type == models.TypeRefund && tx.RelatedTransactionID != nil && *tx.RelatedTransactionID == originalID {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

func (r *memTxRepo) SumByDirection(_ context.Context, accountID uuid.UUID, direction models.TransactionDirection) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range r.s.TransactionRows {
		if tx.AccountID == accountID && tx.Direction == direction {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

func (r *memTxRepo) SaveStatus(_ context.Context, tx *models.Transaction) error {
	if stored, ok := r.s.TransactionRows[tx.ID]; ok {
		stored.Status = tx.Status
		return nil
	}
	return repositories.ErrTransactionNotFound
}

type memSnapshotRepo struct{ s *MemStore }

func (r *memSnapshotRepo) Create(_ context.Context, snap *models.AccountBalanceSnapshot) error {
	if r.s.SnapshotHook != nil {
		if err := r.s.SnapshotHook(snap); err != nil {
			return err
		}
	}
	r.s.SnapshotRows = append(r.s.SnapshotRows, snap)
	return nil
}

func (r *memSnapshotRepo) ListForAccount(_ context.Context, accountID uuid.UUID, limit int) ([]models.AccountBalanceSnapshot, error) {
	var out []models.AccountBalanceSnapshot
	for _, snap := range r.s.SnapshotRows {
		if snap.AccountID == accountID {
			out = append(out, *snap)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memUserRepo struct{ s *MemStore }

func (r *memUserRepo) Create(_ context.Context, u *models.User) error {
	r.s.UserRows[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := r.s.UserRows[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.s.UserRows {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *memUserRepo) Save(_ context.Context, u *models.User) error {
	r.s.UserRows[u.ID] = u
	return nil
}

// MemUoW is an in-memory repositories.UnitOfWork. Events pulled from tracked
// aggregates after a successful "commit" are recorded in Published; a failed
// unit of work publishes nothing but does not undo in-memory mutations, so
// rollback-sensitive tests should assert on Published and on errors.
type MemUoW struct {
	StoreImpl *MemStore
	Published []events.Event

	mu sync.Mutex
}

func NewMemUoW() *MemUoW {
	return &MemUoW{StoreImpl: NewMemStore()}
}

func (u *MemUoW) Do(_ context.Context, fn func(s repositories.Store) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := fn(u.StoreImpl); err != nil {
		u.StoreImpl.tracked = nil
		return err
	}
	for _, src := range u.StoreImpl.tracked {
		u.Published = append(u.Published, src.PullEvents()...)
	}
	u.StoreImpl.tracked = nil
	return nil
}

func (u *MemUoW) DoRetry(ctx context.Context, fn func(s repositories.Store) error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = u.Do(ctx, fn)
		if !errors.Is(err, repositories.ErrConcurrentUpdate) {
			return err
		}
	}
	return err
}

// PublishedNames lists the names of published events in order.
func (u *MemUoW) PublishedNames() []string {
	out := make([]string, 0, len(u.Published))
	for _, e := range u.Published {
		out = append(out, e.EventName())
	}
	return out
}

// FakeBus records published events; Err makes every publish fail.
type FakeBus struct {
	Events []events.Event
	Err    error
}

func (b *FakeBus) Publish(_ context.Context, e events.Event) error {
	if b.Err != nil {
		return b.Err
	}
	b.Events = append(b.Events, e)
	return nil
}
