package repositories

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"vaultpay/internal/events"
)

// gormStore binds the repositories to one gorm transaction and tracks the
// aggregates saved through them.
type gormStore struct {
	wallets      WalletRepository
	transactions TransactionRepository
	snapshots    SnapshotRepository
	users        UserRepository
	tracked      []events.Source
}

func newGormStore(tx *gorm.DB) *gormStore {
	s := &gormStore{}
	s.wallets = newWalletRepository(tx, s)
	s.transactions = newTransactionRepository(tx)
	s.snapshots = newSnapshotRepository(tx)
	s.users = newUserRepository(tx)
	return s
}

func (s *gormStore) Wallets() WalletRepository           { return s.wallets }
func (s *gormStore) Transactions() TransactionRepository { return s.transactions }
func (s *gormStore) Snapshots() SnapshotRepository       { return s.snapshots }
func (s *gormStore) Users() UserRepository               { return s.users }

func (s *gormStore) Track(src events.Source) {
	for _, t := range s.tracked {
		if t == src {
			return
		}
	}
	s.tracked = append(s.tracked, src)
}

// maxRetries bounds reload-and-retry on optimistic lock conflicts.
const maxRetries = 3

// GormUnitOfWork runs each use case inside one database transaction and
// drains buffered domain events only after the commit succeeds. Event
// delivery is at-least-once: a failed publish is logged, never rolled back.
type GormUnitOfWork struct {
	bus      events.Publisher
	registry *events.Registry

	// runTx defaults to gorm's transaction wrapper; tests substitute it.
	runTx func(ctx context.Context, fn func(tx *gorm.DB) error) error
}

func NewUnitOfWork(db *gorm.DB, bus events.Publisher, registry *events.Registry) *GormUnitOfWork {
	return &GormUnitOfWork{
		bus:      bus,
		registry: registry,
		runTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return db.WithContext(ctx).Transaction(fn)
		},
	}
}

func (u *GormUnitOfWork) Do(ctx context.Context, fn func(s Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var tracked []events.Source
	err := u.runTx(ctx, func(tx *gorm.DB) error {
		store := newGormStore(tx)
		if err := fn(store); err != nil {
			return err
		}
		tracked = store.tracked
		return nil
	})
	if err != nil {
		return err
	}

	u.drain(ctx, tracked)
	return nil
}

// DoRetry reruns the unit of work with fresh state when the optimistic
// version check fails, up to maxRetries attempts.
func (u *GormUnitOfWork) DoRetry(ctx context.Context, fn func(s Store) error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = u.Do(ctx, fn)
		if !errors.Is(err, ErrConcurrentUpdate) {
			return err
		}
	}
	return err
}

func (u *GormUnitOfWork) drain(ctx context.Context, tracked []events.Source) {
	for _, src := range tracked {
		for _, e := range src.PullEvents() {
			if u.registry != nil {
				u.registry.Dispatch(ctx, e)
			}
			if u.bus != nil {
				if err := u.bus.Publish(ctx, e); err != nil {
					log.Printf("event publish failed for %s (%s): %v", e.EventName(), e.EventID(), err)
				}
			}
		}
	}
}
