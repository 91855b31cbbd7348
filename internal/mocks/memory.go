package mocks

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/segyhp/loan-engine/internal/cache"
	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/repository"
)

// MemoryLoanRepository is an in-process LoanRepository. WithinLoanTx holds a
// per-loan mutex for the whole callback, mirroring the row lock of the SQL
// implementation, and applies the callback's update only when it succeeds.
type MemoryLoanRepository struct {
	mu        sync.Mutex
	loans     map[int64]domain.Loan
	locks     map[int64]*sync.Mutex
	nextID    int64
	lastStamp time.Time
}

func NewMemoryLoanRepository() *MemoryLoanRepository {
	return &MemoryLoanRepository{
		loans: make(map[int64]domain.Loan),
		locks: make(map[int64]*sync.Mutex),
	}
}

func (r *MemoryLoanRepository) Create(_ context.Context, loan *domain.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.stampLocked()
	loan.ID = r.nextID
	loan.CreatedAt = now
	loan.UpdatedAt = now
	r.loans[loan.ID] = *loan
	return nil
}

func (r *MemoryLoanRepository) GetByID(_ context.Context, id int64) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loan, ok := r.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &loan, nil
}

func (r *MemoryLoanRepository) Update(_ context.Context, loan *domain.Loan) error {
	loan.UpdatedAt = r.stamp()
	return r.store(loan)
}

func (r *MemoryLoanRepository) store(loan *domain.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[loan.ID]; !ok {
		return sql.ErrNoRows
	}
	r.loans[loan.ID] = *loan
	return nil
}

// stamp returns the UpdatedAt for a write. Stamps strictly increase so that
// every write yields a newer version than the one before it.
func (r *MemoryLoanRepository) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stampLocked()
}

func (r *MemoryLoanRepository) stampLocked() time.Time {
	now := time.Now()
	if !now.After(r.lastStamp) {
		now = r.lastStamp.Add(time.Nanosecond)
	}
	r.lastStamp = now
	return now
}

func (r *MemoryLoanRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loans[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.loans, id)
	return nil
}

func (r *MemoryLoanRepository) ListByUser(_ context.Context, userID int64) ([]*domain.Loan, error) {
	return r.list(func(l domain.Loan) bool { return l.UserID == userID }), nil
}

func (r *MemoryLoanRepository) ListAll(_ context.Context) ([]*domain.Loan, error) {
	return r.list(func(domain.Loan) bool { return true }), nil
}

// ListDueBetween has no users table to join, so reminders carry no recipient.
func (r *MemoryLoanRepository) ListDueBetween(_ context.Context, from, to time.Time) ([]*domain.DueReminder, error) {
	due := []*domain.DueReminder{}
	for _, loan := range r.list(func(l domain.Loan) bool {
		return l.Status == domain.LoanStatusActive && l.NextDueDate.Valid &&
			!l.NextDueDate.Time.Before(from) && !l.NextDueDate.Time.After(to)
	}) {
		due = append(due, &domain.DueReminder{
			LoanID:      loan.ID,
			Amount:      loan.MonthlyInstallment.Decimal,
			NextDueDate: loan.NextDueDate.Time,
		})
	}
	return due, nil
}

func (r *MemoryLoanRepository) list(keep func(domain.Loan) bool) []*domain.Loan {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Loan{}
	for _, loan := range r.loans {
		if keep(loan) {
			out = append(out, &loan)
		}
	}
	// newest first
	slices.SortFunc(out, func(a, b *domain.Loan) int { return int(b.ID - a.ID) })
	return out
}

func (r *MemoryLoanRepository) lockFor(id int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}

func (r *MemoryLoanRepository) WithinLoanTx(ctx context.Context, id int64, fn func(repo repository.LoanRepository, loan *domain.Loan) error) error {
	lock := r.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	loan, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	tx := &memoryLoanTx{MemoryLoanRepository: r}
	if err := fn(tx, loan); err != nil {
		return err
	}

	for _, pending := range tx.pending {
		if err := r.store(pending); err != nil {
			return err
		}
	}
	return nil
}

// memoryLoanTx buffers updates until the surrounding WithinLoanTx commits.
type memoryLoanTx struct {
	*MemoryLoanRepository
	pending []*domain.Loan
}

func (t *memoryLoanTx) Update(_ context.Context, loan *domain.Loan) error {
	loan.UpdatedAt = t.stamp()
	staged := *loan
	t.pending = append(t.pending, &staged)
	return nil
}

func (t *memoryLoanTx) WithinLoanTx(context.Context, int64, func(repository.LoanRepository, *domain.Loan) error) error {
	return repository.ErrNestedTx
}

// MemoryLoanCache is an in-process LoanCache that follows the same
// overwrite rules as the Redis implementation.
type MemoryLoanCache struct {
	mu      sync.Mutex
	entries map[int64]cache.Entry
}

func NewMemoryLoanCache() *MemoryLoanCache {
	return &MemoryLoanCache{entries: make(map[int64]cache.Entry)}
}

func (c *MemoryLoanCache) Get(_ context.Context, loanID int64, today civil.Date) (*cache.CachedLoan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[loanID]
	if !ok {
		return nil, nil
	}
	return e.Lookup(today), nil
}

func (c *MemoryLoanCache) Set(_ context.Context, loanID int64, today civil.Date, cached *cache.CachedLoan) error {
	c.put(loanID, cache.NewEntry(today, cached))
	return nil
}

func (c *MemoryLoanCache) Invalidate(_ context.Context, loanID int64, version time.Time) error {
	c.put(loanID, cache.Entry{Version: version})
	return nil
}

func (c *MemoryLoanCache) Delete(_ context.Context, loanID int64) error {
	c.put(loanID, cache.Entry{Deleted: true})
	return nil
}

func (c *MemoryLoanCache) put(loanID int64, next cache.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, ok := c.entries[loanID]; ok && !current.Accepts(next) {
		return
	}
	c.entries[loanID] = next
}
