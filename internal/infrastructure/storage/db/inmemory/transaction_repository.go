package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
)

type txInmemoryStore struct {
	txs  map[string]*domain.Transaction
	lock *sync.RWMutex
}

type txRepository struct {
	store            *txInmemoryStore
	chEvents         chan domain.TransactionEvent
	externalChEvents chan domain.TransactionEvent
	chLock           *sync.Mutex
}

func NewTransactionRepository() domain.TransactionRepository {
	return newTransactionRepository()
}

func newTransactionRepository() *txRepository {
	return &txRepository{
		store: &txInmemoryStore{
			txs:  make(map[string]*domain.Transaction),
			lock: &sync.RWMutex{},
		},
		chEvents:         make(chan domain.TransactionEvent),
		externalChEvents: make(chan domain.TransactionEvent),
		chLock:           &sync.Mutex{},
	}
}

func (r *txRepository) AddTransaction(
	ctx context.Context, tx *domain.Transaction,
) (bool, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	return r.addTx(ctx, tx)
}

func (r *txRepository) GetTransaction(
	ctx context.Context, txId string,
) (*domain.Transaction, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getTx(ctx, txId)
}

func (r *txRepository) UpdateTransaction(
	ctx context.Context, txId string,
	updateFn func(tx *domain.Transaction) (*domain.Transaction, error),
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	tx, err := r.getTx(ctx, txId)
	if err != nil {
		return err
	}

	prevStatus := tx.Status
	updatedTx, err := updateFn(tx)
	if err != nil {
		return err
	}

	r.store.txs[txId] = updatedTx

	if event, ok := statusChangeEvent(prevStatus, updatedTx); ok {
		go r.publishEvent(event)
	}
	return nil
}

func (r *txRepository) GetAllTransactions(
	ctx context.Context, filter domain.TransactionFilter, page domain.Page,
) ([]domain.Transaction, int, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	matched := make([]domain.Transaction, 0, len(r.store.txs))
	for _, tx := range r.store.txs {
		if matchesFilter(tx, filter) {
			matched = append(matched, *tx)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartDate.Equal(matched[j].StartDate) {
			return matched[i].Id < matched[j].Id
		}
		return matched[i].StartDate.Before(matched[j].StartDate)
	})

	totalPages := page.TotalPages(len(matched))
	start := page.Offset()
	if start >= len(matched) {
		return nil, totalPages, nil
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], totalPages, nil
}

func (r *txRepository) DeleteTransaction(
	ctx context.Context, txId string,
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	tx, err := r.getTx(ctx, txId)
	if err != nil {
		return err
	}

	delete(r.store.txs, txId)

	go r.publishEvent(domain.TransactionEvent{
		EventType:   domain.TransactionDeleted,
		Transaction: tx,
	})
	return nil
}

func (r *txRepository) GetEventChannel() chan domain.TransactionEvent {
	return r.externalChEvents
}

func (r *txRepository) addTx(
	_ context.Context, tx *domain.Transaction,
) (bool, error) {
	if _, ok := r.store.txs[tx.Id]; ok {
		return false, nil
	}

	r.store.txs[tx.Id] = tx

	go r.publishEvent(domain.TransactionEvent{
		EventType:   domain.TransactionAdded,
		Transaction: tx,
	})

	return true, nil
}

func (r *txRepository) getTx(
	_ context.Context, txId string,
) (*domain.Transaction, error) {
	tx, ok := r.store.txs[txId]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

func (r *txRepository) publishEvent(event domain.TransactionEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *txRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.txs = make(map[string]*domain.Transaction)
}

func (r *txRepository) close() {
	close(r.chEvents)
	close(r.externalChEvents)
}

func matchesFilter(tx *domain.Transaction, filter domain.TransactionFilter) bool {
	if len(filter.PublicKey) > 0 && !tx.IsAuthorizedKey(filter.PublicKey) {
		return false
	}
	if len(filter.Status) > 0 && tx.Status != filter.Status {
		return false
	}
	if len(filter.Network) > 0 && tx.Network != filter.Network {
		return false
	}
	return true
}

func statusChangeEvent(
	prevStatus domain.TransactionStatus, tx *domain.Transaction,
) (domain.TransactionEvent, bool) {
	if tx.Status == prevStatus {
		return domain.TransactionEvent{}, false
	}
	switch tx.Status {
	case domain.TransactionStatusSigned:
		return domain.TransactionEvent{
			EventType:   domain.TransactionSigned,
			Transaction: tx,
		}, true
	case domain.TransactionStatusExpired:
		return domain.TransactionEvent{
			EventType:   domain.TransactionExpired,
			Transaction: tx,
		}, true
	}
	return domain.TransactionEvent{}, false
}
