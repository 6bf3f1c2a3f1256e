package domain

import "context"

const (
	TransactionAdded TransactionEventType = iota
	TransactionSigned
	TransactionExpired
	TransactionDeleted
)

var (
	txTypeString = map[TransactionEventType]string{
		TransactionAdded:   "TransactionAdded",
		TransactionSigned:  "TransactionSigned",
		TransactionExpired: "TransactionExpired",
		TransactionDeleted: "TransactionDeleted",
	}
)

type TransactionEventType int

func (t TransactionEventType) String() string {
	return txTypeString[t]
}

// TransactionEvent holds info about an event occured within the repository.
type TransactionEvent struct {
	EventType   TransactionEventType
	Transaction *Transaction
}

// Page defines a 1-based page of a listing.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages returns the number of pages of this size needed to hold count
// items. A non-positive size counts as 1, a zero-value Page is harmless.
func (p Page) TotalPages(count int) int {
	size := p.Size
	if size < 1 {
		size = 1
	}
	return (count + size - 1) / size
}

// TransactionFilter restricts a listing to the transactions matching all of
// its non-empty fields.
type TransactionFilter struct {
	// PublicKey matches transactions whose key list contains the key.
	PublicKey string
	Status    TransactionStatus
	Network   string
}

// TransactionRepository is the abstraction for any kind of database intended
// to persist Transactions.
// The list of signers must be persisted as an ordered collection: the order
// pairs keys and signatures by index and is load-bearing for the ledger
// submission.
type TransactionRepository interface {
	// AddTransaction persists the provided transaction by preventing
	// duplicates.
	// Generates a TransactionAdded event if successful.
	AddTransaction(ctx context.Context, tx *Transaction) (bool, error)
	// GetTransaction returns the Transaction identified by the given id, or
	// ErrTransactionNotFound.
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	// UpdateTransaction commits the changes made by updateFn to the
	// Transaction identified by the given id as a single atomic update.
	// Concurrent updates to the same transaction must be linearized.
	// Generates a TransactionSigned or TransactionExpired event if the
	// update changed the tx status accordingly.
	UpdateTransaction(
		ctx context.Context, id string,
		updateFn func(tx *Transaction) (*Transaction, error),
	) error
	// GetAllTransactions returns the page of transactions matching the given
	// filter, sorted by start date, along with the total number of pages.
	// A zero-value filter matches every transaction.
	GetAllTransactions(
		ctx context.Context, filter TransactionFilter, page Page,
	) ([]Transaction, int, error)
	// DeleteTransaction removes the Transaction identified by the given id
	// from the repository.
	// Generates a TransactionDeleted event if successful.
	DeleteTransaction(ctx context.Context, id string) error
	// GetEventChannel returns the channel of TransactionEvents.
	GetEventChannel() chan TransactionEvent
}
