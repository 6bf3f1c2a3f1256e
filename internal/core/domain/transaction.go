package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSigned  TransactionStatus = "SIGNED"
	TransactionStatusExpired TransactionStatus = "EXPIRED"
	TransactionStatusError   TransactionStatus = "ERROR"
)

var (
	ErrTransactionMissingPayload   = fmt.Errorf("missing transaction payload")
	ErrTransactionMissingAccount   = fmt.Errorf("missing account id")
	ErrTransactionMissingKeyList   = fmt.Errorf("missing key list")
	ErrTransactionInvalidThreshold = fmt.Errorf("threshold must not be negative")
	ErrTransactionInvalidNetwork   = fmt.Errorf("unknown network")
	ErrTransactionInvalidStatus    = fmt.Errorf("unknown transaction status")
	ErrTransactionInvalidId        = fmt.Errorf("invalid transaction id format")
	ErrTransactionNotFound         = fmt.Errorf("transaction not found")
	ErrTransactionExpired          = fmt.Errorf("transaction already expired")
	ErrTransactionUnauthorizedKey  = fmt.Errorf("unauthorized key")
	ErrTransactionInvalidSignature = fmt.Errorf("invalid signature")

	Networks = map[string]struct{}{
		"mainnet":    {},
		"testnet":    {},
		"previewnet": {},
	}

	transactionStatuses = map[TransactionStatus]struct{}{
		TransactionStatusPending: {},
		TransactionStatusSigned:  {},
		TransactionStatusExpired: {},
		TransactionStatusError:   {},
	}
)

type TransactionStatus string

func (s TransactionStatus) IsValid() bool {
	_, ok := transactionStatuses[s]
	return ok
}

// Signer is a public key that produced a valid signature over a transaction
// payload, paired with the signature itself.
type Signer struct {
	PublicKey string
	Signature string
}

// Transaction is the data structure representing a serialized ledger
// transaction waiting for a threshold number of its key list to sign it.
// The payload is an opaque hex-encoded blob, the coordinator never
// interprets it.
type Transaction struct {
	Id          string
	Payload     string
	Description string
	AccountId   string
	Network     string
	KeyList     []string
	Threshold   int
	Signers     []Signer
	Status      TransactionStatus
	StartDate   time.Time
}

// NewTransaction returns a new pending Transaction with a random id and the
// current time as start date. The key list is deduplicated preserving order,
// a threshold of 0 - or one exceeding the size of the key list - is coerced
// to the size of the key list, ie. every key must sign.
func NewTransaction(
	payload, description, accountId, network string,
	keyList []string, threshold int,
) (*Transaction, error) {
	if len(payload) == 0 {
		return nil, ErrTransactionMissingPayload
	}
	if len(accountId) == 0 {
		return nil, ErrTransactionMissingAccount
	}
	if _, ok := Networks[network]; !ok {
		return nil, ErrTransactionInvalidNetwork
	}
	keys := dedupKeys(keyList)
	if len(keys) == 0 {
		return nil, ErrTransactionMissingKeyList
	}
	if threshold < 0 {
		return nil, ErrTransactionInvalidThreshold
	}
	if threshold == 0 || threshold > len(keys) {
		threshold = len(keys)
	}

	return &Transaction{
		Id:          uuid.NewString(),
		Payload:     payload,
		Description: description,
		AccountId:   accountId,
		Network:     network,
		KeyList:     keys,
		Threshold:   threshold,
		Status:      TransactionStatusPending,
		StartDate:   time.Now().UTC(),
	}, nil
}

// IsAuthorizedKey returns whether the given public key belongs to the key
// list of the tx.
func (t *Transaction) IsAuthorizedKey(pubKey string) bool {
	for _, k := range t.KeyList {
		if k == pubKey {
			return true
		}
	}
	return false
}

// HasSigned returns whether the given public key already produced a valid
// signature for the tx.
func (t *Transaction) HasSigned(pubKey string) bool {
	for _, s := range t.Signers {
		if s.PublicKey == pubKey {
			return true
		}
	}
	return false
}

// AddSignature appends the given (pubKey, signature) pair to the list of
// signers and promotes the tx to SIGNED once the number of collected
// signatures meets the threshold. A tx is never demoted back to PENDING.
func (t *Transaction) AddSignature(pubKey, sig string) {
	t.Signers = append(t.Signers, Signer{PublicKey: pubKey, Signature: sig})
	if t.Status == TransactionStatusPending && len(t.Signers) >= t.Threshold {
		t.Status = TransactionStatusSigned
	}
}

// IsTerminal returns whether the tx reached a final status and must not
// accept signatures anymore.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusExpired ||
		t.Status == TransactionStatusError
}

// Expire marks the tx as expired, whatever its current non-terminal status.
func (t *Transaction) Expire() {
	if t.IsTerminal() {
		return
	}
	t.Status = TransactionStatusExpired
}

// MarkError marks the tx as failed after an unsuccessful ledger submission.
func (t *Transaction) MarkError() {
	if t.IsTerminal() {
		return
	}
	t.Status = TransactionStatusError
}

// IsWithinWindow returns whether the tx start date falls inside the
// submission window ending at now, upper bound included.
func (t *Transaction) IsWithinWindow(now time.Time, window time.Duration) bool {
	cutoff := now.Add(-window)
	return t.StartDate.After(cutoff) && !t.StartDate.After(now)
}

// SignedKeys returns the public keys of the signers in signing order.
func (t *Transaction) SignedKeys() []string {
	keys := make([]string, 0, len(t.Signers))
	for _, s := range t.Signers {
		keys = append(keys, s.PublicKey)
	}
	return keys
}

// Signatures returns the collected signatures in signing order, pairing
// SignedKeys by index.
func (t *Transaction) Signatures() []string {
	sigs := make([]string, 0, len(t.Signers))
	for _, s := range t.Signers {
		sigs = append(sigs, s.Signature)
	}
	return sigs
}

func dedupKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	deduped := make([]string, 0, len(keys))
	for _, k := range keys {
		if len(k) == 0 {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		deduped = append(deduped, k)
	}
	return deduped
}
