package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
	"github.com/equitas-foundation/multisigd/internal/core/ports"
	"github.com/equitas-foundation/multisigd/pkg/signature"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TransactionService is responsible for coordinating the off-chain signing
// of serialized ledger transactions:
//   - Create a transaction out of an opaque payload, a list of authorized public keys and a signing threshold.
//   - Accept one signature at a time, verifying it against the claimed public key and the tx payload before applying it.
//   - Get info about a single transaction or list them with optional filters.
//   - Delete a transaction that is not worth tracking anymore.
//
// Signature acceptance is idempotent per public key: a signer re-submitting
// an already applied signature gets the current state of the tx back, the
// signature is not double-counted.
type TransactionService struct {
	repoManager ports.RepoManager

	log func(format string, a ...interface{})
}

func NewTransactionService(repoManager ports.RepoManager) *TransactionService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("transaction service: %s", format)
		log.Debugf(format, a...)
	}
	svc := &TransactionService{repoManager, logFn}
	svc.registerHandlerForTxEvents()

	return svc
}

func (ts *TransactionService) CreateTransaction(
	ctx context.Context,
	payload, description, accountId, network string,
	keyList []string, threshold int,
) (*TransactionInfo, error) {
	tx, err := domain.NewTransaction(
		payload, description, accountId, network, keyList, threshold,
	)
	if err != nil {
		return nil, err
	}

	done, err := ts.repoManager.TransactionRepository().AddTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("transaction %s already exists", tx.Id)
	}

	ts.log(
		"created transaction %s with %d key(s) and threshold %d",
		tx.Id, len(tx.KeyList), tx.Threshold,
	)
	return (*TransactionInfo)(tx), nil
}

// SignTransaction verifies the given signature against the claimed public
// key and the tx payload, then applies it. The precondition checks and the
// append run within the repository update so that two signers racing on the
// same tx cannot clobber each other's signature.
func (ts *TransactionService) SignTransaction(
	ctx context.Context, txId, pubKey, sig string,
) (*TransactionInfo, error) {
	if err := validateTxId(txId); err != nil {
		return nil, err
	}

	var updatedTx *domain.Transaction
	if err := ts.repoManager.TransactionRepository().UpdateTransaction(
		ctx, txId, func(tx *domain.Transaction) (*domain.Transaction, error) {
			if tx.IsTerminal() {
				return nil, domain.ErrTransactionExpired
			}
			if !tx.IsAuthorizedKey(pubKey) {
				return nil, domain.ErrTransactionUnauthorizedKey
			}
			if tx.HasSigned(pubKey) {
				// idempotent re-submission, return the current state untouched
				updatedTx = tx
				return tx, nil
			}
			if !signature.Verify(pubKey, tx.Payload, sig) {
				return nil, domain.ErrTransactionInvalidSignature
			}

			tx.AddSignature(pubKey, sig)
			updatedTx = tx
			return tx, nil
		},
	); err != nil {
		return nil, err
	}

	ts.log(
		"transaction %s signed by %d of %d key(s), status %s",
		updatedTx.Id, len(updatedTx.Signers), updatedTx.Threshold, updatedTx.Status,
	)
	return (*TransactionInfo)(updatedTx), nil
}

func (ts *TransactionService) GetTransaction(
	ctx context.Context, txId string,
) (*TransactionInfo, error) {
	if err := validateTxId(txId); err != nil {
		return nil, err
	}

	tx, err := ts.repoManager.TransactionRepository().GetTransaction(ctx, txId)
	if err != nil {
		return nil, err
	}
	return (*TransactionInfo)(tx), nil
}

func (ts *TransactionService) ListTransactions(
	ctx context.Context, filters ListFilters, page Page,
) ([]TransactionInfo, int, error) {
	filter, err := parseFilters(filters)
	if err != nil {
		return nil, -1, err
	}
	if page.Size < MinPageSize {
		page.Size = DefaultPageSize
	}
	if page.Number < 1 {
		page.Number = 1
	}

	txs, totalPages, err := ts.repoManager.TransactionRepository().
		GetAllTransactions(ctx, filter, domain.Page(page))
	if err != nil {
		return nil, -1, err
	}

	list := make([]TransactionInfo, 0, len(txs))
	for i := range txs {
		list = append(list, TransactionInfo(txs[i]))
	}
	return list, totalPages, nil
}

func (ts *TransactionService) DeleteTransaction(
	ctx context.Context, txId string,
) error {
	if err := validateTxId(txId); err != nil {
		return err
	}

	if _, err := ts.repoManager.TransactionRepository().GetTransaction(
		ctx, txId,
	); err != nil {
		return err
	}
	return ts.repoManager.TransactionRepository().DeleteTransaction(ctx, txId)
}

func (ts *TransactionService) registerHandlerForTxEvents() {
	ts.repoManager.RegisterHandlerForTxEvent(
		domain.TransactionSigned, func(event domain.TransactionEvent) {
			ts.log(
				"transaction %s collected the required %d signature(s)",
				event.Transaction.Id, event.Transaction.Threshold,
			)
		},
	)
}

func validateTxId(txId string) error {
	if _, err := uuid.Parse(txId); err != nil {
		return domain.ErrTransactionInvalidId
	}
	return nil
}

func parseFilters(filters ListFilters) (domain.TransactionFilter, error) {
	filter := domain.TransactionFilter{PublicKey: filters.PublicKey}
	if len(filters.Status) > 0 {
		status := domain.TransactionStatus(strings.ToUpper(filters.Status))
		if !status.IsValid() {
			return filter, domain.ErrTransactionInvalidStatus
		}
		filter.Status = status
	}
	if len(filters.Network) > 0 {
		network := strings.ToLower(filters.Network)
		if _, ok := domain.Networks[network]; !ok {
			return filter, domain.ErrTransactionInvalidNetwork
		}
		filter.Network = network
	}
	return filter, nil
}
