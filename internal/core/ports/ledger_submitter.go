package ports

import (
	"context"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
)

// LedgerSubmitter is the abstraction for any kind of client able to forward
// a fully-signed transaction to the target ledger network.
type LedgerSubmitter interface {
	// Submit deserializes the hex payload into a native ledger transaction,
	// attaches every (public key, signature) pair in order and executes it
	// against the named network. It returns whether the ledger accepted the
	// transaction; a non-nil error means the submission could not be carried
	// out at all, which is distinguishable from a ledger rejection.
	Submit(
		ctx context.Context, network, payload string, signers []domain.Signer,
	) (bool, error)
}
