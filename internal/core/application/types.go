package application

import (
	"github.com/equitas-foundation/multisigd/internal/core/domain"
)

const (
	MinPageSize     = 1
	DefaultPageSize = 100
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type TransactionInfo domain.Transaction

type Page domain.Page

// ListFilters restricts a transactions listing, empty fields match
// everything. Status and Network are validated before hitting the
// repository.
type ListFilters struct {
	PublicKey string
	Status    string
	Network   string
}
