package badgertest

import dbtest "github.com/equitas-foundation/multisigd/test/db"

func (b *BadgerDbTestSuite) TestTransactionRepository() {
	dbtest.TestTransactionRepository(
		b.T(), ctx, badgerRepoManager.TransactionRepository(),
	)
}
