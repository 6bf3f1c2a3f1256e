package inmemorytest

import dbtest "github.com/equitas-foundation/multisigd/test/db"

func (i *InMemoryDbTestSuite) TestTransactionRepository() {
	dbtest.TestTransactionRepository(
		i.T(), ctx, inMemoryRepoManager.TransactionRepository(),
	)
}
