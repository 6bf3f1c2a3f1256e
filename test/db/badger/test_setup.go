package badgertest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/equitas-foundation/multisigd/internal/core/ports"
	dbbadger "github.com/equitas-foundation/multisigd/internal/infrastructure/storage/db/badger"
)

var (
	ctx = context.Background()

	badgerRepoManager ports.RepoManager
)

type BadgerDbTestSuite struct {
	suite.Suite
}

func (b *BadgerDbTestSuite) BeforeTest(suiteName, testName string) {
	// empty datadir makes badger run in-memory
	rm, err := dbbadger.NewRepoManager("", nil)
	b.Require().NoError(err)
	badgerRepoManager = rm
}

func (b *BadgerDbTestSuite) AfterTest(suiteName, testName string) {
	badgerRepoManager.Close()
}
