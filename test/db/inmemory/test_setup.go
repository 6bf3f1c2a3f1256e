package inmemorytest

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/equitas-foundation/multisigd/internal/core/ports"
	"github.com/equitas-foundation/multisigd/internal/infrastructure/storage/db/inmemory"
)

var (
	ctx = context.Background()

	inMemoryRepoManager ports.RepoManager
)

type InMemoryDbTestSuite struct {
	suite.Suite
}

func (i *InMemoryDbTestSuite) BeforeTest(suiteName, testName string) {
	inMemoryRepoManager = inmemory.NewRepoManager()
}

func (i *InMemoryDbTestSuite) AfterTest(suiteName, testName string) {
	inMemoryRepoManager.Close()
}
