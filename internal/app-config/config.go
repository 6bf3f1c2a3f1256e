package appconfig

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/equitas-foundation/multisigd/internal/config"
	"github.com/equitas-foundation/multisigd/internal/core/application"
	"github.com/equitas-foundation/multisigd/internal/core/ports"
	rpc_submitter "github.com/equitas-foundation/multisigd/internal/infrastructure/ledger-submitter/rpc"
	dbbadger "github.com/equitas-foundation/multisigd/internal/infrastructure/storage/db/badger"
	"github.com/equitas-foundation/multisigd/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/equitas-foundation/multisigd/internal/infrastructure/storage/db/postgres"
)

// AppConfig is the struct holding all configuration options for every
// application service (transaction and sweeper).
// This data structure acts also as a factory of the mentioned application
// services and the portable services used by them.
// Public config args:
//   - RepoManagerType - (required) One of the supported repository manager types.
//   - RepoManagerConfig - (optional) Custom config args for the repository manager based on its type.
//   - LedgerRpcAddr - (required) Address of the ledger gateway where fully-signed transactions are submitted.
//   - SweepInterval - (required) How often the sweeper scans the stored transactions.
//   - SubmissionWindow - (required) Timespan after its start date within which a signed transaction can be submitted.
//   - SubmissionTimeout - (required) Timeout of a single ledger submission.
//   - SweepPageSize - (required) Number of transactions fetched from the db at once during a sweep.
//   - RetainFailedSubmissions - (optional) Whether transactions whose submission failed are retained instead of deleted.
type AppConfig struct {
	Version string
	Commit  string
	Date    string

	RepoManagerType   string
	RepoManagerConfig interface{}

	LedgerRpcAddr           string
	SweepInterval           time.Duration
	SubmissionWindow        time.Duration
	SubmissionTimeout       time.Duration
	SweepPageSize           int
	RetainFailedSubmissions bool

	rm         ports.RepoManager
	submitter  ports.LedgerSubmitter
	txSvc      *application.TransactionService
	sweeperSvc *application.SweeperService
}

func (c *AppConfig) Validate() error {
	if len(c.RepoManagerType) == 0 {
		return fmt.Errorf("missing repo manager type")
	}
	if _, ok := config.SupportedDbs[c.RepoManagerType]; !ok {
		return fmt.Errorf(
			"repo manager type not supported, must be one of: %s",
			config.SupportedDbs,
		)
	}
	if len(c.LedgerRpcAddr) == 0 {
		return fmt.Errorf("missing ledger rpc address")
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.ledgerSubmitter(); err != nil {
		return err
	}
	if _, err := c.sweeperService(); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) RepoManager() ports.RepoManager {
	return c.rm
}

func (c *AppConfig) LedgerSubmitter() ports.LedgerSubmitter {
	return c.submitter
}

func (c *AppConfig) TransactionService() *application.TransactionService {
	return c.transactionService()
}

func (c *AppConfig) SweeperService() *application.SweeperService {
	svc, _ := c.sweeperService()
	return svc
}

func (c *AppConfig) BuildInfo() application.BuildInfo {
	version := "dev"
	if c.Version != "" {
		version = c.Version
	}
	commit := "none"
	if c.Commit != "" {
		commit = c.Commit
	}
	date := "unknown"
	if c.Date != "" {
		date = c.Date
	}
	return application.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

func (c *AppConfig) repoManager() (ports.RepoManager, error) {
	if c.rm != nil {
		return c.rm, nil
	}

	switch c.RepoManagerType {
	case "inmemory":
		c.rm = inmemory.NewRepoManager()
		return c.rm, nil
	case "badger":
		if c.RepoManagerConfig == nil {
			return nil, fmt.Errorf("missing repo manager config args")
		}
		datadir, ok := c.RepoManagerConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be string")
		}
		rm, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.rm = rm
		return c.rm, nil
	case "postgres":
		dbConfig, ok := c.RepoManagerConfig.(postgresdb.DbConfig)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be postgresdb.DbConfig")
		}

		rm, err := postgresdb.NewRepoManager(dbConfig)
		if err != nil {
			return nil, err
		}

		c.rm = rm
		return c.rm, nil
	default:
		return nil, fmt.Errorf("unknown repo manager type")
	}
}

func (c *AppConfig) ledgerSubmitter() (ports.LedgerSubmitter, error) {
	if c.submitter != nil {
		return c.submitter, nil
	}

	submitter, err := rpc_submitter.NewService(c.LedgerRpcAddr)
	if err != nil {
		return nil, err
	}
	c.submitter = submitter
	return c.submitter, nil
}

func (c *AppConfig) transactionService() *application.TransactionService {
	if c.txSvc != nil {
		return c.txSvc
	}

	rm, _ := c.repoManager()
	c.txSvc = application.NewTransactionService(rm)
	return c.txSvc
}

func (c *AppConfig) sweeperService() (*application.SweeperService, error) {
	if c.sweeperSvc != nil {
		return c.sweeperSvc, nil
	}

	rm, _ := c.repoManager()
	submitter, err := c.ledgerSubmitter()
	if err != nil {
		return nil, err
	}
	svc, err := application.NewSweeperService(rm, submitter, application.SweeperConfig{
		Interval:                c.SweepInterval,
		Window:                  c.SubmissionWindow,
		SubmissionTimeout:       c.SubmissionTimeout,
		PageSize:                c.SweepPageSize,
		RetainFailedSubmissions: c.RetainFailedSubmissions,
	})
	if err != nil {
		return nil, err
	}
	c.sweeperSvc = svc
	return c.sweeperSvc, nil
}
