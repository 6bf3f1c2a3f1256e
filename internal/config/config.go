package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the key to customize the multisigd datadir.
	DatadirKey = "DATADIR"
	// DatabaseTypeKey is the key to customize the type of database to use.
	DatabaseTypeKey = "DATABASE_TYPE"
	// PortKey is the key to customize the port where the coordinator will be
	// listening to.
	PortKey = "PORT"
	// ProfilerPortKey is the key to customize the port where the profiler
	// will be listening to.
	ProfilerPortKey = "PROFILER_PORT"
	// LogLevelKey is the key to customize the log level to catch more
	// specific or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// NoProfilerKey is the key to disable profiling.
	NoProfilerKey = "NO_PROFILER"
	// StatsIntervalKey is the key to customize the interval for the profiler
	// to gather profiling stats.
	StatsIntervalKey = "STATS_INTERVAL"
	// SweepIntervalKey is the key to customize how often the sweeper scans
	// the stored transactions.
	SweepIntervalKey = "SWEEP_INTERVAL_IN_SECONDS"
	// SubmissionWindowKey is the key to customize the timespan after its
	// start date within which a signed transaction is submitted to the
	// ledger instead of being expired.
	SubmissionWindowKey = "SUBMISSION_WINDOW_IN_SECONDS"
	// SubmissionTimeoutKey is the key to customize the timeout of a single
	// ledger submission.
	SubmissionTimeoutKey = "SUBMISSION_TIMEOUT_IN_SECONDS"
	// SweepPageSizeKey is the key to customize the number of transactions
	// fetched from the db at once during a sweep.
	SweepPageSizeKey = "SWEEP_PAGE_SIZE"
	// RetainFailedSubmissionsKey is the key to make the sweeper retain a
	// transaction whose submission failed, marked with the ERROR status,
	// instead of deleting it.
	RetainFailedSubmissionsKey = "RETAIN_FAILED_SUBMISSIONS"
	// LedgerRpcAddrKey is the key to set the address of the ledger gateway
	// consumed to submit fully-signed transactions.
	LedgerRpcAddrKey = "LEDGER_RPC_ADDR"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
	// ProfilerLocation is the folder inside the datadir containing profiler
	// stats files.
	ProfilerLocation = "stats"
	// DbUserKey is user used to connect to db.
	DbUserKey = "DB_USER"
	// DbPassKey is password used to connect to db.
	DbPassKey = "DB_PASS"
	// DbHostKey is host where db is installed.
	DbHostKey = "DB_HOST"
	// DbPortKey is port on which db is listening.
	DbPortKey = "DB_PORT"
	// DbNameKey is name of database.
	DbNameKey = "DB_NAME"
	// DbMigrationPath is the path to migration files.
	DbMigrationPath = "DB_MIGRATION_PATH"
)

var (
	vip *viper.Viper

	defaultDatadir           = btcutil.AppDataDir("multisigd", false)
	defaultDbType            = "badger"
	defaultPort              = 18000
	defaultProfilerPort      = 18001
	defaultLogLevel          = 4
	defaultStatsInterval     = 600 // 10 minutes
	defaultSweepInterval     = 30
	defaultSubmissionWindow  = 180
	defaultSubmissionTimeout = 30
	defaultSweepPageSize     = 100
	defaultLedgerRpcAddr     = "http://localhost:50211"

	SupportedDbs = supportedType{
		"badger":   {},
		"inmemory": {},
		"postgres": {},
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("MULTISIG")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DatabaseTypeKey, defaultDbType)
	vip.SetDefault(PortKey, defaultPort)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(NoProfilerKey, false)
	vip.SetDefault(ProfilerPortKey, defaultProfilerPort)
	vip.SetDefault(StatsIntervalKey, defaultStatsInterval)
	vip.SetDefault(SweepIntervalKey, defaultSweepInterval)
	vip.SetDefault(SubmissionWindowKey, defaultSubmissionWindow)
	vip.SetDefault(SubmissionTimeoutKey, defaultSubmissionTimeout)
	vip.SetDefault(SweepPageSizeKey, defaultSweepPageSize)
	vip.SetDefault(RetainFailedSubmissionsKey, false)
	vip.SetDefault(LedgerRpcAddrKey, defaultLedgerRpcAddr)
	vip.SetDefault(DbUserKey, "root")
	vip.SetDefault(DbPassKey, "secret")
	vip.SetDefault(DbHostKey, "127.0.0.1")
	vip.SetDefault(DbPortKey, 5432)
	vip.SetDefault(DbNameKey, "multisigd-db-pg")
	vip.SetDefault(DbMigrationPath, "file://internal/infrastructure/storage/db/postgres/migration")

	if err := validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	if err := initDatadir(); err != nil {
		log.Fatalf("config: error while creating datadir: %s", err)
	}
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	dbType := GetString(DatabaseTypeKey)
	if _, ok := SupportedDbs[dbType]; !ok {
		return fmt.Errorf("unsupported database type, must be one of %s", SupportedDbs)
	}

	if GetInt(SweepIntervalKey) <= 0 {
		return fmt.Errorf("sweep interval must be a positive amount of seconds")
	}
	if GetInt(SubmissionWindowKey) <= 0 {
		return fmt.Errorf("submission window must be a positive amount of seconds")
	}
	if GetInt(SubmissionTimeoutKey) <= 0 {
		return fmt.Errorf("submission timeout must be a positive amount of seconds")
	}
	if GetInt(SweepPageSizeKey) <= 0 {
		return fmt.Errorf("sweep page size must be positive")
	}

	port := GetInt(PortKey)
	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		profilerPort := GetInt(ProfilerPortKey)
		if port == profilerPort {
			return fmt.Errorf("port and profiler port must not be equal")
		}
	}

	return nil
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func Set(key string, val interface{}) {
	vip.Set(key, val)
}

func Unset(key string) {
	vip.Set(key, nil)
}

func IsSet(key string) bool {
	return vip.IsSet(key)
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return fmt.Sprintf("%v", types)
}
