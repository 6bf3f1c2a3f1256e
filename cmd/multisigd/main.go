package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	appconfig "github.com/equitas-foundation/multisigd/internal/app-config"
	"github.com/equitas-foundation/multisigd/internal/config"
	postgresdb "github.com/equitas-foundation/multisigd/internal/infrastructure/storage/db/postgres"
	"github.com/equitas-foundation/multisigd/internal/interfaces"
	http_interface "github.com/equitas-foundation/multisigd/internal/interfaces/http"
	"github.com/equitas-foundation/multisigd/pkg/profiler"
)

var (
	// Build info.
	version string
	commit  string
	date    string

	// Config from env vars.
	dbType                  = config.GetString(config.DatabaseTypeKey)
	logLevel                = config.GetInt(config.LogLevelKey)
	datadir                 = config.GetDatadir()
	port                    = config.GetInt(config.PortKey)
	profilerPort            = config.GetInt(config.ProfilerPortKey)
	noProfiler              = config.GetBool(config.NoProfilerKey)
	dbDir                   = filepath.Join(datadir, config.DbLocation)
	profilerDir             = filepath.Join(datadir, config.ProfilerLocation)
	statsInterval           = time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
	ledgerRpcAddr           = config.GetString(config.LedgerRpcAddrKey)
	sweepInterval           = time.Duration(config.GetInt(config.SweepIntervalKey)) * time.Second
	submissionWindow        = time.Duration(config.GetInt(config.SubmissionWindowKey)) * time.Second
	submissionTimeout       = time.Duration(config.GetInt(config.SubmissionTimeoutKey)) * time.Second
	sweepPageSize           = config.GetInt(config.SweepPageSizeKey)
	retainFailedSubmissions = config.GetBool(config.RetainFailedSubmissionsKey)
)

func main() {
	log.SetLevel(log.Level(logLevel))

	if profilerEnabled := !noProfiler; profilerEnabled {
		profilerSvc, err := profiler.NewService(profiler.ServiceOpts{
			Port:          profilerPort,
			StatsInterval: statsInterval,
			Datadir:       profilerDir,
		})
		if err != nil {
			log.WithError(err).Fatal("profiler: error while starting")
		}

		profilerSvc.Start()
		defer func() {
			profilerSvc.Stop()
		}()
	}

	repoManagerConfig := interface{}(dbDir)
	if dbType == "postgres" {
		repoManagerConfig = postgresdb.DbConfig{
			DbUser:             config.GetString(config.DbUserKey),
			DbPassword:         config.GetString(config.DbPassKey),
			DbHost:             config.GetString(config.DbHostKey),
			DbPort:             config.GetInt(config.DbPortKey),
			DbName:             config.GetString(config.DbNameKey),
			MigrationSourceURL: config.GetString(config.DbMigrationPath),
		}
	}

	serviceCfg := http_interface.ServiceConfig{
		Port: port,
	}
	appCfg := &appconfig.AppConfig{
		Version:                 version,
		Commit:                  commit,
		Date:                    date,
		RepoManagerType:         dbType,
		RepoManagerConfig:       repoManagerConfig,
		LedgerRpcAddr:           ledgerRpcAddr,
		SweepInterval:           sweepInterval,
		SubmissionWindow:        submissionWindow,
		SubmissionTimeout:       submissionTimeout,
		SweepPageSize:           sweepPageSize,
		RetainFailedSubmissions: retainFailedSubmissions,
	}

	serviceManager, err := interfaces.NewHttpServiceManager(serviceCfg, appCfg)
	if err != nil {
		log.WithError(err).Fatal("service: error while initializing")
	}
	defer func() {
		serviceManager.Service.Stop()
	}()

	if err := serviceManager.Service.Start(); err != nil {
		log.WithError(err).Fatal("service: error while starting")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
}
