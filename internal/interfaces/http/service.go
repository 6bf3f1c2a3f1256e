package http_interface

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	appconfig "github.com/equitas-foundation/multisigd/internal/app-config"
	http_handler "github.com/equitas-foundation/multisigd/internal/interfaces/http/handler"
)

const shutdownTimeout = 5 * time.Second

type service struct {
	config     ServiceConfig
	appConfig  *appconfig.AppConfig
	httpServer *http.Server

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewService(config ServiceConfig, appConfig *appconfig.AppConfig) (*service, error) {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("service: %s", format)
		log.Infof(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	return &service{config, appConfig, nil, logFn, warnFn}, nil
}

func (s *service) Start() error {
	s.appConfig.SweeperService().Start()
	s.log("started transaction sweeper")

	s.httpServer = &http.Server{
		Addr:    s.config.address(),
		Handler: s.router(),
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.warn(err, "http server exited")
		}
	}()

	s.log("start listening on %s", s.config.address())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	//nolint
	s.httpServer.Shutdown(ctx)
	s.log("stopped http server")

	s.appConfig.SweeperService().Stop()
	s.log("stopped transaction sweeper")

	s.appConfig.RepoManager().Close()
	s.log("closed connection with db")
	s.log("shutdown")
}

func (s *service) router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(100, 1*time.Minute))

	txHandler := http_handler.NewTransactionHandler(s.appConfig.TransactionService())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/transactions", txHandler.Create)
		r.Get("/transactions", txHandler.List)
		r.Get("/transactions/{id}", txHandler.Get)
		r.Put("/transactions/{id}/signature", txHandler.Sign)
		r.Delete("/transactions/{id}", txHandler.Delete)
	})
	s.log("registered transaction handler on public interface")

	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func (s *service) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	info := s.appConfig.BuildInfo()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(
		w, `{"status":"ok","version":%q,"commit":%q,"date":%q}`,
		info.Version, info.Commit, info.Date,
	)
}

func (s *service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  ww.Status(),
			"elapsed": time.Since(start).String(),
			"reqId":   middleware.GetReqID(r.Context()),
		}).Debug("request served")
	})
}
