package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ingestionhandler "github.com/azcops/azcops/pkg/handlers/ingestion"
	recommendationhandler "github.com/azcops/azcops/pkg/handlers/recommendation"
	azcopsmiddleware "github.com/azcops/azcops/pkg/server/middleware"
	"github.com/azcops/azcops/pkg/services/ingestion"
	"github.com/azcops/azcops/pkg/services/recommendation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
}

type Dependencies struct {
	Recommendations recommendation.Service
	Ingestion       ingestionhandler.Runner
	Logger          zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	// IngestionDefaults seed every triggered run; the request's query
	// parameters can override the mode and lookback.
	IngestionDefaults ingestion.Options
	Dependencies      Dependencies
}

func ConfigureRouter(config Config) *chi.Mux {
	recHandler := recommendationhandler.NewHandler(config.Dependencies.Recommendations)
	ingHandler := ingestionhandler.NewHandler(config.Dependencies.Ingestion, config.IngestionDefaults)

	router := chi.NewRouter()

	router.Use(azcopsmiddleware.CorrelationID)
	router.Use(azcopsmiddleware.Logger(&config.Dependencies.Logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingestion/run", ingHandler.Run)
		r.Get("/recommendations", recHandler.List)
		r.Get("/recommendations/{id}", recHandler.Get)
		r.Post("/recommendations/{id}/status", recHandler.Transition)
	})

	return router
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	config.Dependencies.Logger = logger
	router := ConfigureRouter(config)

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
