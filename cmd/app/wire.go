//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanqian/exoplanet-classifier/internal/bootstrap"
	"github.com/yanqian/exoplanet-classifier/internal/domain/batch"
	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	"github.com/yanqian/exoplanet-classifier/internal/infra/backend"
	"github.com/yanqian/exoplanet-classifier/internal/infra/config"
	httpiface "github.com/yanqian/exoplanet-classifier/internal/interface/http"
	"github.com/yanqian/exoplanet-classifier/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		provideLoggerOptions,
		logger.New,
		provideBackendConfig,
		backend.NewTransport,
		backend.NewClient,
		provideKeepAlive,
		provideClassifierConfig,
		provideBatchConfig,
		provideValkeyClient,
		providePostgresPool,
		provideHistoryStore,
		provideObjectStorage,
		provideJobStore,
		provideJobQueue,
		provideBatchQueue,
		provideRelayHandler,
		provideMetricsRegistry,
		classifier.NewService,
		batch.NewService,
		wire.Bind(new(classifier.Backend), new(*backend.Client)),
		wire.Bind(new(classifier.Predictor), new(*backend.Client)),
		wire.Bind(new(batch.CSVUploader), new(*backend.Client)),
		wire.Bind(new(httpiface.BatchService), new(*batch.Service)),
		wire.Bind(new(bootstrap.BatchProcessor), new(*batch.Service)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
