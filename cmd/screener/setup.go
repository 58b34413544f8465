package main

import (
	"go.uber.org/zap"

	"PivotScreener/internal/collector"
	"PivotScreener/internal/config"
	"PivotScreener/internal/logger"
	"PivotScreener/internal/recorder"
	"PivotScreener/internal/snapshot"
	"PivotScreener/internal/universe"
)

func newUniverse(cfg *config.Config) universe.Provider {
	if len(cfg.Universe.Symbols) > 0 {
		return universe.NewStaticProvider(cfg.Universe.Symbols, cfg.Universe.Suffix)
	}
	return universe.NewNSEProvider(cfg.Universe.URL, cfg.Universe.Suffix, cfg.Universe.UserAgent, cfg.Proxy)
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	if cfg.DataSource.BaseURL != "" {
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	}
	return collector.NewYahooFetcher(cfg.Proxy)
}

// newPersister uses the file backend when Redis is unreachable at boot.
func newPersister(cfg *config.Config, log *zap.Logger) (snapshot.Persister, func() error) {
	log = logger.OrDefault(log)
	if cfg.Snapshot.Backend == config.BackendRedis {
		rp, err := snapshot.NewRedisPersister(cfg.Snapshot.RedisAddr, cfg.Snapshot.RedisKey)
		if err == nil {
			return rp, rp.Close
		}
		log.Warn("redis snapshot backend unavailable, using file",
			zap.String("redis_addr", cfg.Snapshot.RedisAddr),
			zap.String("file", cfg.Snapshot.File),
			zap.Error(err))
	}
	return snapshot.NewFilePersister(cfg.Snapshot.File), func() error { return nil }
}

func newRecorder(cfg *config.Config, log *zap.Logger) recorder.Recorder {
	log = logger.OrDefault(log)
	if !cfg.RecorderEnabled() {
		log.Info("cycle recorder disabled")
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return sr
}
