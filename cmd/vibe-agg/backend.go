package main

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-agg/internal/aggregate"
	"github.com/inodb/vibe-agg/internal/duckdb"
	"github.com/inodb/vibe-agg/internal/resultcache"
	"github.com/inodb/vibe-agg/internal/search"
	"github.com/inodb/vibe-agg/internal/search/elastic"
)

// cacheKeyPrefix namespaces aggregate results in a shared store.
const cacheKeyPrefix = "vibe-agg:v1:"

// openSearcher opens the configured search backend. The returned close
// function releases it.
func openSearcher(v *viper.Viper, logger *zap.Logger) (search.Searcher, func() error, error) {
	switch backend := v.GetString(searchBackendKey); backend {
	case backendElasticsearch:
		c, err := elastic.New(elastic.Config{
			URL:        v.GetString(esURLKey),
			Username:   v.GetString(esUsernameKey),
			Password:   v.GetString(esPasswordKey),
			MaxRetries: v.GetInt(esMaxRetriesKey),
		})
		if err != nil {
			return nil, nil, err
		}
		c.SetLogger(logger)
		return c, func() error { return nil }, nil

	case backendDuckDB:
		s, err := duckdb.Open(v.GetString(duckdbPathKey))
		if err != nil {
			return nil, nil, err
		}
		s.SetLogger(logger)
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown search backend %q (want %s or %s)", backend, backendElasticsearch, backendDuckDB)
	}
}

// openCache opens the configured result cache, or returns nil when caching
// is disabled. A DuckDB cache at the path of shared reuses that store.
func openCache(v *viper.Viper, logger *zap.Logger, shared search.Searcher) (*resultcache.Cache, func() error, error) {
	noop := func() error { return nil }
	if !v.GetBool(cacheEnabledKey) {
		return nil, noop, nil
	}

	var (
		store   resultcache.Store
		closeFn = noop
	)
	switch backend := v.GetString(cacheBackendKey); backend {
	case backendMemory:
		store = resultcache.NewMemoryStore()
	case backendDuckDB:
		if s, ok := shared.(*duckdb.Store); ok && v.GetString(cachePathKey) == v.GetString(duckdbPathKey) {
			store = s
			break
		}
		s, err := duckdb.Open(v.GetString(cachePathKey))
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		store, closeFn = s, s.Close
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q (want %s or %s)", backend, backendMemory, backendDuckDB)
	}

	c := resultcache.New(store, cacheKeyPrefix)
	c.SetLogger(logger)
	return c, closeFn, nil
}

// openService wires the search backend, cache and logger into a service.
func openService(app *app) (*aggregate.Service, func(), error) {
	searcher, closeSearcher, err := openSearcher(app.v, app.logger)
	if err != nil {
		return nil, nil, err
	}
	cache, closeCache, err := openCache(app.v, app.logger, searcher)
	if err != nil {
		closeSearcher()
		return nil, nil, err
	}

	svc := aggregate.NewService(searcher, serviceConfig(app.v))
	svc.SetLogger(app.logger)
	svc.SetCache(cache)

	closeAll := func() {
		if err := closeCache(); err != nil {
			app.logger.Warn("close cache", zap.Error(err))
		}
		if err := closeSearcher(); err != nil {
			app.logger.Warn("close search backend", zap.Error(err))
		}
	}
	return svc, closeAll, nil
}
