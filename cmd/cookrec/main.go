// cookrec 推荐服务入口：装配存储、召回、缓存与 HTTP API。
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodiecorner/cookrec/cache"
	"github.com/foodiecorner/cookrec/config"
	"github.com/foodiecorner/cookrec/core"
	"github.com/foodiecorner/cookrec/feature"
	"github.com/foodiecorner/cookrec/pipeline"
	"github.com/foodiecorner/cookrec/recall"
	"github.com/foodiecorner/cookrec/recommender"
	"github.com/foodiecorner/cookrec/service"
	"github.com/foodiecorner/cookrec/similarity"
	"github.com/foodiecorner/cookrec/store"
)

func main() {
	configPath := flag.String("config", "", "服务配置文件路径（YAML），为空时使用默认配置")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg := config.DefaultService()
	if configPath != "" {
		loaded, err := config.LoadService(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// 存储：配置了 Redis 用 Redis，否则内存存储（开发 / 测试）
	var kv core.KeyValueStore
	if cfg.Redis.Addr != "" {
		rs, err := store.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		kv = rs
		logger.Info("using redis store", "addr", cfg.Redis.Addr)
	} else {
		kv = store.NewMemoryStore()
		logger.Info("using in-memory store")
	}
	defer func() { _ = kv.Close() }()

	interactions := store.NewInteractionAdapter(kv, "inter")
	catalog := store.NewCatalog(kv, "cat")

	metric, err := similarity.New(cfg.Recommend.Metric)
	if err != nil {
		return err
	}

	hot := &recall.Hot{
		Interactions: interactions,
		Catalog:      catalog,
		Store:        kv,
		Key:          interactions.LikesKey(),
	}

	rec := &recommender.Recommender{
		Interactions: interactions,
		Catalog:      catalog,
		Source: &recall.UserCF{
			Store:         interactions,
			Metric:        metric,
			TopKNeighbors: cfg.Recommend.Neighbors,
		},
		Hot:      hot,
		Cache:    newResultCache(kv, cfg),
		PoolSize: cfg.Recommend.PoolSize,
		Logger:   logger,
	}

	// 可选：配置驱动的后置 Pipeline（过滤 / 重排）
	if cfg.PipelineFile != "" {
		config.RegisterBuiltins(config.Deps{
			Interactions: interactions,
			Catalog:      catalog,
			Store:        kv,
			HotKey:       interactions.LikesKey(),
		})
		pipeCfg, err := pipeline.LoadFromYAML(cfg.PipelineFile)
		if err != nil {
			return err
		}
		if err := config.ValidatePipelineConfig(pipeCfg); err != nil {
			return err
		}
		post, err := pipeCfg.BuildPipeline(config.DefaultFactory())
		if err != nil {
			return err
		}
		rec.Post = post
		logger.Info("post pipeline loaded", "file", cfg.PipelineFile, "nodes", len(post.Nodes))
	}

	// 可选：Feast 特征增强
	if cfg.Feast.Enabled() {
		provider, err := feature.NewFeastProvider(cfg.Feast.Host, cfg.Feast.Port, cfg.Feast.Project, cfg.Feast.Features)
		if err != nil {
			return err
		}
		defer func() { _ = provider.Close() }()
		rec.Features = provider
		logger.Info("feast feature provider enabled", "host", cfg.Feast.Host)
	}

	srv := &service.Server{
		Recommender:  rec,
		Interactions: interactions,
		Logger:       logger,
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func newResultCache(kv core.Store, cfg *config.ServiceConfig) *cache.ResultCache {
	c := &cache.ResultCache{Store: kv, Version: cfg.Cache.Version}
	if cfg.Cache.TTLSeconds > 0 {
		c.TTL = time.Duration(cfg.Cache.TTLSeconds) * time.Second
	}
	return c
}
