package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rushteam/petmatch/catalog"
	"github.com/rushteam/petmatch/config"
	_ "github.com/rushteam/petmatch/config/builders"
	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/feature"
	"github.com/rushteam/petmatch/images"
	"github.com/rushteam/petmatch/match"
	"github.com/rushteam/petmatch/pkg/logging"
	"github.com/rushteam/petmatch/recommend"
	"github.com/rushteam/petmatch/server"
	"github.com/rushteam/petmatch/service"
	"github.com/rushteam/petmatch/store"
	"github.com/rushteam/petmatch/vision"
)

func main() {
	rebuild := flag.Bool("rebuild", false, "ignore the persisted feature store and rebuild it from the image source")
	buildOnly := flag.Bool("build-only", false, "build (or load) the feature store and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *rebuild, *buildOnly); err != nil {
		logging.Fatal().Err(err).Msg("petmatch exited")
	}
}

func run(ctx context.Context, cfg *config.Config, rebuild, buildOnly bool) error {
	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	logging.Info().Str("path", cfg.Catalog.Path).Int("pets", cat.Len()).Msg("catalog loaded")

	src, err := newImageSource(ctx, cfg.Images)
	if err != nil {
		return err
	}

	model, err := service.NewMLService(&cfg.Model)
	if err != nil {
		return err
	}
	defer model.Close()
	if err := service.TestConnection(ctx, model); err != nil {
		logging.Warn().Err(err).Str("endpoint", cfg.Model.Endpoint).Msg("model server is not healthy yet")
	}
	extractor := vision.NewModelExtractor(model)

	persister, err := newPersister(ctx, cfg.FeatureStore)
	if err != nil {
		return err
	}
	provider := store.NewProvider(persister, &store.Builder{
		Source:      src,
		Extractor:   extractor,
		Concurrency: cfg.FeatureStore.Concurrency,
	})
	provider.Rebuild = rebuild
	defer provider.Close()

	if buildOnly {
		fs, err := provider.Get(ctx)
		if err != nil {
			return err
		}
		logging.Info().Int("entries", fs.Len()).Msg("feature store ready")
		return nil
	}
	if cfg.FeatureStore.Warmup {
		go func() {
			if _, err := provider.Get(ctx); err != nil {
				logging.Error().Err(err).Msg("feature store warmup failed")
			}
		}()
	}

	pcfg, err := config.LoadPipelineConfig(cfg.Recommend, cfg.Server.BaseURL)
	if err != nil {
		return err
	}
	p, err := config.BuildPipeline(pcfg)
	if err != nil {
		return err
	}

	schema := feature.DefaultSchema()
	if cfg.Recommend.SchemaPath != "" {
		if schema, err = feature.LoadSchema(cfg.Recommend.SchemaPath); err != nil {
			return err
		}
	}
	if err := schema.CheckColumns(cat); err != nil {
		return fmt.Errorf("schema does not match catalog %s: %w", cfg.Catalog.Path, err)
	}
	var encoder recommend.Encoder = schema.Encoder()
	if cfg.Recommend.EncoderCache {
		encoder = feature.NewCachedEncoder(schema.Encoder(), 0, cfg.Recommend.EncoderCacheTTL)
	}

	resolver := images.NewURLResolver(cfg.Server.BaseURL)
	srv := server.New(server.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, cat, src, recommend.NewService(encoder, p), match.NewService(extractor, resolver), provider)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Str("pipeline", p.Name).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newImageSource(ctx context.Context, cfg config.ImagesConfig) (images.Source, error) {
	switch cfg.Type {
	case "minio":
		client, err := images.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := images.EnsureBucket(ctx, client, cfg.Minio.Bucket); err != nil {
			return nil, fmt.Errorf("images: ensure bucket %s: %w", cfg.Minio.Bucket, err)
		}
		return images.NewMinioSource(client, cfg.Minio.Bucket, cfg.Minio.Prefix), nil
	default:
		return images.NewDirSource(cfg.Dir), nil
	}
}

func newPersister(ctx context.Context, cfg config.FeatureStoreConfig) (core.FeatureStorePersister, error) {
	switch cfg.Backend {
	case "badger":
		return store.OpenBadger(cfg.Path, false)
	case "redis":
		return store.OpenRedis(ctx, cfg.Redis)
	default:
		return nil, nil
	}
}
