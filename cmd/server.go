package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"AlbumShelf/cache"
	"AlbumShelf/core/auth"
	"AlbumShelf/core/catalog"
	"AlbumShelf/db"
	"AlbumShelf/logger"
	"AlbumShelf/repository"
	"AlbumShelf/server"
	"AlbumShelf/storage"
	"AlbumShelf/web"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 AlbumShelf 服务器",
	Long:  `启动 AlbumShelf 的 HTTP 服务器，提供专辑目录页面、收藏和搜索功能`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := cfg.Validate(); err != nil {
		return err
	}

	gdb, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	var flash cache.FlashStore = cache.NewCookieFlashStore()
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = db.ConnectRedis(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		flash = cache.NewRedisFlashStore(redisClient)
		logger.Info("Successfully connected to Redis", logger.String("host", cfg.RedisHost))
	}

	var bucket *storage.Bucket
	if cfg.MinioEnabled() {
		bucket, err = storage.NewBucket(cfg)
		if err != nil {
			return err
		}
		if err := bucket.EnsureBucket(ctx); err != nil {
			return err
		}
		logger.Info("MinIO 静态资源存储桶已就绪", logger.String("bucket", bucket.Name()))
	}

	renderer, err := server.NewRenderer(web.Templates())
	if err != nil {
		return err
	}
	if cfg.Debug && cfg.TemplateDir != "" {
		if err := renderer.Watch(ctx, cfg.TemplateDir); err != nil {
			return err
		}
		logger.Info("Template hot reload enabled", logger.String("dir", cfg.TemplateDir))
	}

	health := func(ctx context.Context) error {
		if err := db.Ping(ctx, gdb); err != nil {
			return err
		}
		if redisClient != nil {
			return redisClient.Ping(ctx).Err()
		}
		return nil
	}

	svc := catalog.NewService(
		repository.NewGormAlbumRepository(gdb),
		repository.NewGormArtistRepository(gdb),
		repository.NewGormGenreRepository(gdb),
	)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	handler := server.NewAPIHandler(
		svc,
		repository.NewGormUserRepository(gdb),
		tokens,
		flash,
		renderer,
		health,
		!cfg.Debug,
	)

	server.RegisterMetrics(prometheus.DefaultRegisterer)
	router := server.NewRouter(handler, server.NewStaticHandler(bucket, web.Static()))
	return server.Start(ctx, cfg.HTTPAddr, router)
}
