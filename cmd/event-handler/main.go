package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"note-enhancer/internal/config"
	"note-enhancer/internal/events"
	"note-enhancer/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	imports, err := storage.NewMinioStoreWithClient(ctx, minioClient, cfg.MinioImportBucket)
	if err != nil {
		log.Fatalf("open import bucket: %v", err)
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer store.Close()

	importer := events.NewImporter(imports, store, cfg.MaxImportBytes)
	source := events.NewMinioImportEventSource(minioClient, cfg.MinioImportBucket, "")

	log.Printf("event-handler listening for note imports on bucket=%s", cfg.MinioImportBucket)
	err = source.Run(ctx, func(parent context.Context, event events.ImportEvent) error {
		handleCtx, cancel := context.WithTimeout(parent, 15*time.Second)
		defer cancel()
		return importer.Handle(handleCtx, event)
	})
	if err != nil {
		log.Fatalf("event-handler stopped with error: %v", err)
	}
}
