package main

import (
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"note-enhancer/internal/cache"
	"note-enhancer/internal/config"
	"note-enhancer/internal/openai"
	"note-enhancer/internal/storage"
	appTemporal "note-enhancer/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer store.Close()

	revisions, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioRevisionBucket)
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}

	var llm openai.Client = openai.NewHTTPClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	if cfg.RedisURL != "" {
		replyCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.GenerationCacheTTL())
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer replyCache.Close()
		llm = cache.NewCachingClient(llm, replyCache)
		log.Printf("generation cache enabled ttl=%s", cfg.GenerationCacheTTL())
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("connect temporal: %v", err)
	}
	defer temporalClient.Close()

	activities := &appTemporal.Activities{
		Store:          store,
		Revisions:      revisions,
		LLM:            llm,
		OpenAIModel:    cfg.OpenAIModel,
		OpenAITimeout:  cfg.OpenAITimeout(),
		OpenAIMaxRetry: cfg.OpenAIMaxRetry,
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.NoteEnhancementWorkflow, workflow.RegisterOptions{Name: appTemporal.NoteEnhancementWorkflowName})
	w.RegisterActivity(activities.LoadNoteActivity)
	w.RegisterActivity(activities.GenerateActivity)
	w.RegisterActivity(activities.SnapshotNoteActivity)
	w.RegisterActivity(activities.ApplyEnhancementActivity)
	w.RegisterActivity(activities.RecordOutcomeActivity)

	log.Printf("worker running on task queue %s", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker stopped with error: %v", err)
	}
}
