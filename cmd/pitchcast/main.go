package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"pitchcast/internal/app"
	"pitchcast/internal/config"
	"pitchcast/internal/server"
	"pitchcast/internal/util"
	"pitchcast/pkg/ai"
	"pitchcast/pkg/media"
	"pitchcast/pkg/queue"
	"pitchcast/pkg/storage"
	"pitchcast/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	objects, err := storage.NewMinioStore(
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL,
		cfg.VideoBucket, cfg.AudioBucket,
	)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	jobs, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		Stream:     cfg.QueueStream,
		Group:      cfg.QueueGroup,
		MaxRetries: cfg.QueueMaxRetries,
	})
	if err != nil {
		log.Fatalf("failed to init job queue: %v", err)
	}

	scripts, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("failed to init gemini client: %v", err)
	}
	transcriber, err := ai.NewDeepgramClient(cfg.DeepgramAPIKey, "")
	if err != nil {
		log.Fatalf("failed to init deepgram client: %v", err)
	}
	voices, err := ai.NewElevenLabsClient(cfg.ElevenLabsAPIKey)
	if err != nil {
		log.Fatalf("failed to init elevenlabs client: %v", err)
	}
	synth, err := ai.NewSyncLabsClient(cfg.SyncLabsAPIKey)
	if err != nil {
		log.Fatalf("failed to init synclabs client: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:       db,
		Objects:     objects,
		Extractor:   media.NewExtractor(objects, cfg.FFmpegPath),
		Transcriber: transcriber,
		Voices:      voices,
		Speech:      voices,
		Synth:       synth,
		Scripts:     scripts,
		Enqueuer: app.EnqueuerFunc(func(ctx context.Context, videoID string) error {
			_, err := jobs.Enqueue(ctx, videoID)
			return err
		}),
		VideoBucket:     cfg.VideoBucket,
		AudioBucket:     cfg.AudioBucket,
		DefaultModel:    cfg.DefaultModel,
		SynthTimeout:    time.Duration(cfg.SynthTimeoutHours) * time.Hour,
		PollConcurrency: cfg.PollConcurrency,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{App: appCore})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs.Start(ctx, cfg.QueueConcurrency, func(ctx context.Context, job queue.JobStatus) error {
		return appCore.ProcessVideo(ctx, job.VideoID)
	})
	go appCore.RunReconciler(ctx, time.Duration(cfg.PollIntervalSeconds)*time.Second)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("pitchcast server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
