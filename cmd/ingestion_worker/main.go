package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/asr"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/chunking"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/config"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/embedding"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/events"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/ingestion"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/llm"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/objectstore"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/rag"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/store"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/vectorstore"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("ingestion_worker")
	appLogger.Info("starting ingestion worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, disconnect, err := store.Connect(ctx, cfg.Databases.Mongo, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer disconnect(context.Background())

	objects, err := objectstore.New(ctx, cfg.Databases.MinIO, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	vectors, err := vectorstore.New(ctx, cfg.Databases.Milvus, appLogger)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer vectors.Close()

	embeddings, err := embedding.NewModel(cfg.Embedding)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	model, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	kafkaCfg := cfg.Databases.Kafka
	consumer := events.NewConsumer(kafkaCfg.Brokers, kafkaCfg.UploadTopic, kafkaCfg.GroupID, appLogger)
	defer consumer.Close()
	status := events.NewPublisher(kafkaCfg.Brokers, kafkaCfg.StatusTopic, appLogger)
	defer status.Close()

	worker := ingestion.NewWorker(ingestion.Deps{
		Meetings:   store.NewMongoMeetingStore(db),
		Objects:    objects,
		ASR:        asr.NewClient(cfg.ASR, appLogger),
		Summariser: rag.NewSummariser(model, appLogger),
		Chunker:    chunking.NewChunker(embeddings, cfg.Chunking, appLogger),
		Embeddings: embeddings,
		Vectors:    vectors,
		Status:     status,
	}, appLogger)

	worker.Run(ctx, consumer)
}
